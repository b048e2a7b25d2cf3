// Command selftime runs workload plans and reports how long each component
// took to create, with and without its dependencies.
package main

import "github.com/sarchlab/selftime/cmd/selftime/cmd"

func main() {
	cmd.Execute()
}
