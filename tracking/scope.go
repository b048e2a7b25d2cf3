package tracking

// A Scope can begin and end operations.
type Scope interface {
	Begin(id string)
	End(id string)
}

// Track begins an operation and returns the function that ends it.
func Track(s Scope, id string) func() {
	s.Begin(id)

	return func() { s.End(id) }
}

// Run runs fn as the operation id. The operation ends when fn returns, fails
// or panics.
func Run(s Scope, id string, fn func() error) error {
	defer Track(s, id)()

	return fn()
}

// Track begins an operation and returns the function that ends it.
func (t *Tracker) Track(id string) func() {
	return Track(t, id)
}

// Run runs fn as the operation id. The operation ends when fn returns, fails
// or panics.
func (t *Tracker) Run(id string, fn func() error) error {
	return Run(t, id, fn)
}

var _ Scope = (*Tracker)(nil)
