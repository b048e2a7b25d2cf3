// Package plan describes synthetic workloads. A plan lists named components,
// how long each one takes to create and which other components it needs.
// Installing a plan into a container turns every component into a
// definition whose factory spends the component's cost on a clock.
package plan

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sarchlab/selftime/container"
	"github.com/sarchlab/selftime/timing"
	"gopkg.in/yaml.v3"
)

// ErrComponentFailed is returned by the factory of a component that is
// marked to fail.
var ErrComponentFailed = errors.New("component failed")

// A Component is one unit of work in a plan.
type Component struct {
	Name      string        `yaml:"name"`
	Cost      time.Duration `yaml:"cost"`
	DependsOn []string      `yaml:"depends_on,omitempty"`
	Fail      bool          `yaml:"fail,omitempty"`
}

// A Plan is a named list of components.
type Plan struct {
	Name       string      `yaml:"name"`
	Components []Component `yaml:"components"`
}

// Load reads a plan from a YAML file. The plan is validated.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading plan")
	}

	p, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading plan %s", path)
	}

	return p, nil
}

// Parse decodes and validates a plan.
func Parse(data []byte) (*Plan, error) {
	p := &Plan{}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errors.Wrap(err, "parsing plan")
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Validate checks that component names are unique and non-empty, that every
// dependency names a component in the plan and that no cost is negative.
// Cycles are left to the container to detect.
func (p *Plan) Validate() error {
	names := make(map[string]bool, len(p.Components))

	for _, c := range p.Components {
		if c.Name == "" {
			return errors.New("component without a name")
		}

		if names[c.Name] {
			return errors.Errorf("component %s is defined twice", c.Name)
		}

		if c.Cost < 0 {
			return errors.Errorf("component %s has a negative cost", c.Name)
		}

		names[c.Name] = true
	}

	for _, c := range p.Components {
		for _, dep := range c.DependsOn {
			if !names[dep] {
				return errors.Errorf(
					"component %s depends on undefined component %s",
					c.Name, dep)
			}
		}
	}

	return nil
}

// TotalCost returns the sum of the costs of all components, which is the
// time that creating every component takes.
func (p *Plan) TotalCost() time.Duration {
	var total time.Duration
	for _, c := range p.Components {
		total += c.Cost
	}

	return total
}

// Install registers one definition per component. Each factory spends the
// component's cost on clock after its dependencies have been created.
func (p *Plan) Install(c *container.Container, clock timing.Clock) error {
	for _, comp := range p.Components {
		def := container.Definition{
			Name:      comp.Name,
			DependsOn: comp.DependsOn,
			Factory:   factoryFor(comp, clock),
		}

		if err := c.Register(def); err != nil {
			return errors.Wrap(err, "installing plan")
		}
	}

	return nil
}

func factoryFor(comp Component, clock timing.Clock) container.Factory {
	return func(deps map[string]any) (any, error) {
		clock.Spend(comp.Cost)

		if comp.Fail {
			return nil, errors.Wrap(ErrComponentFailed, comp.Name)
		}

		return &Instance{Name: comp.Name, Dependencies: deps}, nil
	}
}

// An Instance is what the factory of a plan component creates.
type Instance struct {
	Name         string
	Dependencies map[string]any
}
