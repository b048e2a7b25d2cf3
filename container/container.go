// Package container is a small dependency-injection container whose
// component creation is measured by a tracking session. A component's
// dependencies are created while the component itself is being created, so
// their time nests under it.
package container

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sarchlab/selftime/tracking"
)

// Errors returned when components cannot be created.
var (
	ErrUnknownComponent   = errors.New("unknown component")
	ErrCircularDependency = errors.New("circular dependency")
)

// A Factory creates a component from its dependencies, keyed by name.
type Factory func(deps map[string]any) (any, error)

// A Definition tells a Container how to create a component.
type Definition struct {
	Name      string
	DependsOn []string
	Factory   Factory
}

// Container creates components on demand and keeps one instance of each.
type Container struct {
	scope tracking.Scope

	definitions map[string]Definition
	order       []string
	instances   map[string]any
	path        []string
}

// New creates an empty Container that measures component creation in scope.
func New(scope tracking.Scope) *Container {
	return &Container{
		scope:       scope,
		definitions: make(map[string]Definition),
		instances:   make(map[string]any),
	}
}

// Register adds a definition.
func (c *Container) Register(def Definition) error {
	if def.Name == "" {
		return errors.New("component name must not be empty")
	}

	if def.Factory == nil {
		return errors.Errorf("component %s has no factory", def.Name)
	}

	if _, exists := c.definitions[def.Name]; exists {
		return errors.Errorf("component %s is already registered", def.Name)
	}

	c.definitions[def.Name] = def
	c.order = append(c.order, def.Name)

	return nil
}

// Names returns the registered component names in registration order.
func (c *Container) Names() []string {
	names := make([]string, len(c.order))
	copy(names, c.order)

	return names
}

// IsCreated tells if a component has been created.
func (c *Container) IsCreated(name string) bool {
	_, ok := c.instances[name]
	return ok
}

// Get returns a component, creating it and its dependencies if needed.
func (c *Container) Get(name string) (any, error) {
	if instance, ok := c.instances[name]; ok {
		return instance, nil
	}

	def, ok := c.definitions[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownComponent, "%s", name)
	}

	if c.isCreating(name) {
		return nil, errors.Wrapf(ErrCircularDependency, "%s",
			strings.Join(append(c.Path(), name), " -> "))
	}

	var instance any
	err := tracking.Run(c.scope, name, func() error {
		var err error
		instance, err = c.create(def)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.instances[name] = instance

	return instance, nil
}

func (c *Container) create(def Definition) (any, error) {
	c.path = append(c.path, def.Name)
	defer func() { c.path = c.path[:len(c.path)-1] }()

	deps := make(map[string]any, len(def.DependsOn))
	for _, depName := range def.DependsOn {
		dep, err := c.Get(depName)
		if err != nil {
			return nil, errors.Wrapf(err, "creating %s", def.Name)
		}

		deps[depName] = dep
	}

	instance, err := def.Factory(deps)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", def.Name)
	}

	return instance, nil
}

func (c *Container) isCreating(name string) bool {
	for _, n := range c.path {
		if n == name {
			return true
		}
	}

	return false
}

// Path returns the names of the components being created, outermost first.
func (c *Container) Path() []string {
	path := make([]string, len(c.path))
	copy(path, c.path)

	return path
}

// PreInstantiate creates every registered component in registration order.
// It stops at the first failure.
func (c *Container) PreInstantiate() error {
	for _, name := range c.order {
		if _, err := c.Get(name); err != nil {
			return err
		}
	}

	return nil
}
