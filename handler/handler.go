// Package handler provides the registry of in-process handlers a worker
// can run instead of a shell command.
//
// Processor documents select an in-process handler by module and callable
// name. The registry is assembled at program start; a document naming an
// unregistered handler is rejected when the config is registered, not
// when a file arrives.
package handler

import (
	"context"
	"errors"
	"fmt"
)

// Request carries everything a handler invocation may use. DataFile is
// always set. TrackerPath and Metadata are empty unless the processor
// document grants the capability.
type Request struct {
	// DataFile is the local path of the staged data file.
	DataFile string
	// TrackerPath is the tracker pipe path, or "" when the processor
	// does not support the pizza tracker.
	TrackerPath string
	// Metadata holds the object's store metadata, or nil when the
	// processor does not support metadata.
	Metadata map[string]string
}

// Func is an in-process handler entry point. A non-nil error fails the
// job and sends the file to the error directory.
type Func func(ctx context.Context, req *Request) error

// Registry maps module and callable names to handler entry points.
type Registry struct {
	modules map[string]map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]map[string]Func)}
}

// Register adds an entry point under the given module and callable names.
func (r *Registry) Register(module, callable string, fn Func) error {
	if module == "" {
		return errors.New("handler module name is required")
	}
	if callable == "" {
		return errors.New("handler callable name is required")
	}
	if fn == nil {
		return errors.New("handler func is required")
	}

	callables, ok := r.modules[module]
	if !ok {
		callables = make(map[string]Func)
		r.modules[module] = callables
	}
	if _, exists := callables[callable]; exists {
		return fmt.Errorf("handler %s.%s already registered", module, callable)
	}
	callables[callable] = fn
	return nil
}

// Resolve looks up an entry point by module and callable names.
func (r *Registry) Resolve(module, callable string) (Func, bool) {
	fn, ok := r.modules[module][callable]
	return fn, ok
}

// Defaults returns a registry with the built-in handlers registered.
func Defaults() *Registry {
	r := NewRegistry()
	if err := r.Register(LineCountModule, "run", LineCount); err != nil {
		panic(err)
	}
	return r
}
