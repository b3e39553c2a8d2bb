// Package model defines the read-only handle to one loaded building model.
// Parsing of the model file format itself happens outside this service; a
// Loader hands the engine an already-materialized Context.
package model

import (
	"context"
	"errors"
)

// ErrModelUnavailable is returned by a Loader when no model can be
// materialized for a project.
var ErrModelUnavailable = errors.New("model unavailable")

// Element is one entity of a loaded model: a space, door, wall, etc.
// Quantities holds pre-extracted numeric measures keyed by name
// ("area", "height", "width").
type Element struct {
	GlobalID   string             `json:"global_id"`
	Type       string             `json:"type"`
	Name       string             `json:"name"`
	LongName   string             `json:"long_name"`
	Quantities map[string]float64 `json:"quantities"`
}

// Label returns the most descriptive name available for the element.
func (e Element) Label() string {
	if e.LongName != "" {
		return e.LongName
	}
	if e.Name != "" {
		return e.Name
	}
	return e.GlobalID
}

// Quantity returns a named numeric measure, or 0 when absent.
func (e Element) Quantity(name string) float64 {
	return e.Quantities[name]
}

// Context is the opaque read-only handle shared by all checks in a job.
// Implementations must be safe for concurrent reads; the engine runs many
// checks against one Context without synchronization.
type Context interface {
	// ElementsByType returns all elements of the given type, in model order.
	ElementsByType(elementType string) []Element
	// Types returns the distinct element types present in the model.
	Types() []string
}

// Loader materializes a Context for a project's uploaded model.
type Loader interface {
	Load(ctx context.Context, projectID string) (Context, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, projectID string) (Context, error)

func (f LoaderFunc) Load(ctx context.Context, projectID string) (Context, error) {
	return f(ctx, projectID)
}
