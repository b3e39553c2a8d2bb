// Package registry validates and catalogs check routines against the
// checker contract. The catalog is built once at startup and is immutable
// for the lifetime of a run.
package registry

import (
	"context"
	"fmt"
	"math"
	"regexp"

	"github.com/ifcore/checkd/internal/model"
)

// Checker is the capability interface a check routine implements to join
// the catalog. Run receives the shared read-only model and the effective
// parameters (defaults merged with any per-run overrides) and returns raw
// element records in the nine-field element schema.
type Checker interface {
	Name() string
	Team() string
	// Defaults lists every tunable parameter with its default value. A
	// parameter without a usable default is marked with NaN and fails
	// registration: checks must be runnable with the model alone.
	Defaults() map[string]float64
	Run(ctx context.Context, m model.Context, params map[string]float64) ([]map[string]any, error)
}

// Descriptor is one registered, runnable check.
type Descriptor struct {
	Name     string
	Team     string
	Defaults map[string]float64

	checker Checker
}

// Run invokes the underlying routine. overrides replace individual
// defaults for this run only.
func (d Descriptor) Run(ctx context.Context, m model.Context, overrides map[string]float64) ([]map[string]any, error) {
	params := make(map[string]float64, len(d.Defaults))
	for k, v := range d.Defaults {
		params[k] = v
	}
	for k, v := range overrides {
		if _, known := params[k]; known {
			params[k] = v
		}
	}
	return d.checker.Run(ctx, m, params)
}

// RegistrationError reports a candidate that violated the checker
// contract. It excludes the candidate but never blocks other
// registrations.
type RegistrationError struct {
	Name   string
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register check %q: %s", e.Name, e.Reason)
}

var checkNameRe = regexp.MustCompile(`^check_[a-z0-9]+(_[a-z0-9]+)*$`)

// Registry is the immutable-per-run catalog of runnable checks. Register
// all candidates at startup, then only List is called.
type Registry struct {
	descriptors []Descriptor
	byName      map[string]Descriptor
	rejected    []*RegistrationError
}

func New() *Registry {
	return &Registry{byName: make(map[string]Descriptor)}
}

// Register validates a candidate against the checker contract and adds it
// to the catalog. A violating candidate is recorded as rejected and
// reported; the registry itself stays usable.
func (r *Registry) Register(c Checker) (*Descriptor, error) {
	name := c.Name()

	if !checkNameRe.MatchString(name) {
		return nil, r.reject(name, fmt.Sprintf("name must match %s", checkNameRe))
	}
	if _, exists := r.byName[name]; exists {
		return nil, r.reject(name, "a check with this name is already registered")
	}

	defaults := make(map[string]float64, len(c.Defaults()))
	for param, def := range c.Defaults() {
		if math.IsNaN(def) {
			return nil, r.reject(name, fmt.Sprintf("parameter %q has no default; only the model may be required", param))
		}
		defaults[param] = def
	}

	d := Descriptor{Name: name, Team: c.Team(), Defaults: defaults, checker: c}
	r.descriptors = append(r.descriptors, d)
	r.byName[name] = d
	return &d, nil
}

func (r *Registry) reject(name, reason string) *RegistrationError {
	err := &RegistrationError{Name: name, Reason: reason}
	r.rejected = append(r.rejected, err)
	return err
}

// List returns the runnable checks in registration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Rejected returns the diagnostics for every candidate excluded at
// registration time.
func (r *Registry) Rejected() []*RegistrationError {
	out := make([]*RegistrationError, len(r.rejected))
	copy(out, r.rejected)
	return out
}
