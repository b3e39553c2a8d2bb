package handler

import (
	"net/http"

	"github.com/ifcore/checkd/internal/api/response"
	"github.com/ifcore/checkd/internal/registry"
)

// Catalog defines the interface the checks listing handler depends on.
type Catalog interface {
	Catalog() []registry.Descriptor
}

// NewListChecksHandler returns an http.HandlerFunc for GET /api/v1/checks.
func NewListChecksHandler(cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		descriptors := cat.Catalog()

		checks := make([]checkDescriptorResponse, 0, len(descriptors))
		for _, d := range descriptors {
			checks = append(checks, checkDescriptorResponse{
				Name:     d.Name,
				Team:     d.Team,
				Defaults: d.Defaults,
			})
		}
		response.JSON(w, checks)
	}
}

type checkDescriptorResponse struct {
	Name     string             `json:"name"`
	Team     string             `json:"team"`
	Defaults map[string]float64 `json:"defaults"`
}
