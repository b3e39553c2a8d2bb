package checks

import (
	"context"
	"fmt"

	"github.com/ifcore/checkd/internal/model"
)

// ServiceSpacesMinHeight verifies that bathrooms, kitchens, and hallways
// (matched by name keyword) meet the lower service-space height minimum.
type ServiceSpacesMinHeight struct{}

func (ServiceSpacesMinHeight) Name() string { return "check_service_spaces_min_height" }
func (ServiceSpacesMinHeight) Team() string { return team }

func (ServiceSpacesMinHeight) Defaults() map[string]float64 {
	return map[string]float64{"min_height": 2.20}
}

func (ServiceSpacesMinHeight) Run(_ context.Context, m model.Context, params map[string]float64) ([]map[string]any, error) {
	minHeight := params["min_height"]

	var rows []map[string]any
	for _, s := range m.ElementsByType("IfcSpace") {
		if !matchesAny(s.Label(), serviceKeywords) {
			continue
		}

		height := s.Quantity("height")
		status := "pass"
		var comment *string
		if height < minHeight {
			status = "fail"
			c := fmt.Sprintf("%s height below %.2f m", s.Label(), minHeight)
			comment = &c
		}

		rows = append(rows, elementRow(s, "service space height check", status,
			meters(height), meters(minHeight), comment))
	}
	return rows, nil
}
