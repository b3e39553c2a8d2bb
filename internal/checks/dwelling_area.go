package checks

import (
	"context"
	"fmt"

	"github.com/ifcore/checkd/internal/model"
)

// DwellingArea verifies that the summed floor area of all spaces meets
// the minimum dwelling area. The verdict applies to the dwelling as a
// whole, so every space row carries the same status.
type DwellingArea struct{}

func (DwellingArea) Name() string { return "check_dwelling_area" }
func (DwellingArea) Team() string { return team }

func (DwellingArea) Defaults() map[string]float64 {
	return map[string]float64{"min_area": 36.0}
}

func (DwellingArea) Run(_ context.Context, m model.Context, params map[string]float64) ([]map[string]any, error) {
	minArea := params["min_area"]
	spaces := m.ElementsByType("IfcSpace")

	total := 0.0
	for _, s := range spaces {
		total += s.Quantity("area")
	}

	status := "pass"
	var comment *string
	if total < minArea {
		status = "fail"
		c := fmt.Sprintf("Total dwelling area %.2f m² is below required %.2f m²", total, minArea)
		comment = &c
	}

	rows := make([]map[string]any, 0, len(spaces))
	for _, s := range spaces {
		rows = append(rows, elementRow(s, "dwelling area check", status,
			meters2(s.Quantity("area")), meters2(minArea), comment))
	}
	return rows, nil
}
