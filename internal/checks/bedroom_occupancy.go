package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/ifcore/checkd/internal/model"
)

// BedroomOccupancy maps each bedroom's floor area to the occupancy it
// supports: below the minimum it is an invalid bedroom, then 1 person
// from 5 m², 2 from 8 m², 3 from 12 m².
type BedroomOccupancy struct{}

func (BedroomOccupancy) Name() string { return "check_bedroom_occupancy" }
func (BedroomOccupancy) Team() string { return team }

func (BedroomOccupancy) Defaults() map[string]float64 {
	return map[string]float64{"min_area": 5.0}
}

func (BedroomOccupancy) Run(_ context.Context, m model.Context, params map[string]float64) ([]map[string]any, error) {
	minArea := params["min_area"]

	var rows []map[string]any
	for _, s := range m.ElementsByType("IfcSpace") {
		if !strings.Contains(strings.ToLower(s.Label()), "bedroom") {
			continue
		}

		area := s.Quantity("area")
		status := "pass"
		var c string
		switch {
		case area < minArea:
			status = "fail"
			c = fmt.Sprintf("%s area %.2f m² is too small for a bedroom", s.Label(), area)
		case area < 8.0:
			c = "supports 1 occupant"
		case area < 12.0:
			c = "supports 2 occupants"
		default:
			c = "supports 3 occupants"
		}

		rows = append(rows, elementRow(s, "bedroom occupancy check", status,
			meters2(area), meters2(minArea), &c))
	}
	return rows, nil
}
