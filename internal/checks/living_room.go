package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/ifcore/checkd/internal/model"
)

// LivingRoomCompliance verifies living rooms for minimum area and
// clearance: 10 m² standalone, 14 m² when combined with a kitchen, and
// room for a clearance square (approximated through area).
type LivingRoomCompliance struct{}

func (LivingRoomCompliance) Name() string { return "check_living_room_compliance" }
func (LivingRoomCompliance) Team() string { return team }

func (LivingRoomCompliance) Defaults() map[string]float64 {
	return map[string]float64{
		"min_area":          10.0,
		"min_combined_area": 14.0,
		"clearance_side":    2.40,
	}
}

func (LivingRoomCompliance) Run(_ context.Context, m model.Context, params map[string]float64) ([]map[string]any, error) {
	minArea := params["min_area"]
	minCombined := params["min_combined_area"]
	clearance := params["clearance_side"]

	var rows []map[string]any
	for _, s := range m.ElementsByType("IfcSpace") {
		name := strings.ToLower(s.Label())
		if !strings.Contains(name, "living") {
			continue
		}

		required := minArea
		if strings.Contains(name, "kitchen") {
			required = minCombined
		}

		area := s.Quantity("area")
		status := "pass"
		var comment *string
		switch {
		case area < required:
			status = "fail"
			c := fmt.Sprintf("%s area %.2f m² is below required %.2f m²", s.Label(), area, required)
			comment = &c
		case area < clearance*clearance:
			status = "fail"
			c := fmt.Sprintf("%s cannot fit a %.2f x %.2f m clearance square", s.Label(), clearance, clearance)
			comment = &c
		}

		rows = append(rows, elementRow(s, "living room compliance check", status,
			meters2(area), meters2(required), comment))
	}
	return rows, nil
}
