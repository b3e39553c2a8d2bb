package checks

import (
	"context"
	"fmt"

	"github.com/ifcore/checkd/internal/model"
)

// LivingAreaHeight verifies that every main living area (living rooms,
// bedrooms, halls, matched by name keyword) meets the minimum clear
// height.
type LivingAreaHeight struct{}

func (LivingAreaHeight) Name() string { return "check_living_area_height" }
func (LivingAreaHeight) Team() string { return team }

func (LivingAreaHeight) Defaults() map[string]float64 {
	return map[string]float64{"min_height": 2.50}
}

func (LivingAreaHeight) Run(_ context.Context, m model.Context, params map[string]float64) ([]map[string]any, error) {
	minHeight := params["min_height"]

	var rows []map[string]any
	for _, s := range m.ElementsByType("IfcSpace") {
		if !matchesAny(s.Label(), livingKeywords) {
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

		rows = append(rows, elementRow(s, "living area height check", status,
			meters(height), meters(minHeight), comment))
	}
	return rows, nil
}
