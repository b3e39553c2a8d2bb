// Package checks holds the built-in compliance check routines. Each
// checker implements the registry contract: it reads the shared model
// context and emits raw element records in the nine-field element schema.
package checks

import (
	"fmt"
	"strings"

	"github.com/ifcore/checkd/internal/model"
	"github.com/ifcore/checkd/internal/registry"
)

const team = "regulations"

// All returns every built-in checker.
func All() []registry.Checker {
	return []registry.Checker{
		DwellingArea{},
		LivingAreaHeight{},
		LivingRoomCompliance{},
		ServiceSpacesMinHeight{},
		BedroomOccupancy{},
	}
}

var livingKeywords = []string{"living", "bedroom", "hall"}

var serviceKeywords = []string{
	"bath", "bathroom", "wc", "toilet",
	"kitchen",
	"hall", "hallway", "corridor",
}

func matchesAny(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// elementRow builds one raw record for a space. checkLabel annotates the
// long name so a dashboard can tell which check produced the row.
func elementRow(e model.Element, checkLabel, status, actual, required string, comment *string) map[string]any {
	var commentVal any
	if comment != nil {
		commentVal = *comment
	}
	return map[string]any{
		"element_id":        e.GlobalID,
		"element_type":      e.Type,
		"element_name":      e.Label(),
		"element_name_long": fmt.Sprintf("%s (%s)", e.Label(), checkLabel),
		"check_status":      status,
		"actual_value":      actual,
		"required_value":    required,
		"comment":           commentVal,
		"log":               nil,
	}
}

func meters2(v float64) string { return fmt.Sprintf("%.2f m²", v) }
func meters(v float64) string  { return fmt.Sprintf("%.2f m", v) }
