// Package schema validates raw per-element records against the canonical
// element-result shape. A malformed element is dropped with a diagnostic;
// its siblings continue.
package schema

import (
	"fmt"
	"strconv"

	"github.com/ifcore/checkd/pkg/models"
)

// Rejection is the diagnostic for one dropped raw element.
type Rejection struct {
	Index  int
	Reason string
}

func (r Rejection) String() string {
	return fmt.Sprintf("element %d: %s", r.Index, r.Reason)
}

// The nine fields of the element schema. check_status is mandatory; the
// rest default to null when absent.
var optionalFields = []string{
	"element_id",
	"element_type",
	"element_name",
	"element_name_long",
	"actual_value",
	"required_value",
	"comment",
	"log",
}

var knownFields = func() map[string]bool {
	m := map[string]bool{"check_status": true}
	for _, f := range optionalFields {
		m[f] = true
	}
	return m
}()

// Normalize validates and coerces raw element records into canonical
// ElementResults, preserving input order. Malformed records are returned
// as Rejections instead of aborting the batch. IDs are left zero; the
// aggregator assigns them.
func Normalize(raw []map[string]any) ([]models.ElementResult, []Rejection) {
	elements := make([]models.ElementResult, 0, len(raw))
	var rejections []Rejection

	for i, record := range raw {
		el, err := normalizeOne(record)
		if err != nil {
			rejections = append(rejections, Rejection{Index: i, Reason: err.Error()})
			continue
		}
		elements = append(elements, el)
	}

	return elements, rejections
}

// Malformed reports whether a run that returned elements had every single
// one rejected. An empty run is not malformed.
func Malformed(raw []map[string]any, kept []models.ElementResult) bool {
	return len(raw) > 0 && len(kept) == 0
}

func normalizeOne(record map[string]any) (models.ElementResult, error) {
	var el models.ElementResult

	for field := range record {
		if !knownFields[field] {
			return el, fmt.Errorf("unexpected field %q", field)
		}
	}

	rawStatus, present := record["check_status"]
	if !present || rawStatus == nil {
		return el, fmt.Errorf("check_status is missing")
	}
	status, ok := rawStatus.(string)
	if !ok {
		return el, fmt.Errorf("check_status: expected string, got %T", rawStatus)
	}
	if !models.ValidElementStatus(status) {
		return el, fmt.Errorf("check_status %q is not one of pass, fail, warning, blocked, log", status)
	}
	el.CheckStatus = status

	for _, field := range optionalFields {
		val, err := stringField(record, field)
		if err != nil {
			return models.ElementResult{}, err
		}
		switch field {
		case "element_id":
			el.ElementID = val
		case "element_type":
			el.ElementType = val
		case "element_name":
			el.ElementName = val
		case "element_name_long":
			el.ElementNameLong = val
		case "actual_value":
			el.ActualValue = val
		case "required_value":
			el.RequiredValue = val
		case "comment":
			el.Comment = val
		case "log":
			el.Log = val
		}
	}

	return el, nil
}

// stringField reads an optional text field. Absent or null becomes nil;
// numeric values are coerced to their decimal form since raw records
// frequently arrive through JSON.
func stringField(record map[string]any, field string) (*string, error) {
	raw, present := record[field]
	if !present || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case string:
		return &v, nil
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		return &s, nil
	case int:
		s := strconv.Itoa(v)
		return &s, nil
	default:
		return nil, fmt.Errorf("%s: expected string, got %T", field, raw)
	}
}
