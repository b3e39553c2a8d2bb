// Package aggregate reduces a check's element results, or its failure,
// into one CheckResult verdict.
package aggregate

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ifcore/checkd/pkg/models"
)

// Kind classifies how a check's execution ended.
type Kind int

const (
	// Normal: the routine returned, possibly with zero elements.
	Normal Kind = iota
	// Failure: the routine raised or timed out. Partial elements are
	// discarded wholesale; a check either fully reports or reports nothing.
	Failure
	// Malformed: the routine returned elements but every one failed
	// schema validation.
	Malformed
)

// Input is everything the reduction needs about one executed check.
type Input struct {
	JobID     uuid.UUID
	ProjectID string
	CheckName string
	Team      string
	Kind      Kind
	Elements  []models.ElementResult
	// FaultText describes the exception or timeout for Failure inputs.
	FaultText string
	// RejectedCount is the number of dropped elements for Malformed inputs.
	RejectedCount int
}

// Reduce applies the aggregation policy, in priority order: failure and
// malformed runs become "error", an empty normal run becomes "unknown",
// any failing element makes the check "fail", and anything else passes.
// Element ids and the parent link are assigned here.
func Reduce(in Input) *models.CheckResult {
	res := &models.CheckResult{
		ID:        uuid.New(),
		ProjectID: in.ProjectID,
		JobID:     in.JobID,
		CheckName: in.CheckName,
		Team:      in.Team,
		CreatedAt: time.Now().UTC(),
	}

	switch in.Kind {
	case Failure:
		res.Status = models.CheckStatusError
		res.Summary = in.FaultText
		return res
	case Malformed:
		res.Status = models.CheckStatusError
		res.Summary = fmt.Sprintf("all %d elements failed schema validation", in.RejectedCount)
		return res
	}

	if len(in.Elements) == 0 {
		res.Status = models.CheckStatusUnknown
		res.Summary = "0 elements checked"
		return res
	}

	res.HasElements = true
	res.Elements = make([]models.ElementResult, len(in.Elements))
	res.Status = models.CheckStatusPass
	for i, el := range in.Elements {
		el.ID = uuid.New()
		el.CheckResultID = res.ID
		res.Elements[i] = el
		if el.CheckStatus == models.ElementStatusFail {
			res.Status = models.CheckStatusFail
		}
	}
	res.Summary = summarize(res.Elements)
	return res
}

// statusOrder fixes the field order of summary lines.
var statusOrder = []string{
	models.ElementStatusPass,
	models.ElementStatusFail,
	models.ElementStatusWarning,
	models.ElementStatusBlocked,
}

// summarize renders e.g. "2 doors checked: 1 pass, 1 fail", reporting
// only non-zero counts.
func summarize(elements []models.ElementResult) string {
	counts := make(map[string]int)
	for _, el := range elements {
		counts[el.CheckStatus]++
	}

	var parts []string
	for _, status := range statusOrder {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}

	line := fmt.Sprintf("%d %s checked", len(elements), noun(elements))
	if len(parts) > 0 {
		line += ": " + strings.Join(parts, ", ")
	}
	return line
}

// noun derives a human type name from the elements: "doors" when every
// element is an IfcDoor, "elements" for mixed or untyped sets.
func noun(elements []models.ElementResult) string {
	var typ string
	for _, el := range elements {
		if el.ElementType == nil {
			return plural("element", len(elements))
		}
		if typ == "" {
			typ = *el.ElementType
		} else if typ != *el.ElementType {
			return plural("element", len(elements))
		}
	}
	if typ == "" {
		return plural("element", len(elements))
	}
	return plural(strings.ToLower(strings.TrimPrefix(typ, "Ifc")), len(elements))
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
