package aggregate_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifcore/checkd/internal/aggregate"
	"github.com/ifcore/checkd/pkg/models"
)

func element(elementType, status string) models.ElementResult {
	return models.ElementResult{
		ElementType: &elementType,
		CheckStatus: status,
	}
}

func input(kind aggregate.Kind, elements ...models.ElementResult) aggregate.Input {
	return aggregate.Input{
		JobID:     uuid.New(),
		ProjectID: "duplex",
		CheckName: "check_door_width",
		Team:      "regulations",
		Kind:      kind,
		Elements:  elements,
	}
}

func TestReduce_AnyFailWins(t *testing.T) {
	res := aggregate.Reduce(input(aggregate.Normal,
		element("IfcDoor", "pass"),
		element("IfcDoor", "fail"),
		element("IfcDoor", "warning"),
	))

	assert.Equal(t, models.CheckStatusFail, res.Status)
	assert.True(t, res.HasElements)
}

func TestReduce_AllPass(t *testing.T) {
	res := aggregate.Reduce(input(aggregate.Normal,
		element("IfcSpace", "pass"),
		element("IfcSpace", "pass"),
	))

	assert.Equal(t, models.CheckStatusPass, res.Status)
	assert.Equal(t, "2 spaces checked: 2 pass", res.Summary)
}

// Warning/blocked-only sets aggregate to pass: anything non-fail passes.
// Stricter semantics would be a policy change here, not a bug fix.
func TestReduce_WarningAndBlockedOnlyPass(t *testing.T) {
	res := aggregate.Reduce(input(aggregate.Normal,
		element("IfcSpace", "warning"),
		element("IfcSpace", "blocked"),
		element("IfcSpace", "log"),
	))

	assert.Equal(t, models.CheckStatusPass, res.Status)
	assert.Equal(t, "3 spaces checked: 1 warning, 1 blocked", res.Summary)
}

func TestReduce_EmptyNormalRunIsUnknown(t *testing.T) {
	res := aggregate.Reduce(input(aggregate.Normal))

	assert.Equal(t, models.CheckStatusUnknown, res.Status)
	assert.False(t, res.HasElements)
	assert.Equal(t, "0 elements checked", res.Summary)
	assert.Empty(t, res.Elements)
}

// A failed check either fully reports or reports nothing: elements
// computed before the fault are discarded.
func TestReduce_FailureDiscardsElements(t *testing.T) {
	in := input(aggregate.Failure,
		element("IfcDoor", "pass"),
	)
	in.FaultText = "timed out"

	res := aggregate.Reduce(in)

	assert.Equal(t, models.CheckStatusError, res.Status)
	assert.False(t, res.HasElements)
	assert.Empty(t, res.Elements)
	assert.Equal(t, "timed out", res.Summary)
}

func TestReduce_MalformedRun(t *testing.T) {
	in := input(aggregate.Malformed)
	in.RejectedCount = 3

	res := aggregate.Reduce(in)

	assert.Equal(t, models.CheckStatusError, res.Status)
	assert.False(t, res.HasElements)
	assert.Equal(t, "all 3 elements failed schema validation", res.Summary)
}

func TestReduce_TwoDoorScenario(t *testing.T) {
	passing := element("IfcDoor", "pass")
	passing.ElementName = strPtr("Door #42")
	passing.ActualValue = strPtr("850 mm")

	failing := element("IfcDoor", "fail")
	failing.ElementName = strPtr("Door #17")
	failing.ActualValue = strPtr("750 mm")
	failing.Comment = strPtr("Door is 50 mm too narrow")

	res := aggregate.Reduce(input(aggregate.Normal, passing, failing))

	assert.Equal(t, models.CheckStatusFail, res.Status)
	assert.True(t, res.HasElements)
	assert.Equal(t, "2 doors checked: 1 pass, 1 fail", res.Summary)

	require.Len(t, res.Elements, 2)
	assert.Equal(t, "Door #42", *res.Elements[0].ElementName)
	assert.Equal(t, "Door #17", *res.Elements[1].ElementName)
	assert.Equal(t, "Door is 50 mm too narrow", *res.Elements[1].Comment)
}

func TestReduce_AssignsElementIDs(t *testing.T) {
	res := aggregate.Reduce(input(aggregate.Normal,
		element("IfcDoor", "pass"),
		element("IfcDoor", "pass"),
	))

	require.Len(t, res.Elements, 2)
	assert.NotEqual(t, uuid.Nil, res.Elements[0].ID)
	assert.NotEqual(t, res.Elements[0].ID, res.Elements[1].ID)
	assert.Equal(t, res.ID, res.Elements[0].CheckResultID)
	assert.Equal(t, res.ID, res.Elements[1].CheckResultID)
}

func TestReduce_MixedTypesFallBackToElements(t *testing.T) {
	res := aggregate.Reduce(input(aggregate.Normal,
		element("IfcDoor", "pass"),
		element("IfcSpace", "pass"),
	))

	assert.Equal(t, "2 elements checked: 2 pass", res.Summary)
}

func TestReduce_SingleElementSingular(t *testing.T) {
	res := aggregate.Reduce(input(aggregate.Normal,
		element("IfcDoor", "fail"),
	))

	assert.Equal(t, "1 door checked: 1 fail", res.Summary)
}

func strPtr(s string) *string { return &s }
