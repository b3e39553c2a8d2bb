package models

import "github.com/google/uuid"

// Status of one checked element. check_status is the only mandatory field
// of the element schema; anything outside this set is malformed.
const (
	ElementStatusPass    = "pass"
	ElementStatusFail    = "fail"
	ElementStatusWarning = "warning"
	ElementStatusBlocked = "blocked"
	ElementStatusLog     = "log"
)

// ValidElementStatus reports whether s is one of the five element statuses.
func ValidElementStatus(s string) bool {
	switch s {
	case ElementStatusPass, ElementStatusFail, ElementStatusWarning,
		ElementStatusBlocked, ElementStatusLog:
		return true
	}
	return false
}

// ElementResult is the canonical record for one checked entity within a
// model. All fields except CheckStatus are nullable. ID and CheckResultID
// are engine-assigned, never supplied by a check routine. Element order
// within a CheckResult matches the order the routine emitted them.
type ElementResult struct {
	ID              uuid.UUID `db:"id"                json:"id"`
	CheckResultID   uuid.UUID `db:"check_result_id"   json:"check_result_id"`
	ElementID       *string   `db:"element_id"        json:"element_id"`
	ElementType     *string   `db:"element_type"      json:"element_type"`
	ElementName     *string   `db:"element_name"      json:"element_name"`
	ElementNameLong *string   `db:"element_name_long" json:"element_name_long"`
	CheckStatus     string    `db:"check_status"      json:"check_status"`
	ActualValue     *string   `db:"actual_value"      json:"actual_value"`
	RequiredValue   *string   `db:"required_value"    json:"required_value"`
	Comment         *string   `db:"comment"           json:"comment"`
	Log             *string   `db:"log"               json:"log"`
}
