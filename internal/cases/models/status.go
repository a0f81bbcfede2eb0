package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	dErrors "watchdesk/pkg/domain-errors"
)

// Flag levels run from 1 (lowest risk) to 5 (highest).
const (
	MinFlagLevel = 1
	MaxFlagLevel = 5
)

const (
	labelUnset   = "Select Status"
	labelPending = "Pending"
	flagPrefix   = "Flag:"
)

type statusKind uint8

const (
	kindUnset statusKind = iota
	kindPending
	kindFlagged
)

// Status is the lifecycle position of a case: Unset, Pending or Flagged at
// a level in [MinFlagLevel, MaxFlagLevel]. Cleared is not a status; a
// cleared case leaves the store.
//
// The zero value is Unset. Flagged statuses can only be built through
// Flagged or ParseStatus, so an out-of-range level never exists.
type Status struct {
	kind  statusKind
	level int
}

// Unset is the initial status, shown as "Select Status".
func Unset() Status { return Status{kind: kindUnset} }

// Pending marks a case awaiting manager review.
func Pending() Status { return Status{kind: kindPending} }

// Flagged builds a flagged status.
//
// Errors: CodeInvalidStatus when level is outside 1..5.
func Flagged(level int) (Status, error) {
	if level < MinFlagLevel || level > MaxFlagLevel {
		return Status{}, dErrors.New(dErrors.CodeInvalidStatus,
			fmt.Sprintf("flag level must be between %d and %d", MinFlagLevel, MaxFlagLevel))
	}
	return Status{kind: kindFlagged, level: level}, nil
}

// ParseStatus reads the external vocabulary: "Select Status", "Pending"
// or "Flag:1".."Flag:5". Matching is exact.
func ParseStatus(s string) (Status, error) {
	switch s {
	case labelUnset:
		return Unset(), nil
	case labelPending:
		return Pending(), nil
	}
	if rest, ok := strings.CutPrefix(s, flagPrefix); ok {
		level, err := strconv.Atoi(rest)
		if err != nil || rest != strconv.Itoa(level) {
			return Status{}, dErrors.New(dErrors.CodeInvalidStatus, "invalid flag level")
		}
		return Flagged(level)
	}
	return Status{}, dErrors.New(dErrors.CodeInvalidStatus, "unknown status")
}

func (s Status) String() string {
	switch s.kind {
	case kindPending:
		return labelPending
	case kindFlagged:
		return flagPrefix + strconv.Itoa(s.level)
	default:
		return labelUnset
	}
}

func (s Status) IsUnset() bool   { return s.kind == kindUnset }
func (s Status) IsPending() bool { return s.kind == kindPending }
func (s Status) IsFlagged() bool { return s.kind == kindFlagged }

// FlagLevel is the flag level, or 0 when the status is not Flagged.
func (s Status) FlagLevel() int {
	if s.kind != kindFlagged {
		return 0
	}
	return s.level
}

// IsQueued reports whether the case belongs in the managers' review queue.
func (s Status) IsQueued() bool {
	return s.kind == kindPending || s.kind == kindFlagged
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return dErrors.New(dErrors.CodeInvalidStatus, "status must be a string")
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
