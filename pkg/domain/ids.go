package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "watchdesk/pkg/domain-errors"
)

// Typed identifiers. Distinct types prevent passing a HistoryID where a
// UserID is expected; construct them with the Parse functions at trust
// boundaries.
type (
	UserID    uuid.UUID
	HistoryID uuid.UUID
)

// EntityID is the dataset identifier of a sanctioned entity (e.g. "NK-2Xh...").
// Invariant: non-empty, at most MaxEntityIDLength bytes, printable.
type EntityID string

// MaxEntityIDLength mirrors the width of the entity_id column.
const MaxEntityIDLength = 500

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id HistoryID) String() string { return uuid.UUID(id).String() }
func (id EntityID) String() string  { return string(id) }

// IsNil reports whether the id is the zero UUID.
func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IsNil reports whether the id is the zero UUID.
func (id HistoryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders ids as canonical UUID strings in JSON and logs.
func (id UserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id HistoryID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *HistoryID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// NewHistoryID allocates a random history record id.
func NewHistoryID() HistoryID { return HistoryID(uuid.New()) }

// ParseUserID parses a user id from external input.
// Errors: CodeInvalidInput for empty, malformed or nil UUIDs.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

// ParseHistoryID parses a history record id from external input.
// Errors: CodeInvalidInput for empty, malformed or nil UUIDs.
func ParseHistoryID(s string) (HistoryID, error) {
	u, err := parseUUID(s, "history ID")
	return HistoryID(u), err
}

// ParseEntityID validates a dataset entity id.
func ParseEntityID(s string) (EntityID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "entity ID cannot be empty")
	}
	if len(s) > MaxEntityIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "entity ID is too long")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "entity ID must be valid UTF-8")
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "entity ID contains control characters")
		}
	}
	return EntityID(s), nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
