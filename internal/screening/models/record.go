package models

import (
	"strings"
	"time"

	"github.com/lib/pq"

	id "watchdesk/pkg/domain"
	pstrings "watchdesk/pkg/platform/strings"
)

// Record is one sanctioned entity from the reference dataset. Records are
// read-only to the rest of the system.
type Record struct {
	EntityID    id.EntityID `json:"entity_id"`
	Caption     string      `json:"caption"`
	Schema      string      `json:"schema"`
	Nationality []string    `json:"nationality"`
	BirthDate   string      `json:"birth_date,omitempty"`
	Gender      string      `json:"gender,omitempty"`
	FirstName   string      `json:"first_name,omitempty"`
	LastName    string      `json:"last_name,omitempty"`
	Aliases     []string    `json:"aliases,omitempty"`
	Position    string      `json:"position,omitempty"`
	Address     string      `json:"address,omitempty"`
	Topics      []string    `json:"topics,omitempty"`
	Datasets    []string    `json:"datasets,omitempty"`
	// Properties holds every dataset property as published, including the
	// ones mapped onto the fields above (notes, programId, sourceUrl, ...).
	Properties map[string][]string `json:"properties,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// NormalizeCodes turns whatever shape a nationality value arrived in into a
// clean list of lower-case codes. Accepted shapes: a scalar ("ru"), a
// Postgres array literal ("{ru,ua}", `{"ru","ua"}`), a JSON array
// (`["ru","ua"]`) or a comma list ("ru, ua"). A value that parses to nothing
// falls back to the trimmed raw string.
func NormalizeCodes(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var parts []string
	if strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}") {
		var arr pq.StringArray
		if err := arr.Scan(raw); err == nil {
			parts = arr
		}
	}
	if parts == nil {
		parts = pstrings.SplitList(raw)
	}
	codes := pstrings.DedupeAndTrimLower(parts)
	if len(codes) == 0 {
		return []string{strings.ToLower(raw)}
	}
	return codes
}

// NormalizeCodeList applies NormalizeCodes to every element, so a list whose
// single element is itself a leaked literal is flattened.
func NormalizeCodeList(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, NormalizeCodes(v)...)
	}
	return pstrings.DedupeAndTrimLower(out)
}

// SplitCaption splits a caption into first and last name the way the
// dataset loader does: the last whitespace-separated token is the last name.
func SplitCaption(caption string) (first, last string) {
	parts := strings.Fields(caption)
	if len(parts) == 0 {
		return "", ""
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

// NameContains reports whether the caption contains q, ignoring case.
func (r Record) NameContains(q string) bool {
	return pstrings.ContainsFold(r.Caption, q)
}

// NationalityContains reports whether any nationality code contains q,
// ignoring case.
func (r Record) NationalityContains(q string) bool {
	for _, code := range r.Nationality {
		if pstrings.ContainsFold(code, q) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	r.Nationality = cloneStrings(r.Nationality)
	r.Aliases = cloneStrings(r.Aliases)
	r.Topics = cloneStrings(r.Topics)
	r.Datasets = cloneStrings(r.Datasets)
	r.Properties = CloneProperties(r.Properties)
	return r
}

// Property returns the values of one dataset property, or nil.
func (r Record) Property(name string) []string {
	return r.Properties[name]
}

// CloneProperties deep-copies a property bag.
func CloneProperties(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = cloneStrings(v)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
