package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching q anywhere, with the
// wildcards in q taken literally.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

// encodeProperties renders a property bag as a JSON object; nil becomes {}.
func encodeProperties(props map[string][]string) (string, error) {
	if len(props) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("encode properties: %w", err)
	}
	return string(raw), nil
}

func decodeProperties(raw []byte) (map[string][]string, error) {
	var props map[string][]string
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	if len(props) == 0 {
		return nil, nil
	}
	return props, nil
}

// createdAtOrNow stamps records built outside ReadNDJSON.
func createdAtOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
