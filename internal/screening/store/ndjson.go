package store

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"watchdesk/internal/screening/models"
	id "watchdesk/pkg/domain"
	pstrings "watchdesk/pkg/platform/strings"
)

// maxLineBytes bounds one NDJSON entity; nested exports reach a few hundred KB.
const maxLineBytes = 4 << 20

// LoadOptions tunes dataset ingestion.
type LoadOptions struct {
	// PersonOnly keeps only entities whose schema is "Person".
	PersonOnly bool
	// LoadedAt stamps records whose export carries no first_seen time.
	// Zero means the time ReadNDJSON is called.
	LoadedAt time.Time
}

// LoadStats summarizes one ingestion pass.
type LoadStats struct {
	Lines   int
	Loaded  int
	Skipped int
}

// ReadNDJSON parses a FollowTheMoney-style NDJSON export (one entity per
// line) into records, in file order. Lines that are not valid JSON or lack
// an id or caption are skipped and counted; duplicate ids keep the first.
func ReadNDJSON(r io.Reader, opts LoadOptions) ([]models.Record, LoadStats, error) {
	var stats LoadStats
	var out []models.Record
	seen := make(map[id.EntityID]struct{})
	loadedAt := opts.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}
	loadedAt = loadedAt.UTC()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		stats.Lines++
		rec, ok := parseEntity(line, loadedAt)
		if !ok || (opts.PersonOnly && rec.Schema != "Person") {
			stats.Skipped++
			continue
		}
		if _, dup := seen[rec.EntityID]; dup {
			stats.Skipped++
			continue
		}
		seen[rec.EntityID] = struct{}{}
		out = append(out, rec)
		stats.Loaded++
	}
	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("read ndjson: %w", err)
	}
	return out, stats, nil
}

func parseEntity(line string, loadedAt time.Time) (models.Record, bool) {
	if !gjson.Valid(line) {
		return models.Record{}, false
	}
	doc := gjson.Parse(line)
	entityID, err := id.ParseEntityID(doc.Get("id").String())
	if err != nil {
		return models.Record{}, false
	}
	caption := strings.TrimSpace(doc.Get("caption").String())
	if caption == "" {
		return models.Record{}, false
	}
	props := doc.Get("properties")

	nationality := strs(props.Get("nationality"))
	if len(nationality) == 0 {
		nationality = strs(props.Get("country"))
	}
	first, last := models.SplitCaption(caption)

	return models.Record{
		EntityID:    entityID,
		Caption:     caption,
		Schema:      doc.Get("schema").String(),
		Nationality: models.NormalizeCodeList(nationality),
		BirthDate:   first1(props.Get("birthDate")),
		Gender:      first1(props.Get("gender")),
		FirstName:   first,
		LastName:    last,
		Aliases:     pstrings.DedupeAndTrim(strs(props.Get("alias"))),
		Position:    joined(props.Get("position")),
		Address:     joined(props.Get("address")),
		Topics:      pstrings.DedupeAndTrim(strs(props.Get("topics"))),
		Datasets:    pstrings.DedupeAndTrim(strs(doc.Get("datasets"))),
		Properties:  propertyBag(props),
		CreatedAt:   seenAt(doc, loadedAt),
	}, true
}

// propertyBag keeps every property, scalars widened to one-element lists.
func propertyBag(props gjson.Result) map[string][]string {
	if !props.IsObject() {
		return nil
	}
	bag := make(map[string][]string)
	props.ForEach(func(key, value gjson.Result) bool {
		if vals := strs(value); len(vals) > 0 {
			bag[key.String()] = vals
		}
		return true
	})
	if len(bag) == 0 {
		return nil
	}
	return bag
}

var seenLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// seenAt reads when the dataset first published the entity.
func seenAt(doc gjson.Result, fallback time.Time) time.Time {
	for _, field := range []string{"first_seen", "last_change"} {
		raw := strings.TrimSpace(doc.Get(field).String())
		if raw == "" {
			continue
		}
		for _, layout := range seenLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC()
			}
		}
	}
	return fallback
}

// strs reads a property that may be a string or an array of strings.
func strs(v gjson.Result) []string {
	if !v.Exists() {
		return nil
	}
	if v.IsArray() {
		var out []string
		for _, e := range v.Array() {
			out = append(out, e.String())
		}
		return out
	}
	return []string{v.String()}
}

func first1(v gjson.Result) string {
	s := strs(v)
	if len(s) == 0 {
		return ""
	}
	return strings.TrimSpace(s[0])
}

func joined(v gjson.Result) string {
	return strings.Join(pstrings.DedupeAndTrim(strs(v)), "; ")
}
