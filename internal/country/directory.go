// Package country is the read-only directory of country codes used to
// label entity nationalities and to resolve free-text country names in search.
//
// The table is loaded once at start (embedded YAML, optionally overridden by
// a file) and never mutated, so a *Directory is safe for concurrent use.
package country

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	dErrors "watchdesk/pkg/domain-errors"
)

//go:embed countries.yaml
var embeddedTable []byte

// Entry is one row of the directory.
type Entry struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

type table struct {
	Countries []Entry `yaml:"countries"`
}

// Directory maps lower-case codes to display names.
type Directory struct {
	byCode map[string]string
	byName map[string]string // lower-case name -> code
	sorted []Entry
}

// New builds a directory. Codes must be unique (case-insensitively) and
// neither codes nor names may be blank.
func New(entries []Entry) (*Directory, error) {
	d := &Directory{
		byCode: make(map[string]string, len(entries)),
		byName: make(map[string]string, len(entries)),
		sorted: make([]Entry, 0, len(entries)),
	}
	for i, e := range entries {
		code := strings.ToLower(strings.TrimSpace(e.Code))
		name := strings.TrimSpace(e.Name)
		if code == "" || name == "" {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("country entry %d has blank code or name", i))
		}
		if _, dup := d.byCode[code]; dup {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "duplicate country code "+code)
		}
		d.byCode[code] = name
		// First entry wins when two codes share a name.
		if _, seen := d.byName[strings.ToLower(name)]; !seen {
			d.byName[strings.ToLower(name)] = code
		}
		d.sorted = append(d.sorted, Entry{Code: code, Name: name})
	}
	sortByName(d.sorted)
	return d, nil
}

// Load parses a YAML table of the form `countries: [{code, name}, ...]`.
func Load(r io.Reader) (*Directory, error) {
	var t table
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid country table")
	}
	return New(t.Countries)
}

// LoadFile loads a YAML table from path.
func LoadFile(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open country table: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the embedded table.
func Default() *Directory {
	var t table
	if err := yaml.Unmarshal(embeddedTable, &t); err != nil {
		panic(fmt.Sprintf("embedded country table: %v", err))
	}
	d, err := New(t.Countries)
	if err != nil {
		panic(fmt.Sprintf("embedded country table: %v", err))
	}
	return d
}

// Name returns the display name for code. Unknown codes are returned
// unchanged; empty input yields "".
func (d *Directory) Name(code string) string {
	if code == "" {
		return ""
	}
	if name, ok := d.byCode[strings.ToLower(strings.TrimSpace(code))]; ok {
		return name
	}
	return code
}

// Code returns the code whose name equals name, ignoring case.
func (d *Directory) Code(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	code, ok := d.byName[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// List returns every entry sorted by name.
func (d *Directory) List() []Entry {
	out := make([]Entry, len(d.sorted))
	copy(out, d.sorted)
	return out
}

// Search returns entries whose name or code contains term, ignoring case,
// sorted by name.
func (d *Directory) Search(term string) []Entry {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]Entry, 0)
	for _, e := range d.sorted {
		if strings.Contains(strings.ToLower(e.Name), term) || strings.Contains(e.Code, term) {
			out = append(out, e)
		}
	}
	return out
}

// Len is the number of entries.
func (d *Directory) Len() int {
	return len(d.sorted)
}

// sortByName orders entries the way a locale-aware UI would
// ("Côte d'Ivoire" sorts with "Co..."), breaking ties by code.
func sortByName(entries []Entry) {
	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(entries, func(i, j int) bool {
		if r := c.CompareString(entries[i].Name, entries[j].Name); r != 0 {
			return r < 0
		}
		return entries[i].Code < entries[j].Code
	})
}
