package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

const sampleExport = `{"id":"Q1","schema":"Person","caption":"Michael Smith","properties":{"nationality":["ru"],"birthDate":["1970-01-01"]}}
{"id":"Q2","schema":"Company","caption":"Smith Holdings","properties":{"country":["gb"]}}
{"id":"Q3","schema":"Person","caption":"Olga Petrova","properties":{"nationality":["ua","ru"]}}
not json
`

type WatchctlSuite struct {
	suite.Suite
	dir    string
	export string
}

func TestWatchctlSuite(t *testing.T) {
	suite.Run(t, new(WatchctlSuite))
}

func (s *WatchctlSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.export = filepath.Join(s.dir, "export.ndjson")
	s.Require().NoError(os.WriteFile(s.export, []byte(sampleExport), 0o600))
}

func (s *WatchctlSuite) run(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--source", "sqlite", "--sqlite", filepath.Join(s.dir, "entities.db")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (s *WatchctlSuite) TestImportIsIdempotent() {
	out, err := s.run("import", s.export)
	s.Require().NoError(err)
	s.Contains(out, "read 4 lines: 2 kept, 2 skipped")
	s.Contains(out, "inserted 2 new entities (2 total in sqlite)")

	out, err = s.run("import", s.export)
	s.Require().NoError(err)
	s.Contains(out, "inserted 0 new entities (2 total in sqlite)")
}

func (s *WatchctlSuite) TestSearchAndLookup() {
	_, err := s.run("import", s.export)
	s.Require().NoError(err)

	out, err := s.run("search", "--nationality", "Russia")
	s.Require().NoError(err)
	s.Contains(out, "Michael Smith")
	s.Contains(out, "Olga Petrova")

	out, err = s.run("search", "--name", "petrova")
	s.Require().NoError(err)
	s.NotContains(out, "Michael Smith")
	s.Contains(out, "Ukraine")

	out, err = s.run("lookup", "Q1")
	s.Require().NoError(err)
	s.Contains(out, "1970-01-01")

	_, err = s.run("lookup", "Q404")
	s.Error(err)

	_, err = s.run("search")
	s.Error(err)
}

func (s *WatchctlSuite) TestCountries() {
	out, err := s.run("countries", "united")
	s.Require().NoError(err)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		s.Contains(strings.ToLower(line), "united")
	}
}

func (s *WatchctlSuite) TestImportRejectsMemorySource() {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--source", "memory", "import", s.export})
	s.Error(cmd.ExecuteContext(context.Background()))
}
