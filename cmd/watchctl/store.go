package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"watchdesk/internal/country"
	"watchdesk/internal/platform/postgres"
	screeningmodels "watchdesk/internal/screening/models"
	screeningservice "watchdesk/internal/screening/service"
	screeningstore "watchdesk/internal/screening/store"
)

// importer is a persistent entity store that accepts bulk loads.
type importer interface {
	screeningservice.Source
	Import(ctx context.Context, records []screeningmodels.Record) (int, error)
	Count(ctx context.Context) (int, error)
}

// openImporter returns the configured persistent store. Postgres is migrated
// first so a fresh database can be loaded directly.
func openImporter(ctx context.Context, g *globalFlags) (importer, func() error, error) {
	switch g.source {
	case "sqlite":
		s, err := screeningstore.OpenSQLite(ctx, g.sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "postgres":
		if g.databaseURL == "" {
			return nil, nil, errors.New("--database-url is required for the postgres source")
		}
		db, err := postgres.Open(ctx, g.databaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return screeningstore.NewPostgres(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("source %q cannot be imported into", g.source)
	}
}

// openSource returns a read source for queries, including the NDJSON-backed
// memory source.
func openSource(ctx context.Context, g *globalFlags) (screeningservice.Source, func() error, error) {
	if g.source != "memory" {
		return openImporter(ctx, g)
	}
	if g.dataPath == "" {
		return nil, nil, errors.New("--data is required for the memory source")
	}
	f, err := os.Open(g.dataPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open entity data: %w", err)
	}
	defer f.Close()
	s, _, err := screeningstore.LoadInMemory(f, screeningstore.LoadOptions{PersonOnly: true})
	if err != nil {
		return nil, nil, err
	}
	return s, func() error { return nil }, nil
}

func loadDirectory(g *globalFlags) (*country.Directory, error) {
	if g.countries == "" {
		return country.Default(), nil
	}
	return country.LoadFile(g.countries)
}
