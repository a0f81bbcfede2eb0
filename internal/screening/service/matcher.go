// Package service implements entity screening over the reference dataset.
//
// Matching is literal: a name query is a case-insensitive substring of the
// caption, a nationality query is a case-insensitive substring of one of the
// record's country codes. Each leg is capped on its own. A combined query
// intersects the two capped legs rather than filtering the whole dataset, so
// it only surfaces records that both legs returned.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"watchdesk/internal/screening/metrics"
	"watchdesk/internal/screening/models"
	id "watchdesk/pkg/domain"
	dErrors "watchdesk/pkg/domain-errors"
	"watchdesk/pkg/platform/sentinel"
)

const (
	// DefaultResultCap bounds every search leg.
	DefaultResultCap = 20

	// MaxQueryLength bounds name and nationality inputs.
	MaxQueryLength = 200
)

var tracer = otel.Tracer("watchdesk/screening")

// Source answers the two primitive searches and single-record lookups.
type Source interface {
	ByName(ctx context.Context, q string, limit int) ([]models.Record, error)
	ByNationality(ctx context.Context, q string, limit int) ([]models.Record, error)
	ByID(ctx context.Context, entityID id.EntityID) (models.Record, error)
}

// CountryResolver maps a country name to its code.
type CountryResolver interface {
	Code(name string) (string, bool)
}

// Matcher runs entity searches.
type Matcher struct {
	source    Source
	countries CountryResolver
	cap       int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) {
		m.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Matcher) {
		m.metrics = metrics
	}
}

// WithResultCap overrides the per-leg cap. Non-positive values are ignored.
func WithResultCap(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.cap = n
		}
	}
}

// New creates a Matcher over source, resolving country names with countries.
func New(source Source, countries CountryResolver, opts ...Option) *Matcher {
	m := &Matcher{
		source:    source,
		countries: countries,
		cap:       DefaultResultCap,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ResultCap reports the per-leg cap in effect.
func (m *Matcher) ResultCap() int {
	return m.cap
}

// ByName returns records whose caption contains q, in dataset order.
func (m *Matcher) ByName(ctx context.Context, q string) ([]models.Record, error) {
	ctx, span := tracer.Start(ctx, "screening.ByName")
	defer span.End()
	start := time.Now()

	records, err := m.source.ByName(ctx, q, m.cap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "name search failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search by name")
	}
	span.SetAttributes(attribute.Int("screening.results", len(records)))
	m.metrics.ObserveSearch("name", len(records), start)
	return records, nil
}

// ByNationality returns records whose nationality matches input. Inputs
// longer than two characters are treated as a country name first; a name
// that resolves to nothing is matched as if it were a code.
func (m *Matcher) ByNationality(ctx context.Context, input string) ([]models.Record, error) {
	res, err := m.byNationality(ctx, input)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// ByNameAndNationality intersects the two capped legs by entity id, keeping
// the order of the name leg.
func (m *Matcher) ByNameAndNationality(ctx context.Context, name, input string) ([]models.Record, error) {
	res, err := m.combined(ctx, name, input)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Search validates a caller's query and dispatches to the matching leg(s).
func (m *Matcher) Search(ctx context.Context, q models.Query) (models.Result, error) {
	name := strings.TrimSpace(q.Name)
	nationality := strings.TrimSpace(q.Nationality)

	switch {
	case name == "" && nationality == "":
		return models.Result{}, dErrors.New(dErrors.CodeValidation, "name or nationality is required")
	case utf8.RuneCountInString(name) > MaxQueryLength:
		return models.Result{}, dErrors.New(dErrors.CodeValidation, "name is too long")
	case utf8.RuneCountInString(nationality) > MaxQueryLength:
		return models.Result{}, dErrors.New(dErrors.CodeValidation, "nationality is too long")
	}

	switch {
	case nationality == "":
		records, err := m.ByName(ctx, name)
		if err != nil {
			return models.Result{}, err
		}
		return models.Result{Records: records, Resolved: true}, nil
	case name == "":
		return m.byNationality(ctx, nationality)
	default:
		return m.combined(ctx, name, nationality)
	}
}

// Lookup returns the record for entityID.
func (m *Matcher) Lookup(ctx context.Context, entityID id.EntityID) (models.Record, error) {
	ctx, span := tracer.Start(ctx, "screening.Lookup", trace.WithAttributes(
		attribute.String("screening.entity_id", entityID.String()),
	))
	defer span.End()

	if strings.TrimSpace(entityID.String()) == "" {
		return models.Record{}, dErrors.New(dErrors.CodeValidation, "entity id is required")
	}
	record, err := m.source.ByID(ctx, entityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Record{}, dErrors.New(dErrors.CodeNotFound, "entity not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "entity lookup failed")
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up entity")
	}
	return record, nil
}

// ResolveNationality turns a search input into the code that will be
// matched. resolved is false when a country name was not recognised.
func (m *Matcher) ResolveNationality(input string) (code string, resolved bool) {
	input = strings.TrimSpace(input)
	if utf8.RuneCountInString(input) <= 2 {
		return strings.ToLower(input), true
	}
	if m.countries != nil {
		if c, ok := m.countries.Code(input); ok {
			return c, true
		}
	}
	return strings.ToLower(input), false
}

func (m *Matcher) byNationality(ctx context.Context, input string) (models.Result, error) {
	ctx, span := tracer.Start(ctx, "screening.ByNationality")
	defer span.End()
	start := time.Now()

	code, resolved := m.ResolveNationality(input)
	if !resolved {
		m.metrics.IncrementUnresolved()
		m.logger.DebugContext(ctx, "nationality did not resolve to a country, matching raw input",
			"input", input,
			"code", dErrors.CodeUnresolvedReference,
		)
	}
	span.SetAttributes(
		attribute.String("screening.nationality_code", code),
		attribute.Bool("screening.resolved", resolved),
	)

	records, err := m.source.ByNationality(ctx, code, m.cap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "nationality search failed")
		return models.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search by nationality")
	}
	span.SetAttributes(attribute.Int("screening.results", len(records)))
	m.metrics.ObserveSearch("nationality", len(records), start)
	return models.Result{Records: records, NationalityCode: code, Resolved: resolved}, nil
}

func (m *Matcher) combined(ctx context.Context, name, input string) (models.Result, error) {
	ctx, span := tracer.Start(ctx, "screening.ByNameAndNationality")
	defer span.End()
	start := time.Now()

	var (
		byName []models.Record
		byNat  models.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byName, err = m.ByName(gctx, name)
		return err
	})
	g.Go(func() error {
		var err error
		byNat, err = m.byNationality(gctx, input)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "combined search failed")
		return models.Result{}, err
	}

	records := Intersect(byName, byNat.Records)
	span.SetAttributes(attribute.Int("screening.results", len(records)))
	m.metrics.ObserveSearch("combined", len(records), start)
	return models.Result{
		Records:         records,
		NationalityCode: byNat.NationalityCode,
		Resolved:        byNat.Resolved,
	}, nil
}

// Intersect returns the records of primary whose entity id also appears in
// other, in primary's order.
func Intersect(primary, other []models.Record) []models.Record {
	seen := make(map[id.EntityID]struct{}, len(other))
	for _, r := range other {
		seen[r.EntityID] = struct{}{}
	}
	out := make([]models.Record, 0, len(primary))
	for _, r := range primary {
		if _, ok := seen[r.EntityID]; ok {
			out = append(out, r)
		}
	}
	return out
}
