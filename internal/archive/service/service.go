// Package service owns the history archive: the immutable record of every
// cleared case.
package service

import (
	"context"
	"errors"
	"log/slog"

	"watchdesk/internal/archive/metrics"
	"watchdesk/internal/archive/models"
	casemodels "watchdesk/internal/cases/models"
	"watchdesk/internal/policy"
	id "watchdesk/pkg/domain"
	dErrors "watchdesk/pkg/domain-errors"
	audit "watchdesk/pkg/platform/audit"
	"watchdesk/pkg/platform/sentinel"
	"watchdesk/pkg/requestcontext"
)

// Store persists history records.
type Store interface {
	Append(ctx context.Context, rec *models.HistoryRecord) error
	ListByOfficer(ctx context.Context, officerID id.UserID) ([]*models.HistoryRecord, error)
	Remove(ctx context.Context, entityID id.EntityID, officerID id.UserID) (int, error)
}

// Exporter copies a committed record to secondary storage.
type Exporter interface {
	Export(ctx context.Context, rec *models.HistoryRecord) error
}

// AuditPublisher receives lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	store    Store
	exporter Exporter
	auditor  AuditPublisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithExporter enables copying records to object storage after commit.
func WithExporter(e Exporter) Option {
	return func(s *Service) {
		s.exporter = e
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record freezes c into a new history record. It runs inside the caller's
// transaction when there is one, so it must not have side effects outside
// the store; see Export.
func (s *Service) Record(ctx context.Context, c *casemodels.Case, by models.Actor) (*models.HistoryRecord, error) {
	rec := models.NewHistoryRecord(c, by, requestcontext.Now(ctx))
	if err := s.store.Append(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to archive case")
	}
	s.metrics.IncrementArchived()
	return rec.Clone(), nil
}

// Export hands a committed record to the exporter. Failures are logged and
// counted; the record stays archived either way.
func (s *Service) Export(ctx context.Context, rec *models.HistoryRecord) {
	if s.exporter == nil {
		return
	}
	if err := s.exporter.Export(ctx, rec); err != nil {
		s.metrics.RecordExport("error")
		s.logger.ErrorContext(ctx, "history export failed",
			"history_id", rec.ID,
			"entity_id", rec.EntityID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return
	}
	s.metrics.RecordExport("ok")
}

// List returns, in clearing order, the records of cases officerID owned or
// cleared. Officers may only read their own history.
func (s *Service) List(ctx context.Context, requester policy.Principal, officerID id.UserID) ([]*models.HistoryRecord, error) {
	if officerID != requester.ID && !policy.Can(requester.Role, policy.CapViewQueue) {
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot view another officer's history")
	}
	records, err := s.store.ListByOfficer(ctx, officerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list history")
	}
	return records, nil
}

// Remove deletes the officer's history for entityID. This is record-keeping
// cleanup; it never touches active cases.
func (s *Service) Remove(ctx context.Context, requester policy.Principal, entityID id.EntityID, officerID id.UserID) error {
	if !policy.CanMutate(requester.Role, policy.Target{Owner: officerID}, requester.ID, policy.OpDelete) {
		return dErrors.New(dErrors.CodeForbidden, "cannot remove another officer's history")
	}
	n, err := s.store.Remove(ctx, entityID, officerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "history record not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove history")
	}
	s.metrics.AddRemoved(n)
	s.logger.InfoContext(ctx, "history removed",
		"event", audit.EventHistoryRemoved,
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"entity_id", entityID,
		"officer_id", officerID,
		"removed", n,
	)
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			Action:    audit.EventHistoryRemoved,
			ActorID:   requester.ID,
			ActorRole: requester.Role.String(),
			EntityID:  entityID.String(),
			OfficerID: officerID.String(),
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	return nil
}
