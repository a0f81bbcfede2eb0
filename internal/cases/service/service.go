// Package service runs the case lifecycle: opening a case on a screened
// entity, moving it through Unset, Pending and Flagged, handing it to
// another officer, and finally deleting or clearing it into the archive.
//
// Every mutation asks the access policy first and runs inside the TxRunner
// so that changes to one case key are serialized. A missing case is
// reported as NotFound and a case the caller may not act on as Forbidden;
// the two are never folded together.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,UserDirectory,EntityLookup,Archive,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	archivemodels "watchdesk/internal/archive/models"
	"watchdesk/internal/cases/metrics"
	"watchdesk/internal/cases/models"
	"watchdesk/internal/policy"
	screening "watchdesk/internal/screening/models"
	id "watchdesk/pkg/domain"
	dErrors "watchdesk/pkg/domain-errors"
	"watchdesk/pkg/platform/audit"
	"watchdesk/pkg/platform/sentinel"
	"watchdesk/pkg/requestcontext"
)

var tracer = otel.Tracer("watchdesk/cases")

// Store persists active cases. Implementations return sentinel errors.
type Store interface {
	Create(ctx context.Context, c *models.Case) error
	Find(ctx context.Context, key models.Key) (*models.Case, error)
	List(ctx context.Context) ([]*models.Case, error)
	Update(ctx context.Context, key models.Key, fn func(*models.Case) error) (*models.Case, error)
	Rekey(ctx context.Context, from, to models.Key, fn func(*models.Case) error) (*models.Case, error)
	Delete(ctx context.Context, key models.Key) error
}

// UserDirectory resolves users. Returns sentinel.ErrNotFound for unknown ids.
type UserDirectory interface {
	FindOfficer(ctx context.Context, userID id.UserID) (models.Officer, error)
}

// EntityLookup resolves a screened entity by id, returning coded errors.
type EntityLookup interface {
	Lookup(ctx context.Context, entityID id.EntityID) (screening.Record, error)
}

// Archive freezes cleared cases.
type Archive interface {
	Record(ctx context.Context, c *models.Case, by archivemodels.Actor) (*archivemodels.HistoryRecord, error)
	Export(ctx context.Context, rec *archivemodels.HistoryRecord)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service implements case operations.
type Service struct {
	store    Store
	users    UserDirectory
	entities EntityLookup
	archive  Archive
	tx       TxRunner
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

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithTxRunner replaces the default in-memory key locks, e.g. with a
// Postgres transaction runner.
func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// WithEntityLookup enables Open, which creates a case from an entity id.
func WithEntityLookup(e EntityLookup) Option {
	return func(s *Service) {
		s.entities = e
	}
}

func New(store Store, users UserDirectory, archive Archive, opts ...Option) *Service {
	s := &Service{
		store:   store,
		users:   users,
		archive: archive,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewShardedTx(DefaultTxTimeout)
	}
	return s
}

// Open looks up entityID and creates a case on it for the requester.
func (s *Service) Open(ctx context.Context, requester policy.Principal, entityID id.EntityID) (*models.Case, error) {
	if s.entities == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "entity lookup is not configured")
	}
	if !policy.Can(requester.Role, policy.CapCreateCase) {
		return nil, s.denied(ctx, requester, "create", models.Key{EntityID: entityID, OfficerID: requester.ID})
	}
	record, err := s.entities.Lookup(ctx, entityID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) || dErrors.HasCode(err, dErrors.CodeValidation) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up entity")
	}
	return s.Create(ctx, requester, record)
}

// Create opens a case on record for the requester. The new case starts
// Unset and caches the officer's display name.
func (s *Service) Create(ctx context.Context, requester policy.Principal, record screening.Record) (*models.Case, error) {
	key := models.Key{EntityID: record.EntityID, OfficerID: requester.ID}
	ctx, span := startSpan(ctx, "cases.Create", key)
	defer span.End()
	start := time.Now()

	if !policy.Can(requester.Role, policy.CapCreateCase) {
		return nil, s.denied(ctx, requester, "create", key)
	}
	if record.EntityID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "entity id is required")
	}
	officer, err := s.users.FindOfficer(ctx, requester.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnknownOfficer, "requesting user is not known")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve officer")
	}

	now := requestcontext.Now(ctx)
	c := &models.Case{
		EntityID:    record.EntityID,
		OfficerID:   officer.ID,
		OfficerName: officer.Name,
		Entity:      models.SnapshotOf(record),
		Status:      models.Unset(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.tx.RunInTx(ctx, []models.Key{key}, func(ctx context.Context) error {
		return s.store.Create(ctx, c)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeDuplicateCase, "case already exists for this entity and officer")
		}
		return nil, fail(span, s.translate(err, "failed to create case"))
	}

	s.metrics.ObserveMutation("create", start)
	s.logAudit(ctx, audit.EventCaseCreated, requester, c)
	return c.Clone(), nil
}

// SetStatus moves the case at key to status. Any caller that can see the
// case may change its status; nothing else on the case changes.
func (s *Service) SetStatus(ctx context.Context, requester policy.Principal, key models.Key, status models.Status) (*models.Case, error) {
	ctx, span := startSpan(ctx, "cases.SetStatus", key)
	defer span.End()
	span.SetAttributes(attribute.String("case.status", status.String()))
	start := time.Now()

	var updated *models.Case
	err := s.tx.RunInTx(ctx, []models.Key{key}, func(ctx context.Context) error {
		var err error
		updated, err = s.store.Update(ctx, key, func(c *models.Case) error {
			if !policy.CanMutate(requester.Role, targetOf(c), requester.ID, policy.OpSetStatus) {
				return s.denied(ctx, requester, string(policy.OpSetStatus), key)
			}
			c.Status = status
			c.UpdatedAt = requestcontext.Now(ctx)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, fail(span, s.translate(err, "failed to update case status"))
	}

	s.metrics.ObserveMutation("set_status", start)
	s.metrics.IncrementStatusChange(status.String())
	s.logAudit(ctx, audit.EventCaseStatusChanged, requester, updated)
	return updated, nil
}

// SetNotes replaces the owner's working notes on the case.
func (s *Service) SetNotes(ctx context.Context, requester policy.Principal, key models.Key, notes string) (*models.Case, error) {
	ctx, span := startSpan(ctx, "cases.SetNotes", key)
	defer span.End()
	start := time.Now()

	var updated *models.Case
	err := s.tx.RunInTx(ctx, []models.Key{key}, func(ctx context.Context) error {
		var err error
		updated, err = s.store.Update(ctx, key, func(c *models.Case) error {
			if !policy.CanMutate(requester.Role, targetOf(c), requester.ID, policy.OpSetNotes) {
				return s.denied(ctx, requester, string(policy.OpSetNotes), key)
			}
			c.Notes = notes
			c.UpdatedAt = requestcontext.Now(ctx)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, fail(span, s.translate(err, "failed to update case notes"))
	}

	s.metrics.ObserveMutation("set_notes", start)
	s.logAudit(ctx, audit.EventCaseNotesUpdated, requester, updated)
	return updated, nil
}

// Reassign hands the case at key to newOfficerID. The target must be an
// existing user with the officer role, and must not already hold a case on
// the same entity. Status and notes move with the case.
func (s *Service) Reassign(ctx context.Context, requester policy.Principal, key models.Key, newOfficerID id.UserID) (*models.Case, error) {
	ctx, span := startSpan(ctx, "cases.Reassign", key)
	defer span.End()
	span.SetAttributes(attribute.String("case.new_officer_id", newOfficerID.String()))
	start := time.Now()

	if !policy.CanMutate(requester.Role, policy.Target{}, requester.ID, policy.OpReassign) {
		return nil, s.denied(ctx, requester, string(policy.OpReassign), key)
	}
	officer, err := s.users.FindOfficer(ctx, newOfficerID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeUnknownOfficer, "target officer does not exist")
	case err != nil:
		return nil, fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve officer"))
	case officer.Role != id.RoleOfficer:
		return nil, dErrors.New(dErrors.CodeUnknownOfficer, "target user is not an officer")
	}
	if newOfficerID == key.OfficerID {
		return nil, dErrors.New(dErrors.CodeDuplicateCase, "case is already assigned to that officer")
	}

	to := models.Key{EntityID: key.EntityID, OfficerID: newOfficerID}
	var moved *models.Case
	err = s.tx.RunInTx(ctx, []models.Key{key, to}, func(ctx context.Context) error {
		var err error
		moved, err = s.store.Rekey(ctx, key, to, func(c *models.Case) error {
			c.OfficerName = officer.Name
			c.UpdatedAt = requestcontext.Now(ctx)
			return nil
		})
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeDuplicateCase, "target officer already has a case on this entity")
		}
		return nil, fail(span, s.translate(err, "failed to reassign case"))
	}

	s.metrics.ObserveMutation("reassign", start)
	s.logger.InfoContext(ctx, "case reassigned",
		"event", audit.EventCaseReassigned,
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"entity_id", key.EntityID,
		"from_officer_id", key.OfficerID,
		"officer_id", newOfficerID,
	)
	s.emit(ctx, audit.EventCaseReassigned, requester, moved, "from "+key.OfficerID.String())
	return moved, nil
}

// Delete removes the case permanently. There is no archive entry.
func (s *Service) Delete(ctx context.Context, requester policy.Principal, key models.Key) error {
	ctx, span := startSpan(ctx, "cases.Delete", key)
	defer span.End()
	start := time.Now()

	var deleted *models.Case
	err := s.tx.RunInTx(ctx, []models.Key{key}, func(ctx context.Context) error {
		c, err := s.store.Find(ctx, key)
		if err != nil {
			return err
		}
		if !policy.CanMutate(requester.Role, targetOf(c), requester.ID, policy.OpDelete) {
			return s.denied(ctx, requester, string(policy.OpDelete), key)
		}
		deleted = c
		return s.store.Delete(ctx, key)
	})
	if err != nil {
		return fail(span, s.translate(err, "failed to delete case"))
	}

	s.metrics.ObserveMutation("delete", start)
	s.logAudit(ctx, audit.EventCaseDeleted, requester, deleted)
	return nil
}

// Clear moves the case out of the active store and into the archive. Both
// happen in one transaction; the export to secondary storage follows the
// commit and cannot undo it.
func (s *Service) Clear(ctx context.Context, requester policy.Principal, key models.Key) (*archivemodels.HistoryRecord, error) {
	ctx, span := startSpan(ctx, "cases.Clear", key)
	defer span.End()
	start := time.Now()

	actor := archivemodels.Actor{ID: requester.ID}
	if u, err := s.users.FindOfficer(ctx, requester.ID); err == nil {
		actor.Name = u.Name
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve requester"))
	}

	var rec *archivemodels.HistoryRecord
	err := s.tx.RunInTx(ctx, []models.Key{key}, func(ctx context.Context) error {
		c, err := s.store.Find(ctx, key)
		if err != nil {
			return err
		}
		if !policy.CanMutate(requester.Role, targetOf(c), requester.ID, policy.OpClear) {
			return s.denied(ctx, requester, string(policy.OpClear), key)
		}
		rec, err = s.archive.Record(ctx, c, actor)
		if err != nil {
			return err
		}
		return s.store.Delete(ctx, key)
	})
	if err != nil {
		return nil, fail(span, s.translate(err, "failed to clear case"))
	}

	s.archive.Export(ctx, rec)
	s.metrics.ObserveMutation("clear", start)
	s.logAudit(ctx, audit.EventCaseCleared, requester, &rec.Snapshot)
	return rec, nil
}

// ListVisible returns every active case the requester may see, in creation
// order.
func (s *Service) ListVisible(ctx context.Context, requester policy.Principal) ([]*models.Case, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cases")
	}
	s.metrics.SetActiveCases(len(all))
	out := make([]*models.Case, 0, len(all))
	for _, c := range all {
		if policy.CanView(requester.Role, targetOf(c), requester.ID) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Queue returns the manager review queue grouped by officer.
func (s *Service) Queue(ctx context.Context, requester policy.Principal) ([]models.OfficerQueue, error) {
	if !policy.Can(requester.Role, policy.CapViewQueue) {
		return nil, s.denied(ctx, requester, "view_queue", models.Key{})
	}
	visible, err := s.ListVisible(ctx, requester)
	if err != nil {
		return nil, err
	}
	return models.GroupForQueue(visible), nil
}

// Get returns one case if the requester may see it.
func (s *Service) Get(ctx context.Context, requester policy.Principal, key models.Key) (*models.Case, error) {
	c, err := s.store.Find(ctx, key)
	if err != nil {
		return nil, s.translate(err, "failed to load case")
	}
	if !policy.CanView(requester.Role, targetOf(c), requester.ID) {
		return nil, s.denied(ctx, requester, "view", key)
	}
	return c, nil
}

func targetOf(c *models.Case) policy.Target {
	return policy.Target{Owner: c.OfficerID, Queued: c.Status.IsQueued()}
}

// translate maps store and runner errors onto domain codes. Errors that
// already carry a code pass through.
func (s *Service) translate(err error, msg string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "case was modified concurrently")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func (s *Service) denied(ctx context.Context, requester policy.Principal, op string, key models.Key) error {
	s.metrics.IncrementDenied(op)
	s.logger.WarnContext(ctx, "case access denied",
		"event", audit.EventAccessDenied,
		"request_id", requestcontext.RequestID(ctx),
		"user_id", requester.ID,
		"role", requester.Role,
		"op", op,
		"entity_id", key.EntityID,
		"officer_id", key.OfficerID,
	)
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			Action:    audit.EventAccessDenied,
			ActorID:   requester.ID,
			ActorRole: requester.Role.String(),
			EntityID:  key.EntityID.String(),
			OfficerID: key.OfficerID.String(),
			Reason:    op,
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	return dErrors.New(dErrors.CodeForbidden, "not permitted to "+op+" this case")
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, requester policy.Principal, c *models.Case) {
	s.logger.InfoContext(ctx, string(event),
		"event", event,
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", requester.ID,
		"entity_id", c.EntityID,
		"officer_id", c.OfficerID,
		"status", c.Status.String(),
	)
	s.emit(ctx, event, requester, c, "")
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, requester policy.Principal, c *models.Case, reason string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:    event,
		ActorID:   requester.ID,
		ActorRole: requester.Role.String(),
		EntityID:  c.EntityID.String(),
		OfficerID: c.OfficerID.String(),
		Status:    c.Status.String(),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
}

func startSpan(ctx context.Context, name string, key models.Key) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("case.entity_id", key.EntityID.String()),
		attribute.String("case.officer_id", key.OfficerID.String()),
	))
}

func fail(span trace.Span, err error) error {
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeTimeout) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
