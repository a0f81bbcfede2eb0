package audit

import (
	"context"
	"time"

	id "watchdesk/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks
// can route and retain them differently.
type EventCategory string

const (
	// CategoryCompliance covers changes to the case trail.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers authentication and authorization outcomes.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. It is
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    AuditEvent    `json:"action"`
	// ActorID is the authenticated user that performed the action.
	ActorID   id.UserID `json:"actor_id"`
	ActorRole string    `json:"actor_role,omitempty"`
	// EntityID and OfficerID identify the case acted on, when there is one.
	EntityID  string `json:"entity_id,omitempty"`
	OfficerID string `json:"officer_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	// ClientIP and Device are set on authentication events.
	ClientIP string `json:"client_ip,omitempty"`
	Device   string `json:"device,omitempty"`
}

type AuditEvent string

const (
	// Case events
	EventCaseCreated       AuditEvent = "case_created"
	EventCaseStatusChanged AuditEvent = "case_status_changed"
	EventCaseNotesUpdated  AuditEvent = "case_notes_updated"
	EventCaseReassigned    AuditEvent = "case_reassigned"
	EventCaseDeleted       AuditEvent = "case_deleted"
	EventCaseCleared       AuditEvent = "case_cleared"
	EventHistoryRemoved    AuditEvent = "history_removed"

	// Auth events
	EventUserRegistered AuditEvent = "user_registered"
	EventLoginSucceeded AuditEvent = "login_succeeded"
	EventLoginFailed    AuditEvent = "login_failed"
	EventTokenRefreshed AuditEvent = "token_refreshed"
	EventLoggedOut      AuditEvent = "logged_out"

	// Access events
	EventAccessDenied      AuditEvent = "access_denied"
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventCaseCreated:       CategoryCompliance,
	EventCaseStatusChanged: CategoryCompliance,
	EventCaseNotesUpdated:  CategoryCompliance,
	EventCaseReassigned:    CategoryCompliance,
	EventCaseDeleted:       CategoryCompliance,
	EventCaseCleared:       CategoryCompliance,
	EventHistoryRemoved:    CategoryCompliance,
	EventUserRegistered:    CategoryCompliance,

	EventLoginFailed:       CategorySecurity,
	EventAccessDenied:      CategorySecurity,
	EventRateLimitExceeded: CategorySecurity,
	EventLoggedOut:         CategorySecurity,

	EventLoginSucceeded: CategoryOperations,
	EventTokenRefreshed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
