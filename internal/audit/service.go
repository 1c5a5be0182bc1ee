// Package audit records who changed what in the catalog.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/database/audit"
	"github.com/mrlokans/locallibrary/internal/database/crud"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// Entity types recorded in events.
const (
	EntityAuthor       = "author"
	EntityBook         = "book"
	EntityBookInstance = "bookinstance"
	EntityUser         = "user"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID    uint
	IPAddress string
	UserAgent string
}

// Service writes audit events in the background. Failures are logged and
// never reach the caller.
type Service struct {
	repo   *audit.Repository
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewService(repo *audit.Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Log records an event synchronously.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	return s.repo.LogEvent(ctx, event)
}

// LogAsync records an event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(context.Background(), event); err != nil {
			s.logger.Error("failed to log audit event",
				zap.String("action", event.Action),
				zap.String("entity.id", event.EntityID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every pending background write has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func newEvent(actor Actor, eventType entities.AuditEventType, action string) *entities.AuditEvent {
	return &entities.AuditEvent{
		UserID:    actor.UserID,
		EventType: eventType,
		Action:    action,
		IPAddress: actor.IPAddress,
		UserAgent: truncate(actor.UserAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}
}

// LogChange records a create, update or delete of a catalog entity.
func (s *Service) LogChange(actor Actor, eventType entities.AuditEventType, entityType, entityID, description string) {
	event := newEvent(actor, eventType, entityType+"_"+string(eventType))
	event.EntityType = entityType
	event.EntityID = entityID
	event.Description = truncate(description, 500)
	s.LogAsync(event)
}

// LogLoan records a renewal, lending or return of a copy.
func (s *Service) LogLoan(actor Actor, action, instanceID, description string, details map[string]any) {
	event := newEvent(actor, entities.AuditEventLoan, EntityBookInstance+"_"+action)
	event.EntityType = EntityBookInstance
	event.EntityID = instanceID
	event.Description = truncate(description, 500)
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			event.Metadata = string(b)
		}
	}
	s.LogAsync(event)
}

// LogAuth records a login or logout.
func (s *Service) LogAuth(actor Actor, action string, success bool) {
	event := newEvent(actor, entities.AuditEventAuth, action)
	event.EntityType = EntityUser
	if !success {
		event.Status = entities.AuditStatusFailed
	}
	s.LogAsync(event)
}

// LogReport records the outcome of a background report, e.g. overdue loans.
func (s *Service) LogReport(action, description string, details map[string]any, err error) {
	event := newEvent(Actor{}, entities.AuditEventReport, action)
	event.Description = truncate(description, 500)
	if b, e := json.Marshal(details); e == nil && len(details) > 0 {
		event.Metadata = string(b)
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

// GetEvents retrieves one page of audit events, most recent first.
func (s *Service) GetEvents(ctx context.Context, filter audit.Filter, page crud.Page) (*crud.PageResult[entities.AuditEvent], error) {
	return s.repo.GetEvents(ctx, filter, page)
}

// DeleteOldEvents removes events older than the retention period.
func (s *Service) DeleteOldEvents(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	return s.repo.DeleteOldEvents(ctx, now.Add(-retention))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
