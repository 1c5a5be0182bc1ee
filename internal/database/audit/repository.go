// Package audit stores the audit event log.
package audit

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/database/crud"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// Filter narrows event listings. Zero values match everything.
type Filter struct {
	UserID     uint
	EventType  entities.AuditEventType
	EntityType string
	EntityID   string
}

func (f Filter) scope(db *gorm.DB) *gorm.DB {
	if f.UserID > 0 {
		db = db.Where("user_id = ?", f.UserID)
	}
	if f.EventType != "" {
		db = db.Where("event_type = ?", f.EventType)
	}
	if f.EntityType != "" {
		db = db.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		db = db.Where("entity_id = ?", f.EntityID)
	}
	return db
}

type Repository struct {
	*crud.Repository[entities.AuditEvent]
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{crud.New[entities.AuditEvent](db, crud.WithOrder("created_at DESC, id DESC"))}
}

// LogEvent saves an audit event to the database.
func (r *Repository) LogEvent(ctx context.Context, event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.CreatedAt = event.CreatedAt.UTC()
	return r.Insert(ctx, event)
}

// GetEvents returns one page of matching events, most recent first.
func (r *Repository) GetEvents(ctx context.Context, filter Filter, page crud.Page) (*crud.PageResult[entities.AuditEvent], error) {
	return r.FindPage(ctx, page, filter.scope)
}

// GetRecentEvents returns matching events created after since.
func (r *Repository) GetRecentEvents(ctx context.Context, filter Filter, since time.Time) ([]entities.AuditEvent, error) {
	return r.FindAll(ctx, filter.scope, func(db *gorm.DB) *gorm.DB {
		return db.Where("created_at > ?", since.UTC())
	})
}

// DeleteOldEvents removes audit events older than the specified time.
// Returns the number of deleted events.
func (r *Repository) DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.DB().WithContext(ctx).Where("created_at < ?", olderThan.UTC()).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}
