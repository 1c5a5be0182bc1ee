package http

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/locallibrary/internal/audit"
	auditrepo "github.com/mrlokans/locallibrary/internal/database/audit"
	"github.com/mrlokans/locallibrary/internal/database/crud"
	"github.com/mrlokans/locallibrary/internal/database/stats"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// Each controller depends on the narrow slice of storage it uses. The
// database repositories satisfy all of them.

// AuthorStore reads and edits authors.
type AuthorStore interface {
	FindPage(ctx context.Context, page crud.Page, scopes ...crud.Scope) (*crud.PageResult[entities.Author], error)
	FindAll(ctx context.Context, scopes ...crud.Scope) ([]entities.Author, error)
	FindByID(ctx context.Context, id any) (*entities.Author, error)
	GetWithBooks(ctx context.Context, id uint) (*entities.Author, error)
	Insert(ctx context.Context, author *entities.Author) error
	UpdateDetails(ctx context.Context, author *entities.Author) error
	Delete(ctx context.Context, id uint) error
}

// BookStore reads and edits books.
type BookStore interface {
	FindPage(ctx context.Context, page crud.Page, scopes ...crud.Scope) (*crud.PageResult[entities.Book], error)
	GetDetail(ctx context.Context, id uint) (*entities.Book, error)
	Create(ctx context.Context, book *entities.Book, genreIDs []uint) error
	UpdateDetails(ctx context.Context, book *entities.Book, genreIDs []uint) error
	Delete(ctx context.Context, id uint) error
}

// GenreLister lists every genre for the book form.
type GenreLister interface {
	FindAll(ctx context.Context, scopes ...crud.Scope) ([]entities.Genre, error)
}

// InstanceStore reads copies and runs the loan workflows.
type InstanceStore interface {
	FindByID(ctx context.Context, id any) (*entities.BookInstance, error)
	Insert(ctx context.Context, instance *entities.BookInstance) error
	ListOnLoan(ctx context.Context, page crud.Page) (*crud.PageResult[entities.BookInstance], error)
	ListOnLoanByBorrower(ctx context.Context, userID uint, page crud.Page) (*crud.PageResult[entities.BookInstance], error)
	UpdateDueBack(ctx context.Context, id string, dueBack time.Time) error
	Lend(ctx context.Context, id string, borrowerID uint, dueBack time.Time) error
	MarkReturned(ctx context.Context, id string) error
}

// UserFinder resolves the borrower named in the lend form.
type UserFinder interface {
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
}

// StatsReader computes the home page counters.
type StatsReader interface {
	Counts(ctx context.Context, today time.Time) (*stats.Counts, error)
}

// TaskQueue hands work to the background queue and reports on it.
type TaskQueue interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// Auditor records catalog mutations and logins.
type Auditor interface {
	LogAuth(actor audit.Actor, action string, success bool)
	LogChange(actor audit.Actor, eventType entities.AuditEventType, entityType, entityID, description string)
	LogLoan(actor audit.Actor, action, instanceID, description string, details map[string]any)
}

// AuditLog reads the recorded events back.
type AuditLog interface {
	GetEvents(ctx context.Context, filter auditrepo.Filter, page crud.Page) (*crud.PageResult[entities.AuditEvent], error)
}

// CoverSource resolves cover images by ISBN.
type CoverSource interface {
	GetCover(ctx context.Context, isbn string) (string, error)
	CoverURL(isbn string) string
}
