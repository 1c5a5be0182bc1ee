// Package instances stores book copies and tracks their loans.
package instances

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/database/crud"
	"github.com/mrlokans/locallibrary/internal/entities"
)

var (
	ErrNotAvailable = errors.New("copy is not available for loan")
	ErrNotOnLoan    = errors.New("copy is not on loan")
)

// LoanOrder lists loans soonest due first.
const LoanOrder = "due_back ASC"

type Repository struct {
	*crud.Repository[entities.BookInstance]
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{crud.New[entities.BookInstance](db,
		crud.WithPreload("Book", "Book.Author", "Borrower"),
		crud.WithOrder(LoanOrder),
	)}
}

// OnLoan narrows a query to copies currently lent out.
func OnLoan(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", entities.LoanStatusOnLoan)
}

// BorrowedBy narrows a query to copies held by the user.
func BorrowedBy(userID uint) crud.Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("borrower_id = ?", userID)
	}
}

// ListOnLoan returns every copy on loan, soonest due first.
func (r *Repository) ListOnLoan(ctx context.Context, page crud.Page) (*crud.PageResult[entities.BookInstance], error) {
	return r.FindPageOrdered(ctx, page, LoanOrder, OnLoan)
}

// ListOnLoanByBorrower returns the copies on loan to one user, soonest due first.
func (r *Repository) ListOnLoanByBorrower(ctx context.Context, userID uint, page crud.Page) (*crud.PageResult[entities.BookInstance], error) {
	return r.FindPageOrdered(ctx, page, LoanOrder, OnLoan, BorrowedBy(userID))
}

// ListOverdue returns copies on loan whose due date lies before today.
func (r *Repository) ListOverdue(ctx context.Context, today time.Time) ([]entities.BookInstance, error) {
	return r.FindAll(ctx, OnLoan, func(db *gorm.DB) *gorm.DB {
		return db.Where("due_back IS NOT NULL AND due_back < ?", today)
	})
}

// ListForBook returns all copies of a book.
func (r *Repository) ListForBook(ctx context.Context, bookID uint) ([]entities.BookInstance, error) {
	return r.FindAll(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("book_id = ?", bookID)
	})
}

// UpdateDueBack sets the due date and leaves every other column untouched.
func (r *Repository) UpdateDueBack(ctx context.Context, id string, dueBack time.Time) error {
	result := r.DB().WithContext(ctx).
		Model(&entities.BookInstance{}).
		Where("id = ?", id).
		UpdateColumn("due_back", dueBack)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return crud.ErrNotFound
	}
	return nil
}

// Lend hands an available copy to the borrower until dueBack.
func (r *Repository) Lend(ctx context.Context, id string, borrowerID uint, dueBack time.Time) error {
	result := r.DB().WithContext(ctx).
		Model(&entities.BookInstance{}).
		Where("id = ? AND status = ?", id, entities.LoanStatusAvailable).
		Updates(map[string]any{
			"status":      entities.LoanStatusOnLoan,
			"borrower_id": borrowerID,
			"due_back":    dueBack,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.explain(ctx, id, ErrNotAvailable)
	}
	return nil
}

// MarkReturned makes a lent copy available again and forgets the borrower.
func (r *Repository) MarkReturned(ctx context.Context, id string) error {
	result := r.DB().WithContext(ctx).
		Model(&entities.BookInstance{}).
		Where("id = ? AND status = ?", id, entities.LoanStatusOnLoan).
		Updates(map[string]any{
			"status":      entities.LoanStatusAvailable,
			"borrower_id": nil,
			"due_back":    nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.explain(ctx, id, ErrNotOnLoan)
	}
	return nil
}

// explain distinguishes a missing copy from one in the wrong state.
func (r *Repository) explain(ctx context.Context, id string, stateErr error) error {
	var count int64
	if err := r.DB().WithContext(ctx).Model(&entities.BookInstance{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return crud.ErrNotFound
	}
	return stateErr
}
