package forms

import (
	"time"

	"github.com/mrlokans/locallibrary/internal/clock"
	"github.com/mrlokans/locallibrary/internal/entities"
)

const MsgDueInPast = "Due date cannot be in the past."

// LendForm hands an available copy to a borrower.
type LendForm struct {
	Borrower string `form:"borrower" json:"borrower" binding:"required,max=100"`
	DueBack  string `form:"due_back" json:"due_back" binding:"required,datetime=2006-01-02"`
}

func NewLendForm(due time.Time) LendForm {
	return LendForm{DueBack: due.Format(clock.DateLayout)}
}

// Clean returns the due date, which may not lie before today.
func (f LendForm) Clean(today time.Time) (time.Time, Errors) {
	errs := Errors{}
	due, err := clock.ParseDate(f.DueBack)
	if err != nil {
		errs.Add("due_back", MsgInvalidDate)
		return time.Time{}, errs
	}
	if due.Before(clock.Date(today)) {
		errs.Add("due_back", MsgDueInPast)
	}
	return due, errs
}

// CopyForm registers a new copy of a book. New copies are never on loan.
type CopyForm struct {
	Imprint string `form:"imprint" json:"imprint" binding:"required,max=200"`
	Status  string `form:"status" json:"status" binding:"required,oneof=m a r"`
}

// Instance builds the copy for the book.
func (f CopyForm) Instance(bookID uint) *entities.BookInstance {
	return &entities.BookInstance{
		BookID:  bookID,
		Imprint: f.Imprint,
		Status:  entities.LoanStatus(f.Status),
	}
}
