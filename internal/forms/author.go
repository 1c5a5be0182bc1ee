package forms

import (
	"time"

	"github.com/mrlokans/locallibrary/internal/clock"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// AuthorCreateInitialDateOfDeath pre-fills the create form.
const AuthorCreateInitialDateOfDeath = "2017-11-27"

const MsgDeathBeforeBirth = "Date of death cannot be before date of birth."

// AuthorForm carries every author field. Create and update bind the same set.
type AuthorForm struct {
	FirstName   string `form:"first_name" json:"first_name" binding:"required,max=100"`
	LastName    string `form:"last_name" json:"last_name" binding:"required,max=100"`
	DateOfBirth string `form:"date_of_birth" json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	DateOfDeath string `form:"date_of_death" json:"date_of_death" binding:"omitempty,datetime=2006-01-02"`
}

func NewAuthorCreateForm() AuthorForm {
	return AuthorForm{DateOfDeath: AuthorCreateInitialDateOfDeath}
}

// AuthorFormFrom pre-fills the update form.
func AuthorFormFrom(a entities.Author) AuthorForm {
	return AuthorForm{
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		DateOfBirth: clock.FormatDate(a.DateOfBirth),
		DateOfDeath: clock.FormatDate(a.DateOfDeath),
	}
}

// Apply copies the cleaned values onto a. Nothing is written when the
// returned Errors is not empty.
func (f AuthorForm) Apply(a *entities.Author) Errors {
	errs := Errors{}
	birth := optionalDate(errs, "date_of_birth", f.DateOfBirth)
	death := optionalDate(errs, "date_of_death", f.DateOfDeath)
	if birth != nil && death != nil && death.Before(*birth) {
		errs.Add("date_of_death", MsgDeathBeforeBirth)
	}
	if !errs.Empty() {
		return errs
	}
	a.FirstName = f.FirstName
	a.LastName = f.LastName
	a.DateOfBirth = birth
	a.DateOfDeath = death
	return errs
}

func optionalDate(errs Errors, field, value string) *time.Time {
	if value == "" {
		return nil
	}
	d, err := clock.ParseDate(value)
	if err != nil {
		errs.Add(field, MsgInvalidDate)
		return nil
	}
	return &d
}
