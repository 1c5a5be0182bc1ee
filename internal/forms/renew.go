package forms

import (
	"time"

	"github.com/mrlokans/locallibrary/internal/clock"
)

const (
	MsgRenewalInPast     = "Invalid date - renewal in past"
	MsgRenewalTooFar     = "Invalid date - renewal more than 4 weeks ahead"
	RenewalDateHelpText  = "Enter a date between now and 4 weeks (default 3)."
	RenewalDateFieldName = "renewal_date"
)

type RenewBookForm struct {
	RenewalDate string `form:"renewal_date" json:"renewal_date" binding:"required"`
}

// NewRenewBookForm is the unbound form shown before submission.
func NewRenewBookForm(proposed time.Time) RenewBookForm {
	return RenewBookForm{RenewalDate: proposed.Format(clock.DateLayout)}
}

// Clean returns the renewal date when it falls between today and
// today+maxAhead, both inclusive.
func (f RenewBookForm) Clean(today time.Time, maxAhead time.Duration) (time.Time, Errors) {
	errs := Errors{}
	date, err := clock.ParseDate(f.RenewalDate)
	if err != nil {
		errs.Add(RenewalDateFieldName, MsgInvalidDate)
		return time.Time{}, errs
	}
	today = clock.Date(today)
	if date.Before(today) {
		errs.Add(RenewalDateFieldName, MsgRenewalInPast)
	}
	if date.After(today.Add(maxAhead)) {
		errs.Add(RenewalDateFieldName, MsgRenewalTooFar)
	}
	return date, errs
}
