package http

import (
	"html/template"
	"strconv"
	"time"

	"github.com/mrlokans/locallibrary/internal/clock"
	"github.com/mrlokans/locallibrary/internal/entities"
	"github.com/mrlokans/locallibrary/internal/forms"
)

// templateFuncs are available to every page template.
var templateFuncs = template.FuncMap{
	"date":      formatDate,
	"errorsFor": errorsFor,
	"idstr": func(id uint) string {
		return strconv.FormatUint(uint64(id), 10)
	},
	"statusClass": statusClass,
	"loanStatuses": func() []entities.LoanStatus {
		return []entities.LoanStatus{entities.LoanStatusMaintenance, entities.LoanStatusAvailable, entities.LoanStatusReserved}
	},
}

// formatDate renders a calendar date, accepting both time.Time and *time.Time.
func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return clock.FormatDate(&t)
	case *time.Time:
		return clock.FormatDate(t)
	}
	return ""
}

func errorsFor(errs forms.Errors, field string) []string {
	return errs.Get(field)
}

func statusClass(s entities.LoanStatus) string {
	switch s {
	case entities.LoanStatusAvailable:
		return "text-success"
	case entities.LoanStatusMaintenance:
		return "text-danger"
	}
	return "text-warning"
}
