package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/clock"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/database/crud"
	"github.com/mrlokans/locallibrary/internal/database/instances"
	"github.com/mrlokans/locallibrary/internal/entities"
	"github.com/mrlokans/locallibrary/internal/forms"
)

// Pages the loan workflows lead back to.
const (
	BorrowedURL = "/catalog/borrowed/"
	MyBooksURL  = "/catalog/mybooks/"
)

const MsgUnknownBorrower = "No user with this username."

// LoansController lists loans and runs the renew, lend and return
// workflows on single copies.
type LoansController struct {
	instances InstanceStore
	users     UserFinder
	auditor   Auditor
	clock     clock.Clocker
	catalog   config.Catalog
	logger    *zap.Logger
}

func NewLoansController(instances InstanceStore, users UserFinder, auditor Auditor, clk clock.Clocker, catalog config.Catalog, logger *zap.Logger) *LoansController {
	return &LoansController{
		instances: instances,
		users:     users,
		auditor:   auditor,
		clock:     clk,
		catalog:   catalog,
		logger:    logger,
	}
}

// MyBooks lists the copies the caller has on loan, soonest due first.
func (lc *LoansController) MyBooks(c *gin.Context) {
	page, err := parsePage(c, lc.catalog.PageSize)
	if err != nil {
		renderNotFound(c, "Invalid page.")
		return
	}

	loans, err := lc.instances.ListOnLoanByBorrower(c.Request.Context(), auth.GetUserID(c), page)
	if err != nil {
		renderLookupError(c, lc.logger, err, "Page")
		return
	}

	render(c, http.StatusOK, "bookinstance_list_borrowed_user", gin.H{
		"Title": "Borrowed books",
		"Page":  loans,
		"Today": clock.Today(lc.clock),
	})
}

// Borrowed lists every copy on loan, soonest due first.
func (lc *LoansController) Borrowed(c *gin.Context) {
	page, err := parsePage(c, lc.catalog.PageSize)
	if err != nil {
		renderNotFound(c, "Invalid page.")
		return
	}

	loans, err := lc.instances.ListOnLoan(c.Request.Context(), page)
	if err != nil {
		renderLookupError(c, lc.logger, err, "Page")
		return
	}

	render(c, http.StatusOK, "bookinstance_list_borrowed_all", gin.H{
		"Title": "All borrowed books",
		"Page":  loans,
		"Today": clock.Today(lc.clock),
	})
}

func (lc *LoansController) instance(c *gin.Context) (*entities.BookInstance, bool) {
	bi, err := lc.instances.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderLookupError(c, lc.logger, err, "Book copy")
		return nil, false
	}
	return bi, true
}

// RenewPage shows the renewal form proposing a new due date.
func (lc *LoansController) RenewPage(c *gin.Context) {
	bi, ok := lc.instance(c)
	if !ok {
		return
	}
	proposed := clock.Today(lc.clock).Add(lc.catalog.RenewalProposal)
	lc.renderRenew(c, bi, forms.NewRenewBookForm(proposed), nil)
}

// Renew validates the submitted date and stores it as the new due date.
// Nothing but the due date changes; an invalid date re-renders the form.
func (lc *LoansController) Renew(c *gin.Context) {
	bi, ok := lc.instance(c)
	if !ok {
		return
	}

	var form forms.RenewBookForm
	errs := forms.Bind(c, &form)
	if !errs.Empty() {
		lc.renderRenew(c, bi, form, errs)
		return
	}
	dueBack, errs := form.Clean(clock.Today(lc.clock), lc.catalog.RenewalMaxAhead)
	if !errs.Empty() {
		lc.renderRenew(c, bi, form, errs)
		return
	}

	if err := lc.instances.UpdateDueBack(c.Request.Context(), bi.ID, dueBack); err != nil {
		renderLookupError(c, lc.logger, err, "Book copy")
		return
	}
	lc.auditor.LogLoan(actor(c), "renew", bi.ID, "Renewed "+bi.Book.Title, map[string]any{
		"previous_due_back": clock.FormatDate(bi.DueBack),
		"due_back":          clock.FormatDate(&dueBack),
	})

	c.Redirect(http.StatusFound, BorrowedURL)
}

func (lc *LoansController) renderRenew(c *gin.Context, bi *entities.BookInstance, form forms.RenewBookForm, errs forms.Errors) {
	render(c, http.StatusOK, "book_renew_librarian", gin.H{
		"Title":    "Renew: " + bi.Book.Title,
		"Instance": bi,
		"Form":     form,
		"Errors":   errs,
		"HelpText": forms.RenewalDateHelpText,
		"Today":    clock.Today(lc.clock),
	})
}

// LendPage shows the form handing a copy to a borrower.
func (lc *LoansController) LendPage(c *gin.Context) {
	bi, ok := lc.instance(c)
	if !ok {
		return
	}
	due := clock.Today(lc.clock).Add(lc.catalog.LoanPeriod)
	lc.renderLend(c, http.StatusOK, bi, forms.NewLendForm(due), nil)
}

func (lc *LoansController) Lend(c *gin.Context) {
	bi, ok := lc.instance(c)
	if !ok {
		return
	}

	var form forms.LendForm
	errs := forms.Bind(c, &form)
	if !errs.Empty() {
		lc.renderLend(c, http.StatusOK, bi, form, errs)
		return
	}
	dueBack, errs := form.Clean(clock.Today(lc.clock))
	borrower, err := lc.users.GetUserByUsername(c.Request.Context(), form.Borrower)
	if err != nil {
		if !errors.Is(err, crud.ErrNotFound) {
			renderInternalError(c, lc.logger, err, "find borrower")
			return
		}
		errs.Add("borrower", MsgUnknownBorrower)
	}
	if !errs.Empty() {
		lc.renderLend(c, http.StatusOK, bi, form, errs)
		return
	}

	err = lc.instances.Lend(c.Request.Context(), bi.ID, borrower.ID, dueBack)
	if errors.Is(err, instances.ErrNotAvailable) {
		errs.Add(forms.NonField, "This copy is not available for loan.")
		lc.renderLend(c, http.StatusConflict, bi, form, errs)
		return
	}
	if err != nil {
		renderLookupError(c, lc.logger, err, "Book copy")
		return
	}
	lc.auditor.LogLoan(actor(c), "lend", bi.ID, "Lent "+bi.Book.Title+" to "+borrower.Username, map[string]any{
		"borrower_id": borrower.ID,
		"due_back":    clock.FormatDate(&dueBack),
	})

	c.Redirect(http.StatusFound, bookURL(bi.BookID))
}

func (lc *LoansController) renderLend(c *gin.Context, status int, bi *entities.BookInstance, form forms.LendForm, errs forms.Errors) {
	render(c, status, "bookinstance_lend", gin.H{
		"Title":    "Lend: " + bi.Book.Title,
		"Instance": bi,
		"Form":     form,
		"Errors":   errs,
	})
}

// Return marks a lent copy as available again.
func (lc *LoansController) Return(c *gin.Context) {
	bi, ok := lc.instance(c)
	if !ok {
		return
	}

	err := lc.instances.MarkReturned(c.Request.Context(), bi.ID)
	if errors.Is(err, instances.ErrNotOnLoan) {
		render(c, http.StatusConflict, "error", gin.H{
			"Title":   "Not on loan",
			"Status":  http.StatusConflict,
			"Message": "This copy is not on loan.",
		})
		return
	}
	if err != nil {
		renderLookupError(c, lc.logger, err, "Book copy")
		return
	}
	details := map[string]any{"due_back": clock.FormatDate(bi.DueBack)}
	if bi.BorrowerID != nil {
		details["borrower_id"] = *bi.BorrowerID
	}
	lc.auditor.LogLoan(actor(c), "return", bi.ID, "Returned "+bi.Book.Title, details)

	c.Redirect(http.StatusFound, BorrowedURL)
}

func bookURL(id uint) string {
	return "/catalog/book/" + strconv.FormatUint(uint64(id), 10)
}

func authorURL(id uint) string {
	return "/catalog/author/" + strconv.FormatUint(uint64(id), 10)
}
