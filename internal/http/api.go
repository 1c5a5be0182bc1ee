package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/clock"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/forms"
	"github.com/mrlokans/locallibrary/internal/tasks"
)

// APIController serves the catalog queries as JSON.
type APIController struct {
	authors   AuthorStore
	books     BookStore
	instances InstanceStore
	tasks     TaskQueue
	auditor   Auditor
	clock     clock.Clocker
	catalog   config.Catalog
	logger    *zap.Logger
}

func NewAPIController(authors AuthorStore, books BookStore, instances InstanceStore, taskQueue TaskQueue, auditor Auditor, clk clock.Clocker, catalog config.Catalog, logger *zap.Logger) *APIController {
	return &APIController{
		authors:   authors,
		books:     books,
		instances: instances,
		tasks:     taskQueue,
		auditor:   auditor,
		clock:     clk,
		catalog:   catalog,
		logger:    logger,
	}
}

// ListBooks handles GET /api/books
func (api *APIController) ListBooks(c *gin.Context) {
	page, err := parsePage(c, api.catalog.PageSize)
	if err != nil {
		respondNotFound(c, "page")
		return
	}
	books, err := api.books.FindPage(c.Request.Context(), page)
	if err != nil {
		respondLookupError(c, api.logger, err, "page")
		return
	}
	c.JSON(http.StatusOK, newPageResponse(books))
}

// GetBook handles GET /api/books/:id
func (api *APIController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := api.books.GetDetail(c.Request.Context(), id)
	if err != nil {
		respondLookupError(c, api.logger, err, "book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// ListAuthors handles GET /api/authors
func (api *APIController) ListAuthors(c *gin.Context) {
	page, err := parsePage(c, api.catalog.PageSize)
	if err != nil {
		respondNotFound(c, "page")
		return
	}
	authors, err := api.authors.FindPage(c.Request.Context(), page)
	if err != nil {
		respondLookupError(c, api.logger, err, "page")
		return
	}
	c.JSON(http.StatusOK, newPageResponse(authors))
}

// GetAuthor handles GET /api/authors/:id
func (api *APIController) GetAuthor(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	author, err := api.authors.GetWithBooks(c.Request.Context(), id)
	if err != nil {
		respondLookupError(c, api.logger, err, "author")
		return
	}
	c.JSON(http.StatusOK, author)
}

// MyLoans handles GET /api/loans/mine
func (api *APIController) MyLoans(c *gin.Context) {
	page, err := parsePage(c, api.catalog.PageSize)
	if err != nil {
		respondNotFound(c, "page")
		return
	}
	loans, err := api.instances.ListOnLoanByBorrower(c.Request.Context(), auth.GetUserID(c), page)
	if err != nil {
		respondLookupError(c, api.logger, err, "page")
		return
	}
	c.JSON(http.StatusOK, newPageResponse(loans))
}

// AllLoans handles GET /api/loans
func (api *APIController) AllLoans(c *gin.Context) {
	page, err := parsePage(c, api.catalog.PageSize)
	if err != nil {
		respondNotFound(c, "page")
		return
	}
	loans, err := api.instances.ListOnLoan(c.Request.Context(), page)
	if err != nil {
		respondLookupError(c, api.logger, err, "page")
		return
	}
	c.JSON(http.StatusOK, newPageResponse(loans))
}

// RenewLoan handles POST /api/loans/:id/renew with {"renewal_date": "YYYY-MM-DD"}.
func (api *APIController) RenewLoan(c *gin.Context) {
	ctx := c.Request.Context()
	bi, err := api.instances.FindByID(ctx, c.Param("id"))
	if err != nil {
		respondLookupError(c, api.logger, err, "book copy")
		return
	}

	var form forms.RenewBookForm
	if errs := forms.Bind(c, &form); !errs.Empty() {
		respondInvalidForm(c, errs)
		return
	}
	dueBack, errs := form.Clean(clock.Today(api.clock), api.catalog.RenewalMaxAhead)
	if !errs.Empty() {
		respondInvalidForm(c, errs)
		return
	}

	if err := api.instances.UpdateDueBack(ctx, bi.ID, dueBack); err != nil {
		respondLookupError(c, api.logger, err, "book copy")
		return
	}
	api.auditor.LogLoan(actor(c), "renew", bi.ID, "Renewed "+bi.Book.Title, map[string]any{
		"previous_due_back": clock.FormatDate(bi.DueBack),
		"due_back":          clock.FormatDate(&dueBack),
	})

	bi.DueBack = &dueBack
	c.JSON(http.StatusOK, bi)
}

// EnrichBook handles POST /api/books/:id/enrich by queueing a lookup of the
// book on OpenLibrary.
func (api *APIController) EnrichBook(c *gin.Context) {
	if api.tasks == nil {
		respondError(c, http.StatusServiceUnavailable, "background tasks are disabled")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := api.books.GetDetail(c.Request.Context(), id); err != nil {
		respondLookupError(c, api.logger, err, "book")
		return
	}

	taskID, err := api.tasks.Enqueue(c.Request.Context(), tasks.EnrichBookTask{BookID: id})
	if err != nil {
		respondInternalError(c, api.logger, err, "enqueue enrichment")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message": "enrichment queued",
		"task_id": taskID,
	})
}
