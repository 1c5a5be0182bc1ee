package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/clock"
)

// CatalogController serves the public home page and the read-only book and
// author pages.
type CatalogController struct {
	authors  AuthorStore
	books    BookStore
	stats    StatsReader
	sessions *auth.SessionManager
	clock    clock.Clocker
	pageSize int
	logger   *zap.Logger

	showCovers bool
}

func NewCatalogController(authors AuthorStore, books BookStore, stats StatsReader, sessions *auth.SessionManager, clk clock.Clocker, pageSize int, logger *zap.Logger) *CatalogController {
	return &CatalogController{
		authors:  authors,
		books:    books,
		stats:    stats,
		sessions: sessions,
		clock:    clk,
		pageSize: pageSize,
		logger:   logger,
	}
}

// EnableCovers adds the cover image to the book detail page.
func (cc *CatalogController) EnableCovers() {
	cc.showCovers = true
}

// Index shows the catalog counters and how often this session has visited
// the page before.
func (cc *CatalogController) Index(c *gin.Context) {
	counts, err := cc.stats.Counts(c.Request.Context(), clock.Today(cc.clock))
	if err != nil {
		renderInternalError(c, cc.logger, err, "catalog counts")
		return
	}

	render(c, http.StatusOK, "index", gin.H{
		"Title":     "Local Library Home",
		"Counts":    counts,
		"NumVisits": cc.sessions.CountVisit(c.Request),
	})
}

func (cc *CatalogController) BookList(c *gin.Context) {
	page, err := parsePage(c, cc.pageSize)
	if err != nil {
		renderNotFound(c, "Invalid page.")
		return
	}

	books, err := cc.books.FindPage(c.Request.Context(), page)
	if err != nil {
		renderLookupError(c, cc.logger, err, "Page")
		return
	}

	render(c, http.StatusOK, "book_list", gin.H{
		"Title": "Book List",
		"Page":  books,
	})
}

func (cc *CatalogController) BookDetail(c *gin.Context) {
	id, ok := pageIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.books.GetDetail(c.Request.Context(), id)
	if err != nil {
		renderLookupError(c, cc.logger, err, "Book")
		return
	}

	render(c, http.StatusOK, "book_detail", gin.H{
		"Title":      book.Title,
		"Book":       book,
		"Today":      clock.Today(cc.clock),
		"ShowCovers": cc.showCovers,
	})
}

func (cc *CatalogController) AuthorList(c *gin.Context) {
	page, err := parsePage(c, cc.pageSize)
	if err != nil {
		renderNotFound(c, "Invalid page.")
		return
	}

	authors, err := cc.authors.FindPage(c.Request.Context(), page)
	if err != nil {
		renderLookupError(c, cc.logger, err, "Page")
		return
	}

	render(c, http.StatusOK, "author_list", gin.H{
		"Title": "Author List",
		"Page":  authors,
	})
}

func (cc *CatalogController) AuthorDetail(c *gin.Context) {
	id, ok := pageIDParam(c, "id")
	if !ok {
		return
	}

	author, err := cc.authors.GetWithBooks(c.Request.Context(), id)
	if err != nil {
		renderLookupError(c, cc.logger, err, "Author")
		return
	}

	render(c, http.StatusOK, "author_detail", gin.H{
		"Title":  author.Name(),
		"Author": author,
	})
}
