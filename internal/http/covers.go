package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/covers"
)

// CoversController serves cached book cover images.
type CoversController struct {
	cache  CoverSource
	books  BookStore
	logger *zap.Logger
}

func NewCoversController(cache CoverSource, books BookStore, logger *zap.Logger) *CoversController {
	return &CoversController{
		cache:  cache,
		books:  books,
		logger: logger,
	}
}

// GetCover serves the cover of a book, looked up by its ISBN.
// GET /catalog/book/:id/cover
func (cc *CoversController) GetCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.books.GetDetail(c.Request.Context(), id)
	if err != nil {
		respondLookupError(c, cc.logger, err, "book")
		return
	}
	if book.ISBN == "" {
		c.Status(http.StatusNotFound)
		return
	}

	cachePath, err := cc.cache.GetCover(c.Request.Context(), book.ISBN)
	if errors.Is(err, covers.ErrNoCover) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil || cachePath == "" {
		cc.logger.Warn("cover fetch failed, redirecting", zap.String("isbn", book.ISBN), zap.Error(err))
		c.Redirect(http.StatusTemporaryRedirect, cc.cache.CoverURL(book.ISBN))
		return
	}

	c.File(cachePath)
}
