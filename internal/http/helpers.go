package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/audit"
	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/database/crud"
	"github.com/mrlokans/locallibrary/internal/demo"
	"github.com/mrlokans/locallibrary/internal/entities"
	"github.com/mrlokans/locallibrary/internal/forms"
	"github.com/mrlokans/locallibrary/internal/logging"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"` // field errors of a rejected form
}

// PageResponse wraps one page of a listing.
type PageResponse struct {
	Data        any   `json:"data"`
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	NumPages    int   `json:"num_pages"`
	HasPrevious bool  `json:"has_previous"`
	HasNext     bool  `json:"has_next"`
}

func newPageResponse[T any](p *crud.PageResult[T]) PageResponse {
	return PageResponse{
		Data:        p.Items,
		Total:       p.Total,
		Page:        p.Number,
		NumPages:    p.NumPages,
		HasPrevious: p.HasPrevious,
		HasNext:     p.HasNext,
	}
}

// --- JSON Response Helpers ---

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and answers 500 without exposing it.
func respondInternalError(c *gin.Context, logger *zap.Logger, err error, context string) {
	logger.Error("internal error",
		zap.String("context", context),
		zap.String("request.id", logging.GetRequestID(c)),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondInvalidForm answers 422 with the field errors of a rejected submission.
func respondInvalidForm(c *gin.Context, errs forms.Errors) {
	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "invalid submission", Details: errs})
}

// --- HTML Response Helpers ---

// render executes a page template with the data every page needs: the
// caller, their permissions and the CSRF field.
func render(c *gin.Context, status int, name string, data gin.H) {
	user := auth.GetUser(c)
	perms := make(map[string]bool, len(entities.DefaultPermissions))
	for _, p := range entities.DefaultPermissions {
		perms[p.Codename] = auth.HasPermission(c, p.Codename)
	}

	data["User"] = user
	data["IsAuthenticated"] = user != nil
	data["CanMarkReturned"] = perms[entities.PermCanMarkReturned]
	data["CanEdit"] = perms[entities.PermCanEdit]
	data["CSRFField"] = auth.CSRFTokenField(c)
	data["Demo"] = demo.IsDemo(c)
	data["CurrentPath"] = c.Request.URL.RequestURI()
	c.HTML(status, name, data)
}

func renderNotFound(c *gin.Context, message string) {
	render(c, http.StatusNotFound, "error", gin.H{
		"Title":   "Not found",
		"Status":  http.StatusNotFound,
		"Message": message,
	})
}

func renderForbidden(c *gin.Context) {
	render(c, http.StatusForbidden, "error", gin.H{
		"Title":   "Forbidden",
		"Status":  http.StatusForbidden,
		"Message": "You do not have permission to view this page.",
	})
}

func renderInternalError(c *gin.Context, logger *zap.Logger, err error, context string) {
	logger.Error("internal error",
		zap.String("context", context),
		zap.String("request.id", logging.GetRequestID(c)),
		zap.Error(err),
	)
	render(c, http.StatusInternalServerError, "error", gin.H{
		"Title":   "Server error",
		"Status":  http.StatusInternalServerError,
		"Message": "Something went wrong. Please try again later.",
	})
}

// renderLookupError renders 404 for missing records and 500 otherwise.
func renderLookupError(c *gin.Context, logger *zap.Logger, err error, resource string) {
	if errors.Is(err, crud.ErrNotFound) || errors.Is(err, crud.ErrInvalidPage) {
		renderNotFound(c, resource+" not found")
		return
	}
	renderInternalError(c, logger, err, "load "+resource)
}

// respondLookupError is the JSON counterpart of renderLookupError.
func respondLookupError(c *gin.Context, logger *zap.Logger, err error, resource string) {
	if errors.Is(err, crud.ErrNotFound) || errors.Is(err, crud.ErrInvalidPage) {
		respondNotFound(c, resource)
		return
	}
	respondInternalError(c, logger, err, "load "+resource)
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// pageIDParam is parseIDParam for HTML pages, where a malformed id is
// simply a page that does not exist.
func pageIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		renderNotFound(c, "Page not found")
		return 0, false
	}
	return uint(id), true
}

// parsePage reads ?page=N. Missing means the first page; anything that is
// not a positive number is reported as ErrInvalidPage.
func parsePage(c *gin.Context, size int) (crud.Page, error) {
	raw := c.Query("page")
	if raw == "" {
		return crud.Page{Number: 1, Size: size}, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return crud.Page{}, crud.ErrInvalidPage
	}
	return crud.Page{Number: n, Size: size}, nil
}

// actor describes the caller for the audit trail.
func actor(c *gin.Context) audit.Actor {
	return audit.Actor{
		UserID:    auth.GetUserID(c),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
