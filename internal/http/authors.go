package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/audit"
	"github.com/mrlokans/locallibrary/internal/entities"
	"github.com/mrlokans/locallibrary/internal/forms"
)

const AuthorsURL = "/catalog/authors/"

// AuthorsController creates, updates and deletes authors.
type AuthorsController struct {
	authors AuthorStore
	auditor Auditor
	logger  *zap.Logger
}

func NewAuthorsController(authors AuthorStore, auditor Auditor, logger *zap.Logger) *AuthorsController {
	return &AuthorsController{authors: authors, auditor: auditor, logger: logger}
}

func (ac *AuthorsController) CreatePage(c *gin.Context) {
	ac.renderForm(c, nil, forms.NewAuthorCreateForm(), nil)
}

func (ac *AuthorsController) Create(c *gin.Context) {
	var form forms.AuthorForm
	var author entities.Author
	if errs := bindAuthor(c, &form, &author); !errs.Empty() {
		ac.renderForm(c, nil, form, errs)
		return
	}

	if err := ac.authors.Insert(c.Request.Context(), &author); err != nil {
		renderInternalError(c, ac.logger, err, "create author")
		return
	}
	ac.auditor.LogChange(actor(c), entities.AuditEventCreate, audit.EntityAuthor, idString(author.ID), "Created author "+author.Name())

	c.Redirect(http.StatusFound, authorURL(author.ID))
}

func (ac *AuthorsController) UpdatePage(c *gin.Context) {
	author, ok := ac.author(c)
	if !ok {
		return
	}
	ac.renderForm(c, author, forms.AuthorFormFrom(*author), nil)
}

func (ac *AuthorsController) Update(c *gin.Context) {
	author, ok := ac.author(c)
	if !ok {
		return
	}

	var form forms.AuthorForm
	if errs := bindAuthor(c, &form, author); !errs.Empty() {
		ac.renderForm(c, author, form, errs)
		return
	}

	if err := ac.authors.UpdateDetails(c.Request.Context(), author); err != nil {
		renderLookupError(c, ac.logger, err, "Author")
		return
	}
	ac.auditor.LogChange(actor(c), entities.AuditEventUpdate, audit.EntityAuthor, idString(author.ID), "Updated author "+author.Name())

	c.Redirect(http.StatusFound, authorURL(author.ID))
}

// DeletePage asks for confirmation.
func (ac *AuthorsController) DeletePage(c *gin.Context) {
	author, ok := ac.author(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, "author_confirm_delete", gin.H{
		"Title":  "Delete author",
		"Author": author,
	})
}

// Delete removes the author and leaves their books without one.
func (ac *AuthorsController) Delete(c *gin.Context) {
	author, ok := ac.author(c)
	if !ok {
		return
	}

	if err := ac.authors.Delete(c.Request.Context(), author.ID); err != nil {
		renderLookupError(c, ac.logger, err, "Author")
		return
	}
	ac.auditor.LogChange(actor(c), entities.AuditEventDelete, audit.EntityAuthor, idString(author.ID), "Deleted author "+author.Name())

	c.Redirect(http.StatusFound, AuthorsURL)
}

func (ac *AuthorsController) author(c *gin.Context) (*entities.Author, bool) {
	id, ok := pageIDParam(c, "id")
	if !ok {
		return nil, false
	}
	author, err := ac.authors.FindByID(c.Request.Context(), id)
	if err != nil {
		renderLookupError(c, ac.logger, err, "Author")
		return nil, false
	}
	return author, true
}

func (ac *AuthorsController) renderForm(c *gin.Context, author *entities.Author, form forms.AuthorForm, errs forms.Errors) {
	title := "Create author"
	if author != nil {
		title = "Update author"
	}
	render(c, http.StatusOK, "author_form", gin.H{
		"Title":  title,
		"Author": author,
		"Form":   form,
		"Errors": errs,
	})
}

// bindAuthor binds the submission and, when it is valid, applies it to author.
func bindAuthor(c *gin.Context, form *forms.AuthorForm, author *entities.Author) forms.Errors {
	if errs := forms.Bind(c, form); !errs.Empty() {
		return errs
	}
	return form.Apply(author)
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
