package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/audit"
	"github.com/mrlokans/locallibrary/internal/clock"
	"github.com/mrlokans/locallibrary/internal/database/books"
	"github.com/mrlokans/locallibrary/internal/entities"
	"github.com/mrlokans/locallibrary/internal/forms"
)

const BooksURL = "/catalog/books/"

// BooksController creates, updates and deletes books and registers new
// copies. The author of a book is chosen on creation only.
type BooksController struct {
	books     BookStore
	authors   AuthorStore
	genres    GenreLister
	instances InstanceStore
	auditor   Auditor
	clock     clock.Clocker
	logger    *zap.Logger
}

func NewBooksController(books BookStore, authors AuthorStore, genres GenreLister, instances InstanceStore, auditor Auditor, clk clock.Clocker, logger *zap.Logger) *BooksController {
	return &BooksController{
		books:     books,
		authors:   authors,
		genres:    genres,
		instances: instances,
		auditor:   auditor,
		clock:     clk,
		logger:    logger,
	}
}

func (bc *BooksController) CreatePage(c *gin.Context) {
	bc.renderForm(c, nil, forms.BookForm{}, nil)
}

func (bc *BooksController) Create(c *gin.Context) {
	var form forms.BookForm
	errs := forms.Bind(c, &form)
	book := &entities.Book{}
	if errs.Empty() {
		errs = form.ApplyCreate(book)
	}
	if errs.Empty() {
		authorID, _ := form.AuthorID()
		if _, err := bc.authors.FindByID(c.Request.Context(), authorID); err != nil {
			errs.Add("author", forms.MsgInvalidChoice)
		}
	}
	if !errs.Empty() {
		bc.renderForm(c, nil, form, errs)
		return
	}

	err := bc.books.Create(c.Request.Context(), book, form.GenreIDs())
	if field, msg, ok := bookFieldError(err); ok {
		errs.Add(field, msg)
		bc.renderForm(c, nil, form, errs)
		return
	}
	if err != nil {
		renderInternalError(c, bc.logger, err, "create book")
		return
	}
	bc.auditor.LogChange(actor(c), entities.AuditEventCreate, audit.EntityBook, idString(book.ID), "Created book "+book.Title)

	c.Redirect(http.StatusFound, bookURL(book.ID))
}

// bookFieldError maps repository rejections onto the form field at fault.
func bookFieldError(err error) (field, msg string, ok bool) {
	switch {
	case errors.Is(err, books.ErrUnknownGenre):
		return "genre", forms.MsgInvalidChoice, true
	case errors.Is(err, books.ErrDuplicateISBN):
		return "isbn", forms.MsgDuplicateISBN, true
	}
	return "", "", false
}

func (bc *BooksController) UpdatePage(c *gin.Context) {
	book, ok := bc.book(c)
	if !ok {
		return
	}
	bc.renderForm(c, book, forms.BookFormFrom(*book), nil)
}

func (bc *BooksController) Update(c *gin.Context) {
	book, ok := bc.book(c)
	if !ok {
		return
	}

	var form forms.BookForm
	if errs := forms.Bind(c, &form); !errs.Empty() {
		bc.renderForm(c, book, form, errs)
		return
	}
	form.ApplyUpdate(book)

	err := bc.books.UpdateDetails(c.Request.Context(), book, form.GenreIDs())
	if field, msg, ok := bookFieldError(err); ok {
		bc.renderForm(c, book, form, forms.Errors{field: {msg}})
		return
	}
	if err != nil {
		renderLookupError(c, bc.logger, err, "Book")
		return
	}
	bc.auditor.LogChange(actor(c), entities.AuditEventUpdate, audit.EntityBook, idString(book.ID), "Updated book "+book.Title)

	c.Redirect(http.StatusFound, bookURL(book.ID))
}

// DeletePage asks for confirmation and shows how many copies go with the book.
func (bc *BooksController) DeletePage(c *gin.Context) {
	book, ok := bc.book(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, "book_confirm_delete", gin.H{
		"Title": "Delete book",
		"Book":  book,
	})
}

// Delete removes the book together with its copies.
func (bc *BooksController) Delete(c *gin.Context) {
	book, ok := bc.book(c)
	if !ok {
		return
	}

	if err := bc.books.Delete(c.Request.Context(), book.ID); err != nil {
		renderLookupError(c, bc.logger, err, "Book")
		return
	}
	bc.auditor.LogChange(actor(c), entities.AuditEventDelete, audit.EntityBook, idString(book.ID), "Deleted book "+book.Title)

	c.Redirect(http.StatusFound, BooksURL)
}

// AddCopy registers a new copy of the book.
func (bc *BooksController) AddCopy(c *gin.Context) {
	book, ok := bc.book(c)
	if !ok {
		return
	}

	var form forms.CopyForm
	if errs := forms.Bind(c, &form); !errs.Empty() {
		render(c, http.StatusOK, "book_detail", gin.H{
			"Title":      book.Title,
			"Book":       book,
			"Today":      clock.Today(bc.clock),
			"CopyForm":   form,
			"CopyErrors": errs,
		})
		return
	}

	instance := form.Instance(book.ID)
	if err := bc.instances.Insert(c.Request.Context(), instance); err != nil {
		renderInternalError(c, bc.logger, err, "add copy")
		return
	}
	bc.auditor.LogChange(actor(c), entities.AuditEventCreate, audit.EntityBookInstance, instance.ID, "Added copy of "+book.Title)

	c.Redirect(http.StatusFound, bookURL(book.ID))
}

func (bc *BooksController) book(c *gin.Context) (*entities.Book, bool) {
	id, ok := pageIDParam(c, "id")
	if !ok {
		return nil, false
	}
	book, err := bc.books.GetDetail(c.Request.Context(), id)
	if err != nil {
		renderLookupError(c, bc.logger, err, "Book")
		return nil, false
	}
	return book, true
}

func (bc *BooksController) renderForm(c *gin.Context, book *entities.Book, form forms.BookForm, errs forms.Errors) {
	ctx := c.Request.Context()
	genres, err := bc.genres.FindAll(ctx)
	if err != nil {
		renderInternalError(c, bc.logger, err, "list genres")
		return
	}

	data := gin.H{
		"Title":  "Create book",
		"Book":   book,
		"Form":   form,
		"Errors": errs,
		"Genres": genres,
	}
	if book != nil {
		data["Title"] = "Update book"
	} else {
		authors, err := bc.authors.FindAll(ctx)
		if err != nil {
			renderInternalError(c, bc.logger, err, "list authors")
			return
		}
		data["Authors"] = authors
	}
	render(c, http.StatusOK, "book_form", data)
}
