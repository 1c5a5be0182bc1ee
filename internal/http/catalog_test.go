package http

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/locallibrary/internal/entities"
)

func TestIndex_RequiresStaff(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "reader", entities.UserRoleMember)
	env.createUser(t, "staff", entities.UserRoleLibrarian)

	w := env.get("/catalog/", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/accounts/login/?next=%2Fcatalog%2F", w.Header().Get("Location"))

	w = env.get("/catalog/", env.login(t, "reader"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.get("/catalog/", env.login(t, "staff"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestForbiddenPage_UsesLayout(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "reader", entities.UserRoleMember)
	cookie := env.login(t, "reader")

	for _, path := range []string{"/catalog/", "/catalog/borrowed/", "/catalog/audit/"} {
		t.Run(path, func(t *testing.T) {
			w := env.get(path, cookie)

			require.Equal(t, http.StatusForbidden, w.Code)
			body := w.Body.String()
			assert.Contains(t, body, "<title>Forbidden | Local Library</title>")
			assert.Contains(t, body, `<a href="/catalog/books/">All books</a>`)
			assert.Contains(t, body, "User: reader")
			assert.Contains(t, body, "You do not have permission to view this page.")
		})
	}
}

func TestIndex_MarkReturnedRequiredWhenEditUngated(t *testing.T) {
	env := newTestEnv(t, withoutEditPermission())
	env.createUser(t, "reader", entities.UserRoleMember)
	env.createUser(t, "staff", entities.UserRoleLibrarian)

	w := env.get("/catalog/", env.login(t, "reader"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.get("/catalog/", env.login(t, "staff"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIndex_CountsCatalog(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "staff", entities.UserRoleLibrarian)
	author := env.createAuthor(t, "Ursula", "Le Guin")
	book := env.createBook(t, "The Dispossessed", author)
	env.createCopy(t, book, entities.LoanStatusAvailable)
	env.createCopy(t, book, entities.LoanStatusMaintenance)

	w := env.get("/catalog/", env.login(t, "staff"))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<strong>Books:</strong> 1")
	assert.Contains(t, body, "<strong>Copies:</strong> 2")
	assert.Contains(t, body, "<strong>Copies available:</strong> 1")
	assert.Contains(t, body, "<strong>Authors:</strong> 1")
}

func TestIndex_CountsVisitsPerSession(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "staff", entities.UserRoleLibrarian)
	cookie := env.login(t, "staff")

	w := env.get("/catalog/", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You have visited this page 0 times.")

	w = env.get("/catalog/", cookie)
	assert.Contains(t, w.Body.String(), "You have visited this page 1 time.")

	w = env.get("/catalog/", cookie)
	assert.Contains(t, w.Body.String(), "You have visited this page 2 times.")

	// a fresh session starts over
	w = env.get("/catalog/", env.login(t, "staff"))
	assert.Contains(t, w.Body.String(), "You have visited this page 0 times.")
}

func TestRoot_RedirectsToCatalog(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/", nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/catalog/", w.Header().Get("Location"))
}

func TestBookList_Paginates(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 12; i++ {
		env.createBook(t, fmt.Sprintf("Book %02d", i), nil)
	}

	w := env.get("/catalog/books/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Page 1 of 2.")
	assert.Contains(t, w.Body.String(), "Book 00")
	assert.NotContains(t, w.Body.String(), "Book 11")

	w = env.get("/catalog/books/?page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Book 11")

	tests := []string{"3", "0", "last-one"}
	for _, page := range tests {
		t.Run("page "+page, func(t *testing.T) {
			w := env.get("/catalog/books/?page="+page, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestBookList_Empty(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/catalog/books/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Page 1 of")
}

func TestAuthorList_SortedBySurname(t *testing.T) {
	env := newTestEnv(t)
	env.createAuthor(t, "Terry", "Pratchett")
	env.createAuthor(t, "Iain", "Banks")

	w := env.get("/catalog/authors/", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Less(t, strings.Index(body, "Banks, Iain"), strings.Index(body, "Pratchett, Terry"))
}

func TestBookDetail_RequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	book := env.createBook(t, "Dune", nil)

	w := env.get(bookURL(book.ID), nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/accounts/login/?next=%2Fcatalog%2Fbook%2F"+idString(book.ID), w.Header().Get("Location"))
}

func TestBookDetail_ShowsCopies(t *testing.T) {
	env := newTestEnv(t)
	member := env.createUser(t, "reader", entities.UserRoleMember)
	author := env.createAuthor(t, "Frank", "Herbert")
	book := env.createBook(t, "Dune", author)
	bi := env.createLoan(t, book, member, testToday.AddDate(0, 0, -1))
	cookie := env.login(t, "reader")

	w := env.get(bookURL(book.ID), cookie)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Title: Dune")
	assert.Contains(t, body, "Herbert, Frank")
	assert.Contains(t, body, "Fiction")
	assert.Contains(t, body, bi.ID)
	assert.Contains(t, body, "(overdue)")
	// members do not see staff actions
	assert.NotContains(t, body, "Mark returned")
	assert.NotContains(t, body, "Add a copy")
}

func TestBookDetail_StaffActions(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "staff", entities.UserRoleLibrarian)
	member := env.createUser(t, "reader", entities.UserRoleMember)
	book := env.createBook(t, "Dune", nil)
	env.createLoan(t, book, member, testToday.AddDate(0, 0, 7))
	env.createCopy(t, book, entities.LoanStatusAvailable)
	cookie := env.login(t, "staff")

	w := env.get(bookURL(book.ID), cookie)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Mark returned")
	assert.Contains(t, body, "Borrower:</strong> reader")
	assert.Contains(t, body, "Lend")
	assert.Contains(t, body, "Add a copy")
}

func TestBookDetail_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "reader", entities.UserRoleMember)
	cookie := env.login(t, "reader")

	tests := []struct {
		name string
		path string
		code int
	}{
		{"missing book", "/catalog/book/999", http.StatusNotFound},
		{"non numeric id", "/catalog/book/abc", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.get(tt.path, cookie)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestAuthorDetail_RequiresPermission(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "reader", entities.UserRoleMember)
	env.createUser(t, "staff", entities.UserRoleLibrarian)
	author := env.createAuthor(t, "Mary", "Shelley")
	env.createBook(t, "Frankenstein", author)

	w := env.get(authorURL(author.ID), nil)
	assert.Equal(t, http.StatusFound, w.Code)

	w = env.get(authorURL(author.ID), env.login(t, "reader"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.get(authorURL(author.ID), env.login(t, "staff"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Shelley, Mary")
	assert.Contains(t, w.Body.String(), "Frankenstein")
}

func TestNoRoute(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")

	w = env.api(http.MethodGet, "/api/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}
