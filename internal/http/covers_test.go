package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/locallibrary/internal/covers"
	"github.com/mrlokans/locallibrary/internal/entities"
)

type stubCovers struct {
	path string
	err  error
	isbn string
}

func (s *stubCovers) GetCover(_ context.Context, isbn string) (string, error) {
	s.isbn = isbn
	return s.path, s.err
}

func (s *stubCovers) CoverURL(isbn string) string {
	return "https://covers.example.org/b/isbn/" + isbn + "-M.jpg"
}

func bookPath(book *entities.Book) string {
	return fmt.Sprintf("/catalog/book/%d", book.ID)
}

func TestCover_ServesCachedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg bytes"), 0o600))
	source := &stubCovers{path: path}
	env := newTestEnv(t, withCovers(source))
	book := env.createBook(t, "Kindred", nil)
	member := env.createUser(t, "reader", entities.UserRoleMember)
	cookie := env.login(t, member.Username)

	w := env.get(bookPath(book)+"/cover", cookie)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg bytes", w.Body.String())
	assert.Equal(t, "9780000000000", source.isbn)

	detail := env.get(bookPath(book), cookie)
	assert.Contains(t, detail.Body.String(), `src="`+bookPath(book)+`/cover"`)
}

func TestCover_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"no cover upstream", covers.ErrNoCover, http.StatusNotFound},
		{"upstream failure redirects", errors.New("timeout"), http.StatusTemporaryRedirect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, withCovers(&stubCovers{err: tt.err}))
			book := env.createBook(t, "Kindred", nil)
			member := env.createUser(t, "reader", entities.UserRoleMember)
			cookie := env.login(t, member.Username)

			w := env.get(bookPath(book)+"/cover", cookie)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusTemporaryRedirect {
				assert.Equal(t, "https://covers.example.org/b/isbn/9780000000000-M.jpg", w.Header().Get("Location"))
			}
		})
	}
}

func TestCover_NotRegisteredWhenDisabled(t *testing.T) {
	env := newTestEnv(t)
	book := env.createBook(t, "Kindred", nil)
	member := env.createUser(t, "reader", entities.UserRoleMember)
	cookie := env.login(t, member.Username)

	w := env.get(bookPath(book)+"/cover", cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)

	detail := env.get(bookPath(book), cookie)
	assert.NotContains(t, detail.Body.String(), "/cover")
}
