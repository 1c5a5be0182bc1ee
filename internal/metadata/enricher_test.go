package metadata

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/locallibrary/internal/database/books"
	"github.com/mrlokans/locallibrary/internal/database/dbtest"
	"github.com/mrlokans/locallibrary/internal/database/genres"
	"github.com/mrlokans/locallibrary/internal/entities"
)

type stubProvider struct {
	byISBN      *BookMetadata
	byISBNErr   error
	byTitle     *BookMetadata
	byTitleErr  error
	titleCalled bool
}

func (s *stubProvider) SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	return s.byISBN, s.byISBNErr
}

func (s *stubProvider) SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error) {
	s.titleCalled = true
	return s.byTitle, s.byTitleErr
}

func setupEnricher(t *testing.T, provider MetadataProvider) (*Enricher, *books.Repository, *genres.Repository) {
	t.Helper()
	db := dbtest.Open(t)
	bookRepo := books.NewRepository(db.DB)
	genreRepo := genres.NewRepository(db.DB)
	return NewEnricher(provider, bookRepo, genreRepo), bookRepo, genreRepo
}

func TestEnrichBook_FillsSummaryAndGenres(t *testing.T) {
	provider := &stubProvider{byISBN: &BookMetadata{
		Description: "A sentient ocean.",
		Subjects:    []string{"Science fiction", "Poland", "fiction"},
	}}
	enricher, bookRepo, genreRepo := setupEnricher(t, provider)
	ctx := context.Background()

	fiction, err := genreRepo.GetOrCreate(ctx, "Fiction")
	require.NoError(t, err)
	book := &entities.Book{Title: "Solaris", ISBN: "9780156027601"}
	require.NoError(t, bookRepo.Create(ctx, book, []uint{fiction.ID}))

	result, err := enricher.EnrichBook(ctx, book.ID)
	require.NoError(t, err)

	assert.Equal(t, "isbn", result.SearchMethod)
	assert.ElementsMatch(t, []string{"summary", "genre"}, result.FieldsUpdated)
	assert.Equal(t, "A sentient ocean.", result.Book.Summary)
	assert.Equal(t, "Fiction, Science Fiction", result.Book.DisplayGenre())
	assert.False(t, provider.titleCalled)
}

func TestEnrichBook_KeepsExistingSummary(t *testing.T) {
	provider := &stubProvider{byISBN: &BookMetadata{Description: "Other text."}}
	enricher, bookRepo, _ := setupEnricher(t, provider)
	ctx := context.Background()

	book := &entities.Book{Title: "Solaris", Summary: "Mine.", ISBN: "9780156027601"}
	require.NoError(t, bookRepo.Create(ctx, book, nil))

	result, err := enricher.EnrichBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, result.FieldsUpdated)
	assert.Equal(t, "Mine.", result.Book.Summary)
}

func TestEnrichBook_FallsBackToTitle(t *testing.T) {
	provider := &stubProvider{
		byISBNErr: ErrNotFound,
		byTitle:   &BookMetadata{Description: strings.Repeat("x", 1500)},
	}
	enricher, bookRepo, _ := setupEnricher(t, provider)
	ctx := context.Background()

	book := &entities.Book{Title: "Solaris", ISBN: "9780156027601"}
	require.NoError(t, bookRepo.Create(ctx, book, nil))

	result, err := enricher.EnrichBook(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, provider.titleCalled)
	assert.Equal(t, "title", result.SearchMethod)
	assert.Equal(t, MaxSummaryLength, len([]rune(result.Book.Summary)))
}

func TestEnrichBook_Errors(t *testing.T) {
	provider := &stubProvider{byISBNErr: ErrNotFound, byTitleErr: errors.New("boom")}
	enricher, bookRepo, _ := setupEnricher(t, provider)
	ctx := context.Background()

	_, err := enricher.EnrichBook(ctx, 9999)
	assert.Error(t, err)

	book := &entities.Book{Title: "Solaris"}
	require.NoError(t, bookRepo.Create(ctx, book, nil))
	_, err = enricher.EnrichBook(ctx, book.ID)
	assert.ErrorContains(t, err, "metadata search failed")
}

func TestEnrichAllMissing(t *testing.T) {
	provider := &stubProvider{byISBN: &BookMetadata{Description: "Filled."}}
	enricher, bookRepo, _ := setupEnricher(t, provider)
	ctx := context.Background()

	require.NoError(t, bookRepo.Create(ctx, &entities.Book{Title: "A", ISBN: "9780000000001"}, nil))
	require.NoError(t, bookRepo.Create(ctx, &entities.Book{Title: "B", ISBN: "9780000000002"}, nil))
	require.NoError(t, bookRepo.Create(ctx, &entities.Book{Title: "C", Summary: "Has one."}, nil))

	result, err := enricher.EnrichAllMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalBooks)
	assert.Equal(t, 2, result.Enriched)
	assert.Zero(t, result.Failed)

	missing, err := bookRepo.FindMissingSummary(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)
}
