// Package metadata fills gaps in catalog records from OpenLibrary.
package metadata

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/mrlokans/locallibrary/internal/database/crud"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// MaxSummaryLength matches the summary column.
const MaxSummaryLength = 1000

// MetadataProvider defines the interface for fetching book metadata.
type MetadataProvider interface {
	SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
	SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error)
}

// BookStore is the part of the books repository the enricher writes through.
type BookStore interface {
	GetDetail(ctx context.Context, id uint) (*entities.Book, error)
	UpdateSummary(ctx context.Context, id uint, summary string) error
	ReplaceGenres(ctx context.Context, bookID uint, genreIDs []uint) error
	FindMissingSummary(ctx context.Context) ([]entities.Book, error)
}

// GenreLister lists the known genres.
type GenreLister interface {
	FindAll(ctx context.Context, scopes ...crud.Scope) ([]entities.Genre, error)
}

// EnrichmentResult contains the result of an enrichment operation.
type EnrichmentResult struct {
	Book          *entities.Book `json:"book"`
	FieldsUpdated []string       `json:"fields_updated"`
	Source        string         `json:"source"`
	SearchMethod  string         `json:"search_method"` // "isbn" or "title"
}

// Enricher completes books from an external provider. It only fills what
// is missing: an empty summary, and genre links for subjects that name a
// known genre. Existing data is never overwritten.
type Enricher struct {
	provider MetadataProvider
	books    BookStore
	genres   GenreLister
}

func NewEnricher(provider MetadataProvider, books BookStore, genres GenreLister) *Enricher {
	return &Enricher{provider: provider, books: books, genres: genres}
}

// EnrichBook fetches metadata for a book, by ISBN first and then by title
// and author, and applies it.
func (e *Enricher) EnrichBook(ctx context.Context, bookID uint) (*EnrichmentResult, error) {
	book, err := e.books.GetDetail(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	md, searchMethod, err := e.lookup(ctx, book)
	if err != nil {
		return nil, err
	}

	var fieldsUpdated []string

	if strings.TrimSpace(book.Summary) == "" && md.Description != "" {
		summary := truncateRunes(strings.TrimSpace(md.Description), MaxSummaryLength)
		if err := e.books.UpdateSummary(ctx, book.ID, summary); err != nil {
			return nil, fmt.Errorf("update summary: %w", err)
		}
		fieldsUpdated = append(fieldsUpdated, "summary")
	}

	added, err := e.matchGenres(ctx, book, md.Subjects)
	if err != nil {
		return nil, err
	}
	if len(added) > 0 {
		current := lo.Map(book.Genres, func(g entities.Genre, _ int) uint { return g.ID })
		if err := e.books.ReplaceGenres(ctx, book.ID, append(current, added...)); err != nil {
			return nil, fmt.Errorf("link genres: %w", err)
		}
		fieldsUpdated = append(fieldsUpdated, "genre")
	}

	if len(fieldsUpdated) > 0 {
		if book, err = e.books.GetDetail(ctx, bookID); err != nil {
			return nil, fmt.Errorf("refresh book: %w", err)
		}
	}

	return &EnrichmentResult{
		Book:          book,
		FieldsUpdated: fieldsUpdated,
		Source:        "openlibrary",
		SearchMethod:  searchMethod,
	}, nil
}

func (e *Enricher) lookup(ctx context.Context, book *entities.Book) (*BookMetadata, string, error) {
	if book.ISBN != "" {
		if md, err := e.provider.SearchByISBN(ctx, book.ISBN); err == nil {
			return md, "isbn", nil
		}
	}

	author := ""
	if book.Author != nil {
		author = book.Author.FirstName + " " + book.Author.LastName
	}
	md, err := e.provider.SearchByTitle(ctx, book.Title, author)
	if err != nil {
		return nil, "", fmt.Errorf("metadata search failed: %w", err)
	}
	return md, "title", nil
}

// matchGenres returns the ids of known genres named by a subject and not yet
// linked to the book.
func (e *Enricher) matchGenres(ctx context.Context, book *entities.Book, subjects []string) ([]uint, error) {
	if len(subjects) == 0 {
		return nil, nil
	}
	known, err := e.genres.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}

	wanted := lo.Map(subjects, func(s string, _ int) string { return strings.ToLower(strings.TrimSpace(s)) })
	return lo.FilterMap(known, func(g entities.Genre, _ int) (uint, bool) {
		return g.ID, !book.HasGenre(g.ID) && lo.Contains(wanted, strings.ToLower(g.Name))
	}), nil
}

// BulkEnrichmentResult contains the summary of a bulk enrichment operation.
type BulkEnrichmentResult struct {
	TotalBooks int      `json:"total_books"`
	Enriched   int      `json:"enriched"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors,omitempty"`
}

// EnrichAllMissing enriches every book without a summary.
func (e *Enricher) EnrichAllMissing(ctx context.Context) (*BulkEnrichmentResult, error) {
	books, err := e.books.FindMissingSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("get books missing summary: %w", err)
	}

	result := &BulkEnrichmentResult{TotalBooks: len(books)}
	for _, book := range books {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, "operation cancelled")
			return result, err
		}

		enriched, err := e.EnrichBook(ctx, book.ID)
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", book.Title, err))
		case len(enriched.FieldsUpdated) > 0:
			result.Enriched++
		default:
			result.Skipped++
		}
	}
	return result, nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
