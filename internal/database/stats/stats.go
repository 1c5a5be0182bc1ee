// Package stats computes the catalog counters shown on the home page.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mrlokans/locallibrary/internal/entities"
)

// Counts summarises the catalog.
type Counts struct {
	Books           int64 `json:"num_books"`
	Instances       int64 `json:"num_instances"`
	AvailableCopies int64 `json:"num_instances_available"`
	Authors         int64 `json:"num_authors"`
	Genres          int64 `json:"num_genres"`
	OnLoan          int64 `json:"num_on_loan"`
	Overdue         int64 `json:"num_overdue"`
}

type counter struct {
	name  string
	dest  *int64
	query sq.SelectBuilder
}

type Reader struct {
	builder sq.StatementBuilderType
}

func NewReader(db *sql.DB) *Reader {
	return &Reader{builder: sq.StatementBuilder.RunWith(db)}
}

func (r *Reader) count(table string, where ...sq.Sqlizer) sq.SelectBuilder {
	q := r.builder.Select("COUNT(*)").From(table)
	for _, w := range where {
		q = q.Where(w)
	}
	return q
}

// Counts runs one aggregate query per counter. Overdue copies are on loan
// with a due date before today.
func (r *Reader) Counts(ctx context.Context, today time.Time) (*Counts, error) {
	var c Counts
	onLoan := sq.Eq{"status": string(entities.LoanStatusOnLoan)}

	counters := []counter{
		{"books", &c.Books, r.count("books")},
		{"instances", &c.Instances, r.count("book_instances")},
		{"available", &c.AvailableCopies, r.count("book_instances", sq.Eq{"status": string(entities.LoanStatusAvailable)})},
		{"authors", &c.Authors, r.count("authors")},
		{"genres", &c.Genres, r.count("genres")},
		{"on_loan", &c.OnLoan, r.count("book_instances", onLoan)},
		{"overdue", &c.Overdue, r.count("book_instances", onLoan, sq.NotEq{"due_back": nil}, sq.Lt{"due_back": today})},
	}

	for _, ctr := range counters {
		if err := ctr.query.QueryRowContext(ctx).Scan(ctr.dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", ctr.name, err)
		}
	}
	return &c, nil
}
