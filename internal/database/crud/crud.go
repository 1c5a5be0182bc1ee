// Package crud provides a generic gorm repository shared by the catalog
// entities: lookup by primary key, paginated listing, insert, partial update
// and delete.
//
// # Usage
//
//	repo := crud.New[entities.Author](db, crud.WithOrder("last_name, first_name"))
//	page, err := repo.FindPage(ctx, crud.Page{Number: 2, Size: 10})
//
// Pages are numbered from 1. The first page always exists, even when the
// table is empty; any other page beyond the last one is ErrInvalidPage.
package crud

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidPage = errors.New("invalid page")
	ErrDuplicate   = errors.New("duplicate record")
)

// Scope narrows a query, e.g. a status filter.
type Scope = func(*gorm.DB) *gorm.DB

type Page struct {
	Number int
	Size   int
}

type PageResult[T any] struct {
	Items       []T
	Total       int64
	Number      int
	Size        int
	NumPages    int
	HasPrevious bool
	HasNext     bool
}

func (p PageResult[T]) PreviousNumber() int {
	return p.Number - 1
}

func (p PageResult[T]) NextNumber() int {
	return p.Number + 1
}

// IsPaginated reports whether there is more than one page to navigate.
func (p PageResult[T]) IsPaginated() bool {
	return p.NumPages > 1
}

type options struct {
	preloads []string
	order    string
}

type Option func(*options)

// WithPreload loads the named associations on every read.
func WithPreload(associations ...string) Option {
	return func(o *options) {
		o.preloads = append(o.preloads, associations...)
	}
}

// WithOrder sets the default ordering of FindPage and FindAll.
func WithOrder(order string) Option {
	return func(o *options) {
		o.order = order
	}
}

type Repository[T any] struct {
	db   *gorm.DB
	opts options
}

func New[T any](db *gorm.DB, opts ...Option) *Repository[T] {
	r := &Repository[T]{db: db}
	for _, opt := range opts {
		opt(&r.opts)
	}
	return r
}

// DB exposes the underlying handle for repository specific queries.
func (r *Repository[T]) DB() *gorm.DB {
	return r.db
}

func (r *Repository[T]) read(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	for _, p := range r.opts.preloads {
		q = q.Preload(p)
	}
	return q
}

func (r *Repository[T]) FindByID(ctx context.Context, id any) (*T, error) {
	var entity T
	err := r.read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		return nil, Translate(err)
	}
	return &entity, nil
}

// FindAll returns every row in default order, narrowed by scopes.
func (r *Repository[T]) FindAll(ctx context.Context, scopes ...Scope) ([]T, error) {
	var items []T
	q := r.read(ctx).Scopes(scopes...)
	if r.opts.order != "" {
		q = q.Order(r.opts.order)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindPage returns one page in default order, narrowed by scopes.
func (r *Repository[T]) FindPage(ctx context.Context, page Page, scopes ...Scope) (*PageResult[T], error) {
	return r.FindPageOrdered(ctx, page, r.opts.order, scopes...)
}

// FindPageOrdered is FindPage with an explicit ordering.
func (r *Repository[T]) FindPageOrdered(ctx context.Context, page Page, order string, scopes ...Scope) (*PageResult[T], error) {
	if page.Size <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrInvalidPage, page.Size)
	}
	if page.Number < 1 {
		return nil, fmt.Errorf("%w: number %d", ErrInvalidPage, page.Number)
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(new(T)).Scopes(scopes...).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count: %w", err)
	}

	numPages := int((total + int64(page.Size) - 1) / int64(page.Size))
	if numPages == 0 {
		numPages = 1
	}
	if page.Number > numPages {
		return nil, fmt.Errorf("%w: number %d of %d", ErrInvalidPage, page.Number, numPages)
	}

	items := make([]T, 0, page.Size)
	q := r.read(ctx).Scopes(scopes...)
	if order != "" {
		q = q.Order(order)
	}
	err := q.Limit(page.Size).Offset((page.Number - 1) * page.Size).Find(&items).Error
	if err != nil {
		return nil, err
	}

	return &PageResult[T]{
		Items:       items,
		Total:       total,
		Number:      page.Number,
		Size:        page.Size,
		NumPages:    numPages,
		HasPrevious: page.Number > 1,
		HasNext:     page.Number < numPages,
	}, nil
}

func (r *Repository[T]) Insert(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

// Update writes the named columns only, or every column when none are given.
// Associations are never written.
func (r *Repository[T]) Update(ctx context.Context, entity *T, fields ...string) error {
	q := r.db.WithContext(ctx).Omit(clause.Associations)
	if len(fields) == 0 {
		return q.Save(entity).Error
	}
	result := q.Model(entity).Select(fields).Updates(entity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository[T]) Delete(ctx context.Context, id any) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Translate maps gorm's not-found and unique-violation errors onto
// ErrNotFound and ErrDuplicate.
func Translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
