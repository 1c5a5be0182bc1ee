// Package books stores catalog books and their genre links.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetDetail(ctx, 123)
package books

import (
	"context"
	"errors"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/database/crud"
	"github.com/mrlokans/locallibrary/internal/entities"
)

var (
	ErrUnknownGenre  = errors.New("unknown genre")
	ErrDuplicateISBN = errors.New("duplicate isbn")
)

// EditableFields are the columns written by the book update form. The author
// is fixed after creation.
var EditableFields = []string{"title", "summary", "isbn"}

// Repository handles all book database operations.
type Repository struct {
	*crud.Repository[entities.Book]
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{crud.New[entities.Book](db,
		crud.WithPreload("Author", "Genres"),
		crud.WithOrder("title"),
	)}
}

// GetDetail retrieves a book with its author, genres and every copy.
func (r *Repository) GetDetail(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.DB().WithContext(ctx).
		Preload("Author").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Preload("Instances", func(db *gorm.DB) *gorm.DB { return db.Order("status, due_back") }).
		Preload("Instances.Borrower").
		First(&book, id).Error
	if err != nil {
		return nil, crud.Translate(err)
	}
	return &book, nil
}

// FindByISBN returns the first book carrying the ISBN.
func (r *Repository) FindByISBN(ctx context.Context, isbn string) (*entities.Book, error) {
	var book entities.Book
	if err := r.DB().WithContext(ctx).Where("isbn = ?", isbn).First(&book).Error; err != nil {
		return nil, crud.Translate(err)
	}
	return &book, nil
}

// FindMissingSummary returns every book whose summary is empty.
func (r *Repository) FindMissingSummary(ctx context.Context) ([]entities.Book, error) {
	return r.FindAll(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("summary = '' OR summary IS NULL")
	})
}

// Create inserts the book and links it to the given genres.
func (r *Repository) Create(ctx context.Context, book *entities.Book, genreIDs []uint) error {
	return r.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		genres, err := loadGenres(tx, genreIDs)
		if err != nil {
			return err
		}
		if err := tx.Omit("Genres", "Author", "Instances").Create(book).Error; err != nil {
			return isbnConflict(err)
		}
		if err := tx.Model(book).Association("Genres").Replace(genres); err != nil {
			return err
		}
		book.Genres = genres
		return nil
	})
}

// UpdateDetails writes the editable columns and replaces the genre links.
func (r *Repository) UpdateDetails(ctx context.Context, book *entities.Book, genreIDs []uint) error {
	return r.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		genres, err := loadGenres(tx, genreIDs)
		if err != nil {
			return err
		}
		result := tx.Model(book).Select(EditableFields).Updates(book)
		if result.Error != nil {
			return isbnConflict(result.Error)
		}
		if result.RowsAffected == 0 {
			return crud.ErrNotFound
		}
		if err := tx.Model(book).Association("Genres").Replace(genres); err != nil {
			return err
		}
		book.Genres = genres
		return nil
	})
}

// isbnConflict reports a unique-index violation on books as ErrDuplicateISBN.
// isbn is the only unique column besides the key.
func isbnConflict(err error) error {
	if errors.Is(crud.Translate(err), crud.ErrDuplicate) {
		return ErrDuplicateISBN
	}
	return err
}

// ReplaceGenres sets the genre links of a book.
func (r *Repository) ReplaceGenres(ctx context.Context, bookID uint, genreIDs []uint) error {
	return r.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		genres, err := loadGenres(tx, genreIDs)
		if err != nil {
			return err
		}
		book := &entities.Book{ID: bookID}
		if err := tx.Select("id").First(book).Error; err != nil {
			return crud.Translate(err)
		}
		return tx.Model(book).Association("Genres").Replace(genres)
	})
}

// UpdateSummary overwrites the summary only.
func (r *Repository) UpdateSummary(ctx context.Context, id uint, summary string) error {
	result := r.DB().WithContext(ctx).Model(&entities.Book{}).Where("id = ?", id).Update("summary", summary)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return crud.ErrNotFound
	}
	return nil
}

// Delete removes the book together with its copies and genre links.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book := &entities.Book{ID: id}
		if err := tx.Select("id").First(book).Error; err != nil {
			return crud.Translate(err)
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.BookInstance{}).Error; err != nil {
			return err
		}
		if err := tx.Model(book).Association("Genres").Clear(); err != nil {
			return err
		}
		return tx.Delete(book).Error
	})
}

func loadGenres(tx *gorm.DB, ids []uint) ([]entities.Genre, error) {
	ids = lo.Uniq(ids)
	genres := []entities.Genre{}
	if len(ids) == 0 {
		return genres, nil
	}
	if err := tx.Where("id IN ?", ids).Order("name").Find(&genres).Error; err != nil {
		return nil, err
	}
	if len(genres) != len(ids) {
		return nil, ErrUnknownGenre
	}
	return genres, nil
}
