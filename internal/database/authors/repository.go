// Package authors stores catalog authors.
package authors

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/database/crud"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// DefaultOrder sorts authors by surname, then given name.
const DefaultOrder = "last_name, first_name"

// EditableFields are the columns written by the author update form.
var EditableFields = []string{"first_name", "last_name", "date_of_birth", "date_of_death"}

type Repository struct {
	*crud.Repository[entities.Author]
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{crud.New[entities.Author](db, crud.WithOrder(DefaultOrder))}
}

// GetWithBooks returns the author with their books ordered by title.
func (r *Repository) GetWithBooks(ctx context.Context, id uint) (*entities.Author, error) {
	var author entities.Author
	err := r.DB().WithContext(ctx).
		Preload("Books", func(db *gorm.DB) *gorm.DB { return db.Order("title") }).
		Preload("Books.Genres").
		First(&author, id).Error
	if err != nil {
		return nil, crud.Translate(err)
	}
	return &author, nil
}

// UpdateDetails writes the editable author columns.
func (r *Repository) UpdateDetails(ctx context.Context, author *entities.Author) error {
	return r.Update(ctx, author, EditableFields...)
}

// Delete removes the author. Their books stay in the catalog without an author.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&entities.Book{}).Where("author_id = ?", id).Update("author_id", nil).Error
		if err != nil {
			return err
		}
		result := tx.Delete(&entities.Author{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return crud.ErrNotFound
		}
		return nil
	})
}
