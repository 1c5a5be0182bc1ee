// Package genres stores book genres.
package genres

import (
	"context"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/database/crud"
	"github.com/mrlokans/locallibrary/internal/entities"
)

type Repository struct {
	*crud.Repository[entities.Genre]
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{crud.New[entities.Genre](db, crud.WithOrder("name"))}
}

// FindByIDs loads the given genres, ignoring duplicate ids. Unknown ids are
// reported as crud.ErrNotFound.
func (r *Repository) FindByIDs(ctx context.Context, ids []uint) ([]entities.Genre, error) {
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return []entities.Genre{}, nil
	}
	var found []entities.Genre
	if err := r.DB().WithContext(ctx).Where("id IN ?", ids).Order("name").Find(&found).Error; err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, crud.ErrNotFound
	}
	return found, nil
}

// GetOrCreate returns the genre with the given name, creating it if needed.
func (r *Repository) GetOrCreate(ctx context.Context, name string) (*entities.Genre, error) {
	genre := entities.Genre{Name: name}
	err := r.DB().WithContext(ctx).Where(entities.Genre{Name: name}).FirstOrCreate(&genre).Error
	if err != nil {
		return nil, err
	}
	return &genre, nil
}
