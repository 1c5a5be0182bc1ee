// Package users provides database operations for user management.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByUsername(ctx, "alice")
package users

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/database/crud"
	"github.com/mrlokans/locallibrary/internal/entities"
)

var ErrUnknownPermission = errors.New("unknown permission")

// Repository handles all user database operations.
type Repository struct {
	*crud.Repository[entities.User]
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{crud.New[entities.User](db,
		crud.WithPreload("Permissions"),
		crud.WithOrder("username"),
	)}
}

// GetUserByID retrieves a user with their permissions.
func (r *Repository) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	return r.FindByID(ctx, id)
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	return r.first(ctx, "username = ?", username)
}

// GetUserByLogin accepts either a username or an email address.
func (r *Repository) GetUserByLogin(ctx context.Context, login string) (*entities.User, error) {
	return r.first(ctx, "username = ? OR email = ?", login, login)
}

// GetUserByTokenHash retrieves a user by their hashed API token.
func (r *Repository) GetUserByTokenHash(ctx context.Context, tokenHash string) (*entities.User, error) {
	if tokenHash == "" {
		return nil, crud.ErrNotFound
	}
	return r.first(ctx, "token_hash = ?", tokenHash)
}

// Exists reports whether the username or email is taken.
func (r *Repository) Exists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.DB().WithContext(ctx).Model(&entities.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

// Count returns the number of users.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB().WithContext(ctx).Model(&entities.User{}).Count(&count).Error
	return count, err
}

// UpdateFields writes the given columns of one user.
func (r *Repository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	result := r.DB().WithContext(ctx).Model(&entities.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return crud.ErrNotFound
	}
	return nil
}

// GrantPermission adds an explicit permission to a user.
func (r *Repository) GrantPermission(ctx context.Context, userID uint, codename string) error {
	return r.changePermission(ctx, userID, codename, func(a *gorm.Association, p *entities.Permission) error {
		return a.Append(p)
	})
}

// RevokePermission removes an explicit permission. Permissions implied by
// the role are unaffected.
func (r *Repository) RevokePermission(ctx context.Context, userID uint, codename string) error {
	return r.changePermission(ctx, userID, codename, func(a *gorm.Association, p *entities.Permission) error {
		return a.Delete(p)
	})
}

func (r *Repository) changePermission(ctx context.Context, userID uint, codename string, change func(*gorm.Association, *entities.Permission) error) error {
	return r.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var perm entities.Permission
		if err := tx.Where("codename = ?", codename).First(&perm).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownPermission
			}
			return err
		}
		user := &entities.User{ID: userID}
		if err := tx.Select("id").First(user).Error; err != nil {
			return crud.Translate(err)
		}
		return change(tx.Model(user).Association("Permissions"), &perm)
	})
}

func (r *Repository) first(ctx context.Context, query string, args ...any) (*entities.User, error) {
	var user entities.User
	err := r.DB().WithContext(ctx).Preload("Permissions").Where(query, args...).First(&user).Error
	if err != nil {
		return nil, crud.Translate(err)
	}
	return &user, nil
}
