package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/BinaryCat17/RapidServer/pkg/controlplane/models"
)

// ============================================
// USER OPERATIONS
// ============================================

func (s *GORMStore) GetUser(ctx context.Context, name string) (*models.User, error) {
	return getByField[models.User](s.db, ctx, "name", name, models.ErrUserNotFound, "Groups")
}

func (s *GORMStore) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return getByField[models.User](s.db, ctx, "id", id, models.ErrUserNotFound, "Groups")
}

func (s *GORMStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	return listAll[models.User](s.db, ctx, "Groups")
}

func (s *GORMStore) CreateUser(ctx context.Context, name, password string) (uint, error) {
	hash, err := models.HashPassword(password)
	if err != nil {
		return 0, err
	}

	user := &models.User{
		Name:         name,
		PasswordHash: hash,
	}
	if err := user.Validate(); err != nil {
		return 0, err
	}
	if err := create(s.db, ctx, user, models.ErrDuplicateUser); err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (s *GORMStore) DeleteUser(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("name = ?", name).First(&user).Error; err != nil {
			return convertNotFoundError(err, models.ErrUserNotFound)
		}

		if err := tx.Model(&user).Association("Groups").Clear(); err != nil {
			return err
		}

		return tx.Delete(&user).Error
	})
}

func (s *GORMStore) UpdatePassword(ctx context.Context, name, password string) error {
	hash, err := models.HashPassword(password)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("name = ?", name).
		Update("password_hash", hash)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (s *GORMStore) ValidateCredentials(ctx context.Context, name, password string) (*models.User, error) {
	user, err := s.GetUser(ctx, name)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.CheckPassword(password) {
		return nil, models.ErrInvalidCredentials
	}

	return user, nil
}
