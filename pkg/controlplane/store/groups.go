package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/BinaryCat17/RapidServer/pkg/controlplane/models"
)

// ============================================
// GROUP OPERATIONS
// ============================================

func (s *GORMStore) GetGroup(ctx context.Context, name string) (*models.Group, error) {
	return getByField[models.Group](s.db, ctx, "name", name, models.ErrGroupNotFound)
}

func (s *GORMStore) EnsureGroup(ctx context.Context, name string) (*models.Group, error) {
	group, err := s.GetGroup(ctx, name)
	if err == nil {
		return group, nil
	}
	if !errors.Is(err, models.ErrGroupNotFound) {
		return nil, err
	}

	group = &models.Group{Name: name}
	if err := create(s.db, ctx, group, models.ErrDuplicateGroup); err != nil {
		// Lost a race with a concurrent create; read it back.
		if errors.Is(err, models.ErrDuplicateGroup) {
			return s.GetGroup(ctx, name)
		}
		return nil, err
	}
	return group, nil
}

func (s *GORMStore) AddUserToGroup(ctx context.Context, userID uint, groupName string) (bool, error) {
	added := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return convertNotFoundError(err, models.ErrUserNotFound)
		}

		var group models.Group
		if err := tx.Where("name = ?", groupName).First(&group).Error; err != nil {
			return convertNotFoundError(err, models.ErrGroupNotFound)
		}

		var count int64
		if err := tx.Table("user_group").
			Where("user_id = ? AND group_id = ?", user.ID, group.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		if err := tx.Model(&user).Association("Groups").Append(&group); err != nil {
			return err
		}
		added = true
		return nil
	})
	return added, err
}

func (s *GORMStore) IsUserInGroup(ctx context.Context, userID uint, groupName string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table("user_group").
		Joins("JOIN groups ON groups.id = user_group.group_id").
		Where("user_group.user_id = ? AND groups.name = ?", userID, groupName).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// EnsureDefaultGroups creates the well-known groups if they don't exist.
// Returns true if any group was created.
func (s *GORMStore) EnsureDefaultGroups(ctx context.Context) (bool, error) {
	created := false
	for _, name := range models.WellKnownGroups {
		_, err := s.GetGroup(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, models.ErrGroupNotFound) {
			return created, err
		}

		if _, err := s.EnsureGroup(ctx, name); err != nil {
			return created, err
		}
		created = true
	}
	return created, nil
}
