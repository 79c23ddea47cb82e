package store

import (
	"context"
	"errors"

	"github.com/BinaryCat17/RapidServer/pkg/controlplane/models"
)

// ============================================
// FILE ACCESS OPERATIONS
// ============================================

func (s *GORMStore) RegisterFile(ctx context.Context, path string) (uint, error) {
	file, err := getByField[models.File](s.db, ctx, "path", path, models.ErrFileNotFound)
	if err == nil {
		return file.ID, nil
	}
	if !errors.Is(err, models.ErrFileNotFound) {
		return 0, err
	}

	rec := &models.File{Path: path}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Lost a race with a concurrent register; read it back.
			existing, gerr := getByField[models.File](s.db, ctx, "path", path, models.ErrFileNotFound)
			if gerr != nil {
				return 0, gerr
			}
			return existing.ID, nil
		}
		return 0, err
	}
	return rec.ID, nil
}

func (s *GORMStore) GrantUserFileAccess(ctx context.Context, userID, fileID uint) error {
	edge := &models.FileAccessUser{FileID: fileID, UserID: userID}
	err := s.db.WithContext(ctx).Create(edge).Error
	if err != nil && isUniqueConstraintError(err) {
		// Already granted.
		return nil
	}
	return err
}

func (s *GORMStore) GrantGroupFileAccess(ctx context.Context, groupID, fileID uint) error {
	edge := &models.FileAccessGroup{FileID: fileID, GroupID: groupID}
	err := s.db.WithContext(ctx).Create(edge).Error
	if err != nil && isUniqueConstraintError(err) {
		// Already granted.
		return nil
	}
	return err
}

func (s *GORMStore) CanReadFile(ctx context.Context, userID, fileID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table("file_access_user").
		Where("file_id = ? AND user_id = ?", fileID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	err = s.db.WithContext(ctx).
		Table("file_access_group").
		Joins("JOIN user_group ON user_group.group_id = file_access_group.group_id").
		Where("file_access_group.file_id = ? AND user_group.user_id = ?", fileID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
