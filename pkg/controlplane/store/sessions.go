package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/BinaryCat17/RapidServer/pkg/controlplane/models"
)

// ============================================
// SESSION OPERATIONS
// ============================================

func (s *GORMStore) CreateSession(ctx context.Context, userID uint) (uint, error) {
	var session models.Session
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return convertNotFoundError(err, models.ErrUserNotFound)
		}

		session = models.Session{UserID: userID}
		return tx.Create(&session).Error
	})
	if err != nil {
		return 0, err
	}
	return session.ID, nil
}

func (s *GORMStore) DeleteSession(ctx context.Context, sessionID uint) error {
	return deleteByField[models.Session](s.db, ctx, "id", sessionID, models.ErrSessionNotFound)
}

func (s *GORMStore) SessionUser(ctx context.Context, sessionID uint) (uint, error) {
	session, err := getByField[models.Session](s.db, ctx, "id", sessionID, models.ErrSessionNotFound)
	if err != nil {
		return 0, err
	}
	return session.UserID, nil
}

func (s *GORMStore) UserSessions(ctx context.Context, userID uint) ([]*models.Session, error) {
	var sessions []*models.Session
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *GORMStore) ListSessions(ctx context.Context) ([]*models.Session, error) {
	return listAll[models.Session](s.db, ctx)
}

func (s *GORMStore) PurgeSessions(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.Session{}).Error
}
