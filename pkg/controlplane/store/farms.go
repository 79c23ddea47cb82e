package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/BinaryCat17/RapidServer/pkg/controlplane/models"
)

// ============================================
// FARM OPERATIONS
// ============================================

// CreateFarm provisions a farm device for an owner: farm user account,
// ownership link, and farm group membership, all in one transaction so a
// failure leaves no partial state.
func (s *GORMStore) CreateFarm(ctx context.Context, ownerID uint, farmID, password string) (uint, error) {
	hash, err := models.HashPassword(password)
	if err != nil {
		return 0, err
	}

	var farmUserID uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.Where("id = ?", ownerID).First(&owner).Error; err != nil {
			return convertNotFoundError(err, models.ErrUserNotFound)
		}

		farmUser := models.User{
			Name:         models.FarmUsername(farmID),
			PasswordHash: hash,
		}
		if err := tx.Create(&farmUser).Error; err != nil {
			if isUniqueConstraintError(err) {
				return models.ErrDuplicateUser
			}
			return err
		}
		farmUserID = farmUser.ID

		farm := models.Farm{UserID: ownerID, FarmID: farmUser.ID}
		if err := tx.Create(&farm).Error; err != nil {
			if isUniqueConstraintError(err) {
				return models.ErrDuplicateFarm
			}
			return err
		}

		var group models.Group
		if err := tx.Where("name = ?", models.GroupFarm).First(&group).Error; err != nil {
			return convertNotFoundError(err, models.ErrGroupNotFound)
		}
		return tx.Model(&farmUser).Association("Groups").Append(&group)
	})
	if err != nil {
		return 0, err
	}
	return farmUserID, nil
}

func (s *GORMStore) LinkFarm(ctx context.Context, ownerID, farmUserID uint) error {
	farm := &models.Farm{UserID: ownerID, FarmID: farmUserID}
	return create(s.db, ctx, farm, models.ErrDuplicateFarm)
}

func (s *GORMStore) OwnedFarm(ctx context.Context, ownerID uint) (*models.Farm, error) {
	return getByField[models.Farm](s.db, ctx, "user_id", ownerID, models.ErrFarmNotFound)
}

func (s *GORMStore) FarmOwner(ctx context.Context, farmUserID uint) (*models.Farm, error) {
	return getByField[models.Farm](s.db, ctx, "farm_id", farmUserID, models.ErrFarmNotFound)
}
