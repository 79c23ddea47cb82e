package models

// Farm binds a farm device's user account to the human user that owns it.
// The unique index on UserID makes "at most one farm per owner" structural.
type Farm struct {
	ID     uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`
	FarmID uint `gorm:"not null;index" json:"farm_id"`
}

// TableName returns the table name for Farm.
func (Farm) TableName() string {
	return "farm"
}
