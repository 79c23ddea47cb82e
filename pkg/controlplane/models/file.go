package models

// File is a registered UI asset path. Access to a file can be granted to
// individual users or to whole groups via the edge tables below.
type File struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Path string `gorm:"uniqueIndex;not null;size:1024" json:"path"`
}

// TableName returns the table name for File.
func (File) TableName() string {
	return "file"
}

// FileAccessGroup grants a group read access to a file.
type FileAccessGroup struct {
	FileID  uint `gorm:"primaryKey;autoIncrement:false" json:"file_id"`
	GroupID uint `gorm:"primaryKey;autoIncrement:false" json:"group_id"`
}

// TableName returns the table name for FileAccessGroup.
func (FileAccessGroup) TableName() string {
	return "file_access_group"
}

// FileAccessUser grants a single user read access to a file.
type FileAccessUser struct {
	FileID uint `gorm:"primaryKey;autoIncrement:false" json:"file_id"`
	UserID uint `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
}

// TableName returns the table name for FileAccessUser.
func (FileAccessUser) TableName() string {
	return "file_access_user"
}
