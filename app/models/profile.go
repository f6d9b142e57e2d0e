package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile stores learner-facing account data used by the CBC tutor:
// grade level drives prompt building, the rest is display only.
type Profile struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"uniqueIndex" json:"user_id"`
	DisplayName string         `gorm:"type:varchar(150)" json:"display_name"`
	GradeLevel  string         `gorm:"type:varchar(20);default:''" json:"grade_level"`
	School      string         `gorm:"type:varchar(200);default:''" json:"school"`
	County      string         `gorm:"type:varchar(100);default:''" json:"county"`
	AvatarURL   string         `gorm:"type:varchar(255);default:''" json:"avatar_url"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// GetOrCreateProfile returns existing profile data or creates defaults
func GetOrCreateProfile(db *gorm.DB, userID uint) (*Profile, error) {
	var p Profile
	if err := db.Where("user_id = ?", userID).First(&p).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			p = Profile{UserID: userID}
			if err := db.Create(&p).Error; err != nil {
				return nil, err
			}
			return &p, nil
		}
		return nil, err
	}
	return &p, nil
}
