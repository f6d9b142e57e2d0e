package repository

import (
	"github.com/HappyLearnKE/HappyLearn/app/models"
	"gorm.io/gorm"
)

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository instance
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetOrCreateByUserID(userID uint) (*models.Profile, error) {
	return models.GetOrCreateProfile(r.db, userID)
}

func (r *profileRepository) Update(profile *models.Profile) error {
	return r.db.Save(profile).Error
}
