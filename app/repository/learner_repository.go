package repository

import (
	"github.com/HappyLearnKE/HappyLearn/app/models"
	"gorm.io/gorm"
)

type learnerRepository struct {
	db *gorm.DB
}

// NewLearnerRepository creates a new learner repository instance
func NewLearnerRepository(db *gorm.DB) LearnerRepository {
	return &learnerRepository{db: db}
}

// GetSkill returns the proficiency row for one (user, skill) pair or
// gorm.ErrRecordNotFound when the learner has never practiced it.
func (r *learnerRepository) GetSkill(userID uint, skillCode string) (*models.LearnerSkill, error) {
	var skill models.LearnerSkill
	err := r.db.Where("user_id = ? AND skill_code = ?", userID, skillCode).First(&skill).Error
	if err != nil {
		return nil, err
	}
	return &skill, nil
}

// SaveSkill inserts or updates a proficiency row
func (r *learnerRepository) SaveSkill(skill *models.LearnerSkill) error {
	return r.db.Save(skill).Error
}

// ListSkillsByUserID returns every tracked skill for a learner
func (r *learnerRepository) ListSkillsByUserID(userID uint) ([]models.LearnerSkill, error) {
	var skills []models.LearnerSkill
	err := r.db.Where("user_id = ?", userID).Order("skill_code").Find(&skills).Error
	return skills, err
}

// CreateActivityReport appends one completed activity. Reports are never
// updated or deleted.
func (r *learnerRepository) CreateActivityReport(report *models.ActivityReport) error {
	return r.db.Create(report).Error
}

// ListActivityReports returns a learner's activity history, newest first
func (r *learnerRepository) ListActivityReports(userID uint, offset, limit int) ([]models.ActivityReport, error) {
	var reports []models.ActivityReport
	err := r.db.Where("user_id = ?", userID).
		Order("completed_at DESC").
		Offset(offset).Limit(limit).
		Find(&reports).Error
	return reports, err
}
