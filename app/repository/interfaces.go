package repository

import (
	"github.com/HappyLearnKE/HappyLearn/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	EmailExists(email string) (bool, error)
	Update(user *models.User) error
	Delete(id uint) error
	Count() (int64, error)
}

// ProfileRepository defines the interface for learner profile operations
type ProfileRepository interface {
	GetOrCreateByUserID(userID uint) (*models.Profile, error)
	Update(profile *models.Profile) error
}

// SubscriptionRepository defines the interface for subscription reads.
// Writes go through the payments service so status transitions stay in
// one place.
type SubscriptionRepository interface {
	GetLatestActiveByUserID(userID uint) (*models.Subscription, error)
	ListByUserID(userID uint) ([]models.Subscription, error)
	CountActive() (int64, error)
}

// LearnerRepository defines the interface for proficiency tracking and
// activity reporting
type LearnerRepository interface {
	GetSkill(userID uint, skillCode string) (*models.LearnerSkill, error)
	SaveSkill(skill *models.LearnerSkill) error
	ListSkillsByUserID(userID uint) ([]models.LearnerSkill, error)
	CreateActivityReport(report *models.ActivityReport) error
	ListActivityReports(userID uint, offset, limit int) ([]models.ActivityReport, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Profile      ProfileRepository
	Subscription SubscriptionRepository
	Learner      LearnerRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Profile:      NewProfileRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Learner:      NewLearnerRepository(db),
	}
}
