package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/HappyLearnKE/HappyLearn/app/models"
	"github.com/HappyLearnKE/HappyLearn/internal/testutil"
)

func TestUserRepositoryCreateAndLookup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewUserRepository(db)

	user, err := models.CreateUser("Achieng Otieno", "achieng@example.com", "secret123", "")
	require.NoError(t, err)
	require.NoError(t, repo.Create(user))
	assert.NotZero(t, user.ID)

	exists, err := repo.EmailExists("ACHIENG@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := repo.GetByEmail("achieng@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loaded.ID)
	assert.Equal(t, models.ROLE_STUDENT, loaded.Role)

	_, err = repo.GetByEmail("nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubscriptionRepositoryLatestActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, db, "subs@example.com")
	repo := NewSubscriptionRepository(db)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(30 * 24 * time.Hour)
	start := time.Now().Add(-24 * time.Hour)

	expired := &models.Subscription{
		UserID: user.ID, PlanType: models.PlanMonthly,
		Status: models.SubscriptionStatusActive, Amount: 500,
		PaymentMethod: models.PaymentMethodMpesa,
		StartsAt:      &start, ExpiresAt: &past,
	}
	current := &models.Subscription{
		UserID: user.ID, PlanType: models.PlanQuarterly,
		Status: models.SubscriptionStatusActive, Amount: 1350,
		PaymentMethod: models.PaymentMethodMpesa,
		StartsAt:      &start, ExpiresAt: &future,
	}
	require.NoError(t, db.Create(expired).Error)
	require.NoError(t, db.Create(current).Error)

	latest, err := repo.GetLatestActiveByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, current.ID, latest.ID, "lapsed subscription must not be served as active")

	subs, err := repo.ListByUserID(user.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	count, err := repo.CountActive()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestLearnerRepositorySkillUpsert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, db, "learner@example.com")
	repo := NewLearnerRepository(db)

	_, err := repo.GetSkill(user.ID, "math.fractions")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	now := time.Now()
	skill := &models.LearnerSkill{
		UserID:          user.ID,
		SkillCode:       "math.fractions",
		Proficiency:     0.65,
		LastPracticedAt: &now,
	}
	require.NoError(t, repo.SaveSkill(skill))

	skill.Proficiency = 0.72
	require.NoError(t, repo.SaveSkill(skill))

	loaded, err := repo.GetSkill(user.ID, "math.fractions")
	require.NoError(t, err)
	assert.InDelta(t, 0.72, loaded.Proficiency, 1e-9)

	skills, err := repo.ListSkillsByUserID(user.ID)
	require.NoError(t, err)
	assert.Len(t, skills, 1)
}

func TestLearnerRepositoryActivityHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, db, "history@example.com")
	repo := NewLearnerRepository(db)

	for i := 0; i < 3; i++ {
		report := &models.ActivityReport{
			UserID:      user.ID,
			Activity:    "quiz",
			SkillCode:   "sci.plants",
			Score:       0.8,
			Difficulty:  0.5,
			CompletedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.CreateActivityReport(report))
	}

	reports, err := repo.ListActivityReports(user.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.True(t, !reports[0].CompletedAt.Before(reports[1].CompletedAt), "newest first")
}
