package models

import "time"

// ActivityReport is an append-only log of learning activity. Rows are never
// updated; the learner_skills table carries the derived state.
type ActivityReport struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	Activity         string    `gorm:"type:varchar(100);not null" json:"activity"`
	SkillCode        string    `gorm:"type:varchar(100);default:''" json:"skill_code"`
	Score            float64   `gorm:"not null;default:0" json:"score"`
	Difficulty       float64   `gorm:"not null;default:0.5" json:"difficulty"`
	TimeSpentSeconds int       `gorm:"not null;default:0" json:"time_spent_seconds"`
	Metadata         string    `gorm:"type:text" json:"metadata"`
	CompletedAt      time.Time `gorm:"not null" json:"completed_at"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}
