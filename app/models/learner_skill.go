package models

import "time"

// LearnerSkill holds the current proficiency estimate for one CBC skill code
// per learner. Proficiency stays within [0,1] and is updated by the
// proficiency estimator on every activity report.
type LearnerSkill struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index:ux_learner_skills_user_skill,unique,priority:1" json:"user_id"`
	SkillCode       string     `gorm:"type:varchar(100);not null;index:ux_learner_skills_user_skill,unique,priority:2" json:"skill_code"`
	Proficiency     float64    `gorm:"not null;default:0" json:"proficiency"`
	LastPracticedAt *time.Time `gorm:"type:timestamp;default:null" json:"last_practiced_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
