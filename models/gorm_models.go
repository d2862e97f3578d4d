// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Catalog tables are written by the ingestion pipeline; the engine only
// reads them at startup.

// GormRoleCard is a role card row.
type GormRoleCard struct {
	gorm.Model
	CardID    string `gorm:"uniqueIndex;size:64;not null"`
	Name      string `gorm:"not null"`
	Org       string `gorm:"size:8;not null"`
	GradeBand string `gorm:"size:16;index"`
	Quality   string `gorm:"type:jsonb;not null"` // P-category -> quality tier
}

func (GormRoleCard) TableName() string { return "catalog_role_cards" }

// GormSynergyCard is a universal synergy card row.
type GormSynergyCard struct {
	gorm.Model
	CardID        string `gorm:"uniqueIndex;size:64;not null"`
	Name          string `gorm:"not null"`
	Effectiveness string `gorm:"type:jsonb;not null"` // P-category -> effectiveness tier
}

func (GormSynergyCard) TableName() string { return "catalog_synergy_cards" }

// GormChallengeCard is a challenge card row.
type GormChallengeCard struct {
	gorm.Model
	CardID    string `gorm:"uniqueIndex;size:64;not null"`
	Title     string `gorm:"not null"`
	Category  string `gorm:"size:16;not null"`
	GradeBand string `gorm:"size:16;index"`
}

func (GormChallengeCard) TableName() string { return "catalog_challenge_cards" }

// GormMatrixEntry holds the confidential soft-skills multipliers. Rows are
// read once at startup into catalog.Matrix and never re-surfaced.
type GormMatrixEntry struct {
	gorm.Model
	RoleCardID    string  `gorm:"index:idx_matrix_pair,unique;size:64;not null"`
	SynergyCardID string  `gorm:"index:idx_matrix_pair,unique;size:64;not null"`
	Multiplier    float64 `gorm:"not null"`
}

func (GormMatrixEntry) TableName() string { return "soft_skills_matrix" }

// GormAchievementProgress is the tracker's persisted counter state.
type GormAchievementProgress struct {
	gorm.Model
	ParticipantID string     `gorm:"index:idx_ach_pair,unique;size:64;not null"`
	AchievementID string     `gorm:"index:idx_ach_pair,unique;size:64;not null"`
	Progress      int        `gorm:"default:0"`
	Target        int        `gorm:"not null"`
	UnlockedAt    *time.Time `gorm:"index"`
}

func (GormAchievementProgress) TableName() string { return "achievement_progress" }
