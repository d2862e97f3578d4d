// persistence/interface.go
package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/careerplay/ccm/catalog"
	"github.com/careerplay/ccm/models"
)

// Sink is the append-only destination for finalized game data. Rows written
// here are never updated: a scored play and a finished session are facts.
type Sink interface {
	SaveRoundPlays(ctx context.Context, plays []models.RoundPlayRecord) error
	SaveGameSession(ctx context.Context, rec models.GameSessionRecord) error
	Close() error
}

// Store covers the engine's mutable and read-only relational needs: catalog
// bulk-load at startup, achievement progress upserts, and result queries.
type Store interface {
	LoadCatalog(ctx context.Context) (catalog.Data, error)
	UpsertAchievementProgress(rec models.AchievementProgressRecord) error
	Leaderboard(ctx context.Context, roomID string, limit int) ([]models.LeaderboardEntry, error)
	RecentGames(ctx context.Context, roomID string, limit int) ([]models.GameSessionRecord, error)
	Transaction(fn func(tx *gorm.DB) error) error
	Close() error
}
