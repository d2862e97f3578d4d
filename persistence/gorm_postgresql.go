// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/careerplay/ccm/catalog"
	"github.com/careerplay/ccm/models"
)

// GormStore is the gorm-backed Store implementation.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens a gorm PostgreSQL connection and migrates the catalog
// and achievement tables.
func NewGormStore(host string, port int, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gl := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gl})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&models.GormRoleCard{},
		&models.GormSynergyCard{},
		&models.GormChallengeCard{},
		&models.GormMatrixEntry{},
		&models.GormAchievementProgress{},
	); err != nil {
		return nil, err
	}

	return &GormStore{db: db}, nil
}

// LoadCatalog reads the bulk-loaded card definitions and matrix rows. The
// engine treats the result as immutable for the process lifetime.
func (g *GormStore) LoadCatalog(ctx context.Context) (catalog.Data, error) {
	var data catalog.Data

	var roleRows []models.GormRoleCard
	if err := g.db.WithContext(ctx).Find(&roleRows).Error; err != nil {
		return data, fmt.Errorf("loading role cards: %w", err)
	}
	for _, row := range roleRows {
		quality := make(map[catalog.PCategory]catalog.QualityTier)
		if err := json.Unmarshal([]byte(row.Quality), &quality); err != nil {
			return data, fmt.Errorf("role card %s: bad quality payload: %w", row.CardID, err)
		}
		data.Roles = append(data.Roles, catalog.RoleCard{
			ID:        row.CardID,
			Name:      row.Name,
			Org:       catalog.CSuite(row.Org),
			GradeBand: row.GradeBand,
			Quality:   quality,
		})
	}

	var synergyRows []models.GormSynergyCard
	if err := g.db.WithContext(ctx).Find(&synergyRows).Error; err != nil {
		return data, fmt.Errorf("loading synergy cards: %w", err)
	}
	for _, row := range synergyRows {
		effectiveness := make(map[catalog.PCategory]catalog.EffectivenessTier)
		if err := json.Unmarshal([]byte(row.Effectiveness), &effectiveness); err != nil {
			return data, fmt.Errorf("synergy card %s: bad effectiveness payload: %w", row.CardID, err)
		}
		data.Synergies = append(data.Synergies, catalog.SynergyCard{
			ID:            row.CardID,
			Name:          row.Name,
			Effectiveness: effectiveness,
		})
	}

	var challengeRows []models.GormChallengeCard
	if err := g.db.WithContext(ctx).Find(&challengeRows).Error; err != nil {
		return data, fmt.Errorf("loading challenge cards: %w", err)
	}
	for _, row := range challengeRows {
		data.Challenges = append(data.Challenges, catalog.ChallengeCard{
			ID:        row.CardID,
			Title:     row.Title,
			Category:  catalog.PCategory(row.Category),
			GradeBand: row.GradeBand,
		})
	}

	var matrixRows []models.GormMatrixEntry
	if err := g.db.WithContext(ctx).Find(&matrixRows).Error; err != nil {
		return data, fmt.Errorf("loading soft-skills matrix: %w", err)
	}
	for _, row := range matrixRows {
		data.MatrixEntries = append(data.MatrixEntries, catalog.MatrixEntry{
			RoleID:     row.RoleCardID,
			SynergyID:  row.SynergyCardID,
			Multiplier: row.Multiplier,
		})
	}

	return data, nil
}

// UpsertAchievementProgress writes a tracker counter, creating the row on
// first progress.
func (g *GormStore) UpsertAchievementProgress(rec models.AchievementProgressRecord) error {
	var row models.GormAchievementProgress
	result := g.db.Where("participant_id = ? AND achievement_id = ?", rec.ParticipantID, rec.AchievementID).First(&row)

	if result.Error == gorm.ErrRecordNotFound {
		row = models.GormAchievementProgress{
			ParticipantID: rec.ParticipantID,
			AchievementID: rec.AchievementID,
			Progress:      rec.Progress,
			Target:        rec.Target,
			UnlockedAt:    rec.UnlockedAt,
		}
		return g.db.Create(&row).Error
	} else if result.Error != nil {
		return result.Error
	}

	row.Progress = rec.Progress
	row.UnlockedAt = rec.UnlockedAt
	return g.db.Save(&row).Error
}

// Leaderboard aggregates completed games per human participant. Cancelled
// sessions never contribute.
func (g *GormStore) Leaderboard(ctx context.Context, roomID string, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var entries []models.LeaderboardEntry
	err := g.db.WithContext(ctx).Raw(`
		SELECT
			r->>'participant_id'                                       AS participant_id,
			MAX(r->>'name')                                            AS name,
			COUNT(*)                                                   AS games_played,
			SUM(CASE WHEN (r->>'is_winner')::bool THEN 1 ELSE 0 END)   AS wins,
			MAX((r->>'total_score')::int)                              AS best_score,
			SUM((r->>'total_score')::int)                              AS total_score
		FROM game_sessions gs
		CROSS JOIN LATERAL jsonb_array_elements(gs.results) AS r
		WHERE gs.status = 'completed'
		  AND r->>'kind' = 'human'
		  AND (? = '' OR gs.room_id = ?)
		GROUP BY r->>'participant_id'
		ORDER BY wins DESC, total_score DESC
		LIMIT ?`,
		roomID, roomID, limit,
	).Scan(&entries).Error
	return entries, err
}

// RecentGames returns the latest finished sessions for a room, newest first.
func (g *GormStore) RecentGames(ctx context.Context, roomID string, limit int) ([]models.GameSessionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	type row struct {
		SessionID  string
		RoomID     string
		GameNumber int
		Status     string
		Results    []byte
		StartedAt  time.Time
		FinishedAt time.Time
	}
	var rows []row
	err := g.db.WithContext(ctx).Raw(`
		SELECT session_id, room_id, game_number, status, results, started_at, finished_at
		FROM game_sessions
		WHERE (? = '' OR room_id = ?)
		ORDER BY id DESC
		LIMIT ?`,
		roomID, roomID, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]models.GameSessionRecord, 0, len(rows))
	for _, r := range rows {
		rec := models.GameSessionRecord{
			SessionID:  r.SessionID,
			RoomID:     r.RoomID,
			GameNumber: r.GameNumber,
			Status:     r.Status,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
		}
		if err := json.Unmarshal(r.Results, &rec.Results); err != nil {
			return nil, fmt.Errorf("session %s: bad results payload: %w", r.SessionID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Transaction exposes gorm transactions for service-level composition.
func (g *GormStore) Transaction(fn func(tx *gorm.DB) error) error {
	return g.db.Transaction(fn)
}

// Close shuts the pool down.
func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
