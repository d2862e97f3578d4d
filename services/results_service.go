// services/results_service.go
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/careerplay/ccm/models"
	"github.com/careerplay/ccm/persistence"
)

// ResultsService answers leaderboard and history queries over persisted game
// records. Read-only: it never mutates game data.
type ResultsService struct {
	store persistence.Store
}

func NewResultsService(store persistence.Store) *ResultsService {
	return &ResultsService{store: store}
}

// Leaderboard ranks human participants over completed games. Cancelled
// sessions are excluded at the query level.
func (s *ResultsService) Leaderboard(ctx context.Context, roomID string, limit int) ([]models.LeaderboardEntry, error) {
	return s.store.Leaderboard(ctx, roomID, limit)
}

// RecentGames returns the latest finished sessions for a room.
func (s *ResultsService) RecentGames(ctx context.Context, roomID string, limit int) ([]models.GameSessionRecord, error) {
	return s.store.RecentGames(ctx, roomID, limit)
}

// ParticipantSummary bundles a participant's achievement progress with their
// leaderboard standing in one consistent read.
func (s *ResultsService) ParticipantSummary(ctx context.Context, participantID string) (map[string]interface{}, error) {
	var progress []models.GormAchievementProgress
	err := s.store.Transaction(func(tx *gorm.DB) error {
		return tx.WithContext(ctx).
			Where("participant_id = ?", participantID).
			Find(&progress).Error
	})
	if err != nil {
		return nil, err
	}

	entries, err := s.store.Leaderboard(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	var standing *models.LeaderboardEntry
	for i := range entries {
		if entries[i].ParticipantID == participantID {
			standing = &entries[i]
			break
		}
	}

	return map[string]interface{}{
		"participant_id": participantID,
		"achievements":   progress,
		"standing":       standing,
	}, nil
}
