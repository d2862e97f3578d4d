// models/models.go
package models

import (
	"time"
)

// SpecialCard is the slot-3 play: empty, the one-time golden token, or a
// previously nominated MVP card.
type SpecialCard string

const (
	SpecialNone   SpecialCard = ""
	SpecialGolden SpecialCard = "golden"
	SpecialMVP    SpecialCard = "mvp"
)

// RoundPlayRecord is the finalized, append-only record of one participant's
// play in one round. It is what reveal payloads and the persistence sink see;
// it intentionally has no field for the soft-skills multiplier.
type RoundPlayRecord struct {
	SessionID     string      `json:"session_id"`
	RoomID        string      `json:"room_id"`
	GameNumber    int         `json:"game_number"`
	Round         int         `json:"round"`
	ParticipantID string      `json:"participant_id"`
	Kind          string      `json:"kind,omitempty"` // human/ai
	RoleCardID    string      `json:"role_card_id,omitempty"`
	SynergyCardID string      `json:"synergy_card_id,omitempty"`
	Special       SpecialCard `json:"special,omitempty"`
	Quality       string      `json:"quality,omitempty"`
	Effectiveness string      `json:"effectiveness,omitempty"`
	Alignment     string      `json:"alignment,omitempty"`
	BaseScore     int         `json:"base_score"`
	FinalScore    int         `json:"final_score"`
	Defaulted     bool        `json:"defaulted,omitempty"`
	LockedAt      time.Time   `json:"locked_at"`
}

// ParticipantResult is one participant's final standing in a game.
type ParticipantResult struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Kind          string `json:"kind"` // human/ai
	HomeSuite     string `json:"home_suite"`
	RoundScores   []int  `json:"round_scores"`
	TotalScore    int    `json:"total_score"`
	Rank          int    `json:"rank"`
	IsWinner      bool   `json:"is_winner"`
}

// GameSessionRecord is the append-only final record of one game session.
// Cancelled sessions are persisted for audit but excluded from leaderboards.
type GameSessionRecord struct {
	SessionID  string              `json:"session_id"`
	RoomID     string              `json:"room_id"`
	GameNumber int                 `json:"game_number"`
	Status     string              `json:"status"` // completed/cancelled
	Results    []ParticipantResult `json:"results"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// AchievementProgressRecord is the tracker's mutable output.
type AchievementProgressRecord struct {
	ParticipantID string     `json:"participant_id"`
	AchievementID string     `json:"achievement_id"`
	Progress      int        `json:"progress"`
	Target        int        `json:"target"`
	UnlockedAt    *time.Time `json:"unlocked_at,omitempty"`
}

// RoomStatus is the lobby-facing snapshot of a perpetual room.
type RoomStatus struct {
	RoomID     string `json:"room_id"`
	Name       string `json:"name"`
	Status     string `json:"status"` // active/intermission
	GameNumber int    `json:"game_number"`
	Round      int    `json:"round,omitempty"`
	Seated     int    `json:"seated"`
	Capacity   int    `json:"capacity"`
}

// LeaderboardEntry is a per-participant aggregate over completed games.
type LeaderboardEntry struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	GamesPlayed   int    `json:"games_played"`
	Wins          int    `json:"wins"`
	BestScore     int    `json:"best_score"`
	TotalScore    int64  `json:"total_score"`
}
