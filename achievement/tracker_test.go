package achievement

import (
	"fmt"
	"testing"
	"time"

	"github.com/careerplay/ccm/events"
	"github.com/careerplay/ccm/logger"
	"github.com/careerplay/ccm/models"
	"github.com/careerplay/ccm/scoring"
)

func TestMain(m *testing.M) {
	logger.InitDevelopment()
	m.Run()
}

// MockProgressStore records every upsert for inspection.
type MockProgressStore struct {
	upserts []models.AchievementProgressRecord
}

func (m *MockProgressStore) UpsertAchievementProgress(rec models.AchievementProgressRecord) error {
	m.upserts = append(m.upserts, rec)
	return nil
}

func completedEvent(id string, results []models.ParticipantResult) events.Event {
	ev := events.Event{
		ID:         id,
		Type:       events.TypeGameCompleted,
		RoomID:     "room-1",
		SessionID:  "sess-1",
		OccurredAt: time.Now(),
	}
	ev.GameCompleted = &events.GameCompletedPayload{
		Record: models.GameSessionRecord{
			SessionID: "sess-1",
			RoomID:    "room-1",
			Status:    "completed",
			Results:   results,
		},
	}
	return ev
}

func roundEvent(id string, plays []models.RoundPlayRecord) events.Event {
	ev := events.Event{
		ID:         id,
		Type:       events.TypeRoundScored,
		RoomID:     "room-1",
		SessionID:  "sess-1",
		OccurredAt: time.Now(),
	}
	ev.RoundScored = &events.RoundScoredPayload{Round: 1, Plays: plays}
	return ev
}

func TestFirstWinUnlocks(t *testing.T) {
	store := &MockProgressStore{}
	tracker := NewTracker(DefaultDefinitions(), store)

	tracker.HandleEvent(completedEvent("ev-1", []models.ParticipantResult{
		{ParticipantID: "p1", Kind: "human", IsWinner: true, Rank: 1},
		{ParticipantID: "p2", Kind: "human", Rank: 2},
	}))

	rec, ok := tracker.Progress("p1", "first_win")
	if !ok {
		t.Fatal("p1 should have first_win progress")
	}
	if rec.UnlockedAt == nil {
		t.Error("first_win should unlock on the first victory")
	}

	if rec, ok := tracker.Progress("p2", "first_win"); ok && rec.Progress > 0 {
		t.Error("loser should not advance first_win")
	}
}

func TestVeteranCountsGames(t *testing.T) {
	tracker := NewTracker(DefaultDefinitions(), nil)

	results := []models.ParticipantResult{{ParticipantID: "p1", Kind: "human", Rank: 2}}
	for i := 0; i < 9; i++ {
		tracker.HandleEvent(completedEvent("ev-"+string(rune('a'+i)), results))
	}
	rec, _ := tracker.Progress("p1", "veteran_10")
	if rec.Progress != 9 || rec.UnlockedAt != nil {
		t.Fatalf("after 9 games: progress %d unlocked %v, want 9/locked", rec.Progress, rec.UnlockedAt)
	}

	tracker.HandleEvent(completedEvent("ev-final", results))
	rec, _ = tracker.Progress("p1", "veteran_10")
	if rec.Progress != 10 || rec.UnlockedAt == nil {
		t.Fatalf("after 10 games: progress %d unlocked %v, want 10/unlocked", rec.Progress, rec.UnlockedAt)
	}
}

func TestRedeliveryIsIdempotent(t *testing.T) {
	store := &MockProgressStore{}
	tracker := NewTracker(DefaultDefinitions(), store)

	ev := completedEvent("ev-dup", []models.ParticipantResult{
		{ParticipantID: "p1", Kind: "human", Rank: 1, IsWinner: true},
	})
	tracker.HandleEvent(ev)
	tracker.HandleEvent(ev)
	tracker.HandleEvent(ev)

	rec, _ := tracker.Progress("p1", "veteran_10")
	if rec.Progress != 1 {
		t.Fatalf("veteran progress = %d after re-delivery, want 1", rec.Progress)
	}
}

func TestPerfectRound(t *testing.T) {
	tracker := NewTracker(DefaultDefinitions(), nil)

	tracker.HandleEvent(roundEvent("ev-r1", []models.RoundPlayRecord{
		{ParticipantID: "p1", Kind: "human", FinalScore: scoring.MaxFinalScore},
		{ParticipantID: "p2", Kind: "human", FinalScore: 60},
	}))

	if rec, ok := tracker.Progress("p1", "perfect_round"); !ok || rec.UnlockedAt == nil {
		t.Error("p1 should unlock perfect_round at the score cap")
	}
	if rec, ok := tracker.Progress("p2", "perfect_round"); ok && rec.Progress > 0 {
		t.Error("p2 should not advance perfect_round below the cap")
	}
}

func TestAIRoundPlaysLeaveNoState(t *testing.T) {
	// AI seats are synthesized per game; in a perpetual room their round
	// plays must not leave counters, dedupe state, or store writes behind.
	store := &MockProgressStore{}
	tracker := NewTracker(DefaultDefinitions(), store)

	for i := 0; i < 100; i++ {
		tracker.HandleEvent(roundEvent(fmt.Sprintf("ev-r%d", i), []models.RoundPlayRecord{
			{ParticipantID: fmt.Sprintf("ai-%d", i), Kind: "ai", FinalScore: scoring.MaxFinalScore},
		}))
	}

	if len(store.upserts) != 0 {
		t.Fatalf("AI round plays caused %d store writes, want 0", len(store.upserts))
	}
	if len(tracker.progress) != 0 {
		t.Errorf("AI round plays left %d progress entries, want 0", len(tracker.progress))
	}
	if len(tracker.roundSeen) != 0 {
		t.Errorf("AI round plays left %d dedupe sessions, want 0", len(tracker.roundSeen))
	}
	if _, ok := tracker.Progress("ai-0", "perfect_round"); ok {
		t.Error("AI seat must not unlock perfect_round")
	}
}

func TestRoundDedupeStateReleasedOnGameEnd(t *testing.T) {
	tracker := NewTracker(DefaultDefinitions(), nil)

	tracker.HandleEvent(roundEvent("ev-r1", []models.RoundPlayRecord{
		{ParticipantID: "p1", Kind: "human", FinalScore: scoring.MaxFinalScore},
	}))
	if len(tracker.roundSeen["sess-1"]) == 0 {
		t.Fatal("expected round dedupe entries while the session is live")
	}

	done := completedEvent("ev-done", []models.ParticipantResult{
		{ParticipantID: "p1", Kind: "human", Rank: 1, IsWinner: true},
	})
	tracker.HandleEvent(done)
	if len(tracker.roundSeen) != 0 {
		t.Fatalf("round dedupe state for %d sessions survived game end, want 0", len(tracker.roundSeen))
	}

	// Completion dedupe must survive the prune: a re-delivered terminal
	// event still cannot double-count.
	tracker.HandleEvent(done)
	if rec, _ := tracker.Progress("p1", "veteran_10"); rec.Progress != 1 {
		t.Fatalf("veteran progress = %d after re-delivered completion, want 1", rec.Progress)
	}
}

func TestAISeatsAreNotTracked(t *testing.T) {
	tracker := NewTracker(DefaultDefinitions(), nil)

	tracker.HandleEvent(completedEvent("ev-ai", []models.ParticipantResult{
		{ParticipantID: "ai-123", Kind: "ai", Rank: 1, IsWinner: true},
		{ParticipantID: "p1", Kind: "human", Rank: 2},
	}))

	if _, ok := tracker.Progress("ai-123", "veteran_10"); ok {
		t.Error("AI seats must not accumulate achievement progress on game completion")
	}
	if rec, _ := tracker.Progress("p1", "veteran_10"); rec.Progress != 1 {
		t.Error("human seat should still be tracked")
	}
}

func TestNoAdvanceAfterUnlock(t *testing.T) {
	store := &MockProgressStore{}
	tracker := NewTracker(DefaultDefinitions(), store)

	win := []models.ParticipantResult{{ParticipantID: "p1", Kind: "human", Rank: 1, IsWinner: true}}
	tracker.HandleEvent(completedEvent("ev-1", win))
	tracker.HandleEvent(completedEvent("ev-2", win))

	rec, _ := tracker.Progress("p1", "first_win")
	if rec.Progress != 1 {
		t.Fatalf("first_win progress = %d after a second win, want frozen at 1", rec.Progress)
	}
}
