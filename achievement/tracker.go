// achievement/tracker.go
package achievement

import (
	"sync"
	"time"

	"github.com/careerplay/ccm/events"
	"github.com/careerplay/ccm/logger"
	"github.com/careerplay/ccm/models"
	"github.com/careerplay/ccm/scoring"
)

// Definition is a read-only achievement rule from the achievement catalog.
// Matches decides whether an event advances a participant's counter.
type Definition struct {
	ID          string
	Name        string
	Description string
	Event       events.Type
	Target      int
	Matches     func(ev events.Event, participantID string) bool
}

// DefaultDefinitions is the built-in rule set used when the achievement
// catalog supplies nothing richer.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			ID:     "first_win",
			Name:   "First Win",
			Event:  events.TypeGameCompleted,
			Target: 1,
			Matches: func(ev events.Event, pid string) bool {
				for _, res := range ev.GameCompleted.Record.Results {
					if res.ParticipantID == pid {
						return res.IsWinner
					}
				}
				return false
			},
		},
		{
			ID:      "veteran_10",
			Name:    "Veteran",
			Event:   events.TypeGameCompleted,
			Target:  10,
			Matches: func(events.Event, string) bool { return true },
		},
		{
			ID:     "perfect_round",
			Name:   "Perfect Round",
			Event:  events.TypeRoundScored,
			Target: 1,
			Matches: func(ev events.Event, pid string) bool {
				for _, play := range ev.RoundScored.Plays {
					if play.ParticipantID == pid {
						return play.FinalScore == scoring.MaxFinalScore
					}
				}
				return false
			},
		},
		{
			ID:     "high_scorer",
			Name:   "High Scorer",
			Event:  events.TypeGameCompleted,
			Target: 1,
			Matches: func(ev events.Event, pid string) bool {
				for _, res := range ev.GameCompleted.Record.Results {
					if res.ParticipantID == pid {
						return res.TotalScore >= 500
					}
				}
				return false
			},
		},
	}
}

// ProgressStore persists counters; progress records are the tracker's only
// mutable output.
type ProgressStore interface {
	UpsertAchievementProgress(rec models.AchievementProgressRecord) error
}

// Tracker consumes orchestrator events and advances achievement counters.
// Processing is idempotent per (participant, achievement, event): events
// re-delivered with the same ID never double-count. Round-level dedupe state
// is held per session and released when the session ends, so an always-on
// process does not accumulate it forever.
type Tracker struct {
	defs  []Definition
	store ProgressStore

	mu        sync.Mutex
	progress  map[string]*models.AchievementProgressRecord // participant|achievement
	roundSeen map[string]map[string]bool                   // session -> participant|achievement|event
	doneSeen  map[string]bool                              // participant|achievement|event
}

func NewTracker(defs []Definition, store ProgressStore) *Tracker {
	return &Tracker{
		defs:      defs,
		store:     store,
		progress:  make(map[string]*models.AchievementProgressRecord),
		roundSeen: make(map[string]map[string]bool),
		doneSeen:  make(map[string]bool),
	}
}

// Run consumes the bus subscription until the channel closes.
func (t *Tracker) Run(ch <-chan events.Event) {
	for ev := range ch {
		t.HandleEvent(ev)
	}
}

// HandleEvent applies one event to all matching definitions.
func (t *Tracker) HandleEvent(ev events.Event) {
	participants := eventParticipants(ev)

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, def := range t.defs {
		if def.Event != ev.Type {
			continue
		}
		for _, pid := range participants {
			dedupeKey := pid + "|" + def.ID + "|" + ev.ID
			if t.alreadySeen(ev, dedupeKey) {
				continue
			}
			t.markSeen(ev, dedupeKey)

			if def.Matches != nil && !def.Matches(ev, pid) {
				continue
			}
			t.advance(pid, def, ev.OccurredAt)
		}
	}

	// A terminal event ends the session's round stream; its round-level
	// dedupe state can go.
	if ev.Type == events.TypeGameCompleted || ev.Type == events.TypeGameCancelled {
		delete(t.roundSeen, ev.SessionID)
	}
}

func (t *Tracker) alreadySeen(ev events.Event, key string) bool {
	if ev.Type == events.TypeRoundScored {
		return t.roundSeen[ev.SessionID][key]
	}
	return t.doneSeen[key]
}

func (t *Tracker) markSeen(ev events.Event, key string) {
	if ev.Type == events.TypeRoundScored {
		m := t.roundSeen[ev.SessionID]
		if m == nil {
			m = make(map[string]bool)
			t.roundSeen[ev.SessionID] = m
		}
		m[key] = true
		return
	}
	t.doneSeen[key] = true
}

// Progress returns a copy of a participant's counter for one achievement.
func (t *Tracker) Progress(participantID, achievementID string) (models.AchievementProgressRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.progress[participantID+"|"+achievementID]
	if !ok {
		return models.AchievementProgressRecord{}, false
	}
	return *rec, true
}

func (t *Tracker) advance(pid string, def Definition, at time.Time) {
	key := pid + "|" + def.ID
	rec, ok := t.progress[key]
	if !ok {
		rec = &models.AchievementProgressRecord{
			ParticipantID: pid,
			AchievementID: def.ID,
			Target:        def.Target,
		}
		t.progress[key] = rec
	}
	if rec.UnlockedAt != nil {
		return
	}

	rec.Progress++
	if rec.Progress >= rec.Target {
		unlocked := at
		rec.UnlockedAt = &unlocked
		logger.Log.Infof("participant %s unlocked achievement %s", pid, def.ID)
	}

	if t.store != nil {
		if err := t.store.UpsertAchievementProgress(*rec); err != nil {
			logger.Log.Errorf("persisting achievement progress %s/%s: %v", pid, def.ID, err)
		}
	}
}

// eventParticipants extracts the participant IDs an event concerns. AI seats
// are synthesized per game and carry no durable identity, so only human
// seats are ever tracked.
func eventParticipants(ev events.Event) []string {
	var out []string
	switch ev.Type {
	case events.TypeRoundScored:
		if ev.RoundScored == nil {
			return nil
		}
		for _, play := range ev.RoundScored.Plays {
			if play.Kind == "human" {
				out = append(out, play.ParticipantID)
			}
		}
	case events.TypeGameCompleted:
		if ev.GameCompleted == nil {
			return nil
		}
		for _, res := range ev.GameCompleted.Record.Results {
			if res.Kind == "human" {
				out = append(out, res.ParticipantID)
			}
		}
	}
	return out
}
