// events/events.go
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careerplay/ccm/logger"
	"github.com/careerplay/ccm/models"
)

// Type identifies an engine event.
type Type string

const (
	TypeRoundScored       Type = "round.scored"
	TypeGameCompleted     Type = "game.completed"
	TypeGameCancelled     Type = "game.cancelled"
	TypeRoomStatusChanged Type = "room.status_changed"
)

// Event is the envelope published on the bus. ID is stable per emission and
// is the idempotence key consumers must dedupe on: a re-delivered event
// carries the same ID.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	RoomID     string    `json:"room_id"`
	SessionID  string    `json:"session_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`

	RoundScored   *RoundScoredPayload   `json:"round_scored,omitempty"`
	GameCompleted *GameCompletedPayload `json:"game_completed,omitempty"`
	RoomStatus    *models.RoomStatus    `json:"room_status,omitempty"`
}

// RoundScoredPayload carries the finalized plays of one round.
type RoundScoredPayload struct {
	Round int                      `json:"round"`
	Plays []models.RoundPlayRecord `json:"plays"`
}

// GameCompletedPayload carries the final session record.
type GameCompletedPayload struct {
	Record models.GameSessionRecord `json:"record"`
}

// New builds an event envelope with a fresh ID.
func New(t Type, roomID, sessionID string) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		RoomID:     roomID,
		SessionID:  sessionID,
		OccurredAt: time.Now(),
	}
}

// Bus is an in-process fan-out of engine events. Publishing never blocks the
// game loop: a subscriber that falls behind has events dropped with a
// warning rather than stalling a room.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a consumer with the given channel buffer. The returned
// cancel func removes the subscription and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish fans the event out to all subscribers.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			logger.Log.Warnf("event bus: subscriber full, dropping %s event %s", ev.Type, ev.ID)
		}
	}
}
