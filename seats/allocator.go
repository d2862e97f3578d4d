// seats/allocator.go
package seats

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careerplay/ccm/ai"
)

// QueuedPlayer is a human waiting for the next game in a room. The ID is the
// opaque identifier supplied by the identity provider.
type QueuedPlayer struct {
	ID         string
	Name       string
	EnqueuedAt time.Time
}

// Seat is one filled position handed to the room when a game forms.
type Seat struct {
	ID      string
	Name    string
	Human   bool
	Profile ai.Profile // meaningful only for AI seats
}

// Allocator owns the per-room admission queues and synthesizes AI seats when
// a room's fill policy allows it. Safe for concurrent use: the gateway
// enqueues from connection goroutines while rooms drain from their loops.
type Allocator struct {
	mu     sync.Mutex
	queues map[string][]QueuedPlayer
	rng    *rand.Rand
}

func NewAllocator(seed int64) *Allocator {
	return &Allocator{
		queues: make(map[string][]QueuedPlayer),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Enqueue adds a human to a room's queue. Re-enqueueing the same player is a
// no-op so connection retries cannot occupy two seats.
func (a *Allocator) Enqueue(roomID string, player QueuedPlayer) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, q := range a.queues[roomID] {
		if q.ID == player.ID {
			return
		}
	}
	if player.EnqueuedAt.IsZero() {
		player.EnqueuedAt = time.Now()
	}
	a.queues[roomID] = append(a.queues[roomID], player)
}

// Remove drops a player from a room's queue, e.g. on disconnect.
func (a *Allocator) Remove(roomID, playerID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	queue := a.queues[roomID]
	for i, q := range queue {
		if q.ID == playerID {
			a.queues[roomID] = append(queue[:i], queue[i+1:]...)
			return
		}
	}
}

// QueueLen reports how many humans are waiting for a room.
func (a *Allocator) QueueLen(roomID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queues[roomID])
}

// FillSeats admits queued humans in arrival order up to capacity and, when
// aiFill is set, tops the table up with AI seats under the room's difficulty
// mix. The caller applies its own grace period before asking for AI fill.
func (a *Allocator) FillSeats(roomID string, capacity int, aiFill bool, mix ai.Difficulty) []Seat {
	a.mu.Lock()
	defer a.mu.Unlock()

	seatsOut := make([]Seat, 0, capacity)
	queue := a.queues[roomID]
	admitted := 0
	for _, q := range queue {
		if admitted >= capacity {
			break
		}
		seatsOut = append(seatsOut, Seat{ID: q.ID, Name: q.Name, Human: true})
		admitted++
	}
	a.queues[roomID] = queue[admitted:]

	if aiFill {
		for i := len(seatsOut); i < capacity; i++ {
			profile := ai.NewProfile(a.rng, mix)
			seatsOut = append(seatsOut, Seat{
				ID:      "ai-" + uuid.New().String(),
				Name:    aiName(profile, i+1),
				Profile: profile,
			})
		}
	}
	return seatsOut
}

func aiName(p ai.Profile, seat int) string {
	return fmt.Sprintf("%s-bot-%d", p.Personality, seat)
}
