package seats

import (
	"strings"
	"testing"

	"github.com/careerplay/ccm/ai"
)

func TestEnqueueDeduplicates(t *testing.T) {
	a := NewAllocator(1)

	a.Enqueue("room-1", QueuedPlayer{ID: "p1", Name: "Alice"})
	a.Enqueue("room-1", QueuedPlayer{ID: "p1", Name: "Alice"})
	a.Enqueue("room-1", QueuedPlayer{ID: "p2", Name: "Bob"})

	if got := a.QueueLen("room-1"); got != 2 {
		t.Fatalf("QueueLen = %d, want 2 after duplicate enqueue", got)
	}
}

func TestRemove(t *testing.T) {
	a := NewAllocator(1)
	a.Enqueue("room-1", QueuedPlayer{ID: "p1"})
	a.Enqueue("room-1", QueuedPlayer{ID: "p2"})

	a.Remove("room-1", "p1")
	if got := a.QueueLen("room-1"); got != 1 {
		t.Fatalf("QueueLen = %d, want 1 after removal", got)
	}
	a.Remove("room-1", "ghost")
	if got := a.QueueLen("room-1"); got != 1 {
		t.Fatalf("QueueLen = %d, want 1 after removing a missing player", got)
	}
}

func TestFillSeatsArrivalOrder(t *testing.T) {
	a := NewAllocator(1)
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		a.Enqueue("room-1", QueuedPlayer{ID: id, Name: id})
	}

	filled := a.FillSeats("room-1", 3, false, ai.DifficultyMixed)
	if len(filled) != 3 {
		t.Fatalf("filled %d seats, want 3", len(filled))
	}
	for i, want := range []string{"p1", "p2", "p3"} {
		if filled[i].ID != want {
			t.Errorf("seat %d = %s, want %s (arrival order)", i, filled[i].ID, want)
		}
		if !filled[i].Human {
			t.Errorf("seat %d should be human", i)
		}
	}

	// The overflow player stays queued for the next game.
	if got := a.QueueLen("room-1"); got != 1 {
		t.Fatalf("QueueLen = %d, want 1 remaining", got)
	}
}

func TestFillSeatsAIFill(t *testing.T) {
	a := NewAllocator(1)
	a.Enqueue("room-1", QueuedPlayer{ID: "p1", Name: "Alice"})

	filled := a.FillSeats("room-1", 4, true, ai.DifficultyExpert)
	if len(filled) != 4 {
		t.Fatalf("filled %d seats, want 4 with AI fill", len(filled))
	}

	humans, bots := 0, 0
	for _, seat := range filled {
		if seat.Human {
			humans++
			continue
		}
		bots++
		if !strings.HasPrefix(seat.ID, "ai-") {
			t.Errorf("AI seat ID %q missing ai- prefix", seat.ID)
		}
		if seat.Profile.Difficulty != ai.DifficultyExpert {
			t.Errorf("AI seat difficulty = %s, want expert", seat.Profile.Difficulty)
		}
		if seat.Name == "" {
			t.Error("AI seat has no display name")
		}
	}
	if humans != 1 || bots != 3 {
		t.Fatalf("humans=%d bots=%d, want 1/3", humans, bots)
	}
}

func TestFillSeatsNoAIFill(t *testing.T) {
	a := NewAllocator(1)
	a.Enqueue("room-1", QueuedPlayer{ID: "p1"})

	filled := a.FillSeats("room-1", 4, false, ai.DifficultyMixed)
	if len(filled) != 1 {
		t.Fatalf("filled %d seats, want 1 when AI fill is off", len(filled))
	}
}

func TestFillSeatsIsolatesRooms(t *testing.T) {
	a := NewAllocator(1)
	a.Enqueue("room-1", QueuedPlayer{ID: "p1"})
	a.Enqueue("room-2", QueuedPlayer{ID: "p2"})

	filled := a.FillSeats("room-1", 2, false, ai.DifficultyMixed)
	if len(filled) != 1 || filled[0].ID != "p1" {
		t.Fatalf("room-1 fill = %+v, want only p1", filled)
	}
	if got := a.QueueLen("room-2"); got != 1 {
		t.Fatalf("room-2 queue drained by room-1 fill")
	}
}
