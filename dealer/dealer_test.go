package dealer

import (
	"fmt"
	"testing"

	"github.com/careerplay/ccm/catalog"
)

func testStore(roleCount, synergyCount int) *catalog.Store {
	roles := make([]catalog.RoleCard, 0, roleCount)
	for i := 0; i < roleCount; i++ {
		roles = append(roles, catalog.RoleCard{ID: fmt.Sprintf("role-%02d", i)})
	}
	synergies := make([]catalog.SynergyCard, 0, synergyCount)
	for i := 0; i < synergyCount; i++ {
		synergies = append(synergies, catalog.SynergyCard{ID: fmt.Sprintf("syn-%d", i)})
	}
	return catalog.NewStore(roles, synergies, nil)
}

func TestDealHands(t *testing.T) {
	d := New(testStore(20, SynergyHandSize), 42)

	hands, err := d.DealHands("", []string{"p1", "p2", "p3"})
	if err != nil {
		t.Fatalf("DealHands: %v", err)
	}
	if len(hands) != 3 {
		t.Fatalf("got %d hands, want 3", len(hands))
	}

	for pid, hand := range hands {
		if len(hand.RoleCardIDs) != RoleHandSize {
			t.Errorf("%s: role hand size %d, want %d", pid, len(hand.RoleCardIDs), RoleHandSize)
		}
		seen := make(map[string]bool)
		for _, id := range hand.RoleCardIDs {
			if seen[id] {
				t.Errorf("%s: duplicate role card %s in hand", pid, id)
			}
			seen[id] = true
		}
		if len(hand.SynergyCardIDs) != SynergyHandSize {
			t.Errorf("%s: synergy hand size %d, want %d", pid, len(hand.SynergyCardIDs), SynergyHandSize)
		}
		if !hand.GoldenAvailable {
			t.Errorf("%s: golden token not granted", pid)
		}
	}

	// Everyone holds the identical universal synergy set.
	ref := hands["p1"].SynergyCardIDs
	for pid, hand := range hands {
		for i, id := range hand.SynergyCardIDs {
			if id != ref[i] {
				t.Errorf("%s: synergy set differs from p1 at %d: %s vs %s", pid, i, id, ref[i])
			}
		}
	}
}

func TestDealHandsInsufficientRoles(t *testing.T) {
	d := New(testStore(RoleHandSize-1, SynergyHandSize), 1)
	if _, err := d.DealHands("", []string{"p1"}); err != ErrInsufficientCatalog {
		t.Fatalf("err = %v, want ErrInsufficientCatalog", err)
	}
}

func TestDealHandsWrongSynergyCount(t *testing.T) {
	d := New(testStore(20, SynergyHandSize+1), 1)
	if _, err := d.DealHands("", []string{"p1"}); err != ErrInsufficientCatalog {
		t.Fatalf("err = %v, want ErrInsufficientCatalog", err)
	}
}

func TestDealHandsGradeBandFilter(t *testing.T) {
	roles := make([]catalog.RoleCard, 0, 15)
	for i := 0; i < 15; i++ {
		band := "middle"
		if i >= RoleHandSize {
			band = "high"
		}
		roles = append(roles, catalog.RoleCard{ID: fmt.Sprintf("role-%02d", i), GradeBand: band})
	}
	synergies := make([]catalog.SynergyCard, 0, SynergyHandSize)
	for i := 0; i < SynergyHandSize; i++ {
		synergies = append(synergies, catalog.SynergyCard{ID: fmt.Sprintf("syn-%d", i)})
	}
	d := New(catalog.NewStore(roles, synergies, nil), 7)

	hands, err := d.DealHands("middle", []string{"p1"})
	if err != nil {
		t.Fatalf("DealHands: %v", err)
	}
	for _, id := range hands["p1"].RoleCardIDs {
		card, _ := d.store.GetRoleCard(id)
		if card.GradeBand != "middle" {
			t.Errorf("card %s has band %q, want middle only", id, card.GradeBand)
		}
	}
}
