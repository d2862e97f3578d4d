// game/participant.go
package game

import (
	"time"

	"github.com/careerplay/ccm/ai"
	"github.com/careerplay/ccm/catalog"
)

// Kind distinguishes human seats from AI fill.
type Kind string

const (
	KindHuman Kind = "human"
	KindAI    Kind = "ai"
)

// Participant is one seat in a game session. All fields are owned by the
// room loop goroutine; nothing here needs locking.
type Participant struct {
	ID      string
	Name    string
	Kind    Kind
	Profile ai.Profile // zero value for humans

	HomeSuite       catalog.CSuite
	RoleHand        []string
	SynergyHand     []string
	GoldenAvailable bool
	MVPCardID       string

	RoundScores [RoundsPerGame]int
	TotalScore  int
	Rank        int
	IsWinner    bool

	Connected   bool
	FinalLockAt time.Time
}

// GetID implements state.Actor.
func (p *Participant) GetID() string { return p.ID }

func (p *Participant) hasRoleCard(id string) bool {
	for _, c := range p.RoleHand {
		if c == id {
			return true
		}
	}
	return false
}

func (p *Participant) removeRoleCard(id string) {
	for i, c := range p.RoleHand {
		if c == id {
			p.RoleHand = append(p.RoleHand[:i], p.RoleHand[i+1:]...)
			return
		}
	}
}

func (p *Participant) hasSynergyCard(id string) bool {
	for _, c := range p.SynergyHand {
		if c == id {
			return true
		}
	}
	return false
}

func (p *Participant) removeSynergyCard(id string) {
	for i, c := range p.SynergyHand {
		if c == id {
			p.SynergyHand = append(p.SynergyHand[:i], p.SynergyHand[i+1:]...)
			return
		}
	}
}

func (p *Participant) handView(round int) ai.HandView {
	return ai.HandView{
		RoleCardIDs:     p.RoleHand,
		SynergyCardIDs:  p.SynergyHand,
		GoldenAvailable: p.GoldenAvailable,
		MVPCardID:       p.MVPCardID,
		HomeSuite:       p.HomeSuite,
		Round:           round,
	}
}
