// ai/ai.go
package ai

import (
	"context"
	"math/rand"

	"github.com/careerplay/ccm/catalog"
)

// Difficulty is a room's configured AI mix.
type Difficulty string

const (
	DifficultyMixed    Difficulty = "mixed"
	DifficultyBeginner Difficulty = "beginner"
	DifficultyExpert   Difficulty = "expert"
)

// Personality tags only vary play distributions, never game rules.
var personalities = []string{"bold", "cautious", "methodical", "wildcard"}

// Profile describes one AI participant.
type Profile struct {
	Difficulty  Difficulty
	Personality string
}

// NewProfile rolls a profile for a seat under the room's difficulty mix.
func NewProfile(rng *rand.Rand, mix Difficulty) Profile {
	d := mix
	if mix == DifficultyMixed || mix == "" {
		if rng.Intn(2) == 0 {
			d = DifficultyBeginner
		} else {
			d = DifficultyExpert
		}
	}
	return Profile{
		Difficulty:  d,
		Personality: personalities[rng.Intn(len(personalities))],
	}
}

// Decision is an AI move. The conversion into a real submission happens in
// the game package.
type Decision struct {
	RoleCardID    string
	SynergyCardID string
	PlayGolden    bool
	PlayMVP       bool
}

// HandView is the slice of participant state an AI may legally see. Note the
// absence of anything matrix-related: AI evaluates plays on the same public
// tiers a human sees.
type HandView struct {
	RoleCardIDs     []string
	SynergyCardIDs  []string
	GoldenAvailable bool
	MVPCardID       string
	HomeSuite       catalog.CSuite
	Round           int
}

// ChooseSuite picks a home C-Suite affiliation at game start.
func ChooseSuite(rng *rand.Rand, p Profile) catalog.CSuite {
	suites := catalog.Suites()
	return suites[rng.Intn(len(suites))]
}

// ChoosePlay selects a move for the round. The context carries the move
// budget; it must be strictly shorter than the selection window so an AI can
// never stall a room. If the budget expires mid-evaluation the best
// candidate found so far (or a random fallback) is returned.
func ChoosePlay(ctx context.Context, rng *rand.Rand, store *catalog.Store, challenge catalog.ChallengeCard, hand HandView, p Profile) Decision {
	if len(hand.RoleCardIDs) == 0 {
		// Nothing left to play normally; burn a special if one is held.
		if hand.MVPCardID != "" {
			return Decision{PlayMVP: true, SynergyCardID: pickRandom(rng, hand.SynergyCardIDs)}
		}
		if hand.GoldenAvailable {
			return Decision{PlayGolden: true}
		}
		return Decision{}
	}

	if p.Difficulty == DifficultyBeginner {
		return randomDecision(rng, hand)
	}

	best := Decision{RoleCardID: hand.RoleCardIDs[rng.Intn(len(hand.RoleCardIDs))]}
	bestValue := -1.0
	for _, roleID := range hand.RoleCardIDs {
		if ctx.Err() != nil {
			break
		}
		role, ok := store.GetRoleCard(roleID)
		if !ok {
			continue
		}
		for _, synID := range append([]string{""}, hand.SynergyCardIDs...) {
			v := evaluate(store, role, synID, challenge, hand.HomeSuite)
			if v > bestValue {
				bestValue = v
				best = Decision{RoleCardID: roleID, SynergyCardID: synID}
			}
		}
	}

	// Experts save the golden token for rounds where the hand has gone cold.
	if hand.GoldenAvailable && bestValue < float64(40) {
		best.PlayGolden = true
		best.RoleCardID = ""
	}

	// Personality nudges: a wildcard occasionally ignores the evaluation.
	if p.Personality == "wildcard" && rng.Intn(4) == 0 {
		return randomDecision(rng, hand)
	}
	return best
}

// NominateMVP decides whether to promote the role card just played.
func NominateMVP(rng *rand.Rand, quality catalog.QualityTier, p Profile) bool {
	switch p.Difficulty {
	case DifficultyExpert:
		return quality == catalog.QualityPerfect
	default:
		return rng.Intn(3) == 0
	}
}

// evaluate scores a candidate on public information only.
func evaluate(store *catalog.Store, role catalog.RoleCard, synID string, challenge catalog.ChallengeCard, home catalog.CSuite) float64 {
	base := 20.0
	switch role.QualityFor(challenge.Category) {
	case catalog.QualityPerfect:
		base = 60
	case catalog.QualityGood:
		base = 40
	}

	syn := 1.0
	if synID != "" {
		if card, ok := store.GetSynergyCard(synID); ok {
			switch card.EffectivenessFor(challenge.Category) {
			case catalog.EffectivenessPrimary:
				syn = 2.0
			case catalog.EffectivenessSecondary:
				syn = 1.5
			}
		}
	}

	suite := 1.0
	switch catalog.Alignment(home, role.Org) {
	case catalog.AlignmentHome:
		suite = 2.0
	case catalog.AlignmentAdjacent:
		suite = 1.5
	}

	return base * syn * suite
}

func randomDecision(rng *rand.Rand, hand HandView) Decision {
	d := Decision{RoleCardID: hand.RoleCardIDs[rng.Intn(len(hand.RoleCardIDs))]}
	if rng.Intn(2) == 0 && len(hand.SynergyCardIDs) > 0 {
		d.SynergyCardID = hand.SynergyCardIDs[rng.Intn(len(hand.SynergyCardIDs))]
	}
	return d
}

func pickRandom(rng *rand.Rand, ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[rng.Intn(len(ids))]
}
