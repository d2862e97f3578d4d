// scoring/scoring.go
package scoring

import (
	"errors"
	"math"

	"github.com/careerplay/ccm/catalog"
	"github.com/careerplay/ccm/logger"
	"github.com/careerplay/ccm/models"
)

// Final-score bounds per round.
const (
	MinFinalScore = 0
	MaxFinalScore = 120
)

// Base score constants.
const (
	BaseGolden  = 120
	BasePerfect = 60
	BaseGood    = 40
	BaseNotIn   = 20
)

var (
	// ErrInvalidPlay is returned for a play with no slot-1 role card and no
	// golden/MVP card in slot 3.
	ErrInvalidPlay = errors.New("invalid play: slot 1 is empty and slot 3 holds no golden or MVP card")
	// ErrGoldenSpent is returned when a golden play is attempted after the
	// participant's one-time token was already consumed.
	ErrGoldenSpent = errors.New("golden card already consumed this game")
	// ErrNoMVP is returned for an MVP play with no stored MVP reference.
	ErrNoMVP = errors.New("no active MVP card to play")
	// ErrUnknownCard is returned when a played card is not in the catalog.
	ErrUnknownCard = errors.New("played card not found in catalog")
)

// MatrixLookup is the scoring engine's private window onto the soft-skills
// matrix. catalog.Matrix implements it; no other component receives one.
type MatrixLookup interface {
	Multiplier(roleID, synergyID string) (float64, bool)
}

// Play is one participant's submission for a round.
type Play struct {
	RoleCardID    string
	SynergyCardID string
	Special       models.SpecialCard
}

// Context is the per-participant state the formula depends on.
type Context struct {
	HomeSuite       catalog.CSuite
	MVPCardID       string
	GoldenAvailable bool
}

// Breakdown explains a final score. The soft-skills multiplier is kept in an
// unexported field so it can never be marshaled or exposed downstream.
type Breakdown struct {
	BaseScore         int
	Quality           catalog.QualityTier
	Effectiveness     catalog.EffectivenessTier
	Alignment         catalog.AlignmentTier
	SynergyMultiplier float64
	CSuiteMultiplier  float64
	FinalScore        int
	GoldenConsumed    bool
	MVPConsumed       bool

	softSkills float64
}

// Engine computes round scores. It is the only component holding a
// MatrixLookup, and Score is side-effect free apart from the data-integrity
// warning on a missing matrix entry.
type Engine struct {
	store  *catalog.Store
	matrix MatrixLookup
}

func NewEngine(store *catalog.Store, matrix MatrixLookup) *Engine {
	return &Engine{store: store, matrix: matrix}
}

// Validate rejects structurally invalid plays without scoring them.
func (e *Engine) Validate(play Play, pctx Context) error {
	switch play.Special {
	case models.SpecialGolden:
		if !pctx.GoldenAvailable {
			return ErrGoldenSpent
		}
	case models.SpecialMVP:
		if pctx.MVPCardID == "" {
			return ErrNoMVP
		}
	case models.SpecialNone:
		if play.RoleCardID == "" {
			return ErrInvalidPlay
		}
	}
	return nil
}

// Score applies the multi-factor formula:
//
//	final = round(base * synergy * csuite * softskills), clamped to [0, 120]
//
// Golden plays take the maximum base regardless of slot 1; MVP plays resolve
// the stored MVP card as the role card. Multipliers still apply on top of a
// golden base; the clamp caps the result.
func (e *Engine) Score(play Play, challenge catalog.ChallengeCard, pctx Context) (Breakdown, error) {
	if err := e.Validate(play, pctx); err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{
		SynergyMultiplier: 1.0,
		CSuiteMultiplier:  1.0,
		softSkills:        1.0,
	}

	// Resolve the role card the formula should read. Golden overrides the
	// base score but the slot-1 card, if present, still drives alignment.
	roleID := play.RoleCardID
	if play.Special == models.SpecialMVP {
		roleID = pctx.MVPCardID
		b.MVPConsumed = true
	}

	var role catalog.RoleCard
	haveRole := false
	if roleID != "" {
		var ok bool
		role, ok = e.store.GetRoleCard(roleID)
		if !ok {
			return Breakdown{}, ErrUnknownCard
		}
		haveRole = true
	}

	if play.Special == models.SpecialGolden {
		b.BaseScore = BaseGolden
		b.GoldenConsumed = true
	} else {
		b.Quality = role.QualityFor(challenge.Category)
		switch b.Quality {
		case catalog.QualityPerfect:
			b.BaseScore = BasePerfect
		case catalog.QualityGood:
			b.BaseScore = BaseGood
		default:
			b.BaseScore = BaseNotIn
		}
	}

	if play.SynergyCardID != "" {
		syn, ok := e.store.GetSynergyCard(play.SynergyCardID)
		if !ok {
			return Breakdown{}, ErrUnknownCard
		}
		b.Effectiveness = syn.EffectivenessFor(challenge.Category)
		switch b.Effectiveness {
		case catalog.EffectivenessPrimary:
			b.SynergyMultiplier = 2.0
		case catalog.EffectivenessSecondary:
			b.SynergyMultiplier = 1.5
		default:
			b.SynergyMultiplier = 1.0
		}
	}

	if haveRole {
		b.Alignment = catalog.Alignment(pctx.HomeSuite, role.Org)
		switch b.Alignment {
		case catalog.AlignmentHome:
			b.CSuiteMultiplier = 2.0
		case catalog.AlignmentAdjacent:
			b.CSuiteMultiplier = 1.5
		default:
			b.CSuiteMultiplier = 1.0
		}
	}

	if haveRole && play.SynergyCardID != "" {
		mult, ok := e.matrix.Multiplier(role.ID, play.SynergyCardID)
		if !ok {
			// Should be unreachable with a fully precomputed matrix; fall
			// back safely and flag for the data team.
			logger.Log.Warnf("missing soft-skills matrix entry for (%s,%s), defaulting to 1.0", role.ID, play.SynergyCardID)
			mult = 1.0
		}
		b.softSkills = mult
	}

	raw := float64(b.BaseScore) * b.SynergyMultiplier * b.CSuiteMultiplier * b.softSkills
	final := int(math.Round(raw))
	if final > MaxFinalScore {
		final = MaxFinalScore
	}
	if final < MinFinalScore {
		final = MinFinalScore
	}
	b.FinalScore = final
	return b, nil
}
