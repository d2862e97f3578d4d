// game/actions.go
package game

import (
	"errors"

	"github.com/careerplay/ccm/catalog"
	"github.com/careerplay/ccm/models"
)

// Actions are the typed participant inputs dispatched to the current phase
// through the room loop. Submissions are idempotent: once a participant is
// locked in, duplicates are accepted as no-ops.

// ChooseSuiteAction fixes a participant's home C-Suite in round 1.
type ChooseSuiteAction struct {
	Suite catalog.CSuite `json:"suite"`
}

// SubmitPlayAction is a round play: optional role card (slot 1), optional
// synergy card (slot 2), optional golden/MVP special (slot 3).
type SubmitPlayAction struct {
	RoleCardID    string             `json:"role_card_id"`
	SynergyCardID string             `json:"synergy_card_id"`
	Special       models.SpecialCard `json:"special"`
}

// NominateMVPAction promotes the role card played this round. An empty card
// ID is an explicit pass.
type NominateMVPAction struct {
	RoleCardID string `json:"role_card_id"`
}

var (
	ErrNotSeated         = errors.New("participant is not seated in this session")
	ErrWrongPhase        = errors.New("action not valid in the current phase")
	ErrUnknownAction     = errors.New("unknown action type")
	ErrInvalidSuite      = errors.New("invalid C-Suite affiliation")
	ErrCardNotInHand     = errors.New("card is not in the participant's hand")
	ErrInvalidNomination = errors.New("MVP nomination must be the role card played this round")
	ErrSessionOver       = errors.New("game session has finished")
)
