// game/round.go
//
// Round phase controller. Phases form the per-round state machine:
//
//	AwaitingCSuiteChoice (round 1 only)
//	  -> CardSelection -> Locked -> Scored -> Revealed
//	  -> MVPSelection (rounds 1-4) -> RoundComplete
//
// Every phase runs on the owning room's loop goroutine; submissions arrive
// serialized through that loop, so round state is single-writer.
package game

import (
	"context"
	"encoding/json"
	"time"

	"github.com/careerplay/ccm/ai"
	"github.com/careerplay/ccm/catalog"
	"github.com/careerplay/ccm/events"
	"github.com/careerplay/ccm/logger"
	"github.com/careerplay/ccm/models"
	"github.com/careerplay/ccm/network"
	"github.com/careerplay/ccm/scoring"
	"github.com/careerplay/ccm/state"
)

// Phase IDs.
const (
	PhaseAwaitingCSuite = "awaiting_csuite_choice"
	PhaseCardSelection  = "card_selection"
	PhaseLocked         = "locked"
	PhaseScored         = "scored"
	PhaseRevealed       = "revealed"
	PhaseMVPSelection   = "mvp_selection"
	PhaseRoundComplete  = "round_complete"
)

// playResult captures a locked-in play together with the participant state
// the formula depends on, frozen at lock time. Immutable once scored.
type playResult struct {
	play      scoring.Play
	pctx      scoring.Context
	breakdown scoring.Breakdown
	lockedAt  time.Time
	defaulted bool
	scored    bool
}

// roundState is the mutable state of the round in flight.
type roundState struct {
	number      int
	challenge   catalog.ChallengeCard
	plays       map[string]*playResult
	nominations map[string]string // participant -> nominated role card ("" = pass)
	responded   map[string]bool   // participant answered the MVP prompt
	deadline    time.Time
}

func (r *roundState) allLocked(order []string) bool {
	for _, pid := range order {
		if _, ok := r.plays[pid]; !ok {
			return false
		}
	}
	return true
}

func (r *roundState) allResponded(order []string) bool {
	for _, pid := range order {
		if !r.responded[pid] {
			return false
		}
	}
	return true
}

// sessionPhase is the shared base: phases that do not accept actions inherit
// a HandleAction that rejects with ErrWrongPhase.
type sessionPhase struct {
	state.PhaseBase
	s *Session
}

func (p *sessionPhase) HandleAction(actor state.Actor, action interface{}) error {
	return ErrWrongPhase
}

// --- AwaitingCSuiteChoice ---

type csuitePhase struct {
	sessionPhase
	deadline time.Time
	aiActed  bool
}

func newCSuitePhase(s *Session) *csuitePhase {
	return &csuitePhase{sessionPhase: sessionPhase{state.PhaseBase{ID: PhaseAwaitingCSuite}, s}}
}

func (p *csuitePhase) OnEnter() {
	p.deadline = p.s.now().Add(p.s.cfg.CardSelectionWindow)
	p.s.broadcast(network.MsgTypeSuitePrompt, map[string]interface{}{
		"session_id": p.s.ID,
		"suites":     catalog.Suites(),
		"deadline":   p.deadline,
	})
}

func (p *csuitePhase) HandleAction(actor state.Actor, action interface{}) error {
	choose, ok := action.(ChooseSuiteAction)
	if !ok {
		return ErrWrongPhase
	}
	participant, ok := p.s.participants[actor.GetID()]
	if !ok {
		return ErrNotSeated
	}
	if p.s.suiteChosen[participant.ID] {
		return nil // first choice wins, duplicates are no-ops
	}
	if !catalog.ValidSuite(choose.Suite) {
		return ErrInvalidSuite
	}
	participant.HomeSuite = choose.Suite
	p.s.suiteChosen[participant.ID] = true
	return nil
}

func (p *csuitePhase) OnUpdate(now time.Time) {
	if !p.aiActed {
		p.aiActed = true
		for _, pid := range p.s.order {
			participant := p.s.participants[pid]
			if participant.Kind != KindAI || p.s.suiteChosen[pid] {
				continue
			}
			participant.HomeSuite = ai.ChooseSuite(p.s.rng, participant.Profile)
			p.s.suiteChosen[pid] = true
		}
	}

	allChosen := true
	for _, pid := range p.s.order {
		if !p.s.suiteChosen[pid] {
			allChosen = false
			break
		}
	}
	if !allChosen && now.Before(p.deadline) {
		return
	}

	// Stragglers get a random affiliation rather than blocking the game.
	for _, pid := range p.s.order {
		if !p.s.suiteChosen[pid] {
			suites := catalog.Suites()
			p.s.participants[pid].HomeSuite = suites[p.s.rng.Intn(len(suites))]
			p.s.suiteChosen[pid] = true
		}
	}
	p.s.changePhase(newCardSelectionPhase(p.s))
}

// --- CardSelection ---

type cardSelectionPhase struct {
	sessionPhase
	aiActed bool
}

func newCardSelectionPhase(s *Session) *cardSelectionPhase {
	return &cardSelectionPhase{sessionPhase: sessionPhase{state.PhaseBase{ID: PhaseCardSelection}, s}}
}

func (p *cardSelectionPhase) OnEnter() {
	s := p.s
	s.round = &roundState{
		number:      s.currentRound,
		challenge:   s.pickChallenge(),
		plays:       make(map[string]*playResult),
		nominations: make(map[string]string),
		responded:   make(map[string]bool),
		deadline:    s.now().Add(s.cfg.CardSelectionWindow),
	}
	s.broadcast(network.MsgTypeRoundStart, map[string]interface{}{
		"session_id":   s.ID,
		"round":        s.round.number,
		"challenge_id": s.round.challenge.ID,
		"title":        s.round.challenge.Title,
		"category":     s.round.challenge.Category,
		"deadline":     s.round.deadline,
	})
}

func (p *cardSelectionPhase) HandleAction(actor state.Actor, action interface{}) error {
	submit, ok := action.(SubmitPlayAction)
	if !ok {
		return ErrWrongPhase
	}
	participant, ok := p.s.participants[actor.GetID()]
	if !ok {
		return ErrNotSeated
	}
	return p.s.lockPlay(participant, submit, false)
}

func (p *cardSelectionPhase) OnUpdate(now time.Time) {
	s := p.s
	if !p.aiActed {
		p.aiActed = true
		s.playAIMoves()
	}

	if !s.round.allLocked(s.order) && now.Before(s.round.deadline) {
		return
	}
	if !s.round.allLocked(s.order) {
		s.applyDefaultPlays()
	}
	s.changePhase(newLockedPhase(s))
}

// --- Locked ---

type lockedPhase struct {
	sessionPhase
}

func newLockedPhase(s *Session) *lockedPhase {
	return &lockedPhase{sessionPhase{state.PhaseBase{ID: PhaseLocked}, s}}
}

func (p *lockedPhase) OnEnter() {
	// Submissions are closed; scoring runs next.
	p.s.changePhase(newScoredPhase(p.s))
}

// --- Scored ---

type scoredPhase struct {
	sessionPhase
}

func newScoredPhase(s *Session) *scoredPhase {
	return &scoredPhase{sessionPhase{state.PhaseBase{ID: PhaseScored}, s}}
}

func (p *scoredPhase) OnEnter() {
	s := p.s
	s.scoreRound()

	// Cooperative cancellation: a disconnect cascade only takes effect once
	// the in-flight round has finished scoring.
	if s.cancelRequested && s.activeCount() < MinActiveParticipants {
		s.cancelGame()
		return
	}
	s.changePhase(newRevealedPhase(s))
}

// --- Revealed ---

type revealedPhase struct {
	sessionPhase
	deadline time.Time
}

func newRevealedPhase(s *Session) *revealedPhase {
	return &revealedPhase{sessionPhase: sessionPhase{state.PhaseBase{ID: PhaseRevealed}, s}}
}

func (p *revealedPhase) OnEnter() {
	s := p.s
	p.deadline = s.now().Add(s.cfg.RevealWindow)
	s.broadcast(network.MsgTypeRoundReveal, map[string]interface{}{
		"session_id": s.ID,
		"round":      s.round.number,
		"plays":      s.roundRecords(),
	})
}

func (p *revealedPhase) OnUpdate(now time.Time) {
	if now.Before(p.deadline) {
		return
	}
	if p.s.round.number < RoundsPerGame {
		p.s.changePhase(newMVPPhase(p.s))
	} else {
		p.s.changePhase(newRoundCompletePhase(p.s))
	}
}

// --- MVPSelection ---

type mvpPhase struct {
	sessionPhase
	deadline time.Time
	aiActed  bool
}

func newMVPPhase(s *Session) *mvpPhase {
	return &mvpPhase{sessionPhase: sessionPhase{state.PhaseBase{ID: PhaseMVPSelection}, s}}
}

func (p *mvpPhase) OnEnter() {
	s := p.s
	p.deadline = s.now().Add(s.cfg.MVPSelectionWindow)
	s.broadcast(network.MsgTypeMVPPrompt, map[string]interface{}{
		"session_id": s.ID,
		"round":      s.round.number,
		"deadline":   p.deadline,
	})
}

func (p *mvpPhase) HandleAction(actor state.Actor, action interface{}) error {
	nominate, ok := action.(NominateMVPAction)
	if !ok {
		return ErrWrongPhase
	}
	s := p.s
	participant, ok := s.participants[actor.GetID()]
	if !ok {
		return ErrNotSeated
	}
	if s.round.responded[participant.ID] {
		return nil // first response wins
	}
	if nominate.RoleCardID != "" {
		pr := s.round.plays[participant.ID]
		if pr == nil || pr.play.RoleCardID != nominate.RoleCardID {
			return ErrInvalidNomination
		}
	}
	s.round.responded[participant.ID] = true
	s.round.nominations[participant.ID] = nominate.RoleCardID
	return nil
}

func (p *mvpPhase) OnUpdate(now time.Time) {
	s := p.s
	if !p.aiActed {
		p.aiActed = true
		for _, pid := range s.order {
			participant := s.participants[pid]
			if participant.Kind != KindAI || s.round.responded[pid] {
				continue
			}
			s.round.responded[pid] = true
			pr := s.round.plays[pid]
			if pr != nil && pr.play.RoleCardID != "" &&
				ai.NominateMVP(s.rng, pr.breakdown.Quality, participant.Profile) {
				s.round.nominations[pid] = pr.play.RoleCardID
			}
		}
	}

	if !s.round.allResponded(s.order) && now.Before(p.deadline) {
		return
	}
	s.changePhase(newRoundCompletePhase(s))
}

// --- RoundComplete ---

type roundCompletePhase struct {
	sessionPhase
}

func newRoundCompletePhase(s *Session) *roundCompletePhase {
	return &roundCompletePhase{sessionPhase{state.PhaseBase{ID: PhaseRoundComplete}, s}}
}

func (p *roundCompletePhase) OnEnter() {
	s := p.s

	// Promote nominations for use in the next round. A stored MVP does not
	// expire; a new nomination overwrites it.
	for pid, cardID := range s.round.nominations {
		if cardID == "" {
			continue
		}
		participant := s.participants[pid]
		if participant.MVPCardID != "" && participant.MVPCardID != cardID {
			logger.Log.Debugf("session %s: participant %s overwrites MVP %s with %s",
				s.ID, pid, participant.MVPCardID, cardID)
		}
		participant.MVPCardID = cardID
	}

	if s.activeCount() < MinActiveParticipants {
		s.cancelGame()
		return
	}

	if s.round.number < RoundsPerGame {
		s.currentRound++
		s.changePhase(newCardSelectionPhase(s))
		return
	}
	s.completeGame()
}

// --- shared round helpers on Session ---

// lockPlay validates and locks a submission. The first lock-in wins;
// duplicates are accepted as no-ops since network retries are expected.
func (s *Session) lockPlay(participant *Participant, submit SubmitPlayAction, defaulted bool) error {
	if _, locked := s.round.plays[participant.ID]; locked {
		return nil
	}

	play := scoring.Play{
		RoleCardID:    submit.RoleCardID,
		SynergyCardID: submit.SynergyCardID,
		Special:       submit.Special,
	}
	if submit.Special == models.SpecialMVP {
		// Slot 1 is ignored when an MVP card occupies slot 3.
		play.RoleCardID = ""
	}

	pctx := scoring.Context{
		HomeSuite:       participant.HomeSuite,
		MVPCardID:       participant.MVPCardID,
		GoldenAvailable: participant.GoldenAvailable,
	}
	if err := s.engine.Validate(play, pctx); err != nil {
		return err
	}
	if play.RoleCardID != "" && !participant.hasRoleCard(play.RoleCardID) {
		return ErrCardNotInHand
	}
	if play.SynergyCardID != "" && !participant.hasSynergyCard(play.SynergyCardID) {
		return ErrCardNotInHand
	}

	lockedAt := s.now()
	s.round.plays[participant.ID] = &playResult{
		play:      play,
		pctx:      pctx,
		lockedAt:  lockedAt,
		defaulted: defaulted,
	}

	// Consume cards at lock time; the play is immutable from here on.
	if play.RoleCardID != "" {
		participant.removeRoleCard(play.RoleCardID)
	}
	if play.SynergyCardID != "" {
		participant.removeSynergyCard(play.SynergyCardID)
	}
	switch play.Special {
	case models.SpecialGolden:
		participant.GoldenAvailable = false
	case models.SpecialMVP:
		participant.MVPCardID = ""
	}

	if s.round.number == RoundsPerGame {
		participant.FinalLockAt = lockedAt
	}
	return nil
}

// playAIMoves computes and locks every AI seat's move, each under the
// configured budget so AI can never stall the room.
func (s *Session) playAIMoves() {
	for _, pid := range s.order {
		participant := s.participants[pid]
		if participant.Kind != KindAI {
			continue
		}
		if _, locked := s.round.plays[pid]; locked {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.AIMoveBudget)
		decision := ai.ChoosePlay(ctx, s.rng, s.store, s.round.challenge, participant.handView(s.round.number), participant.Profile)
		cancel()

		submit := SubmitPlayAction{
			RoleCardID:    decision.RoleCardID,
			SynergyCardID: decision.SynergyCardID,
		}
		if decision.PlayGolden {
			submit.Special = models.SpecialGolden
		} else if decision.PlayMVP {
			submit.Special = models.SpecialMVP
		}
		if err := s.lockPlay(participant, submit, false); err != nil {
			logger.Log.Warnf("session %s: AI %s produced an invalid move (%v), falling back to default", s.ID, pid, err)
			s.lockDefaultPlay(participant)
		}
	}
}

// applyDefaultPlays locks a minimal play for every straggler once the
// selection window has elapsed: first role card left in hand, no synergy,
// no special.
func (s *Session) applyDefaultPlays() {
	for _, pid := range s.order {
		if _, locked := s.round.plays[pid]; locked {
			continue
		}
		s.lockDefaultPlay(s.participants[pid])
	}
}

func (s *Session) lockDefaultPlay(participant *Participant) {
	if len(participant.RoleHand) == 0 {
		// Hands start with 10 role cards for 5 rounds, so this is a bug,
		// not a normal path.
		logger.Log.Errorf("session %s: participant %s has an empty role hand in round %d",
			s.ID, participant.ID, s.round.number)
		return
	}
	submit := SubmitPlayAction{RoleCardID: participant.RoleHand[0]}
	if err := s.lockPlay(participant, submit, true); err != nil {
		logger.Log.Errorf("session %s: default play rejected for %s: %v", s.ID, participant.ID, err)
	}
}

// scoreRound applies the scoring engine to every locked play, persists the
// finalized records, and publishes the RoundScored event.
func (s *Session) scoreRound() {
	for _, pid := range s.order {
		pr, ok := s.round.plays[pid]
		if !ok || pr.scored {
			continue
		}
		breakdown, err := s.engine.Score(pr.play, s.round.challenge, pr.pctx)
		if err != nil {
			// Plays are validated at lock time, so treat this as corrupted
			// state: score zero rather than abort the round.
			logger.Log.Errorf("session %s: scoring failed for %s round %d: %v", s.ID, pid, s.round.number, err)
			breakdown = scoring.Breakdown{}
		}
		pr.breakdown = breakdown
		pr.scored = true
		s.participants[pid].RoundScores[s.round.number-1] = breakdown.FinalScore
	}

	records := s.roundRecords()
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.sink.SaveRoundPlays(ctx, records); err != nil {
		logger.Log.Errorf("session %s: persisting round %d plays: %v", s.ID, s.round.number, err)
	}

	ev := events.New(events.TypeRoundScored, s.cfg.RoomID, s.ID)
	ev.RoundScored = &events.RoundScoredPayload{Round: s.round.number, Plays: records}
	s.bus.Publish(ev)
}

// roundRecords builds the reveal/persistence view of the round. The
// breakdown's soft-skills component has no representation here.
func (s *Session) roundRecords() []models.RoundPlayRecord {
	records := make([]models.RoundPlayRecord, 0, len(s.order))
	for _, pid := range s.order {
		pr, ok := s.round.plays[pid]
		if !ok {
			continue
		}
		records = append(records, models.RoundPlayRecord{
			SessionID:     s.ID,
			RoomID:        s.cfg.RoomID,
			GameNumber:    s.cfg.GameNumber,
			Round:         s.round.number,
			ParticipantID: pid,
			Kind:          string(s.participants[pid].Kind),
			RoleCardID:    pr.play.RoleCardID,
			SynergyCardID: pr.play.SynergyCardID,
			Special:       pr.play.Special,
			Quality:       string(pr.breakdown.Quality),
			Effectiveness: string(pr.breakdown.Effectiveness),
			Alignment:     string(pr.breakdown.Alignment),
			BaseScore:     pr.breakdown.BaseScore,
			FinalScore:    pr.breakdown.FinalScore,
			Defaulted:     pr.defaulted,
			LockedAt:      pr.lockedAt,
		})
	}
	return records
}

// pickChallenge draws an unused challenge for the next round.
func (s *Session) pickChallenge() catalog.ChallengeCard {
	eligible := s.store.Challenges(s.cfg.GradeBand)
	fresh := make([]catalog.ChallengeCard, 0, len(eligible))
	for _, c := range eligible {
		if !s.usedChallenges[c.ID] {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		// Small catalogs may repeat challenges across rounds.
		fresh = eligible
	}
	picked := fresh[s.rng.Intn(len(fresh))]
	s.usedChallenges[picked.ID] = true
	return picked
}

func (s *Session) broadcast(msgID uint16, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("session %s: marshaling broadcast %d: %v", s.ID, msgID, err)
		return
	}
	if err := s.broadcaster.BroadcastToRoom(s.cfg.RoomID, msgID, data); err != nil {
		logger.Log.Warnf("session %s: broadcast %d failed: %v", s.ID, msgID, err)
	}
}
