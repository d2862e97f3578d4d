package game

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/careerplay/ccm/ai"
	"github.com/careerplay/ccm/catalog"
	"github.com/careerplay/ccm/events"
	"github.com/careerplay/ccm/logger"
	"github.com/careerplay/ccm/models"
	"github.com/careerplay/ccm/scoring"
)

func TestMain(m *testing.M) {
	logger.InitDevelopment()
	m.Run()
}

// --- test doubles ---

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// MockSink records persisted data in memory.
type MockSink struct {
	roundBatches [][]models.RoundPlayRecord
	sessions     []models.GameSessionRecord
}

func (m *MockSink) SaveRoundPlays(ctx context.Context, plays []models.RoundPlayRecord) error {
	batch := make([]models.RoundPlayRecord, len(plays))
	copy(batch, plays)
	m.roundBatches = append(m.roundBatches, batch)
	return nil
}

func (m *MockSink) SaveGameSession(ctx context.Context, rec models.GameSessionRecord) error {
	m.sessions = append(m.sessions, rec)
	return nil
}

// MockBroadcaster records every room broadcast.
type MockBroadcaster struct {
	msgIDs []uint16
}

func (m *MockBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	m.msgIDs = append(m.msgIDs, msgID)
	return nil
}

// --- fixtures ---

func testCatalog(t *testing.T) (*catalog.Store, *catalog.Matrix) {
	t.Helper()

	roles := make([]catalog.RoleCard, 0, 12)
	orgs := catalog.Suites()
	for i := 1; i <= 12; i++ {
		roles = append(roles, catalog.RoleCard{
			ID:   fmt.Sprintf("role-%02d", i),
			Name: fmt.Sprintf("Role %d", i),
			Org:  orgs[i%len(orgs)],
			Quality: map[catalog.PCategory]catalog.QualityTier{
				catalog.CategoryPeople: catalog.QualityGood,
			},
		})
	}

	synergies := make([]catalog.SynergyCard, 0, 5)
	for i := 1; i <= 5; i++ {
		synergies = append(synergies, catalog.SynergyCard{
			ID: fmt.Sprintf("syn-%d", i),
			Effectiveness: map[catalog.PCategory]catalog.EffectivenessTier{
				catalog.CategoryPeople: catalog.EffectivenessSecondary,
			},
		})
	}

	challenges := make([]catalog.ChallengeCard, 0, 6)
	for i := 1; i <= 6; i++ {
		challenges = append(challenges, catalog.ChallengeCard{
			ID:       fmt.Sprintf("ch-%d", i),
			Title:    fmt.Sprintf("Challenge %d", i),
			Category: catalog.CategoryPeople,
		})
	}

	var entries []catalog.MatrixEntry
	for _, r := range roles {
		for _, s := range synergies {
			entries = append(entries, catalog.MatrixEntry{RoleID: r.ID, SynergyID: s.ID, Multiplier: 1.0})
		}
	}
	matrix, err := catalog.NewMatrix(entries)
	if err != nil {
		t.Fatalf("building matrix: %v", err)
	}
	return catalog.NewStore(roles, synergies, challenges), matrix
}

func dealtHand() ([]string, []string) {
	roleIDs := make([]string, 0, 10)
	for i := 1; i <= 10; i++ {
		roleIDs = append(roleIDs, fmt.Sprintf("role-%02d", i))
	}
	synIDs := make([]string, 0, 5)
	for i := 1; i <= 5; i++ {
		synIDs = append(synIDs, fmt.Sprintf("syn-%d", i))
	}
	return roleIDs, synIDs
}

func newSeat(id string, kind Kind) *Participant {
	roleIDs, synIDs := dealtHand()
	p := &Participant{
		ID:              id,
		Name:            id,
		Kind:            kind,
		RoleHand:        roleIDs,
		SynergyHand:     synIDs,
		GoldenAvailable: true,
		Connected:       true,
	}
	if kind == KindAI {
		p.Profile = ai.Profile{Difficulty: ai.DifficultyExpert, Personality: "methodical"}
	}
	return p
}

type harness struct {
	session     *Session
	clock       *fakeClock
	sink        *MockSink
	broadcaster *MockBroadcaster
	bus         *events.Bus
}

func newHarness(t *testing.T, seats []*Participant) *harness {
	t.Helper()
	store, matrix := testCatalog(t)
	clock := newFakeClock()
	sink := &MockSink{}
	broadcaster := &MockBroadcaster{}
	bus := events.NewBus()

	s := NewSession(Config{
		RoomID:              "room-1",
		GameNumber:          1,
		CardSelectionWindow: 10 * time.Second,
		MVPSelectionWindow:  5 * time.Second,
		RevealWindow:        time.Second,
		AIMoveBudget:        100 * time.Millisecond,
		Seed:                1,
	}, seats, Deps{
		Store:       store,
		Engine:      scoring.NewEngine(store, matrix),
		Sink:        sink,
		Bus:         bus,
		Broadcaster: broadcaster,
		Clock:       clock.Now,
	})
	return &harness{session: s, clock: clock, sink: sink, broadcaster: broadcaster, bus: bus}
}

// drive ticks the session with generous clock advances until it finishes or
// the step budget runs out.
func (h *harness) drive(maxSteps int) {
	for i := 0; i < maxSteps && !h.session.Finished(); i++ {
		h.clock.Advance(2 * time.Second)
		h.session.OnTick()
	}
}

// chooseSuites moves a humans-only session out of the C-Suite phase.
func (h *harness) chooseSuites(t *testing.T, suites map[string]catalog.CSuite) {
	t.Helper()
	for pid, suite := range suites {
		if err := h.session.HandleAction(pid, ChooseSuiteAction{Suite: suite}); err != nil {
			t.Fatalf("choosing suite for %s: %v", pid, err)
		}
	}
	h.session.OnTick()
	if got := h.session.CurrentPhaseID(); got != PhaseCardSelection {
		t.Fatalf("phase after suite choice = %s, want %s", got, PhaseCardSelection)
	}
}

// finishRound submits the remaining plays, rides through reveal, and answers
// the MVP prompt with the given nominations ("" = pass).
func (h *harness) finishRound(t *testing.T, plays map[string]SubmitPlayAction, nominations map[string]string) {
	t.Helper()
	for pid, play := range plays {
		if err := h.session.HandleAction(pid, play); err != nil {
			t.Fatalf("submitting play for %s: %v", pid, err)
		}
	}
	h.session.OnTick() // locks -> scores -> reveal
	if h.session.Finished() {
		return
	}
	h.clock.Advance(2 * time.Second) // past the reveal window
	h.session.OnTick()               // reveal -> mvp (or round complete on round 5)
	if h.session.CurrentPhaseID() != PhaseMVPSelection {
		return
	}
	for pid, cardID := range nominations {
		if err := h.session.HandleAction(pid, NominateMVPAction{RoleCardID: cardID}); err != nil {
			t.Fatalf("nominating for %s: %v", pid, err)
		}
	}
	h.session.OnTick() // mvp -> round complete -> next round
}

// --- tests ---

func TestSessionStartEntersCSuitePhase(t *testing.T) {
	h := newHarness(t, []*Participant{newSeat("p1", KindHuman), newSeat("p2", KindHuman)})
	h.session.Start()

	if got := h.session.Status(); got != StatusActive {
		t.Fatalf("status = %s, want active", got)
	}
	if got := h.session.CurrentPhaseID(); got != PhaseAwaitingCSuite {
		t.Fatalf("phase = %s, want %s", got, PhaseAwaitingCSuite)
	}
	if got := h.session.CurrentRound(); got != 1 {
		t.Fatalf("round = %d, want 1", got)
	}
}

func TestFullAIGameCompletes(t *testing.T) {
	seats := []*Participant{newSeat("ai-1", KindAI), newSeat("ai-2", KindAI), newSeat("ai-3", KindAI)}
	h := newHarness(t, seats)
	finished := false
	h.session.onFinished = func(*Session) { finished = true }

	h.session.Start()
	h.drive(200)

	if got := h.session.Status(); got != StatusCompleted {
		t.Fatalf("status = %s, want completed (phase %s, round %d)",
			got, h.session.CurrentPhaseID(), h.session.CurrentRound())
	}
	if !finished {
		t.Error("OnFinished callback never ran")
	}

	if len(h.sink.roundBatches) != RoundsPerGame {
		t.Fatalf("persisted %d round batches, want %d", len(h.sink.roundBatches), RoundsPerGame)
	}
	for i, batch := range h.sink.roundBatches {
		if len(batch) != len(seats) {
			t.Errorf("round %d batch has %d plays, want %d", i+1, len(batch), len(seats))
		}
	}

	if len(h.sink.sessions) != 1 {
		t.Fatalf("persisted %d session records, want 1", len(h.sink.sessions))
	}
	rec := h.sink.sessions[0]
	if rec.Status != string(StatusCompleted) {
		t.Fatalf("record status = %s, want completed", rec.Status)
	}

	// Totals equal the sum of round scores, ranks are 1..N, exactly one winner.
	winners := 0
	seenRanks := make(map[int]bool)
	for _, res := range rec.Results {
		sum := 0
		for _, s := range res.RoundScores {
			sum += s
		}
		if sum != res.TotalScore {
			t.Errorf("%s: total %d != sum of rounds %d", res.ParticipantID, res.TotalScore, sum)
		}
		if res.Rank < 1 || res.Rank > len(seats) || seenRanks[res.Rank] {
			t.Errorf("%s: bad or duplicate rank %d", res.ParticipantID, res.Rank)
		}
		seenRanks[res.Rank] = true
		if res.IsWinner {
			winners++
			if res.Rank != 1 {
				t.Errorf("winner %s has rank %d", res.ParticipantID, res.Rank)
			}
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}

	// Results arrive rank-sorted.
	for i := 1; i < len(rec.Results); i++ {
		if rec.Results[i-1].Rank > rec.Results[i].Rank {
			t.Errorf("results not sorted by rank at %d", i)
		}
	}
}

func TestActionsRejectedByPhaseAndSeat(t *testing.T) {
	h := newHarness(t, []*Participant{newSeat("p1", KindHuman), newSeat("p2", KindHuman)})
	h.session.Start()

	if err := h.session.HandleAction("ghost", ChooseSuiteAction{Suite: catalog.SuiteCEO}); err != ErrNotSeated {
		t.Errorf("unseated actor: err = %v, want ErrNotSeated", err)
	}
	if err := h.session.HandleAction("p1", SubmitPlayAction{RoleCardID: "role-01"}); err != ErrWrongPhase {
		t.Errorf("play during suite choice: err = %v, want ErrWrongPhase", err)
	}
	if err := h.session.HandleAction("p1", ChooseSuiteAction{Suite: "CXO"}); err != ErrInvalidSuite {
		t.Errorf("invalid suite: err = %v, want ErrInvalidSuite", err)
	}
	if err := h.session.HandleAction("p1", "bogus"); err != ErrUnknownAction {
		t.Errorf("unknown action: err = %v, want ErrUnknownAction", err)
	}
}

func TestFirstSuiteChoiceWins(t *testing.T) {
	h := newHarness(t, []*Participant{newSeat("p1", KindHuman), newSeat("p2", KindHuman)})
	h.session.Start()

	if err := h.session.HandleAction("p1", ChooseSuiteAction{Suite: catalog.SuiteCFO}); err != nil {
		t.Fatalf("first choice: %v", err)
	}
	if err := h.session.HandleAction("p1", ChooseSuiteAction{Suite: catalog.SuiteCMO}); err != nil {
		t.Fatalf("duplicate choice should be a no-op, got %v", err)
	}
	if got := h.session.participants["p1"].HomeSuite; got != catalog.SuiteCFO {
		t.Errorf("HomeSuite = %s, want the first choice CFO", got)
	}
}

func TestDuplicatePlaySubmissionIsNoOp(t *testing.T) {
	h := newHarness(t, []*Participant{newSeat("p1", KindHuman), newSeat("p2", KindHuman)})
	h.session.Start()
	h.chooseSuites(t, map[string]catalog.CSuite{"p1": catalog.SuiteCEO, "p2": catalog.SuiteCFO})

	if err := h.session.HandleAction("p1", SubmitPlayAction{RoleCardID: "role-01"}); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	if err := h.session.HandleAction("p1", SubmitPlayAction{RoleCardID: "role-02"}); err != nil {
		t.Fatalf("retry should be accepted as a no-op, got %v", err)
	}

	h.finishRound(t, map[string]SubmitPlayAction{"p2": {RoleCardID: "role-01"}}, nil)

	batch := h.sink.roundBatches[0]
	for _, rec := range batch {
		if rec.ParticipantID == "p1" && rec.RoleCardID != "role-01" {
			t.Errorf("locked play = %s, want the first submission role-01", rec.RoleCardID)
		}
	}
	// The second card was never consumed.
	if !h.session.participants["p1"].hasRoleCard("role-02") {
		t.Error("role-02 should still be in hand after the ignored retry")
	}
}

func TestTimeoutLocksDefaultPlay(t *testing.T) {
	h := newHarness(t, []*Participant{newSeat("p1", KindHuman), newSeat("p2", KindHuman)})
	h.session.Start()
	h.chooseSuites(t, map[string]catalog.CSuite{"p1": catalog.SuiteCEO, "p2": catalog.SuiteCFO})

	if err := h.session.HandleAction("p1", SubmitPlayAction{RoleCardID: "role-03", SynergyCardID: "syn-1"}); err != nil {
		t.Fatalf("submitting play: %v", err)
	}

	// p2 never answers; the window elapses.
	h.clock.Advance(11 * time.Second)
	h.session.OnTick()

	if len(h.sink.roundBatches) != 1 {
		t.Fatalf("round was not scored after the deadline")
	}
	var p2rec *models.RoundPlayRecord
	for i := range h.sink.roundBatches[0] {
		if h.sink.roundBatches[0][i].ParticipantID == "p2" {
			p2rec = &h.sink.roundBatches[0][i]
		}
	}
	if p2rec == nil {
		t.Fatal("p2 has no round record")
	}
	if !p2rec.Defaulted {
		t.Error("timed-out play should be flagged as defaulted")
	}
	if p2rec.RoleCardID != "role-01" {
		t.Errorf("default play = %s, want the first role card in hand", p2rec.RoleCardID)
	}
	if p2rec.SynergyCardID != "" || p2rec.Special != models.SpecialNone {
		t.Error("default play must not spend a synergy or special card")
	}
}

func TestGoldenIsSingleUse(t *testing.T) {
	h := newHarness(t, []*Participant{newSeat("p1", KindHuman), newSeat("p2", KindHuman)})
	h.session.Start()
	h.chooseSuites(t, map[string]catalog.CSuite{"p1": catalog.SuiteCEO, "p2": catalog.SuiteCFO})

	h.finishRound(t, map[string]SubmitPlayAction{
		"p1": {RoleCardID: "role-01", Special: models.SpecialGolden},
		"p2": {RoleCardID: "role-01"},
	}, map[string]string{"p1": "", "p2": ""})

	if got := h.session.CurrentRound(); got != 2 {
		t.Fatalf("round = %d, want 2", got)
	}
	// Golden scored the cap in round 1.
	for _, rec := range h.sink.roundBatches[0] {
		if rec.ParticipantID == "p1" && rec.FinalScore != scoring.MaxFinalScore {
			t.Errorf("golden round score = %d, want %d", rec.FinalScore, scoring.MaxFinalScore)
		}
	}

	err := h.session.HandleAction("p1", SubmitPlayAction{RoleCardID: "role-02", Special: models.SpecialGolden})
	if err != scoring.ErrGoldenSpent {
		t.Fatalf("second golden: err = %v, want ErrGoldenSpent", err)
	}
}

func TestMVPNominationAndReplay(t *testing.T) {
	h := newHarness(t, []*Participant{newSeat("p1", KindHuman), newSeat("p2", KindHuman)})
	h.session.Start()
	h.chooseSuites(t, map[string]catalog.CSuite{"p1": catalog.SuiteCEO, "p2": catalog.SuiteCFO})

	// Round 1: play, then nominate the played card.
	for pid, play := range map[string]SubmitPlayAction{
		"p1": {RoleCardID: "role-01"},
		"p2": {RoleCardID: "role-02"},
	} {
		if err := h.session.HandleAction(pid, play); err != nil {
			t.Fatalf("submitting play for %s: %v", pid, err)
		}
	}
	h.session.OnTick()
	h.clock.Advance(2 * time.Second)
	h.session.OnTick()
	if got := h.session.CurrentPhaseID(); got != PhaseMVPSelection {
		t.Fatalf("phase = %s, want %s", got, PhaseMVPSelection)
	}

	// Nominating a card that was not played this round is rejected.
	if err := h.session.HandleAction("p1", NominateMVPAction{RoleCardID: "role-05"}); err != ErrInvalidNomination {
		t.Fatalf("foreign nomination: err = %v, want ErrInvalidNomination", err)
	}
	if err := h.session.HandleAction("p1", NominateMVPAction{RoleCardID: "role-01"}); err != nil {
		t.Fatalf("nominating the played card: %v", err)
	}
	if err := h.session.HandleAction("p2", NominateMVPAction{}); err != nil {
		t.Fatalf("passing: %v", err)
	}
	h.session.OnTick()

	if got := h.session.CurrentRound(); got != 2 {
		t.Fatalf("round = %d, want 2", got)
	}
	if got := h.session.participants["p1"].MVPCardID; got != "role-01" {
		t.Fatalf("stored MVP = %q, want role-01", got)
	}

	// Round 2: p1 plays the MVP card from slot 3.
	if err := h.session.HandleAction("p1", SubmitPlayAction{Special: models.SpecialMVP}); err != nil {
		t.Fatalf("MVP play: %v", err)
	}
	if got := h.session.participants["p1"].MVPCardID; got != "" {
		t.Error("MVP card should be consumed at lock time")
	}

	h.finishRound(t, map[string]SubmitPlayAction{"p2": {RoleCardID: "role-03"}}, map[string]string{"p1": "", "p2": ""})

	// role-01 is CFO-org (index 1); p1's home is CEO, adjacent: 40 * 1.5 = 60.
	for _, rec := range h.sink.roundBatches[1] {
		if rec.ParticipantID != "p1" {
			continue
		}
		if rec.Special != models.SpecialMVP {
			t.Errorf("round 2 special = %q, want mvp", rec.Special)
		}
		if rec.FinalScore != 60 {
			t.Errorf("MVP replay score = %d, want 60", rec.FinalScore)
		}
	}
}

func TestMVPWithoutStoredCardRejected(t *testing.T) {
	h := newHarness(t, []*Participant{newSeat("p1", KindHuman), newSeat("p2", KindHuman)})
	h.session.Start()
	h.chooseSuites(t, map[string]catalog.CSuite{"p1": catalog.SuiteCEO, "p2": catalog.SuiteCFO})

	if err := h.session.HandleAction("p1", SubmitPlayAction{Special: models.SpecialMVP}); err != scoring.ErrNoMVP {
		t.Fatalf("MVP play without a stored card: err = %v, want ErrNoMVP", err)
	}
}

func TestDisconnectCancelsAfterScoring(t *testing.T) {
	h := newHarness(t, []*Participant{newSeat("p1", KindHuman), newSeat("p2", KindHuman)})
	h.session.Start()
	h.chooseSuites(t, map[string]catalog.CSuite{"p1": catalog.SuiteCEO, "p2": catalog.SuiteCFO})

	h.session.MarkDisconnected("p2")
	if h.session.Finished() {
		t.Fatal("cancellation must wait for the in-flight round to score")
	}

	if err := h.session.HandleAction("p1", SubmitPlayAction{RoleCardID: "role-01"}); err != nil {
		t.Fatalf("submitting play: %v", err)
	}
	h.clock.Advance(11 * time.Second)
	h.session.OnTick()

	if got := h.session.Status(); got != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got)
	}
	// The scored round was still persisted before cancellation.
	if len(h.sink.roundBatches) != 1 {
		t.Fatalf("round batches = %d, want 1", len(h.sink.roundBatches))
	}
	if len(h.sink.sessions) != 1 || h.sink.sessions[0].Status != string(StatusCancelled) {
		t.Fatal("cancelled session record not persisted")
	}
	for _, res := range h.sink.sessions[0].Results {
		if res.Rank != 0 || res.IsWinner {
			t.Errorf("%s: cancelled games must not assign ranks or winners", res.ParticipantID)
		}
	}

	if err := h.session.HandleAction("p1", SubmitPlayAction{RoleCardID: "role-02"}); err != ErrSessionOver {
		t.Errorf("action after cancel: err = %v, want ErrSessionOver", err)
	}
}

func TestCardNotInHandRejected(t *testing.T) {
	h := newHarness(t, []*Participant{newSeat("p1", KindHuman), newSeat("p2", KindHuman)})
	h.session.Start()
	h.chooseSuites(t, map[string]catalog.CSuite{"p1": catalog.SuiteCEO, "p2": catalog.SuiteCFO})

	if err := h.session.HandleAction("p1", SubmitPlayAction{RoleCardID: "role-11"}); err != ErrCardNotInHand {
		t.Errorf("foreign role card: err = %v, want ErrCardNotInHand", err)
	}
	if err := h.session.HandleAction("p1", SubmitPlayAction{RoleCardID: "role-01", SynergyCardID: "syn-9"}); err != ErrCardNotInHand {
		t.Errorf("foreign synergy card: err = %v, want ErrCardNotInHand", err)
	}
}
