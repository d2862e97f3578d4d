// game/session.go
package game

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/careerplay/ccm/catalog"
	"github.com/careerplay/ccm/events"
	"github.com/careerplay/ccm/logger"
	"github.com/careerplay/ccm/models"
	"github.com/careerplay/ccm/network"
	"github.com/careerplay/ccm/scoring"
	"github.com/careerplay/ccm/state"
)

const (
	// RoundsPerGame is fixed by the game design.
	RoundsPerGame = 5

	// MinActiveParticipants below which a session cancels.
	MinActiveParticipants = 2

	persistTimeout = 5 * time.Second
)

// Status is the session lifecycle state.
type Status string

const (
	StatusForming   Status = "forming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Broadcaster pushes payloads to everyone watching a room. Defined here to
// keep the game package free of transport imports.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
}

// Sink receives finalized, append-only records.
type Sink interface {
	SaveRoundPlays(ctx context.Context, plays []models.RoundPlayRecord) error
	SaveGameSession(ctx context.Context, rec models.GameSessionRecord) error
}

// Config is the per-session slice of room configuration.
type Config struct {
	RoomID              string
	GameNumber          int
	GradeBand           string
	CardSelectionWindow time.Duration
	MVPSelectionWindow  time.Duration
	RevealWindow        time.Duration
	AIMoveBudget        time.Duration
	Seed                int64
}

// Deps are the session's collaborators, injected by the room.
type Deps struct {
	Store       *catalog.Store
	Engine      *scoring.Engine
	Sink        Sink
	Bus         *events.Bus
	Broadcaster Broadcaster
	// Clock defaults to time.Now; tests inject a fake.
	Clock func() time.Time
	// OnFinished runs on the room loop once the session reaches a terminal
	// status.
	OnFinished func(*Session)
}

// Session runs one 5-round game end to end. All methods must be called from
// the owning room's loop goroutine; the session holds no locks of its own.
type Session struct {
	ID  string
	cfg Config

	status       Status
	currentRound int
	participants map[string]*Participant
	order        []string

	machine        state.PhaseMachine
	round          *roundState
	usedChallenges map[string]bool
	suiteChosen    map[string]bool

	store       *catalog.Store
	engine      *scoring.Engine
	sink        Sink
	bus         *events.Bus
	broadcaster Broadcaster
	clock       func() time.Time
	onFinished  func(*Session)
	rng         *rand.Rand

	cancelRequested bool
	startedAt       time.Time
}

// NewSession seats the given participants. Participant hands must already be
// dealt.
func NewSession(cfg Config, seats []*Participant, deps Deps) *Session {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Session{
		ID:             uuid.New().String(),
		cfg:            cfg,
		status:         StatusForming,
		currentRound:   1,
		participants:   make(map[string]*Participant, len(seats)),
		usedChallenges: make(map[string]bool),
		suiteChosen:    make(map[string]bool),
		store:          deps.Store,
		engine:         deps.Engine,
		sink:           deps.Sink,
		bus:            deps.Bus,
		broadcaster:    deps.Broadcaster,
		clock:          clock,
		onFinished:     deps.OnFinished,
		rng:            rand.New(rand.NewSource(seed)),
	}
	for _, p := range seats {
		s.participants[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	return s
}

// Start enters round 1's C-Suite choice and announces the game.
func (s *Session) Start() {
	s.status = StatusActive
	s.startedAt = s.now()
	s.broadcast(network.MsgTypeGameStart, map[string]interface{}{
		"session_id":  s.ID,
		"room_id":     s.cfg.RoomID,
		"game_number": s.cfg.GameNumber,
		"rounds":      RoundsPerGame,
	})
	s.machine = state.NewBasePhaseMachine(newCSuitePhase(s))
}

// OnTick drives the current phase. Called at the room loop's cadence.
func (s *Session) OnTick() {
	if s.Finished() || s.machine == nil {
		return
	}
	s.machine.GetCurrentPhase().OnUpdate(s.now())
}

// HandleAction routes a participant action to the current phase.
func (s *Session) HandleAction(participantID string, action interface{}) error {
	if s.Finished() || s.machine == nil {
		return ErrSessionOver
	}
	participant, ok := s.participants[participantID]
	if !ok {
		return ErrNotSeated
	}
	switch action.(type) {
	case ChooseSuiteAction, SubmitPlayAction, NominateMVPAction:
		return s.machine.GetCurrentPhase().HandleAction(participant, action)
	default:
		return ErrUnknownAction
	}
}

// MarkDisconnected flags a human seat as gone. The session cancels
// cooperatively once active seats drop below the minimum: mid-scoring
// disconnects take effect after the round's scores are final.
func (s *Session) MarkDisconnected(participantID string) {
	participant, ok := s.participants[participantID]
	if !ok || participant.Kind != KindHuman {
		return
	}
	participant.Connected = false
	if s.activeCount() < MinActiveParticipants {
		s.cancelRequested = true
	}
}

// Status returns the lifecycle state.
func (s *Session) Status() Status { return s.status }

// Finished reports whether the session reached a terminal status.
func (s *Session) Finished() bool {
	return s.status == StatusCompleted || s.status == StatusCancelled
}

// CurrentRound returns the round in flight (1-based).
func (s *Session) CurrentRound() int { return s.currentRound }

// CurrentPhaseID exposes the phase for status snapshots and tests.
func (s *Session) CurrentPhaseID() string {
	if s.machine == nil {
		return ""
	}
	return s.machine.GetCurrentPhase().GetID()
}

// Participants returns the seats in join order.
func (s *Session) Participants() []*Participant {
	out := make([]*Participant, 0, len(s.order))
	for _, pid := range s.order {
		out = append(out, s.participants[pid])
	}
	return out
}

func (s *Session) now() time.Time { return s.clock() }

func (s *Session) changePhase(next state.Phase) {
	if err := s.machine.ChangePhase(next); err != nil {
		logger.Log.Errorf("session %s: phase change to %s failed: %v", s.ID, next.GetID(), err)
	}
}

func (s *Session) activeCount() int {
	n := 0
	for _, p := range s.participants {
		if p.Connected {
			n++
		}
	}
	return n
}

// completeGame sums scores, ranks participants, persists the final record,
// and notifies the room.
func (s *Session) completeGame() {
	for _, p := range s.participants {
		total := 0
		for _, score := range p.RoundScores {
			total += score
		}
		p.TotalScore = total
	}

	ranked := s.Participants()
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore > ranked[j].TotalScore
		}
		// Ties break by earliest final-round lock-in.
		return ranked[i].FinalLockAt.Before(ranked[j].FinalLockAt)
	})
	for i, p := range ranked {
		p.Rank = i + 1
		p.IsWinner = i == 0
	}

	s.status = StatusCompleted
	record := s.record(string(StatusCompleted))

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.sink.SaveGameSession(ctx, record); err != nil {
		logger.Log.Errorf("session %s: persisting final record: %v", s.ID, err)
	}

	ev := events.New(events.TypeGameCompleted, s.cfg.RoomID, s.ID)
	ev.GameCompleted = &events.GameCompletedPayload{Record: record}
	s.bus.Publish(ev)

	s.broadcast(network.MsgTypeGameEnd, record)
	logger.Log.Infof("session %s: game %d in room %s completed, winner %s",
		s.ID, s.cfg.GameNumber, s.cfg.RoomID, record.Results[0].ParticipantID)

	if s.onFinished != nil {
		s.onFinished(s)
	}
}

// cancelGame short-circuits the remaining rounds. Partial data is persisted
// for audit; ranks and winner flags are never assigned.
func (s *Session) cancelGame() {
	s.status = StatusCancelled
	record := s.record(string(StatusCancelled))

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.sink.SaveGameSession(ctx, record); err != nil {
		logger.Log.Errorf("session %s: persisting cancelled record: %v", s.ID, err)
	}

	ev := events.New(events.TypeGameCancelled, s.cfg.RoomID, s.ID)
	ev.GameCompleted = &events.GameCompletedPayload{Record: record}
	s.bus.Publish(ev)

	s.broadcast(network.MsgTypeGameEnd, record)
	logger.Log.Warnf("session %s: game %d in room %s cancelled with %d active seats",
		s.ID, s.cfg.GameNumber, s.cfg.RoomID, s.activeCount())

	if s.onFinished != nil {
		s.onFinished(s)
	}
}

func (s *Session) record(status string) models.GameSessionRecord {
	results := make([]models.ParticipantResult, 0, len(s.order))
	for _, p := range s.Participants() {
		results = append(results, models.ParticipantResult{
			ParticipantID: p.ID,
			Name:          p.Name,
			Kind:          string(p.Kind),
			HomeSuite:     string(p.HomeSuite),
			RoundScores:   p.RoundScores[:],
			TotalScore:    p.TotalScore,
			Rank:          p.Rank,
			IsWinner:      p.IsWinner,
		})
	}
	if status == string(StatusCompleted) {
		sort.Slice(results, func(i, j int) bool { return results[i].Rank < results[j].Rank })
	}
	return models.GameSessionRecord{
		SessionID:  s.ID,
		RoomID:     s.cfg.RoomID,
		GameNumber: s.cfg.GameNumber,
		Status:     status,
		Results:    results,
		StartedAt:  s.startedAt,
		FinishedAt: s.now(),
	}
}
