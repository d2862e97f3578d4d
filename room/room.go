// room/room.go
//
// A perpetual room cycles continuously between an active game session and a
// timed intermission. Each room runs one loop goroutine that owns all of the
// room's mutable state; participant submissions and timer callbacks are
// funneled into that loop through a command channel, so rounds have a single
// writer and rooms share nothing.
package room

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/careerplay/ccm/ai"
	"github.com/careerplay/ccm/catalog"
	"github.com/careerplay/ccm/dealer"
	"github.com/careerplay/ccm/events"
	"github.com/careerplay/ccm/game"
	"github.com/careerplay/ccm/logger"
	"github.com/careerplay/ccm/models"
	"github.com/careerplay/ccm/network"
	"github.com/careerplay/ccm/scoring"
	"github.com/careerplay/ccm/seats"
	"github.com/careerplay/ccm/timer"
)

// Status is the room lifecycle state. A room always has exactly one.
type Status string

const (
	StatusActive       Status = "active"
	StatusIntermission Status = "intermission"
)

// Capacity bounds fixed by the game design.
const (
	MinCapacity = 2
	MaxCapacity = 8
)

// Catalog-failure retry backoff bounds.
const (
	retryBackoffBase = 5 * time.Second
	retryBackoffCap  = 2 * time.Minute
)

const tickInterval = 100 * time.Millisecond

var (
	ErrRoomClosed   = errors.New("room is closed")
	ErrNoActiveGame = errors.New("room has no active game session")
	ErrRoomNotFound = errors.New("room not found")
)

// Config is a room's standing configuration, fixed for the process lifetime.
type Config struct {
	ID            string
	Name          string
	Capacity      int
	GradeBand     string
	CardSelection time.Duration
	MVPSelection  time.Duration
	Reveal        time.Duration
	Intermission  time.Duration
	SeatGrace     time.Duration
	AIMoveBudget  time.Duration
	AIFillEnabled bool
	AIDifficulty  ai.Difficulty
}

// Deps are the room's collaborators, shared across all rooms.
type Deps struct {
	Store       *catalog.Store
	Engine      *scoring.Engine
	Dealer      *dealer.Dealer
	Allocator   *seats.Allocator
	Sink        game.Sink
	Bus         *events.Bus
	Broadcaster Broadcaster
	Timers      *timer.Manager
	// Clock defaults to time.Now; tests inject a fake.
	Clock func() time.Time
}

// Broadcaster is the transport the room and its sessions push through. The
// per-participant path carries private payloads such as dealt hands.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
	SendToParticipant(participantID string, msgID uint16, data []byte) error
}

// Room is one perpetual room.
type Room struct {
	cfg  Config
	deps Deps

	status     Status
	gameNumber int
	session    *game.Session
	backoff    time.Duration

	commands  chan func()
	ticker    *time.Ticker
	closeChan chan struct{}
	closeOnce sync.Once
}

// NewRoom starts the room's loop and schedules its first game after the seat
// grace period. Capacity is clamped into the legal band.
func NewRoom(cfg Config, deps Deps) *Room {
	if cfg.Capacity < MinCapacity {
		logger.Log.Warnf("room %s: capacity %d below minimum, using %d", cfg.ID, cfg.Capacity, MinCapacity)
		cfg.Capacity = MinCapacity
	}
	if cfg.Capacity > MaxCapacity {
		logger.Log.Warnf("room %s: capacity %d above maximum, using %d", cfg.ID, cfg.Capacity, MaxCapacity)
		cfg.Capacity = MaxCapacity
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	r := &Room{
		cfg:       cfg,
		deps:      deps,
		status:    StatusIntermission,
		commands:  make(chan func(), 256),
		ticker:    time.NewTicker(tickInterval),
		closeChan: make(chan struct{}),
	}
	go r.loop()

	deps.Timers.Schedule(cfg.SeatGrace, 0, func() { r.enqueue(r.startGame) })
	return r
}

func (r *Room) ID() string   { return r.cfg.ID }
func (r *Room) Name() string { return r.cfg.Name }

// loop is the room's single writer.
func (r *Room) loop() {
	for {
		select {
		case <-r.ticker.C:
			if r.session != nil && !r.session.Finished() {
				r.session.OnTick()
			}
		case fn := <-r.commands:
			fn()
		case <-r.closeChan:
			r.ticker.Stop()
			return
		}
	}
}

// enqueue hands work to the loop goroutine; dropped once the room closes.
func (r *Room) enqueue(fn func()) {
	select {
	case r.commands <- fn:
	case <-r.closeChan:
	}
}

// Submit routes a participant action into the active session. Safe to call
// from any goroutine; the action executes on the room loop.
func (r *Room) Submit(participantID string, action interface{}) error {
	reply := make(chan error, 1)
	select {
	case r.commands <- func() {
		if r.session == nil || r.session.Finished() {
			reply <- ErrNoActiveGame
			return
		}
		reply <- r.session.HandleAction(participantID, action)
	}:
	case <-r.closeChan:
		return ErrRoomClosed
	}

	select {
	case err := <-reply:
		return err
	case <-r.closeChan:
		return ErrRoomClosed
	}
}

// NotifyDisconnect flags a seated human as gone. Queued players are handled
// by the allocator, not the room.
func (r *Room) NotifyDisconnect(participantID string) {
	r.enqueue(func() {
		if r.session != nil && !r.session.Finished() {
			r.session.MarkDisconnected(participantID)
		}
	})
}

// Snapshot returns the lobby-facing view of the room.
func (r *Room) Snapshot() models.RoomStatus {
	reply := make(chan models.RoomStatus, 1)
	select {
	case r.commands <- func() { reply <- r.snapshotLocked() }:
	case <-r.closeChan:
		return models.RoomStatus{RoomID: r.cfg.ID, Name: r.cfg.Name}
	}

	select {
	case s := <-reply:
		return s
	case <-r.closeChan:
		return models.RoomStatus{RoomID: r.cfg.ID, Name: r.cfg.Name}
	}
}

// snapshotLocked must run on the loop goroutine.
func (r *Room) snapshotLocked() models.RoomStatus {
	s := models.RoomStatus{
		RoomID:     r.cfg.ID,
		Name:       r.cfg.Name,
		Status:     string(r.status),
		GameNumber: r.gameNumber,
		Capacity:   r.cfg.Capacity,
	}
	if r.session != nil && !r.session.Finished() {
		s.Round = r.session.CurrentRound()
		s.Seated = len(r.session.Participants())
	} else {
		s.Seated = r.deps.Allocator.QueueLen(r.cfg.ID)
	}
	return s
}

// Close stops the room loop. Used at process shutdown only; perpetual rooms
// are never removed during normal operation.
func (r *Room) Close() {
	r.closeOnce.Do(func() { close(r.closeChan) })
}

// startGame transitions intermission -> active. Runs on the loop goroutine.
func (r *Room) startGame() {
	if r.status == StatusActive {
		// A stale timer fired after a game already started; the one-active-
		// session-per-room invariant holds by ignoring it.
		return
	}

	filled := r.deps.Allocator.FillSeats(r.cfg.ID, r.cfg.Capacity, r.cfg.AIFillEnabled, r.cfg.AIDifficulty)
	if len(filled) < game.MinActiveParticipants {
		logger.Log.Infof("room %s: only %d seats filled, retrying after intermission", r.cfg.ID, len(filled))
		r.requeueSeats(filled)
		r.deps.Timers.Schedule(r.cfg.Intermission, 0, func() { r.enqueue(r.startGame) })
		return
	}

	ids := make([]string, 0, len(filled))
	for _, seat := range filled {
		ids = append(ids, seat.ID)
	}
	hands, err := r.deps.Dealer.DealHands(r.cfg.GradeBand, ids)
	if err != nil {
		r.requeueSeats(filled)
		if errors.Is(err, dealer.ErrInsufficientCatalog) {
			r.scheduleCatalogRetry(err)
			return
		}
		logger.Log.Errorf("room %s: dealing hands: %v", r.cfg.ID, err)
		r.deps.Timers.Schedule(r.cfg.Intermission, 0, func() { r.enqueue(r.startGame) })
		return
	}
	r.backoff = 0

	participants := make([]*game.Participant, 0, len(filled))
	for _, seat := range filled {
		hand := hands[seat.ID]
		p := &game.Participant{
			ID:              seat.ID,
			Name:            seat.Name,
			Kind:            game.KindAI,
			Profile:         seat.Profile,
			RoleHand:        hand.RoleCardIDs,
			SynergyHand:     hand.SynergyCardIDs,
			GoldenAvailable: hand.GoldenAvailable,
			Connected:       true,
		}
		if seat.Human {
			p.Kind = game.KindHuman
			r.sendHand(seat.ID, hand.RoleCardIDs, hand.SynergyCardIDs)
		}
		participants = append(participants, p)
	}

	r.gameNumber++
	r.session = game.NewSession(game.Config{
		RoomID:              r.cfg.ID,
		GameNumber:          r.gameNumber,
		GradeBand:           r.cfg.GradeBand,
		CardSelectionWindow: r.cfg.CardSelection,
		MVPSelectionWindow:  r.cfg.MVPSelection,
		RevealWindow:        r.cfg.Reveal,
		AIMoveBudget:        r.cfg.AIMoveBudget,
	}, participants, game.Deps{
		Store:       r.deps.Store,
		Engine:      r.deps.Engine,
		Sink:        r.deps.Sink,
		Bus:         r.deps.Bus,
		Broadcaster: r.deps.Broadcaster,
		Clock:       r.deps.Clock,
		OnFinished:  r.onSessionFinished,
	})

	r.status = StatusActive
	r.publishStatus()
	logger.Log.Infof("room %s: starting game %d with %d participants", r.cfg.ID, r.gameNumber, len(participants))
	r.session.Start()
}

// onSessionFinished runs on the loop goroutine via the session's terminal
// transition.
func (r *Room) onSessionFinished(s *game.Session) {
	r.status = StatusIntermission
	r.session = nil
	r.publishStatus()
	r.deps.Timers.Schedule(r.cfg.Intermission, 0, func() { r.enqueue(r.startGame) })
}

func (r *Room) scheduleCatalogRetry(err error) {
	if r.backoff == 0 {
		r.backoff = retryBackoffBase
	} else {
		r.backoff *= 2
		if r.backoff > retryBackoffCap {
			r.backoff = retryBackoffCap
		}
	}
	logger.Log.Errorf("room %s: %v; staying in intermission, retrying in %v", r.cfg.ID, err, r.backoff)
	r.deps.Timers.Schedule(r.backoff, 0, func() { r.enqueue(r.startGame) })
}

// requeueSeats puts admitted humans back at the head of the queue after a
// failed game start.
func (r *Room) requeueSeats(filled []seats.Seat) {
	for _, seat := range filled {
		if seat.Human {
			r.deps.Allocator.Enqueue(r.cfg.ID, seats.QueuedPlayer{ID: seat.ID, Name: seat.Name})
		}
	}
}

func (r *Room) sendHand(participantID string, roleIDs, synergyIDs []string) {
	payload, err := json.Marshal(map[string]interface{}{
		"room_id":          r.cfg.ID,
		"role_card_ids":    roleIDs,
		"synergy_card_ids": synergyIDs,
		"golden_available": true,
	})
	if err != nil {
		return
	}
	if err := r.deps.Broadcaster.SendToParticipant(participantID, network.MsgTypeHandDealt, payload); err != nil {
		logger.Log.Warnf("room %s: sending hand to %s: %v", r.cfg.ID, participantID, err)
	}
}

func (r *Room) publishStatus() {
	ev := events.New(events.TypeRoomStatusChanged, r.cfg.ID, "")
	snapshot := r.snapshotLocked()
	ev.RoomStatus = &snapshot
	r.deps.Bus.Publish(ev)

	if data, err := json.Marshal(snapshot); err == nil {
		r.deps.Broadcaster.BroadcastToRoom(r.cfg.ID, network.MsgTypeRoomStatus, data)
	}
}

// --- registry ---

// Manager owns every perpetual room for the process lifetime.
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{rooms: make(map[string]*Room)}
}

// CreateRoom registers and starts a perpetual room.
func (m *Manager) CreateRoom(cfg Config, deps Deps) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r := NewRoom(cfg, deps)
	m.rooms[cfg.ID] = r
	return r
}

func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, ok := m.rooms[id]
	return r, ok
}

// Snapshots returns the lobby view of every room.
func (m *Manager) Snapshots() []models.RoomStatus {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mutex.RUnlock()

	out := make([]models.RoomStatus, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Snapshot())
	}
	return out
}

// CloseAll stops every room loop at process shutdown.
func (m *Manager) CloseAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, r := range m.rooms {
		r.Close()
	}
}
