package state

import (
	"errors"
	"sync"
	"time"
)

// Actor is the minimal view of a participant a phase needs.
type Actor interface {
	GetID() string
}

// Phase is one timed stage of a round. Phases receive ticks from the owning
// room loop and typed actions from participants.
type Phase interface {
	OnEnter()
	OnExit()
	OnUpdate(now time.Time)
	GetID() string
	HandleAction(actor Actor, action interface{}) error
}

// PhaseMachine drives phase transitions with an optional transition table.
type PhaseMachine interface {
	ChangePhase(phase Phase) error
	GetCurrentPhase() Phase
	AddTransition(from Phase, to Phase, condition func() bool) error
}

// ErrTransitionNotAllowed is returned when a transition's condition fails.
var ErrTransitionNotAllowed = errors.New("phase transition not allowed")

// BasePhaseMachine is the default PhaseMachine. All transitions happen on the
// room loop goroutine; the mutex only protects snapshot reads from other
// goroutines. OnExit/OnEnter run outside the lock so a phase may chain into
// the next transition from its own OnEnter.
type BasePhaseMachine struct {
	currentPhase Phase
	transitions  map[string]map[string]func() bool // from -> to -> condition
	mutex        sync.RWMutex
}

func NewBasePhaseMachine(initial Phase) *BasePhaseMachine {
	m := &BasePhaseMachine{
		currentPhase: initial,
		transitions:  make(map[string]map[string]func() bool),
	}
	initial.OnEnter()
	return m
}

func (m *BasePhaseMachine) ChangePhase(next Phase) error {
	m.mutex.Lock()
	current := m.currentPhase
	if conditions, ok := m.transitions[current.GetID()]; ok {
		if condition, ok := conditions[next.GetID()]; ok {
			if condition != nil && !condition() {
				m.mutex.Unlock()
				return ErrTransitionNotAllowed
			}
		}
	}
	m.currentPhase = next
	m.mutex.Unlock()

	current.OnExit()
	next.OnEnter()
	return nil
}

func (m *BasePhaseMachine) GetCurrentPhase() Phase {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.currentPhase
}

func (m *BasePhaseMachine) AddTransition(from Phase, to Phase, condition func() bool) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	fromID := from.GetID()
	if _, ok := m.transitions[fromID]; !ok {
		m.transitions[fromID] = make(map[string]func() bool)
	}
	m.transitions[fromID][to.GetID()] = condition
	return nil
}

// PhaseBase provides default no-op implementations for embedding.
type PhaseBase struct {
	ID string
}

func (p *PhaseBase) GetID() string { return p.ID }

func (p *PhaseBase) OnEnter() {}

func (p *PhaseBase) OnExit() {}

func (p *PhaseBase) OnUpdate(now time.Time) {}

func (p *PhaseBase) HandleAction(actor Actor, action interface{}) error { return nil }
