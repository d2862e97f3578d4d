// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/careerplay/ccm/network"
)

// Session is one connected client. ParticipantID and RoomID are set once the
// client joins a room queue; until then they are empty.
type Session struct {
	ID            string
	Conn          network.Connection
	ParticipantID string
	RoomID        string
	Name          string
	Data          map[string]interface{}
	CreatedAt     time.Time
	LastActive    time.Time
	mutex         sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
		Data:       make(map[string]interface{}),
	}
}

func (s *Session) Set(key string, value interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Data[key] = value
}

func (s *Session) Get(key string) interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Data[key]
}

// Bind associates the session with a seated participant in a room.
func (s *Session) Bind(participantID, roomID, name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.ParticipantID = participantID
	s.RoomID = roomID
	s.Name = name
}

// Unbind clears the room association, keeping the connection alive.
func (s *Session) Unbind() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.ParticipantID = ""
	s.RoomID = ""
}

// Binding returns the current participant and room association.
func (s *Session) Binding() (participantID, roomID string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.ParticipantID, s.RoomID
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.LastActive = time.Now()
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager tracks live sessions and answers lookups by session, participant,
// and room.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// GetByParticipantID returns every session bound to the participant. More
// than one means the player reconnected without the old socket dying yet.
func (m *Manager) GetByParticipantID(participantID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if pid, _ := session.Binding(); pid == participantID {
			result = append(result, session)
		}
	}
	return result
}

// All returns a snapshot of every live session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// GetByRoomID returns every session bound to the room.
func (m *Manager) GetByRoomID(roomID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if _, rid := session.Binding(); rid == roomID {
			result = append(result, session)
		}
	}
	return result
}
