// broadcast/broadcast.go
package broadcast

import (
	"github.com/careerplay/ccm/session"
)

// RoomBroadcaster fans frames out over live websocket sessions. Rooms with
// only AI seats have no recipients; that is a successful no-op, not an error,
// so a bot-only game keeps cycling without a single connected human.
type RoomBroadcaster struct {
	sessionManager *session.Manager
}

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{sessionManager: sessionManager}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.GetByRoomID(roomID) {
		if err := s.Send(msgID, data); err != nil {
			// A dead socket is reaped by its reader loop; skip it here.
			continue
		}
	}
	return nil
}

func (b *RoomBroadcaster) SendToParticipant(participantID string, msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.GetByParticipantID(participantID) {
		if err := s.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}

func (b *RoomBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.All() {
		if err := s.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}
