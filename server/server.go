// server/server.go
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/careerplay/ccm/broadcast"
	"github.com/careerplay/ccm/catalog"
	"github.com/careerplay/ccm/game"
	"github.com/careerplay/ccm/logger"
	"github.com/careerplay/ccm/models"
	"github.com/careerplay/ccm/monitor"
	"github.com/careerplay/ccm/network"
	"github.com/careerplay/ccm/room"
	"github.com/careerplay/ccm/seats"
	"github.com/careerplay/ccm/session"
)

const heartbeatInterval = 30 * time.Second

// GameServer is the websocket gateway. It owns no game state: every
// participant action is forwarded to the room loop via Room.Submit.
type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	allocator      *seats.Allocator
	broadcaster    *broadcast.RoomBroadcaster
	monitor        *monitor.Monitor
	httpServer     *http.Server
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

func NewGameServer(addr string, roomManager *room.Manager, sessionManager *session.Manager, allocator *seats.Allocator, broadcaster *broadcast.RoomBroadcaster, mon *monitor.Monitor) *GameServer {
	return &GameServer{
		addr:           addr,
		roomManager:    roomManager,
		sessionManager: sessionManager,
		allocator:      allocator,
		broadcaster:    broadcaster,
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *GameServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	logger.Log.Infof("game server listening on %s", s.addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *GameServer) Shutdown() {
	s.shutdownOnce.Do(func() {
		// Tell connected clients before the sockets go away.
		if s.broadcaster != nil {
			if data, err := json.Marshal(map[string]string{"reason": "server shutting down"}); err == nil {
				s.broadcaster.BroadcastToAll(network.MsgTypeServerNotice, data)
			}
		}
		close(s.shutdownChan)
		if s.httpServer != nil {
			s.httpServer.Close()
		}
	})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(heartbeatInterval)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	if s.monitor != nil {
		s.monitor.IncOnlinePlayers()
	}

	logger.Log.Infof("new connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.handleDisconnect(sess)
		s.sessionManager.Remove(sess.GetID())
		if s.monitor != nil {
			s.monitor.DecOnlinePlayers()
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// handleDisconnect releases whatever the session held: a queue slot if the
// player was still waiting, or a seat notification if they were mid-game.
func (s *GameServer) handleDisconnect(sess *session.Session) {
	participantID, roomID := sess.Binding()
	if participantID == "" {
		return
	}
	s.allocator.Remove(roomID, participantID)
	if r, ok := s.roomManager.GetRoom(roomID); ok {
		r.NotifyDisconnect(participantID)
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	defer func() {
		if s.monitor != nil {
			s.monitor.ObserveMessageLatency(time.Since(start))
		}
	}()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.LastActive = time.Now()
	case network.MsgTypeJoinQueue:
		s.handleJoinQueue(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(sess)
	case network.MsgTypeChooseSuite:
		s.handleChooseSuite(sess, packet)
	case network.MsgTypeSubmitPlay:
		s.handleSubmitPlay(sess, packet)
	case network.MsgTypeNominateMVP:
		s.handleNominateMVP(sess, packet)
	default:
		logger.Log.Infof("unknown message type %d from session %s", packet.MsgID, sess.GetID())
		s.sendError(sess, "unknown message type")
	}
}

type joinQueueRequest struct {
	RoomID        string `json:"room_id"`
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
}

func (s *GameServer) handleJoinQueue(sess *session.Session, packet *network.Packet) {
	var req joinQueueRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "malformed join request")
		return
	}
	if req.RoomID == "" || req.ParticipantID == "" {
		s.sendError(sess, "room_id and participant_id are required")
		return
	}

	r, ok := s.roomManager.GetRoom(req.RoomID)
	if !ok {
		s.sendError(sess, "room not found")
		return
	}

	if req.Name == "" {
		req.Name = req.ParticipantID
	}
	s.allocator.Enqueue(req.RoomID, seats.QueuedPlayer{ID: req.ParticipantID, Name: req.Name})
	sess.Bind(req.ParticipantID, req.RoomID, req.Name)

	logger.Log.Infof("participant %s queued for room %s", req.ParticipantID, req.RoomID)

	ack := map[string]interface{}{
		"room_id":  req.RoomID,
		"position": s.allocator.QueueLen(req.RoomID),
		"room":     r.Snapshot(),
	}
	if data, err := json.Marshal(ack); err == nil {
		sess.Send(network.MsgTypeQueueAck, data)
	}
}

func (s *GameServer) handleLeaveRoom(sess *session.Session) {
	participantID, roomID := sess.Binding()
	if participantID == "" {
		return
	}
	s.allocator.Remove(roomID, participantID)
	if r, ok := s.roomManager.GetRoom(roomID); ok {
		r.NotifyDisconnect(participantID)
	}
	sess.Unbind()
	logger.Log.Infof("participant %s left room %s", participantID, roomID)
}

func (s *GameServer) handleChooseSuite(sess *session.Session, packet *network.Packet) {
	var req struct {
		Suite string `json:"suite"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "malformed suite choice")
		return
	}
	s.submit(sess, game.ChooseSuiteAction{Suite: catalog.CSuite(req.Suite)})
}

func (s *GameServer) handleSubmitPlay(sess *session.Session, packet *network.Packet) {
	var req struct {
		RoleCardID    string `json:"role_card_id"`
		SynergyCardID string `json:"synergy_card_id"`
		Special       string `json:"special"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "malformed play")
		return
	}
	if s.monitor != nil {
		s.monitor.IncSubmissionsReceived()
	}
	s.submit(sess, game.SubmitPlayAction{
		RoleCardID:    req.RoleCardID,
		SynergyCardID: req.SynergyCardID,
		Special:       models.SpecialCard(req.Special),
	})
}

func (s *GameServer) handleNominateMVP(sess *session.Session, packet *network.Packet) {
	var req struct {
		RoleCardID string `json:"role_card_id"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "malformed nomination")
		return
	}
	s.submit(sess, game.NominateMVPAction{RoleCardID: req.RoleCardID})
}

// submit routes an action to the session's room and reflects the room's
// verdict back to the client.
func (s *GameServer) submit(sess *session.Session, action interface{}) {
	participantID, roomID := sess.Binding()
	if participantID == "" {
		s.sendError(sess, "not in a room")
		return
	}
	r, ok := s.roomManager.GetRoom(roomID)
	if !ok {
		s.sendError(sess, "room not found")
		return
	}
	if err := r.Submit(participantID, action); err != nil {
		s.sendError(sess, err.Error())
	}
}

func (s *GameServer) sendError(sess *session.Session, msg string) {
	data, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return
	}
	sess.Send(network.MsgTypeError, data)
}
