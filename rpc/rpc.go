// rpc/rpc.go
package rpc

import (
	"context"
	"net"
	"net/rpc"
	"time"

	"github.com/careerplay/ccm/logger"
	"github.com/careerplay/ccm/models"
	"github.com/careerplay/ccm/room"
	"github.com/careerplay/ccm/services"
)

const queryTimeout = 10 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered by the caller
// before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// CCMService exposes the admin/operator surface over net/rpc: room
// inspection and results queries. All methods follow the net/rpc signature
// convention.
type CCMService struct {
	rooms   *room.Manager
	results *services.ResultsService
}

func NewCCMService(rooms *room.Manager, results *services.ResultsService) *CCMService {
	return &CCMService{rooms: rooms, results: results}
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	Rooms []models.RoomStatus
}

func (s *CCMService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	reply.Rooms = s.rooms.Snapshots()
	return nil
}

type RoomStatusArgs struct {
	RoomID string
}

type RoomStatusReply struct {
	Room models.RoomStatus
}

func (s *CCMService) RoomStatus(args *RoomStatusArgs, reply *RoomStatusReply) error {
	r, ok := s.rooms.GetRoom(args.RoomID)
	if !ok {
		return room.ErrRoomNotFound
	}
	reply.Room = r.Snapshot()
	return nil
}

type LeaderboardArgs struct {
	RoomID string
	Limit  int
}

type LeaderboardReply struct {
	Entries []models.LeaderboardEntry
}

func (s *CCMService) Leaderboard(args *LeaderboardArgs, reply *LeaderboardReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	entries, err := s.results.Leaderboard(ctx, args.RoomID, args.Limit)
	if err != nil {
		return err
	}
	reply.Entries = entries
	return nil
}

type RecentGamesArgs struct {
	RoomID string
	Limit  int
}

type RecentGamesReply struct {
	Games []models.GameSessionRecord
}

func (s *CCMService) RecentGames(args *RecentGamesArgs, reply *RecentGamesReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	games, err := s.results.RecentGames(ctx, args.RoomID, args.Limit)
	if err != nil {
		return err
	}
	reply.Games = games
	return nil
}

type ParticipantSummaryArgs struct {
	ParticipantID string
}

type ParticipantSummaryReply struct {
	Data map[string]interface{}
}

func (s *CCMService) ParticipantSummary(args *ParticipantSummaryArgs, reply *ParticipantSummaryReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	data, err := s.results.ParticipantSummary(ctx, args.ParticipantID)
	if err != nil {
		return err
	}
	reply.Data = data
	return nil
}
