package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/matryer/way"
	"github.com/wfunc/minesweeper/broadcast"
	"github.com/wfunc/minesweeper/config"
	"github.com/wfunc/minesweeper/logger"
	"github.com/wfunc/minesweeper/models"
	"github.com/wfunc/minesweeper/monitor"
	"github.com/wfunc/minesweeper/network"
	"github.com/wfunc/minesweeper/persistence"
	"github.com/wfunc/minesweeper/room"
	gamerpc "github.com/wfunc/minesweeper/rpc"
	"github.com/wfunc/minesweeper/services"
	"github.com/wfunc/minesweeper/session"
	"github.com/wfunc/minesweeper/state"
)

const (
	heartbeatInterval = 45 * time.Second
	recentGamesLimit  = 10
)

var (
	ErrUnknownPreset = errors.New("unknown preset")
	ErrNotInRoom     = errors.New("not in a room")
	ErrShuttingDown  = errors.New("server shutting down")
)

type GameServer struct {
	cfg            *config.Config
	router         *way.Router
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	stats          *services.StatsService
	monitor        *monitor.Monitor
	broadcaster    broadcast.Broadcaster
	rpcServer      *gamerpc.Server
	shutdownOnce   sync.Once
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, db persistence.Database) (*GameServer, error) {
	s := &GameServer{
		cfg:            cfg,
		roomManager:    room.NewRoomManager(),
		sessionManager: session.NewManager(),
		stats:          services.NewStatsService(db),
		monitor:        monitor.NewMonitor("minesweeper"),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器
	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)

	// 初始化RPC服务器
	rpcServer, err := gamerpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		return nil, fmt.Errorf("create RPC server: %w", err)
	}
	if err := rpcServer.Register(gamerpc.NewGameService(s.stats)); err != nil {
		rpcServer.Stop()
		return nil, fmt.Errorf("register RPC service: %w", err)
	}
	s.rpcServer = rpcServer

	s.routes()
	s.httpServer = &http.Server{Addr: cfg.Server.HTTPAddress, Handler: s.router}
	return s, nil
}

// Handler returns the HTTP router.
func (s *GameServer) Handler() http.Handler {
	return s.router
}

// RPCAddr is the address the RPC listener is bound to.
func (s *GameServer) RPCAddr() string {
	return s.rpcServer.Addr()
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()
	s.monitor.StartServer(s.cfg.Server.MetricsAddress)
	go s.reapLoop()

	logger.Log.Infof("Game server listening on %s", s.cfg.Server.HTTPAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *GameServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
	})
	s.rpcServer.Stop()

	notice, _ := json.Marshal(map[string]string{"error": ErrShuttingDown.Error()})
	s.broadcaster.BroadcastToAll(network.MsgTypeError, notice)

	// hijacked websocket connections are not closed by http.Server
	for _, sess := range s.sessionManager.All() {
		sess.Close()
	}
	if err := s.monitor.Shutdown(ctx); err != nil {
		logger.Log.Warnf("Metrics server shutdown: %v", err)
	}
	return s.httpServer.Shutdown(ctx)
}

// reapLoop 定期关闭空闲房间
func (s *GameServer) reapLoop() {
	interval := s.cfg.Server.ReapInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdownChan:
			return
		case <-ticker.C:
			s.reapIdleRooms()
		}
	}
}

func (s *GameServer) reapIdleRooms() {
	reaped := s.roomManager.ReapIdle(s.cfg.Server.IdleTimeout)
	for _, id := range reaped {
		logger.Log.Infof("Closed idle room %s", id)
	}
	s.monitor.SetActiveRooms(s.roomManager.Count())
}

// resolveSettings 解析 preset 名称或自定义尺寸
func (s *GameServer) resolveSettings(preset string, rows, cols, mines int) (state.Settings, error) {
	if rows == 0 && cols == 0 && mines == 0 {
		p, ok := s.cfg.Game.Preset(preset)
		if !ok {
			return state.Settings{}, fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
		}
		return state.Settings{Rows: p.Rows, Cols: p.Cols, Mines: p.Mines}, nil
	}
	if err := s.cfg.Game.CheckSize(rows, cols); err != nil {
		return state.Settings{}, err
	}
	return state.Settings{Rows: rows, Cols: cols, Mines: mines}, nil
}

// gameRecorder 记录结果并更新指标
type gameRecorder struct {
	stats   *services.StatsService
	monitor *monitor.Monitor
}

func (g gameRecorder) RecordGame(ctx context.Context, record *models.GameRecord) error {
	g.monitor.GameFinished(record.Outcome)
	return g.stats.RecordGame(ctx, record)
}

func (s *GameServer) roomOptions() room.Options {
	return room.Options{
		Resolver: s.resolveSettings,
		Recorder: gameRecorder{stats: s.stats, monitor: s.monitor},
	}
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(heartbeatInterval)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.leaveRoom(sess)
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
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

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.monitor.IncMessagesReceived()
	defer func() { s.monitor.ObserveMessageLatency(time.Since(start)) }()

	sess.Touch()
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Send(network.MsgTypeHeartbeat, nil)
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.leaveRoom(sess)
	case network.MsgTypePlayerAction:
		s.handleGameAction(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

// CreateRoomRequest 所有字段可选, 全部为空时使用默认 preset
type CreateRoomRequest struct {
	Player string `json:"player"`
	Preset string `json:"preset"`
	Rows   int    `json:"rows"`
	Cols   int    `json:"cols"`
	Mines  int    `json:"mines"`
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	var req CreateRoomRequest
	if len(packet.Data) > 0 {
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			s.sendError(sess, fmt.Errorf("bad create request: %w", err))
			return
		}
	}

	settings, err := s.resolveSettings(req.Preset, req.Rows, req.Cols, req.Mines)
	if err != nil {
		s.sendError(sess, err)
		return
	}

	// 一个会话只有一张桌子
	s.leaveRoom(sess)
	sess.SetPlayer(req.Player)

	roomID := uuid.New().String()
	r := s.roomManager.CreateRoom(roomID, sess.GetName(), s.broadcaster, s.roomOptions())
	r.AddPlayer(sess)
	if err := r.Start(settings); err != nil {
		s.roomManager.RemoveRoom(roomID)
		s.sendError(sess, err)
		return
	}
	s.monitor.SetActiveRooms(s.roomManager.Count())

	logger.Log.Infof("Session %s (%s) created room %s: %dx%d, %d mines",
		sess.GetID(), sess.GetName(), roomID, settings.Rows, settings.Cols, settings.Mines)

	data, _ := json.Marshal(map[string]string{"room_id": roomID})
	sess.Send(network.MsgTypeCreateRoom, data)
}

func (s *GameServer) leaveRoom(sess *session.Session) {
	roomID := sess.RoomID()
	if roomID == "" {
		return
	}
	if r, exists := s.roomManager.GetRoom(roomID); exists {
		r.RemovePlayer(sess.GetID())
		// 单人房间, 玩家离开即关闭
		s.roomManager.RemoveRoom(roomID)
	}
	sess.LeaveRoom(roomID)
	s.monitor.SetActiveRooms(s.roomManager.Count())
	logger.Log.Infof("Session %s left room %s", sess.GetID(), roomID)
}

func (s *GameServer) handleGameAction(sess *session.Session, packet *network.Packet) {
	roomID := sess.RoomID()
	if roomID == "" {
		logger.Log.Warnf("Session %s sent game action but is not in a room", sess.GetID())
		s.sendError(sess, ErrNotInRoom)
		return
	}

	r, exists := s.roomManager.GetRoom(roomID)
	if !exists {
		logger.Log.Errorf("Room %s not found for session %s", roomID, sess.GetID())
		sess.LeaveRoom(roomID)
		s.sendError(sess, ErrNotInRoom)
		return
	}

	if err := r.HandleAction(sess, packet.Data); err != nil {
		logger.Log.Debugf("Rejected action in room %s: %v", r.GetID(), err)
		s.sendError(sess, err)
	}
}

func (s *GameServer) sendError(sess *session.Session, err error) {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	sess.Send(network.MsgTypeError, data)
}
