// room/room.go
package room

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/minesweeper/board"
	"github.com/wfunc/minesweeper/logger"
	"github.com/wfunc/minesweeper/models"
	"github.com/wfunc/minesweeper/session"
	"github.com/wfunc/minesweeper/state"
)

const recordTimeout = 5 * time.Second

// MaxPlayers 单人游戏, 每个房间只有一个玩家
const MaxPlayers = 1

// Room 是一张游戏桌: 一个玩家, 一个棋盘
type Room struct {
	ID           string
	Name         string
	MaxPlayers   int
	Players      map[string]*session.Session // sessionID -> session
	StateMachine state.StateMachine
	CreatedAt    time.Time

	board       *board.Board
	settings    state.Settings
	startedAt   time.Time
	lastActive  time.Time
	opts        Options
	broadcaster Broadcaster // Use the interface, not the concrete type

	// gameMutex serializes every board access; the engine has no locking.
	gameMutex   sync.Mutex
	playerMutex sync.RWMutex
	activeMutex sync.RWMutex
}

func defaultBoard(s state.Settings) (*board.Board, error) {
	return board.New(s.Rows, s.Cols, s.Mines)
}

// NewRoom 创建一个新房间, 需调用 Start 开始第一局
func NewRoom(id, name string, broadcaster Broadcaster, opts Options) *Room {
	if opts.NewBoard == nil {
		opts.NewBoard = defaultBoard
	}
	now := time.Now()
	return &Room{
		ID:          id,
		Name:        name,
		MaxPlayers:  MaxPlayers,
		Players:     make(map[string]*session.Session),
		CreatedAt:   now,
		lastActive:  now,
		opts:        opts,
		broadcaster: broadcaster,
	}
}

// Start deals the first board and enters the ready state.
func (r *Room) Start(settings state.Settings) error {
	r.gameMutex.Lock()
	defer r.gameMutex.Unlock()

	if err := r.NewBoard(settings); err != nil {
		return err
	}
	r.StateMachine = state.NewGameStateMachine(r)
	r.touch()
	return nil
}

// HandleAction routes a player action to the current state.
func (r *Room) HandleAction(player state.Player, actionData []byte) error {
	r.gameMutex.Lock()
	defer r.gameMutex.Unlock()

	r.touch()
	if r.StateMachine == nil {
		return nil
	}
	return r.StateMachine.GetCurrentState().HandleAction(player, actionData)
}

// StateID returns the ID of the current room state.
func (r *Room) StateID() string {
	if r.StateMachine == nil {
		return ""
	}
	return r.StateMachine.GetCurrentState().GetID()
}

// --- 实现 state.RoomContext 接口 ---

// GetID 返回房间ID
func (r *Room) GetID() string {
	return r.ID
}

// GetPlayers 获取房间中的所有玩家，返回的map值为 state.Player 接口
func (r *Room) GetPlayers() map[string]state.Player {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	// 返回副本以避免并发修改
	players := make(map[string]state.Player)
	for k, v := range r.Players {
		players[k] = v
	}
	return players
}

// ChangeState 改变房间的状态机状态
func (r *Room) ChangeState(newState state.State) error {
	return r.StateMachine.ChangeState(newState)
}

// Broadcast sends a message to all players in the room.
func (r *Room) Broadcast(msgID uint16, data []byte) error {
	if r.broadcaster == nil {
		return nil
	}
	return r.broadcaster.BroadcastToRoom(r.ID, msgID, data)
}

// Board returns the current board. Callers outside the state machine
// must not mutate it.
func (r *Room) Board() *board.Board {
	return r.board
}

// NewBoard replaces the board wholesale; nothing of the old one is kept.
func (r *Room) NewBoard(settings state.Settings) error {
	b, err := r.opts.NewBoard(settings)
	if err != nil {
		return err
	}
	r.board = b
	r.settings = settings
	r.startedAt = time.Now()
	return nil
}

// Settings returns the settings of the current game.
func (r *Room) Settings() state.Settings {
	return r.settings
}

// ResolveSettings 解析 preset 或自定义尺寸; 全部为空时沿用当前设置
func (r *Room) ResolveSettings(preset string, rows, cols, mines int) (state.Settings, error) {
	if preset == "" && rows == 0 && cols == 0 && mines == 0 && r.settings != (state.Settings{}) {
		return r.settings, nil
	}
	if r.opts.Resolver == nil {
		return state.Settings{Rows: rows, Cols: cols, Mines: mines}, nil
	}
	return r.opts.Resolver(preset, rows, cols, mines)
}

// RecordResult 保存一局结束的结果
func (r *Room) RecordResult(b *board.Board) {
	if r.opts.Recorder == nil {
		return
	}

	record := &models.GameRecord{
		RoomID:     r.ID,
		Player:     r.playerName(),
		Rows:       b.Rows(),
		Cols:       b.Cols(),
		Mines:      b.MineCount(),
		Outcome:    b.State().String(),
		Revealed:   b.RevealedCount(),
		StartedAt:  r.startedAt,
		FinishedAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.opts.Recorder.RecordGame(ctx, record); err != nil {
		logger.Log.Errorf("Failed to record game in room %s: %v", r.ID, err)
	}
}

func (r *Room) playerName() string {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	for _, s := range r.Players {
		return s.GetName()
	}
	return ""
}

// --- 房间核心逻辑 ---

// AddPlayer 添加一个玩家到房间
func (r *Room) AddPlayer(s *session.Session) bool {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	if len(r.Players) >= r.MaxPlayers {
		return false
	}

	r.Players[s.ID] = s
	s.SetRoomID(r.ID)
	return true
}

// RemovePlayer 从房间移除一个玩家
func (r *Room) RemovePlayer(sessionID string) {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	if player, exists := r.Players[sessionID]; exists {
		player.LeaveRoom(r.ID)
		delete(r.Players, sessionID)
	}
}

// GetSessions returns a slice of all sessions in the room (thread-safe).
func (r *Room) GetSessions() []*session.Session {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	sessions := make([]*session.Session, 0, len(r.Players))
	for _, s := range r.Players {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Room) touch() {
	r.activeMutex.Lock()
	r.lastActive = time.Now()
	r.activeMutex.Unlock()
}

// LastActive is the time of the last action or start.
func (r *Room) LastActive() time.Time {
	r.activeMutex.RLock()
	defer r.activeMutex.RUnlock()
	return r.lastActive
}

// Close 关闭房间, 解除所有玩家的绑定
func (r *Room) Close() {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	for id, s := range r.Players {
		s.LeaveRoom(r.ID)
		delete(r.Players, id)
	}
}

// --- 房间管理器 ---

// Manager 管理所有房间
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager() *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
	}
}

// CreateRoom 创建一个新房间并添加到管理器
func (m *Manager) CreateRoom(id, name string, broadcaster Broadcaster, opts Options) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room := NewRoom(id, name, broadcaster, opts)
	m.rooms[id] = room
	return room
}

// RemoveRoom 从管理器中移除并关闭一个房间
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[id]; exists {
		room.Close()
		delete(m.rooms, id)
	}
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// Count returns the number of open rooms.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// ReapIdle 关闭超过 maxIdle 没有操作的房间, 返回被关闭的房间ID
func (m *Manager) ReapIdle(maxIdle time.Duration) []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var reaped []string
	cutoff := time.Now().Add(-maxIdle)
	for id, room := range m.rooms {
		if room.LastActive().Before(cutoff) {
			room.Close()
			delete(m.rooms, id)
			reaped = append(reaped, id)
		}
	}
	return reaped
}
