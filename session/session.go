// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/minesweeper/network"
)

// Session 是一个已连接的客户端
type Session struct {
	ID         string
	Conn       network.Connection
	Player     string // 玩家名, 用于统计战绩
	CreatedAt  time.Time
	roomID     string
	lastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		Player:     id,
		CreatedAt:  now,
		lastActive: now,
	}
}

// RoomID is the room the session is seated in, empty when none.
func (s *Session) RoomID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomID
}

func (s *Session) SetRoomID(id string) {
	s.mutex.Lock()
	s.roomID = id
	s.mutex.Unlock()
}

// LeaveRoom clears the seat only if it is still roomID, so a room being
// closed late cannot unseat the session from a newer room.
func (s *Session) LeaveRoom(roomID string) {
	s.mutex.Lock()
	if s.roomID == roomID {
		s.roomID = ""
	}
	s.mutex.Unlock()
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

// Touch records activity on the session.
func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) GetName() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Player
}

// SetPlayer 设置玩家名, 空名保持原值
func (s *Session) SetPlayer(name string) {
	if name == "" {
		return
	}
	s.mutex.Lock()
	s.Player = name
	s.mutex.Unlock()
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
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

// All returns a snapshot of every session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
