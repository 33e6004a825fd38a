package broadcast

import (
	"errors"

	"github.com/wfunc/minesweeper/logger"
	"github.com/wfunc/minesweeper/room"
	"github.com/wfunc/minesweeper/session"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
	BroadcastToAll(msgID uint16, data []byte) error
}

// 基于房间的广播器
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
}

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	r, exists := b.roomManager.GetRoom(roomID)
	if !exists {
		return ErrRoomNotFound
	}
	send(r.GetSessions(), msgID, data)
	return nil
}

// BroadcastToAll 发送给所有在线会话, 不论是否在房间中
func (b *RoomBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	send(b.sessionManager.All(), msgID, data)
	return nil
}

// send 发送失败只记录日志, 连接由读循环负责清理
func send(sessions []*session.Session, msgID uint16, data []byte) {
	for _, s := range sessions {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnf("Failed to send message %d to session %s: %v", msgID, s.ID, err)
		}
	}
}
