package room

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/minesweeper/board"
	"github.com/wfunc/minesweeper/models"
	"github.com/wfunc/minesweeper/network"
	"github.com/wfunc/minesweeper/session"
	"github.com/wfunc/minesweeper/state"
)

// MockBroadcaster records every message sent to a room.
type MockBroadcaster struct {
	mu   sync.Mutex
	sent []uint16
}

func (m *MockBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msgID)
	return nil
}

func (m *MockBroadcaster) last() uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return 0
	}
	return m.sent[len(m.sent)-1]
}

// MockRecorder collects recorded games.
type MockRecorder struct {
	records []*models.GameRecord
}

func (m *MockRecorder) RecordGame(ctx context.Context, record *models.GameRecord) error {
	m.records = append(m.records, record)
	return nil
}

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error { return nil }
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

// newTestSession creates a dummy session for testing purposes.
func newTestSession(id string) *session.Session {
	return session.NewSession(id, &MockConnection{})
}

// fixedBoard places a single mine in the bottom-right corner.
func fixedBoard(s state.Settings) (*board.Board, error) {
	return board.New(s.Rows, s.Cols, s.Mines, board.WithMines(board.Coord{Row: s.Rows - 1, Col: s.Cols - 1}))
}

func action(t *testing.T, typ string, row, col int) []byte {
	t.Helper()
	data, err := json.Marshal(state.Action{Type: typ, Row: row, Col: col})
	if err != nil {
		t.Fatalf("marshal action: %v", err)
	}
	return data
}

func TestRoomManager_CreateAndGetRoom(t *testing.T) {
	manager := NewRoomManager()

	roomID := "test_room_1"
	room := manager.CreateRoom(roomID, "Test Room", &MockBroadcaster{}, Options{})

	if room == nil {
		t.Fatal("CreateRoom should not return nil")
	}
	if room.ID != roomID {
		t.Errorf("Expected room ID %s, got %s", roomID, room.ID)
	}

	retrievedRoom, exists := manager.GetRoom(roomID)
	if !exists {
		t.Fatal("GetRoom should find the created room")
	}
	if retrievedRoom != room {
		t.Error("GetRoom should return the same room instance")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 room, got %d", manager.Count())
	}
}

func TestRoom_AddPlayer_Full(t *testing.T) {
	room := NewRoom("test_room_2", "Full Room Test", &MockBroadcaster{}, Options{})

	player1 := newTestSession("player1")
	if !room.AddPlayer(player1) {
		t.Fatal("Failed to add first player")
	}
	if player1.RoomID() != room.ID {
		t.Errorf("Expected session RoomID %s, got %q", room.ID, player1.RoomID())
	}

	// one board, one player
	if room.AddPlayer(newTestSession("player2")) {
		t.Error("Should not be able to add a second player")
	}
	if len(room.Players) != MaxPlayers {
		t.Errorf("Expected player count to be %d, got %d", MaxPlayers, len(room.Players))
	}
}

func TestRoom_RemovePlayer(t *testing.T) {
	room := NewRoom("test_room_3", "Remove Player Test", &MockBroadcaster{}, Options{})
	player := newTestSession("player1")
	room.AddPlayer(player)

	room.RemovePlayer(player.GetID())

	if len(room.Players) != 0 {
		t.Errorf("Expected player count to be 0 after removal, got %d", len(room.Players))
	}
	if player.RoomID() != "" {
		t.Error("Player's RoomID should be cleared after removal")
	}
}

func TestRoom_StartRejectsBadSettings(t *testing.T) {
	room := NewRoom("r", "r", &MockBroadcaster{}, Options{})
	if err := room.Start(state.Settings{Rows: 2, Cols: 2, Mines: 4}); err == nil {
		t.Fatal("expected an error for a board full of mines")
	}
	if room.StateID() != "" {
		t.Errorf("a room that failed to start has no state, got %q", room.StateID())
	}
}

func TestRoom_PlayToWinRecordsResult(t *testing.T) {
	bc := &MockBroadcaster{}
	rec := &MockRecorder{}
	room := NewRoom("win_room", "Win", bc, Options{Recorder: rec, NewBoard: fixedBoard})
	player := newTestSession("s1")
	player.SetPlayer("alice")
	room.AddPlayer(player)

	if err := room.Start(state.Settings{Rows: 3, Cols: 3, Mines: 1}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if room.StateID() != state.StateReady || bc.last() != network.MsgTypeGameStart {
		t.Fatalf("expected ready with GameStart, got %s / %d", room.StateID(), bc.last())
	}

	if err := room.HandleAction(player, action(t, state.ActionReveal, 0, 0)); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if room.StateID() != state.StateSettled {
		t.Fatalf("expected settled, got %s", room.StateID())
	}
	if bc.last() != network.MsgTypeGameEnd {
		t.Errorf("expected GameEnd, got %d", bc.last())
	}

	if len(rec.records) != 1 {
		t.Fatalf("expected one record, got %d", len(rec.records))
	}
	r := rec.records[0]
	if r.Player != "alice" || r.Outcome != models.OutcomeWon || r.Revealed != 8 || r.RoomID != "win_room" {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestRoom_NewGameKeepsSettings(t *testing.T) {
	room := NewRoom("r", "r", &MockBroadcaster{}, Options{NewBoard: fixedBoard})
	player := newTestSession("s1")
	room.AddPlayer(player)
	room.Start(state.Settings{Rows: 4, Cols: 5, Mines: 1})
	old := room.Board()

	if err := room.HandleAction(player, action(t, state.ActionNewGame, 0, 0)); err != nil {
		t.Fatalf("new_game failed: %v", err)
	}
	if room.Board() == old {
		t.Error("new_game should deal a fresh board")
	}
	if room.Settings() != (state.Settings{Rows: 4, Cols: 5, Mines: 1}) {
		t.Errorf("an empty new_game should reuse the settings, got %+v", room.Settings())
	}
}

func TestRoom_ResolverUsed(t *testing.T) {
	var asked string
	resolver := func(preset string, rows, cols, mines int) (state.Settings, error) {
		asked = preset
		return state.Settings{Rows: 9, Cols: 9, Mines: 10}, nil
	}
	room := NewRoom("r", "r", &MockBroadcaster{}, Options{Resolver: resolver})
	player := newTestSession("s1")
	room.AddPlayer(player)
	room.Start(state.Settings{Rows: 3, Cols: 3, Mines: 1})

	data, _ := json.Marshal(state.Action{Type: state.ActionNewGame, Preset: "classic"})
	if err := room.HandleAction(player, data); err != nil {
		t.Fatalf("new_game failed: %v", err)
	}
	if asked != "classic" || room.Board().Rows() != 9 {
		t.Errorf("resolver not consulted: asked=%q rows=%d", asked, room.Board().Rows())
	}
}

func TestRoomManager_ReapIdle(t *testing.T) {
	manager := NewRoomManager()
	idle := manager.CreateRoom("idle", "idle", &MockBroadcaster{}, Options{})
	player := newTestSession("s1")
	idle.AddPlayer(player)

	time.Sleep(20 * time.Millisecond)
	busy := manager.CreateRoom("busy", "busy", &MockBroadcaster{}, Options{})
	busy.Start(state.Settings{Rows: 3, Cols: 3, Mines: 1})

	reaped := manager.ReapIdle(10 * time.Millisecond)
	if len(reaped) != 1 || reaped[0] != "idle" {
		t.Fatalf("expected only the idle room to be reaped, got %v", reaped)
	}
	if _, exists := manager.GetRoom("idle"); exists {
		t.Error("reaped room should be removed")
	}
	if _, exists := manager.GetRoom("busy"); !exists {
		t.Error("busy room should stay")
	}
	if player.RoomID() != "" {
		t.Error("players of a reaped room should be unseated")
	}
}

func TestRoom_RejectsUnseatedPlayer(t *testing.T) {
	room := NewRoom("r", "r", &MockBroadcaster{}, Options{NewBoard: fixedBoard})
	room.AddPlayer(newTestSession("s1"))
	room.Start(state.Settings{Rows: 3, Cols: 3, Mines: 1})

	err := room.HandleAction(newTestSession("intruder"), action(t, state.ActionReveal, 0, 0))
	if !errors.Is(err, state.ErrNotSeated) {
		t.Fatalf("expected ErrNotSeated, got %v", err)
	}
	if room.Board().RevealedCount() != 0 {
		t.Error("an unseated player must not touch the board")
	}
}

// The reaper unseats sessions from its own goroutine while the
// connection goroutine keeps reading the seat.
func TestRoomManager_ReapWhileReading(t *testing.T) {
	manager := NewRoomManager()
	player := newTestSession("s1")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = player.RoomID()
		}
	}()
	for i := 0; i < 50; i++ {
		r := manager.CreateRoom("r", "r", &MockBroadcaster{}, Options{})
		r.AddPlayer(player)
		// a negative idle limit reaps every room
		manager.ReapIdle(-time.Second)
	}
	wg.Wait()

	if player.RoomID() != "" {
		t.Errorf("expected the last reap to unseat the player, got %q", player.RoomID())
	}
}

func TestRoomManager_RemoveRoom(t *testing.T) {
	manager := NewRoomManager()
	manager.CreateRoom("r", "r", &MockBroadcaster{}, Options{})
	manager.RemoveRoom("r")
	if manager.Count() != 0 {
		t.Errorf("Expected 0 rooms, got %d", manager.Count())
	}
}
