package state

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/wfunc/minesweeper/board"
	"github.com/wfunc/minesweeper/network"
)

type testPlayer struct{ id string }

func (p testPlayer) GetID() string   { return p.id }
func (p testPlayer) GetName() string { return p.id }

type sentMessage struct {
	msgID uint16
	data  []byte
}

// fakeRoom is a RoomContext backed by a fixed mine layout.
type fakeRoom struct {
	layout   []board.Coord
	settings Settings
	board    *board.Board
	sm       *BaseStateMachine
	sent     []sentMessage
	recorded []board.State
}

func newFakeRoom(t *testing.T, settings Settings, layout ...board.Coord) *fakeRoom {
	t.Helper()
	r := &fakeRoom{layout: layout}
	if err := r.NewBoard(settings); err != nil {
		t.Fatalf("NewBoard failed: %v", err)
	}
	r.sm = NewGameStateMachine(r)
	return r
}

func (r *fakeRoom) GetID() string                    { return "room-1" }
func (r *fakeRoom) GetPlayers() map[string]Player    { return map[string]Player{"p1": testPlayer{"p1"}} }
func (r *fakeRoom) ChangeState(newState State) error { return r.sm.ChangeState(newState) }
func (r *fakeRoom) Board() *board.Board              { return r.board }
func (r *fakeRoom) RecordResult(b *board.Board)      { r.recorded = append(r.recorded, b.State()) }
func (r *fakeRoom) Broadcast(msgID uint16, data []byte) error {
	r.sent = append(r.sent, sentMessage{msgID, data})
	return nil
}

func (r *fakeRoom) NewBoard(settings Settings) error {
	var opts []board.Option
	if settings == r.settings || r.settings == (Settings{}) {
		opts = append(opts, board.WithMines(r.layout...))
	} else {
		opts = append(opts, board.WithSeed(1))
	}
	b, err := board.New(settings.Rows, settings.Cols, settings.Mines, opts...)
	if err != nil {
		return err
	}
	r.board = b
	r.settings = settings
	return nil
}

func (r *fakeRoom) ResolveSettings(preset string, rows, cols, mines int) (Settings, error) {
	if preset == "big" {
		return Settings{Rows: 16, Cols: 16, Mines: 40}, nil
	}
	if rows == 0 {
		return r.settings, nil
	}
	return Settings{Rows: rows, Cols: cols, Mines: mines}, nil
}

func (r *fakeRoom) act(t *testing.T, action Action) error {
	t.Helper()
	data, _ := json.Marshal(action)
	return r.sm.GetCurrentState().HandleAction(testPlayer{"p1"}, data)
}

func (r *fakeRoom) lastMsg() uint16 {
	if len(r.sent) == 0 {
		return 0
	}
	return r.sent[len(r.sent)-1].msgID
}

// 3x3, one mine in the bottom-right corner
var cornerMine = []board.Coord{{Row: 2, Col: 2}}

func TestGameState_StartsReady(t *testing.T) {
	r := newFakeRoom(t, Settings{3, 3, 1}, cornerMine...)

	if id := r.sm.GetCurrentState().GetID(); id != StateReady {
		t.Fatalf("expected ready, got %s", id)
	}
	if r.lastMsg() != network.MsgTypeGameStart {
		t.Errorf("expected GameStart broadcast, got %d", r.lastMsg())
	}
}

func TestGameState_RevealMovesToPlaying(t *testing.T) {
	r := newFakeRoom(t, Settings{3, 3, 1}, cornerMine...)

	if err := r.act(t, Action{Type: ActionReveal, Row: 1, Col: 1}); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if id := r.sm.GetCurrentState().GetID(); id != StatePlaying {
		t.Fatalf("expected playing, got %s", id)
	}
	if r.lastMsg() != network.MsgTypeGameSync {
		t.Errorf("expected GameSync broadcast, got %d", r.lastMsg())
	}
}

func TestGameState_WinSettles(t *testing.T) {
	r := newFakeRoom(t, Settings{3, 3, 1}, cornerMine...)

	if err := r.act(t, Action{Type: ActionReveal, Row: 0, Col: 0}); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if id := r.sm.GetCurrentState().GetID(); id != StateSettled {
		t.Fatalf("expected settled, got %s", id)
	}
	if len(r.recorded) != 1 || r.recorded[0] != board.Won {
		t.Errorf("expected one Won record, got %v", r.recorded)
	}
	if r.lastMsg() != network.MsgTypeGameEnd {
		t.Errorf("expected GameEnd broadcast, got %d", r.lastMsg())
	}

	var end struct {
		Outcome string        `json:"outcome"`
		Mines   []board.Coord `json:"mines"`
	}
	if err := json.Unmarshal(r.sent[len(r.sent)-1].data, &end); err != nil {
		t.Fatalf("bad GameEnd payload: %v", err)
	}
	if end.Outcome != "won" || len(end.Mines) != 1 {
		t.Errorf("unexpected GameEnd %+v", end)
	}
}

func TestGameState_LossSettlesAndIgnoresClicks(t *testing.T) {
	r := newFakeRoom(t, Settings{3, 3, 1}, cornerMine...)
	r.act(t, Action{Type: ActionReveal, Row: 1, Col: 1})
	r.act(t, Action{Type: ActionReveal, Row: 2, Col: 2})

	if id := r.sm.GetCurrentState().GetID(); id != StateSettled {
		t.Fatalf("expected settled, got %s", id)
	}
	if len(r.recorded) != 1 || r.recorded[0] != board.Lost {
		t.Fatalf("expected one Lost record, got %v", r.recorded)
	}

	sent := len(r.sent)
	if err := r.act(t, Action{Type: ActionReveal, Row: 0, Col: 0}); err != nil {
		t.Errorf("reveal after loss should be ignored, got %v", err)
	}
	if err := r.act(t, Action{Type: ActionFlag, Row: 0, Col: 0}); err != nil {
		t.Errorf("flag after loss should be ignored, got %v", err)
	}
	if len(r.sent) != sent {
		t.Error("no messages expected after the game ended")
	}
	if len(r.recorded) != 1 {
		t.Error("a finished game must be recorded once")
	}
}

func TestGameState_FlagSyncsWithoutTransition(t *testing.T) {
	r := newFakeRoom(t, Settings{3, 3, 1}, cornerMine...)

	if err := r.act(t, Action{Type: ActionFlag, Row: 2, Col: 2}); err != nil {
		t.Fatalf("flag failed: %v", err)
	}
	if id := r.sm.GetCurrentState().GetID(); id != StateReady {
		t.Errorf("flagging must not start the game, got %s", id)
	}
	if r.lastMsg() != network.MsgTypeGameSync {
		t.Errorf("expected GameSync, got %d", r.lastMsg())
	}
	if r.board.FlagCount() != 1 {
		t.Errorf("FlagCount = %d", r.board.FlagCount())
	}
}

func TestGameState_NewGameReplacesBoard(t *testing.T) {
	r := newFakeRoom(t, Settings{3, 3, 1}, cornerMine...)
	r.act(t, Action{Type: ActionReveal, Row: 2, Col: 2})
	old := r.board

	if err := r.act(t, Action{Type: ActionNewGame, Preset: "big"}); err != nil {
		t.Fatalf("new_game failed: %v", err)
	}
	if r.board == old {
		t.Fatal("new_game should replace the board")
	}
	if r.board.Rows() != 16 || r.board.MineCount() != 40 {
		t.Errorf("unexpected board %dx%d/%d", r.board.Rows(), r.board.Cols(), r.board.MineCount())
	}
	if id := r.sm.GetCurrentState().GetID(); id != StateReady {
		t.Errorf("expected ready, got %s", id)
	}
	if r.lastMsg() != network.MsgTypeGameStart {
		t.Errorf("expected GameStart, got %d", r.lastMsg())
	}
}

func TestGameState_Errors(t *testing.T) {
	r := newFakeRoom(t, Settings{3, 3, 1}, cornerMine...)

	if err := r.act(t, Action{Type: ActionReveal, Row: 5, Col: 0}); !errors.Is(err, board.ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
	if err := r.act(t, Action{Type: "dance"}); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
	if err := r.act(t, Action{Type: ActionNewGame, Rows: 2, Cols: 2, Mines: 4}); !errors.Is(err, board.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
	if err := r.sm.GetCurrentState().HandleAction(testPlayer{"p1"}, []byte("{")); err == nil {
		t.Error("expected an error for malformed JSON")
	}
	if id := r.sm.GetCurrentState().GetID(); id != StateReady {
		t.Errorf("failed actions must not change state, got %s", id)
	}
}

func TestGameState_RejectsUnseatedPlayer(t *testing.T) {
	r := newFakeRoom(t, Settings{3, 3, 1}, cornerMine...)
	data, _ := json.Marshal(Action{Type: ActionReveal, Row: 0, Col: 0})

	if err := r.sm.GetCurrentState().HandleAction(testPlayer{"p2"}, data); !errors.Is(err, ErrNotSeated) {
		t.Fatalf("expected ErrNotSeated, got %v", err)
	}
	if r.board.RevealedCount() != 0 {
		t.Error("an unseated player must not touch the board")
	}

	r.act(t, Action{Type: ActionReveal, Row: 2, Col: 2})
	newGame, _ := json.Marshal(Action{Type: ActionNewGame})
	if err := r.sm.GetCurrentState().HandleAction(testPlayer{"p2"}, newGame); !errors.Is(err, ErrNotSeated) {
		t.Errorf("settled rooms must also check the seat, got %v", err)
	}
}

func TestGameState_SettledCannotResume(t *testing.T) {
	r := newFakeRoom(t, Settings{3, 3, 1}, cornerMine...)
	r.act(t, Action{Type: ActionReveal, Row: 2, Col: 2})

	if err := r.ChangeState(NewPlayingState(r)); err != ErrTransitionNotAllowed {
		t.Errorf("expected ErrTransitionNotAllowed, got %v", err)
	}
}
