package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wfunc/minesweeper/board"
	"github.com/wfunc/minesweeper/logger"
	"github.com/wfunc/minesweeper/network"
	"github.com/wfunc/minesweeper/viewmodel"
)

const (
	StateReady   = "ready"
	StatePlaying = "playing"
	StateSettled = "settled"
)

const (
	ActionReveal  = "reveal"
	ActionFlag    = "flag"
	ActionNewGame = "new_game"
)

var (
	// ErrUnknownAction is returned for an action type no state understands.
	ErrUnknownAction = errors.New("unknown action")
	// ErrNotSeated is returned for actions from a player outside the room.
	ErrNotSeated = errors.New("player is not seated in this room")
)

// Action represents a player action that can be unmarshalled from a packet.
type Action struct {
	Type   string `json:"type"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Preset string `json:"preset,omitempty"`
	Rows   int    `json:"rows,omitempty"`
	Cols   int    `json:"cols,omitempty"`
	Mines  int    `json:"mines,omitempty"`
}

// ReadyState 新棋盘已生成, 等待第一次点击
type ReadyState struct {
	RoomStateBase
}

func NewReadyState(room RoomContext) *ReadyState {
	return &ReadyState{RoomStateBase{ID: StateReady, Room: room}}
}

// OnEnter 向玩家发送完整棋盘
func (s *ReadyState) OnEnter() {
	b := s.Room.Board()
	logger.Log.Infof("房间 %s 新游戏 %dx%d, %d 个地雷", s.Room.GetID(), b.Rows(), b.Cols(), b.MineCount())
	s.Room.Broadcast(network.MsgTypeGameStart, viewmodel.Marshal(viewmodel.NewGameView(b)))
}

func (s *ReadyState) HandleAction(player Player, actionData []byte) error {
	return dispatch(s.Room, s.ID, player, actionData)
}

// PlayingState 游戏进行中
type PlayingState struct {
	RoomStateBase
}

func NewPlayingState(room RoomContext) *PlayingState {
	return &PlayingState{RoomStateBase{ID: StatePlaying, Room: room}}
}

func (s *PlayingState) HandleAction(player Player, actionData []byte) error {
	return dispatch(s.Room, s.ID, player, actionData)
}

// SettledState 游戏结束 (胜利或失败), 只接受 new_game
type SettledState struct {
	RoomStateBase
}

func NewSettledState(room RoomContext) *SettledState {
	return &SettledState{RoomStateBase{ID: StateSettled, Room: room}}
}

// OnEnter 公布所有地雷并记录结果
func (s *SettledState) OnEnter() {
	b := s.Room.Board()
	logger.Log.Infof("房间 %s 游戏结束: %s", s.Room.GetID(), b.State())
	s.Room.Broadcast(network.MsgTypeGameEnd, viewmodel.Marshal(viewmodel.NewEndView(b)))
	s.Room.RecordResult(b)
}

func (s *SettledState) HandleAction(player Player, actionData []byte) error {
	if err := checkSeat(s.Room, player); err != nil {
		return err
	}
	action, err := decodeAction(actionData)
	if err != nil {
		return err
	}
	switch action.Type {
	case ActionNewGame:
		return newGame(s.Room, action)
	case ActionReveal, ActionFlag:
		// finished boards ignore clicks
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}
}

func checkSeat(room RoomContext, player Player) error {
	if _, ok := room.GetPlayers()[player.GetID()]; !ok {
		return fmt.Errorf("%w: %s", ErrNotSeated, player.GetID())
	}
	return nil
}

func decodeAction(actionData []byte) (Action, error) {
	var action Action
	if err := json.Unmarshal(actionData, &action); err != nil {
		return action, fmt.Errorf("failed to unmarshal action data: %w", err)
	}
	return action, nil
}

// dispatch applies an action to the room's board and moves the room to
// the state matching the board afterwards.
func dispatch(room RoomContext, current string, player Player, actionData []byte) error {
	if err := checkSeat(room, player); err != nil {
		return err
	}
	action, err := decodeAction(actionData)
	if err != nil {
		return err
	}

	b := room.Board()
	switch action.Type {
	case ActionReveal:
		res, err := b.Reveal(action.Row, action.Col)
		if err != nil {
			return err
		}
		if len(res.Changed) == 0 {
			return nil
		}
		logger.Log.Debugf("Player %s revealed (%d,%d) in room %s: %d cells", player.GetID(), action.Row, action.Col, room.GetID(), len(res.Changed))
		room.Broadcast(network.MsgTypeGameSync, viewmodel.Marshal(viewmodel.NewSyncView(b, res.Changed)))
		return advance(room, current, res.State)

	case ActionFlag:
		res, err := b.ToggleFlag(action.Row, action.Col)
		if err != nil {
			return err
		}
		if res.Changed {
			room.Broadcast(network.MsgTypeGameSync, viewmodel.Marshal(viewmodel.NewSyncView(b, []board.CellView{res.Cell})))
		}
		return nil

	case ActionNewGame:
		return newGame(room, action)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}
}

func advance(room RoomContext, current string, st board.State) error {
	switch {
	case st.Terminal():
		return room.ChangeState(NewSettledState(room))
	case st == board.InProgress && current == StateReady:
		return room.ChangeState(NewPlayingState(room))
	}
	return nil
}

func newGame(room RoomContext, action Action) error {
	settings, err := room.ResolveSettings(action.Preset, action.Rows, action.Cols, action.Mines)
	if err != nil {
		return err
	}
	if err := room.NewBoard(settings); err != nil {
		return err
	}
	return room.ChangeState(NewReadyState(room))
}

// NewGameStateMachine starts a room in the ready state and registers
// the guards that keep room states in step with the board.
func NewGameStateMachine(room RoomContext) *BaseStateMachine {
	ready := NewReadyState(room)
	playing := NewPlayingState(room)
	settled := NewSettledState(room)

	sm := NewBaseStateMachine(ready)

	inProgress := func() bool { return room.Board().State() == board.InProgress }
	finished := func() bool { return room.Board().State().Terminal() }
	fresh := func() bool { return room.Board().State() == board.NotStarted }

	sm.AddTransition(ready, playing, inProgress)
	sm.AddTransition(ready, settled, finished)
	sm.AddTransition(playing, settled, finished)
	sm.AddTransition(settled, playing, func() bool { return false })
	sm.AddTransition(ready, ready, fresh)
	sm.AddTransition(playing, ready, fresh)
	sm.AddTransition(settled, ready, fresh)

	return sm
}
