// state/interfaces.go
package state

import "github.com/wfunc/minesweeper/board"

// Player defines the minimal interface for a player entity that a state needs to interact with.
type Player interface {
	GetID() string
	GetName() string
}

// Settings is the (rows, cols, mines) triple of one game.
type Settings struct {
	Rows  int `json:"rows"`
	Cols  int `json:"cols"`
	Mines int `json:"mines"`
}

// RoomContext defines the interface that a Room must implement to be managed by the state machine.
// This breaks the import cycle between room and state.
type RoomContext interface {
	GetID() string
	GetPlayers() map[string]Player
	ChangeState(newState State) error
	Broadcast(msgID uint16, data []byte) error

	// Board returns the board of the current game.
	Board() *board.Board
	// NewBoard replaces the board wholesale.
	NewBoard(settings Settings) error
	// ResolveSettings turns a preset name or an explicit triple into
	// settings; zero values fall back to the room's current settings.
	ResolveSettings(preset string, rows, cols, mines int) (Settings, error)
	// RecordResult is called once per finished game.
	RecordResult(b *board.Board)
}
