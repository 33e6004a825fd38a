package room

import (
	"context"

	"github.com/wfunc/minesweeper/board"
	"github.com/wfunc/minesweeper/models"
	"github.com/wfunc/minesweeper/state"
)

// Broadcaster defines the interface for broadcasting messages to a room.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
}

// Recorder stores the outcome of finished games.
type Recorder interface {
	RecordGame(ctx context.Context, record *models.GameRecord) error
}

// SettingsResolver turns a preset name or explicit triple into game settings.
type SettingsResolver func(preset string, rows, cols, mines int) (state.Settings, error)

// BoardFactory builds the board for a new game.
type BoardFactory func(settings state.Settings) (*board.Board, error)

// Options are the collaborators of a room. Nil fields get defaults.
type Options struct {
	Resolver SettingsResolver
	Recorder Recorder
	NewBoard BoardFactory
}
