package board

import "fmt"

// State is the game-state machine of a board.
type State int

const (
	NotStarted State = iota
	InProgress
	Won
	Lost
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Won:
		return "won"
	case Lost:
		return "lost"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further mutation is permitted.
func (s State) Terminal() bool {
	return s == Won || s == Lost
}

// CellState is what a player is allowed to see of a cell.
type CellState int

const (
	Hidden CellState = iota
	Flagged
	Revealed
	RevealedMine
)

func (s CellState) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Flagged:
		return "flagged"
	case Revealed:
		return "revealed"
	case RevealedMine:
		return "mine"
	default:
		return fmt.Sprintf("cell(%d)", int(s))
	}
}

// Coord identifies a cell on the board.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Cell holds one grid position.
type Cell struct {
	IsMine        bool // fixed once placement completes
	Revealed      bool // never reverts
	Flagged       bool // only meaningful while hidden
	AdjacentMines int  // mines among the up-to-8 neighbours
}

// CellView is the player-visible projection of a cell.
// AdjacentMines is zero unless State is Revealed.
type CellView struct {
	Coord
	State         CellState
	AdjacentMines int
}

// RevealResult lists the cells revealed by one Reveal call, in reveal
// order, and the board state afterwards.
type RevealResult struct {
	Changed []CellView
	State   State
}

// FlagResult describes the outcome of a ToggleFlag call.
type FlagResult struct {
	Cell    CellView
	Changed bool
	State   State
}
