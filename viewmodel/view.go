package viewmodel

import (
	"encoding/json"

	"github.com/wfunc/minesweeper/board"
)

// CellView is the wire form of one cell.
type CellView struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	State string `json:"state"`
	Count int    `json:"count,omitempty"`
}

// GameView is the full board, sent when a game starts.
type GameView struct {
	Rows           int          `json:"rows"`
	Cols           int          `json:"cols"`
	Mines          int          `json:"mines"`
	MinesRemaining int          `json:"mines_remaining"`
	State          string       `json:"state"`
	Cells          [][]CellView `json:"cells"`
}

// SyncView carries only the cells changed by one action.
type SyncView struct {
	Changed        []CellView `json:"changed"`
	MinesRemaining int        `json:"mines_remaining"`
	State          string     `json:"state"`
}

// EndView announces a finished game together with every mine location,
// so the client can show them all.
type EndView struct {
	Outcome  string        `json:"outcome"`
	Revealed int           `json:"revealed"`
	Mines    []board.Coord `json:"mines"`
}

func newCellView(v board.CellView) CellView {
	return CellView{
		Row:   v.Row,
		Col:   v.Col,
		State: v.State.String(),
		Count: v.AdjacentMines,
	}
}

// NewGameView projects the whole board.
func NewGameView(b *board.Board) GameView {
	snapshot := b.Snapshot()
	cells := make([][]CellView, len(snapshot))
	for r, row := range snapshot {
		cells[r] = make([]CellView, len(row))
		for c, v := range row {
			cells[r][c] = newCellView(v)
		}
	}
	return GameView{
		Rows:           b.Rows(),
		Cols:           b.Cols(),
		Mines:          b.MineCount(),
		MinesRemaining: b.MinesRemaining(),
		State:          b.State().String(),
		Cells:          cells,
	}
}

// NewSyncView projects the given changed cells.
func NewSyncView(b *board.Board, changed []board.CellView) SyncView {
	cells := make([]CellView, 0, len(changed))
	for _, v := range changed {
		cells = append(cells, newCellView(v))
	}
	return SyncView{
		Changed:        cells,
		MinesRemaining: b.MinesRemaining(),
		State:          b.State().String(),
	}
}

// NewEndView lists the outcome and all mines, row-major.
func NewEndView(b *board.Board) EndView {
	mines := b.Mines()
	coords := make([]board.Coord, 0, mines.Size())
	for r := 0; r < b.Rows(); r++ {
		for c := 0; c < b.Cols(); c++ {
			if p := (board.Coord{Row: r, Col: c}); mines.Has(p) {
				coords = append(coords, p)
			}
		}
	}
	return EndView{
		Outcome:  b.State().String(),
		Revealed: b.RevealedCount(),
		Mines:    coords,
	}
}

// Marshal encodes v, falling back to "{}" like the other views do for
// a missing board.
func Marshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
