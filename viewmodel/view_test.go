package viewmodel

import (
	"encoding/json"
	"testing"

	"github.com/wfunc/minesweeper/board"
)

func newTestBoard(t *testing.T) *board.Board {
	t.Helper()
	b, err := board.New(3, 3, 2, board.WithMines(board.Coord{Row: 2, Col: 2}, board.Coord{Row: 0, Col: 2}))
	if err != nil {
		t.Fatalf("board.New failed: %v", err)
	}
	return b
}

func TestNewGameView(t *testing.T) {
	b := newTestBoard(t)
	b.Reveal(1, 0)
	b.ToggleFlag(0, 2)

	view := NewGameView(b)
	if view.Rows != 3 || view.Cols != 3 || view.Mines != 2 {
		t.Fatalf("unexpected dimensions %+v", view)
	}
	if view.MinesRemaining != 1 {
		t.Errorf("MinesRemaining = %d, want 1", view.MinesRemaining)
	}
	if view.State != "in_progress" {
		t.Errorf("State = %q", view.State)
	}
	if got := view.Cells[0][2].State; got != "flagged" {
		t.Errorf("cell (0,2) = %q, want flagged", got)
	}
	if got := view.Cells[2][2].State; got != "hidden" {
		t.Errorf("mine leaked: %q", got)
	}
}

func TestNewSyncView(t *testing.T) {
	b := newTestBoard(t)
	res, _ := b.Reveal(1, 1)

	view := NewSyncView(b, res.Changed)
	if len(view.Changed) != 1 {
		t.Fatalf("expected 1 changed cell, got %d", len(view.Changed))
	}
	if c := view.Changed[0]; c.Row != 1 || c.Col != 1 || c.State != "revealed" || c.Count != 2 {
		t.Errorf("unexpected cell %+v", c)
	}
}

func TestNewEndView(t *testing.T) {
	b := newTestBoard(t)
	b.Reveal(2, 2)

	view := NewEndView(b)
	if view.Outcome != "lost" {
		t.Errorf("Outcome = %q, want lost", view.Outcome)
	}
	want := []board.Coord{{Row: 0, Col: 2}, {Row: 2, Col: 2}}
	if len(view.Mines) != len(want) {
		t.Fatalf("expected %d mines, got %d", len(want), len(view.Mines))
	}
	for i := range want {
		if view.Mines[i] != want[i] {
			t.Errorf("mine %d = %v, want %v", i, view.Mines[i], want[i])
		}
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(Marshal(view), &decoded); err != nil {
		t.Fatalf("Marshal produced invalid JSON: %v", err)
	}
	if decoded["outcome"] != "lost" {
		t.Errorf("decoded outcome = %v", decoded["outcome"])
	}
}
