package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wfunc/minesweeper/network"
	"github.com/wfunc/minesweeper/viewmodel"
)

var errUsage = errors.New("commands: r ROW COL | f ROW COL | new [PRESET | ROWS COLS MINES] | quit")

// grid is the client's copy of the board, rebuilt from server messages.
type grid struct {
	rows           int
	cols           int
	cells          [][]viewmodel.CellView
	minesRemaining int
	state          string
}

func (g *grid) reset(v viewmodel.GameView) {
	g.rows, g.cols = v.Rows, v.Cols
	g.cells = v.Cells
	g.minesRemaining = v.MinesRemaining
	g.state = v.State
}

func (g *grid) apply(v viewmodel.SyncView) {
	for _, c := range v.Changed {
		if c.Row < 0 || c.Row >= g.rows || c.Col < 0 || c.Col >= g.cols {
			continue
		}
		g.cells[c.Row][c.Col] = c
	}
	g.minesRemaining = v.MinesRemaining
	g.state = v.State
}

// finish 输了显示所有地雷, 赢了把地雷标成旗子
func (g *grid) finish(v viewmodel.EndView) {
	g.state = v.Outcome
	for _, m := range v.Mines {
		if m.Row < 0 || m.Row >= g.rows || m.Col < 0 || m.Col >= g.cols {
			continue
		}
		cell := &g.cells[m.Row][m.Col]
		switch {
		case v.Outcome == "won":
			cell.State = "flagged"
		case cell.State != "flagged":
			cell.State = "mine"
		}
	}
}

func symbol(c viewmodel.CellView) string {
	switch c.State {
	case "flagged":
		return "F"
	case "mine":
		return "*"
	case "revealed":
		if c.Count == 0 {
			return "."
		}
		return strconv.Itoa(c.Count)
	default:
		return "-"
	}
}

func (g *grid) render(w io.Writer) {
	if g.cells == nil {
		return
	}
	fmt.Fprint(w, "    ")
	for c := 0; c < g.cols; c++ {
		fmt.Fprintf(w, "%3d", c)
	}
	fmt.Fprintln(w)
	for r := 0; r < g.rows; r++ {
		fmt.Fprintf(w, "%3d ", r)
		for c := 0; c < g.cols; c++ {
			fmt.Fprintf(w, "%3s", symbol(g.cells[r][c]))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "mines remaining: %d  state: %s\n", g.minesRemaining, g.state)
}

type command struct {
	msgID uint16
	data  []byte
	quit  bool
}

type action struct {
	Type   string `json:"type"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Preset string `json:"preset,omitempty"`
	Rows   int    `json:"rows,omitempty"`
	Cols   int    `json:"cols,omitempty"`
	Mines  int    `json:"mines,omitempty"`
}

func parseInts(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, errUsage
		}
		out[i] = n
	}
	return out, nil
}

// parseCommand turns one input line into a packet for the server.
func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, errUsage
	}

	var a action
	switch strings.ToLower(fields[0]) {
	case "q", "quit", "exit":
		return command{quit: true}, nil
	case "r", "reveal", "f", "flag":
		if len(fields) != 3 {
			return command{}, errUsage
		}
		n, err := parseInts(fields[1:])
		if err != nil {
			return command{}, err
		}
		a = action{Type: "reveal", Row: n[0], Col: n[1]}
		if strings.HasPrefix(strings.ToLower(fields[0]), "f") {
			a.Type = "flag"
		}
	case "n", "new":
		a.Type = "new_game"
		switch len(fields) {
		case 1:
		case 2:
			a.Preset = fields[1]
		case 4:
			n, err := parseInts(fields[1:])
			if err != nil {
				return command{}, err
			}
			a.Rows, a.Cols, a.Mines = n[0], n[1], n[2]
		default:
			return command{}, errUsage
		}
	default:
		return command{}, errUsage
	}

	data, err := json.Marshal(a)
	if err != nil {
		return command{}, err
	}
	return command{msgID: network.MsgTypePlayerAction, data: data}, nil
}
