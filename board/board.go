package board

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/zyedidia/generic/mapset"
)

// Source is the random source used for mine placement.
// *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Option customizes New.
type Option func(*options)

type options struct {
	src    Source
	layout []Coord
}

// WithSource places mines using src instead of a time-seeded generator.
func WithSource(src Source) Option {
	return func(o *options) { o.src = src }
}

// WithSeed places mines using a math/rand generator seeded with seed.
func WithSeed(seed int64) Option {
	return WithSource(rand.New(rand.NewSource(seed)))
}

// WithMines places mines at exactly the given coordinates.
// The list must hold one distinct in-bounds coordinate per mine.
func WithMines(coords ...Coord) Option {
	return func(o *options) { o.layout = append([]Coord(nil), coords...) }
}

// Board is a rows x cols minesweeper grid with its game state.
// It is not safe for concurrent use.
type Board struct {
	rows      int
	cols      int
	mineCount int
	revealed  int
	flags     int
	state     State
	cells     []Cell // row*cols+col
}

// New allocates a board and places its mines before returning.
func New(rows, cols, mineCount int, opts ...Option) (*Board, error) {
	if rows < 1 || cols < 1 || rows > math.MaxInt/cols {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrInvalidConfiguration, rows, cols)
	}
	if mineCount <= 0 || mineCount >= rows*cols {
		return nil, fmt.Errorf("%w: %d mines on a %dx%d grid", ErrInvalidConfiguration, mineCount, rows, cols)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	b := &Board{
		rows:      rows,
		cols:      cols,
		mineCount: mineCount,
		state:     NotStarted,
		cells:     make([]Cell, rows*cols),
	}

	if o.layout != nil {
		if err := b.setMines(o.layout); err != nil {
			return nil, err
		}
	} else {
		src := o.src
		if src == nil {
			src = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		b.placeMines(src)
	}
	b.countAdjacent()

	return b, nil
}

// placeMines draws random cells, redrawing on collisions, until
// mineCount mines are set.
func (b *Board) placeMines(src Source) {
	placed := 0
	for placed < b.mineCount {
		r := src.Intn(b.rows)
		c := src.Intn(b.cols)

		cell := &b.cells[b.index(r, c)]
		if !cell.IsMine {
			cell.IsMine = true
			placed++
		}
	}
}

func (b *Board) setMines(layout []Coord) error {
	if len(layout) != b.mineCount {
		return fmt.Errorf("%w: layout has %d mines, want %d", ErrInvalidConfiguration, len(layout), b.mineCount)
	}
	for _, p := range layout {
		if !b.inBounds(p.Row, p.Col) {
			return fmt.Errorf("%w: mine at (%d,%d) outside grid", ErrInvalidConfiguration, p.Row, p.Col)
		}
		cell := &b.cells[b.index(p.Row, p.Col)]
		if cell.IsMine {
			return fmt.Errorf("%w: duplicate mine at (%d,%d)", ErrInvalidConfiguration, p.Row, p.Col)
		}
		cell.IsMine = true
	}
	return nil
}

func (b *Board) countAdjacent() {
	for i := range b.cells {
		count := 0
		b.around(i, func(n int) {
			if b.cells[n].IsMine {
				count++
			}
		})
		b.cells[i].AdjacentMines = count
	}
}

func (b *Board) index(r, c int) int {
	return r*b.cols + c
}

func (b *Board) coord(i int) Coord {
	return Coord{Row: i / b.cols, Col: i % b.cols}
}

func (b *Board) inBounds(r, c int) bool {
	return r >= 0 && r < b.rows && c >= 0 && c < b.cols
}

// around calls fn with the index of every in-bounds Moore neighbour of i.
func (b *Board) around(i int, fn func(n int)) {
	r, c := i/b.cols, i%b.cols
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			nr, nc := r+dr, c+dc
			if b.inBounds(nr, nc) {
				fn(b.index(nr, nc))
			}
		}
	}
}

func (b *Board) checkBounds(r, c int) error {
	if !b.inBounds(r, c) {
		return fmt.Errorf("%w: (%d,%d) on a %dx%d grid", ErrOutOfBounds, r, c, b.rows, b.cols)
	}
	return nil
}

// Reveal opens the cell at (r, c). Opening a zero cell cascades to its
// neighbours. Revealing a flagged or already revealed cell, or any cell
// of a finished game, is a no-op.
func (b *Board) Reveal(r, c int) (RevealResult, error) {
	if err := b.checkBounds(r, c); err != nil {
		return RevealResult{State: b.state}, err
	}

	start := b.index(r, c)
	cell := &b.cells[start]
	if b.state.Terminal() || cell.Revealed || cell.Flagged {
		return RevealResult{State: b.state}, nil
	}

	if b.state == NotStarted {
		b.state = InProgress
	}

	var changed []CellView
	b.open(start)
	changed = append(changed, b.view(start))

	if cell.IsMine {
		b.state = Lost
		return RevealResult{Changed: changed, State: b.state}, nil
	}

	// The revealed flag doubles as the visited mark: a cell is opened
	// when it is enqueued, so it can never be enqueued twice.
	if cell.AdjacentMines == 0 {
		queue := []int{start}
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			b.around(i, func(n int) {
				next := &b.cells[n]
				if next.Revealed || next.Flagged {
					return
				}
				b.open(n)
				changed = append(changed, b.view(n))
				if next.AdjacentMines == 0 {
					queue = append(queue, n)
				}
			})
		}
	}

	if b.revealed == len(b.cells)-b.mineCount {
		b.state = Won
	}
	return RevealResult{Changed: changed, State: b.state}, nil
}

func (b *Board) open(i int) {
	b.cells[i].Revealed = true
	b.revealed++
}

// ToggleFlag flips the flag on a hidden cell. It is a no-op on revealed
// cells and finished games.
func (b *Board) ToggleFlag(r, c int) (FlagResult, error) {
	if err := b.checkBounds(r, c); err != nil {
		return FlagResult{State: b.state}, err
	}

	i := b.index(r, c)
	cell := &b.cells[i]
	if b.state.Terminal() || cell.Revealed {
		return FlagResult{Cell: b.view(i), State: b.state}, nil
	}

	cell.Flagged = !cell.Flagged
	if cell.Flagged {
		b.flags++
	} else {
		b.flags--
	}
	return FlagResult{Cell: b.view(i), Changed: true, State: b.state}, nil
}

func (b *Board) view(i int) CellView {
	cell := b.cells[i]
	v := CellView{Coord: b.coord(i)}
	switch {
	case cell.Revealed && cell.IsMine:
		v.State = RevealedMine
	case cell.Revealed:
		v.State = Revealed
		v.AdjacentMines = cell.AdjacentMines
	case cell.Flagged:
		v.State = Flagged
	default:
		v.State = Hidden
	}
	return v
}

// CellState returns the player-visible state of (r, c).
func (b *Board) CellState(r, c int) (CellView, error) {
	if err := b.checkBounds(r, c); err != nil {
		return CellView{}, err
	}
	return b.view(b.index(r, c)), nil
}

// Cell returns the full cell at (r, c), mine flag included.
func (b *Board) Cell(r, c int) (Cell, error) {
	if err := b.checkBounds(r, c); err != nil {
		return Cell{}, err
	}
	return b.cells[b.index(r, c)], nil
}

// State returns the current game state.
func (b *Board) State() State { return b.state }

// Mines returns the coordinates of every mine.
func (b *Board) Mines() mapset.Set[Coord] {
	mines := mapset.New[Coord]()
	for i, cell := range b.cells {
		if cell.IsMine {
			mines.Put(b.coord(i))
		}
	}
	return mines
}

func (b *Board) Rows() int          { return b.rows }
func (b *Board) Cols() int          { return b.cols }
func (b *Board) MineCount() int     { return b.mineCount }
func (b *Board) RevealedCount() int { return b.revealed }
func (b *Board) FlagCount() int     { return b.flags }

// MinesRemaining is the mine count minus placed flags. It goes negative
// when the player over-flags.
func (b *Board) MinesRemaining() int {
	return b.mineCount - b.flags
}

// Snapshot returns the player-visible grid, row-major.
func (b *Board) Snapshot() [][]CellView {
	grid := make([][]CellView, b.rows)
	for r := 0; r < b.rows; r++ {
		grid[r] = make([]CellView, b.cols)
		for c := 0; c < b.cols; c++ {
			grid[r][c] = b.view(b.index(r, c))
		}
	}
	return grid
}

// String renders the board for debugging: "-" hidden, "F" flagged,
// "." empty, digits for counts and "*" for a revealed mine.
func (b *Board) String() string {
	var sb strings.Builder
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			v := b.view(b.index(r, c))
			switch v.State {
			case Hidden:
				sb.WriteByte('-')
			case Flagged:
				sb.WriteByte('F')
			case RevealedMine:
				sb.WriteByte('*')
			default:
				if v.AdjacentMines == 0 {
					sb.WriteByte('.')
				} else {
					sb.WriteString(strconv.Itoa(v.AdjacentMines))
				}
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
