package board

const (
	Rows = 20
	Cols = 10
)

// Board is the canonical 20x10 grid. 0 is empty, any other value is an
// occupied cell (the value carries the client's color index).
type Board [Rows][Cols]int

// scoring bonus per number of lines cleared in one placement.
var bonuses = [...]int{0, 100, 300, 500, 800}

// Score maps a line-clear count to its bonus. Counts outside the table
// (impossible with 4-cell pieces) score nothing rather than erroring.
func Score(cleared int) int {
	if cleared < 0 || cleared >= len(bonuses) {
		return 0
	}
	return bonuses[cleared]
}

// Apply adopts the client's post-lock snapshot as the new canonical board,
// clears completed rows, and reports whether the match is over. The
// game-over check runs after clearing: a placement that fills the top row
// but also clears it does not end the match.
func Apply(snapshot Board) (updated Board, cleared int, gameOver bool) {
	cleared = snapshot.ClearLines()
	return snapshot, cleared, snapshot.TopRowOccupied()
}

// ClearLines removes every fully occupied row, inserting an empty row at
// the top for each. Scanning runs bottom-up and re-examines an index after
// a removal so rows shifted down into it are not skipped; cascading full
// rows all clear in one pass. Returns the number of rows removed.
func (b *Board) ClearLines() int {
	cleared := 0
	for r := Rows - 1; r >= 0; r-- {
		if !fullRow(b[r]) {
			continue
		}
		for rr := r; rr > 0; rr-- {
			b[rr] = b[rr-1]
		}
		b[0] = [Cols]int{}
		cleared++
		r++ // recheck this index
	}
	return cleared
}

// TopRowOccupied reports the game-over condition.
func (b *Board) TopRowOccupied() bool {
	for _, cell := range b[0] {
		if cell != 0 {
			return true
		}
	}
	return false
}

func fullRow(row [Cols]int) bool {
	for _, cell := range row {
		if cell == 0 {
			return false
		}
	}
	return true
}
