package bingo

// GridSize is the board edge length; the grid holds GridSize*GridSize cells.
const GridSize = 5

// GridCells is the number of target positions on the board.
const GridCells = GridSize * GridSize

// Line is one of the fixed winning index-sets over the grid.
type Line struct {
	ID    string
	Cells [GridSize]int
}

var lines = buildLines()

// Lines returns the 12 winning lines: 5 rows, 5 columns, 2 diagonals. The
// returned slice is shared; callers must not mutate it.
func Lines() []Line {
	return lines
}

func buildLines() []Line {
	out := make([]Line, 0, 2*GridSize+2)
	for r := 0; r < GridSize; r++ {
		var l Line
		l.ID = rowID(r)
		for c := 0; c < GridSize; c++ {
			l.Cells[c] = r*GridSize + c
		}
		out = append(out, l)
	}
	for c := 0; c < GridSize; c++ {
		var l Line
		l.ID = colID(c)
		for r := 0; r < GridSize; r++ {
			l.Cells[r] = r*GridSize + c
		}
		out = append(out, l)
	}
	var main, anti Line
	main.ID = "diag-main"
	anti.ID = "diag-anti"
	for i := 0; i < GridSize; i++ {
		main.Cells[i] = i*GridSize + i
		anti.Cells[i] = i*GridSize + (GridSize - 1 - i)
	}
	return append(out, main, anti)
}

func rowID(r int) string {
	return "row-" + string(rune('0'+r))
}

func colID(c int) string {
	return "col-" + string(rune('0'+c))
}
