package dna

// RunLength is the number of identical consecutive nucleotides that make up
// one qualifying run. Longer runs count once per complete RunLength chunk.
const RunLength = 4

type axis uint8

const (
	horizontal axis = iota
	vertical
	mainDiagonal // ↘ / ↖
	antiDiagonal // ↙ / ↗
	numAxes
)

var axisNames = [numAxes]string{"horizontal", "vertical", "main-diagonal", "anti-diagonal"}

func (a axis) String() string { return axisNames[a] }

// axisStep is the forward (row, col) step along each axis.
var axisStep = [numAxes][2]int{
	horizontal:   {0, 1},
	vertical:     {1, 0},
	mainDiagonal: {1, 1},
	antiDiagonal: {1, -1},
}

// visitedMask records, per cell and per axis, that the cell already belongs
// to a counted run on that axis. A maximal run is therefore counted once no
// matter how many of its sampled cells the scan reaches, while a cell where
// two runs on different axes cross still contributes to both.
type visitedMask struct {
	n    int
	bits []uint8
}

func newVisitedMask(n int) *visitedMask {
	return &visitedMask{n: n, bits: make([]uint8, n*n)}
}

func (m *visitedMask) marked(row, col int, a axis) bool {
	return m.bits[row*m.n+col]&(1<<a) != 0
}

func (m *visitedMask) mark(row, col int, a axis) {
	m.bits[row*m.n+col] |= 1 << a
}

// scanner holds the state of a single scan. It is never shared.
type scanner struct {
	g     Grid
	n     int
	mask  *visitedMask
	tally int
}

func newScanner(g Grid) *scanner {
	return &scanner{g: g, n: g.Size(), mask: newVisitedMask(g.Size())}
}

// Scan reports whether g holds more than one qualifying run. It returns as
// soon as the second run is found.
//
// Rows are visited from the middle outwards and only a subset of columns is
// tried as a starting cell: every third column on even rows (0, 3, 6, ...)
// and two-on-one-off on odd rows (1, 2, 4, 5, ...). Any four consecutive
// cells on any axis include at least one sampled cell, and each hit is
// extended to its full run, so no run is missed. The cost is about 5N²/12
// starting cells instead of N².
func Scan(g Grid) bool {
	return newScanner(g).run(true) > 1
}

// CountRuns returns the total number of qualifying runs in g using the same
// traversal as Scan without stopping early.
func CountRuns(g Grid) int {
	return newScanner(g).run(false)
}

func (s *scanner) run(stopEarly bool) int {
	for _, row := range rowOrder(s.n) {
		for col := firstColumn(row); col < s.n; col = nextColumn(row, col) {
			s.visit(row, col)
			if stopEarly && s.tally > 1 {
				return s.tally
			}
		}
	}
	return s.tally
}

// visit evaluates every axis through (row, col) that has not already been
// attributed to a counted run.
func (s *scanner) visit(row, col int) {
	for a := axis(0); a < numAxes; a++ {
		if s.mask.marked(row, col, a) {
			continue
		}
		s.tally += s.extend(row, col, a)
	}
}

// extend finds the maximal run through (row, col) along a. When it is long
// enough every cell of the run is marked and the number of complete
// RunLength chunks is returned.
func (s *scanner) extend(row, col int, a axis) int {
	dr, dc := axisStep[a][0], axisStep[a][1]
	want := s.g.At(row, col)

	startR, startC := row, col
	for s.matches(startR-dr, startC-dc, want) {
		startR, startC = startR-dr, startC-dc
	}
	length := 1
	for s.matches(startR+length*dr, startC+length*dc, want) {
		length++
	}
	if length < RunLength {
		return 0
	}

	for i := 0; i < length; i++ {
		s.mask.mark(startR+i*dr, startC+i*dc, a)
	}
	return length / RunLength
}

func (s *scanner) matches(row, col int, want byte) bool {
	return row >= 0 && row < s.n && col >= 0 && col < s.n && s.g.At(row, col) == want
}

// rowOrder returns the row indexes n/2, n/2+1, n/2-1, n/2+2, n/2-2, ...
func rowOrder(n int) []int {
	mid := n / 2
	order := make([]int, 0, n)
	order = append(order, mid)
	for d := 1; len(order) < n; d++ {
		if mid+d < n {
			order = append(order, mid+d)
		}
		if mid-d >= 0 {
			order = append(order, mid-d)
		}
	}
	return order
}

func firstColumn(row int) int {
	if row%2 == 0 {
		return 0
	}
	return 1
}

func nextColumn(row, col int) int {
	switch {
	case row%2 == 0:
		return col + 3
	case col%3 == 2:
		return col + 2
	default:
		return col + 1
	}
}
