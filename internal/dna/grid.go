// Package dna validates nucleotide grids and scans them for repeated runs.
package dna

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MinSize is the smallest grid edge that can hold a qualifying run.
const MinSize = RunLength

// Sentinel kinds carried by *ValidationError. Match with errors.Is.
var (
	ErrShape    = errors.New("matrix is not square")
	ErrSize     = errors.New("matrix is too small")
	ErrAlphabet = errors.New("invalid nucleotide")
)

// ValidationError describes why a submitted grid was rejected before scanning.
type ValidationError struct {
	Kind error

	// Row and Col locate the offending cell for alphabet errors, and Row the
	// offending row for shape errors. Both are -1 when not applicable.
	Row, Col int
	Char     rune

	// N is the number of rows submitted; Len the length of the bad row.
	N, Len int
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ErrSize:
		return fmt.Sprintf("%v: %d rows, at least %d required for a run of %d", e.Kind, e.N, MinSize, RunLength)
	case ErrShape:
		return fmt.Sprintf("%v: row %d has length %d, want N(%d) * N(%d)", e.Kind, e.Row, e.Len, e.N, e.N)
	case ErrAlphabet:
		return fmt.Sprintf("%v %q at row %d, column %d: only A, T, C, G are allowed", e.Kind, e.Char, e.Row, e.Col)
	default:
		return fmt.Sprintf("invalid matrix: %v", e.Kind)
	}
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Grid is a validated, read-only N×N nucleotide matrix.
type Grid struct {
	rows []string
}

// Validate checks that rows form a square matrix of at least MinSize over
// {A, T, C, G} and returns it as a Grid. Size is checked before shape, and
// shape before alphabet.
func Validate(rows []string) (Grid, error) {
	n := len(rows)
	if n < MinSize {
		return Grid{}, &ValidationError{Kind: ErrSize, Row: -1, Col: -1, N: n}
	}
	// Lengths and columns count characters; invalid UTF-8 bytes count as
	// one utf8.RuneError each.
	for r, row := range rows {
		if l := utf8.RuneCountInString(row); l != n {
			return Grid{}, &ValidationError{Kind: ErrShape, Row: r, Col: -1, N: n, Len: l}
		}
	}
	for r, row := range rows {
		c := 0
		for _, ch := range row {
			if !isNucleotide(ch) {
				return Grid{}, &ValidationError{Kind: ErrAlphabet, Row: r, Col: c, Char: ch, N: n}
			}
			c++
		}
	}

	owned := make([]string, n)
	copy(owned, rows)
	return Grid{rows: owned}, nil
}

func isNucleotide(ch rune) bool {
	switch ch {
	case 'A', 'T', 'C', 'G':
		return true
	}
	return false
}

// Size returns N.
func (g Grid) Size() int { return len(g.rows) }

// At returns the nucleotide at (row, col).
func (g Grid) At(row, col int) byte { return g.rows[row][col] }

// Rows returns a copy of the grid rows.
func (g Grid) Rows() []string {
	out := make([]string, len(g.rows))
	copy(out, g.rows)
	return out
}
