// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// MutantRows returns a 6×6 grid with three runs.
func MutantRows() []string {
	return []string{"ATGCGA", "CAGTGC", "TTATGT", "AGAAGG", "CCCCTA", "TCACTG"}
}

// OtherMutantRows returns a 4×4 grid with two horizontal runs, distinct
// from MutantRows.
func OtherMutantRows() []string {
	return []string{"AAAA", "CCCC", "TCAG", "GGTC"}
}

// HumanRows returns a 6×6 grid with a single run.
func HumanRows() []string {
	return []string{"ATGCGA", "CAGTGC", "TTGTGT", "AGAAGG", "CCGCTA", "TCACTG"}
}

// DNABody encodes rows as a POST /mutant request body.
func DNABody(t *testing.T, rows []string) string {
	t.Helper()
	b, err := json.Marshal(map[string][]string{"dna": rows})
	if err != nil {
		t.Fatalf("failed to encode rows: %v", err)
	}
	return string(b)
}

// NewJSONRequest creates a test HTTP request carrying body as JSON.
func NewJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}
