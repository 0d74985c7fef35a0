// Package evaluation ties grid validation, run scanning and outcome
// persistence into the two operations the service exposes.
package evaluation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/banshee-data/mutant.report/internal/dna"
	"github.com/banshee-data/mutant.report/internal/monitoring"
	"github.com/banshee-data/mutant.report/internal/stats"
)

// ErrRejected is returned by Evaluate for a valid grid that does not qualify.
var ErrRejected = errors.New("dna is not mutant")

// Submitter accepts outcomes for asynchronous persistence.
type Submitter interface {
	Submit(key string, isMutant bool) error
}

// OutcomeCounter returns stored outcome counts grouped by verdict.
type OutcomeCounter interface {
	CountsByOutcome(ctx context.Context) (map[bool]int64, error)
}

// Service evaluates grids and reports on what has been evaluated.
type Service struct {
	counter   OutcomeCounter
	submitter Submitter
	logger    *zap.Logger
}

// NewService returns a Service. A nil logger uses the process logger.
func NewService(counter OutcomeCounter, submitter Submitter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = monitoring.L()
	}
	return &Service{counter: counter, submitter: submitter, logger: logger}
}

// Evaluate validates rows and scans the grid. It returns true for a
// qualifying grid, (false, ErrRejected) for a non-qualifying one and
// (false, *dna.ValidationError) for a malformed one. Every valid grid's
// outcome is handed to the submitter; a failed hand-off is only logged.
func (s *Service) Evaluate(ctx context.Context, rows []string) (bool, error) {
	g, err := dna.Validate(rows)
	if err != nil {
		return false, err
	}

	isMutant := dna.Scan(g)
	key := dna.Digest(g)
	if err := s.submitter.Submit(key, isMutant); err != nil {
		s.logger.Warn("outcome not recorded",
			zap.String("key", key),
			zap.Bool("is_mutant", isMutant),
			zap.Error(err))
	}

	if !isMutant {
		return false, ErrRejected
	}
	return true, nil
}

// Report returns aggregate statistics over every stored outcome. With no
// outcomes stored it returns stats.ErrDivisionUndefined.
func (s *Service) Report(ctx context.Context) (stats.Stats, error) {
	counts, err := s.counter.CountsByOutcome(ctx)
	if err != nil {
		return stats.Stats{}, fmt.Errorf("failed to load outcome counts: %w", err)
	}
	return stats.FromCounts(counts)
}
