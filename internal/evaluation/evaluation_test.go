package evaluation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/banshee-data/mutant.report/internal/dna"
	"github.com/banshee-data/mutant.report/internal/stats"
	"github.com/banshee-data/mutant.report/internal/testutil"
)

type submission struct {
	key      string
	isMutant bool
}

type fakeSubmitter struct {
	mu   sync.Mutex
	got  []submission
	fail error
}

func (f *fakeSubmitter) Submit(key string, isMutant bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.got = append(f.got, submission{key, isMutant})
	return nil
}

type fakeCounter struct {
	counts map[bool]int64
	err    error
}

func (f fakeCounter) CountsByOutcome(context.Context) (map[bool]int64, error) {
	return f.counts, f.err
}

func TestEvaluateQualifying(t *testing.T) {
	t.Parallel()
	sub := &fakeSubmitter{}
	svc := NewService(fakeCounter{}, sub, zap.NewNop())

	ok, err := svc.Evaluate(context.Background(), testutil.MutantRows())
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, sub.got, 1)
	g, err := dna.Validate(testutil.MutantRows())
	require.NoError(t, err)
	assert.Equal(t, submission{dna.Digest(g), true}, sub.got[0])
}

func TestEvaluateRejected(t *testing.T) {
	t.Parallel()
	sub := &fakeSubmitter{}
	svc := NewService(fakeCounter{}, sub, zap.NewNop())

	ok, err := svc.Evaluate(context.Background(), testutil.HumanRows())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrRejected)

	// Rejected grids are still recorded.
	require.Len(t, sub.got, 1)
	assert.False(t, sub.got[0].isMutant)
}

func TestEvaluateInvalidNotSubmitted(t *testing.T) {
	t.Parallel()
	sub := &fakeSubmitter{}
	svc := NewService(fakeCounter{}, sub, zap.NewNop())

	tests := []struct {
		name string
		rows []string
		kind error
	}{
		{"too small", []string{"ATG", "CAG", "TTA"}, dna.ErrSize},
		{"not square", []string{"ATGC", "CAG", "TTAT", "AGAC"}, dna.ErrShape},
		{"bad char", []string{"ATGC", "CAPT", "TTAT", "AGAC"}, dna.ErrAlphabet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := svc.Evaluate(context.Background(), tt.rows)
			assert.False(t, ok)
			assert.ErrorIs(t, err, tt.kind)
			var verr *dna.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
	assert.Empty(t, sub.got)
}

func TestEvaluateSubmitFailureIsLogged(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.WarnLevel)
	sub := &fakeSubmitter{fail: errors.New("queue full")}
	svc := NewService(fakeCounter{}, sub, zap.New(core))

	ok, err := svc.Evaluate(context.Background(), testutil.MutantRows())
	require.NoError(t, err)
	assert.True(t, ok)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "outcome not recorded", entry.Message)
	assert.Equal(t, true, entry.ContextMap()["is_mutant"])
}

func TestEvaluateSameGridSameKey(t *testing.T) {
	t.Parallel()
	sub := &fakeSubmitter{}
	svc := NewService(fakeCounter{}, sub, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := svc.Evaluate(context.Background(), testutil.MutantRows())
		require.NoError(t, err)
	}
	require.Len(t, sub.got, 2)
	assert.Equal(t, sub.got[0].key, sub.got[1].key)
}

func TestReport(t *testing.T) {
	t.Parallel()

	svc := NewService(fakeCounter{counts: map[bool]int64{true: 2, false: 1}}, &fakeSubmitter{}, zap.NewNop())
	s, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Qualifying)
	assert.Equal(t, int64(1), s.NonQualifying)
	assert.Equal(t, int64(3), s.Total)
	assert.Equal(t, 0.6666666666666666, s.Ratio)

	svc = NewService(fakeCounter{counts: map[bool]int64{}}, &fakeSubmitter{}, zap.NewNop())
	_, err = svc.Report(context.Background())
	assert.ErrorIs(t, err, stats.ErrDivisionUndefined)

	boom := errors.New("database is locked")
	svc = NewService(fakeCounter{err: boom}, &fakeSubmitter{}, zap.NewNop())
	_, err = svc.Report(context.Background())
	assert.ErrorIs(t, err, boom)
}
