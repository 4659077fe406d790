package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
	"github.com/jonesrussell/north-cloud/medgraph/internal/orchestrator"
	"github.com/jonesrussell/north-cloud/medgraph/internal/scheduler"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	opts    []orchestrator.RunOptions
	release chan struct{}
}

func (f *fakeRunner) RunMany(
	_ context.Context, countries []string, opts orchestrator.RunOptions,
) ([]orchestrator.RunResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, countries)
	f.opts = append(f.opts, opts)
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}

	out := make([]orchestrator.RunResult, 0, len(countries))
	for _, c := range countries {
		out = append(out, orchestrator.RunResult{Country: c, State: orchestrator.StateSkipped})
	}
	return out, nil
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestNext(t *testing.T) {
	t.Parallel()

	s := scheduler.New(&fakeRunner{}, nil, orchestrator.RunOptions{}, nil, logger.NewNop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	next, err := s.Next("0 3 * * *", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC), next)

	_, err = s.Next("not a cron", now)
	require.Error(t, err)

	_, err = s.Next("0 0 3 * * *", now)
	require.Error(t, err, "seconds field is not accepted")
}

func TestTrigger_PassesCountriesAndOptions(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	var got []orchestrator.RunResult
	opts := orchestrator.RunOptions{RefreshDays: 7}
	s := scheduler.New(runner, []string{"USA", "IND"}, opts, func(r []orchestrator.RunResult) { got = r }, logger.NewNop())

	s.Trigger(context.Background())

	require.Equal(t, 1, runner.callCount())
	assert.Equal(t, []string{"USA", "IND"}, runner.calls[0])
	assert.Equal(t, opts, runner.opts[0])
	require.Len(t, got, 2)
	assert.Equal(t, "IND", got[1].Country)
}

func TestTrigger_SkipsWhileRunning(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{release: make(chan struct{})}
	s := scheduler.New(runner, []string{"CAN"}, orchestrator.RunOptions{}, nil, logger.NewNop())

	done := make(chan struct{})
	go func() {
		s.Trigger(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return runner.callCount() == 1 }, time.Second, time.Millisecond)

	s.Trigger(context.Background())
	assert.Equal(t, 1, runner.callCount())

	close(runner.release)
	<-done
}

func TestRun_InvalidExpression(t *testing.T) {
	t.Parallel()

	s := scheduler.New(&fakeRunner{}, nil, orchestrator.RunOptions{}, nil, logger.NewNop())
	require.Error(t, s.Run(context.Background(), "bogus"))
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	s := scheduler.New(&fakeRunner{}, []string{"USA"}, orchestrator.RunOptions{}, nil, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, "0 3 * * *") }()

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
