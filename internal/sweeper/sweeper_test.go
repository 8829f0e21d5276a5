package sweeper

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/require"
)

// countingRunner counts sweep invocations
type countingRunner struct {
	sweeps int32
}

func (r *countingRunner) Sweep() (int, error) {
	atomic.AddInt32(&r.sweeps, 1)
	return 0, nil
}

func TestSweeper_SweepsOnEveryTick(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{}
	clk := fakeclock.NewFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	interval := 30 * time.Second
	s := New(runner, clk, interval)

	signals := make(chan os.Signal, 1)
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Run(signals, ready)
	}()

	<-ready

	clk.WaitForWatcherAndIncrement(interval)
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&runner.sweeps) == 1
	}, time.Second, time.Millisecond, "first tick should trigger a sweep")

	clk.WaitForWatcherAndIncrement(interval)
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&runner.sweeps) == 2
	}, time.Second, time.Millisecond, "second tick should trigger another sweep")

	signals <- os.Interrupt
	require.NoError(t, <-done)
}

func TestSweeper_StopsOnSignal(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{}
	clk := fakeclock.NewFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	s := New(runner, clk, time.Minute)

	signals := make(chan os.Signal, 1)
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Run(signals, ready)
	}()

	<-ready
	signals <- os.Interrupt

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after signal")
	}
	require.Zero(t, atomic.LoadInt32(&runner.sweeps))
}
