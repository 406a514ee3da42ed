package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/imxin/internal/logging"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
	"github.com/fyrsmithlabs/imxin/internal/storage"
)

// manualScheduler records timers and fires them on demand.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Fire runs every timer that is still armed.
func (s *manualScheduler) Fire() int {
	s.mu.Lock()
	timers := append([]*manualTimer(nil), s.timers...)
	s.mu.Unlock()

	n := 0
	for _, t := range timers {
		t.mu.Lock()
		run := !t.stopped && !t.fired
		t.fired = t.fired || run
		t.mu.Unlock()
		if run {
			t.f()
			n++
		}
	}
	return n
}

// FireStopped runs timers even after Stop, as if Stop lost the race.
func (s *manualScheduler) FireStopped() {
	s.mu.Lock()
	timers := append([]*manualTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range timers {
		t.f()
	}
}

func (s *manualScheduler) armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		t.mu.Lock()
		if !t.stopped && !t.fired {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

type fixture struct {
	ctrl  *Controller
	repo  *storage.Repository
	sched *manualScheduler
	log   *logging.TestLogger
	clock time.Time
}

func newFixture(t *testing.T, kv storage.KV) *fixture {
	t.Helper()
	if kv == nil {
		kv = storage.NewMemory()
	}
	f := &fixture{
		sched: &manualScheduler{},
		log:   logging.NewTestLogger(),
		clock: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	f.repo = storage.NewRepository(kv, f.log.Logger, nil)
	f.ctrl = f.open(t)
	return f
}

func (f *fixture) open(t *testing.T) *Controller {
	t.Helper()
	seq := 0
	ctrl, err := New(context.Background(), f.repo, Config{
		Scheduler: f.sched,
		Now:       func() time.Time { return f.clock },
		NewSessionID: func() string {
			seq++
			return fmt.Sprintf("sess-%d", seq)
		},
		Logger: f.log.Logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { ctrl.Close() })
	return ctrl
}

// driveToLabeling walks from recognizing to labeling with the given quadrants.
func (f *fixture) driveToLabeling(t *testing.T, full bool, qs ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.ctrl.SetFullFlow(ctx, full)
	require.NoError(t, err)
	_, err = f.ctrl.CompleteMood(ctx, quadrants(qs...), 6)
	require.NoError(t, err)
	require.Equal(t, 1, f.sched.Fire())
	require.Equal(t, ruler.StepBodyScan, f.ctrl.State().Step())
	_, err = f.ctrl.SkipBodyScan(ctx)
	require.NoError(t, err)
}

// failingStore fails every Commit.
type failingStore struct {
	*storage.Repository
}

var errCommit = errors.New("disk full")

func (failingStore) Commit(context.Context, ruler.LogEntry) error { return errCommit }
