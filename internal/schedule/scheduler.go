package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the scheduler lifecycle state.
type State string

const (
	StateNotStarted State = "not_started"
	StateRunning    State = "running"
	StateDraining   State = "draining"
	StateFinished   State = "finished"
)

// Pool is the set of virtual users the scheduler reconciles. Scale spawns or
// retires runners toward the target; retiring runners finish their current
// iteration first. Drain blocks until all runners exit or the context
// expires, forcibly cancelling and counting the stragglers as aborted.
type Pool interface {
	Scale(target int)
	Active() int
	Drain(ctx context.Context) (aborted int)
}

// Scheduler walks a Profile on wall-clock time and keeps a Pool tracking the
// profile's target concurrency.
type Scheduler struct {
	profile Profile
	pool    Pool
	obs     Observer

	mu       sync.RWMutex
	state    State
	stageIdx int
}

// NewScheduler creates a scheduler. A nil observer defaults to NopObserver.
func NewScheduler(profile Profile, pool Pool, obs Observer) *Scheduler {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Scheduler{
		profile:  profile,
		pool:     pool,
		obs:      obs,
		state:    StateNotStarted,
		stageIdx: -1,
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// StageIndex returns the index of the stage currently executing, -1 before
// the run starts.
func (s *Scheduler) StageIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stageIdx
}

// Run executes the profile to completion and drains the pool. It returns the
// number of iterations aborted by grace-period expiry. Cancelling ctx ends
// the staged portion early but still drains within the grace period.
func (s *Scheduler) Run(ctx context.Context) (int, error) {
	if err := s.profile.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	if s.state != StateNotStarted {
		s.mu.Unlock()
		return 0, fmt.Errorf("schedule: scheduler already started")
	}
	s.state = StateRunning
	s.mu.Unlock()

	start := time.Now()
	total := s.profile.TotalDuration()
	s.obs.RunStarted(s.profile)

	ticker := time.NewTicker(s.profile.tick())
	defer ticker.Stop()

	lastTarget := -1
	s.reconcile(start, &lastTarget)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			if time.Since(start) >= total {
				break loop
			}
			s.reconcile(start, &lastTarget)
		}
	}

	s.mu.Lock()
	s.state = StateDraining
	s.mu.Unlock()
	s.obs.DrainStarted(s.pool.Active())

	s.pool.Scale(0)

	// Draining still honors the grace period when the parent context has
	// already been cancelled.
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.profile.grace())
	defer cancel()
	aborted := s.pool.Drain(drainCtx)

	s.mu.Lock()
	s.state = StateFinished
	s.mu.Unlock()
	s.obs.RunFinished(time.Since(start), aborted)

	return aborted, nil
}

func (s *Scheduler) reconcile(start time.Time, lastTarget *int) {
	elapsed := time.Since(start)

	idx, _ := s.profile.StageIndexAt(elapsed)
	s.mu.Lock()
	if idx != s.stageIdx {
		s.stageIdx = idx
		s.mu.Unlock()
		s.obs.StageChanged(idx, s.profile.Stages[idx])
	} else {
		s.mu.Unlock()
	}

	target := s.profile.TargetAt(elapsed)
	s.pool.Scale(target)
	if target != *lastTarget {
		*lastTarget = target
		s.obs.TargetChanged(target, s.pool.Active())
	}
}
