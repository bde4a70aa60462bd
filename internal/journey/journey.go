// Package journey defines named sequences of user-flow steps and the
// virtual-user runners that execute them against an external capability,
// feeding a metrics sink.
package journey

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/taskweave/loadbench/internal/metrics"
)

// DefaultStepTimeout bounds a step action when neither the step nor the
// options set one.
const DefaultStepTimeout = 30 * time.Second

// StepResult is the outcome of one step action.
type StepResult struct {
	Success  bool
	Duration time.Duration
	Error    string
}

// OK returns a successful StepResult.
func OK() StepResult {
	return StepResult{Success: true}
}

// Failf returns a failed StepResult with a formatted error description.
func Failf(format string, args ...any) StepResult {
	return StepResult{Error: fmt.Sprintf(format, args...)}
}

// Action performs one step of a journey. It must honor ctx cancellation and
// report failure through the StepResult, never by panicking; panics are
// recovered into failures anyway.
type Action func(ctx context.Context, jc *Context) StepResult

// Step is one ordered element of a journey.
type Step struct {
	Label  string
	Action Action

	// ThinkMin/ThinkMax bound the uniform random pause after this step.
	ThinkMin time.Duration
	ThinkMax time.Duration

	// BestEffort steps still run after an earlier hard failure (cleanup,
	// logout) and their failures do not fail the iteration.
	BestEffort bool

	// Timeout overrides Options.StepTimeout for this step.
	Timeout time.Duration
}

// Journey is a named, weighted, ordered flow of steps.
type Journey struct {
	Name   string
	Weight float64
	Steps  []Step
}

// Validate checks the journey invariants.
func (j Journey) Validate() error {
	if j.Name == "" {
		return fmt.Errorf("journey: name is required")
	}
	if j.Weight <= 0 {
		return fmt.Errorf("journey %q: weight must be positive", j.Name)
	}
	if len(j.Steps) == 0 {
		return fmt.Errorf("journey %q: needs at least one step", j.Name)
	}
	for i, st := range j.Steps {
		if st.Label == "" {
			return fmt.Errorf("journey %q: step %d has no label", j.Name, i)
		}
		if st.Action == nil {
			return fmt.Errorf("journey %q: step %q has no action", j.Name, st.Label)
		}
		if st.ThinkMax < st.ThinkMin {
			return fmt.Errorf("journey %q: step %q think range inverted", j.Name, st.Label)
		}
	}
	return nil
}

// Context carries per-iteration state between the steps of one journey
// execution: session tokens, created resource ids. It is owned by exactly
// one iteration and discarded at its end, so no locking.
type Context struct {
	ID        string
	VU        int
	Iteration int64

	values map[string]string
}

// NewContext creates a fresh context for one iteration of one virtual user.
func NewContext(vu int, iteration int64) *Context {
	return &Context{
		ID:        uuid.NewString(),
		VU:        vu,
		Iteration: iteration,
		values:    make(map[string]string),
	}
}

// Set stores a value for later steps of the same iteration.
func (c *Context) Set(key, value string) {
	c.values[key] = value
}

// Get returns a value stored by an earlier step.
func (c *Context) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Options controls iteration execution.
type Options struct {
	// StepTimeout bounds each action unless the step overrides it.
	StepTimeout time.Duration

	// NoThink suppresses think-time pauses (stress/breakpoint profiles).
	NoThink bool

	// Limiter, when set, paces iteration starts across the whole pool.
	Limiter *rate.Limiter

	// Rand drives think-time jitter. Nil falls back to the global source.
	Rand *rand.Rand
}

// Outcome classifies one iteration. Aborted is distinct from success and
// failure: it is excluded from both rate denominators.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeAborted Outcome = "aborted"
)

// Metric series names produced by Execute.
const (
	SeriesJourneyDuration   = "journey_duration"
	SeriesJourneyOK         = "journey_ok"
	SeriesIterations        = "iterations"
	SeriesIterationsAborted = "iterations_aborted"
)

// Execute runs one iteration of j with the given per-iteration context,
// recording per-step and per-journey series into the sink.
//
// A non-best-effort step failure skips every later non-best-effort step;
// best-effort steps still run. Cancellation of ctx mid-iteration yields
// OutcomeAborted, counted separately from success and failure.
func Execute(ctx context.Context, j Journey, jc *Context, sink *metrics.Sink, opts Options) Outcome {
	start := time.Now()
	failed := false

	for i, st := range j.Steps {
		if ctx.Err() != nil {
			sink.Add(SeriesIterationsAborted, 1)
			return OutcomeAborted
		}
		if failed && !st.BestEffort {
			continue
		}

		res := runStep(ctx, st, jc, opts)

		// A hard cancel that cut the step short is an abort, not a step
		// failure. Per-step timeouts do not cancel ctx and land below.
		if !res.Success && ctx.Err() != nil {
			sink.Add(SeriesIterationsAborted, 1)
			return OutcomeAborted
		}

		sink.RecordDuration(st.Label+"_duration", res.Duration)
		sink.RecordBool(st.Label+"_ok", res.Success)

		if !res.Success && !st.BestEffort {
			failed = true
		}

		if i < len(j.Steps)-1 && !opts.NoThink {
			if !think(ctx, st, opts) {
				sink.Add(SeriesIterationsAborted, 1)
				return OutcomeAborted
			}
		}
	}

	sink.RecordDuration(SeriesJourneyDuration, time.Since(start))
	sink.RecordDuration("journey_"+j.Name+"_duration", time.Since(start))
	sink.RecordBool(SeriesJourneyOK, !failed)
	sink.RecordBool("journey_"+j.Name+"_ok", !failed)
	sink.Add(SeriesIterations, 1)

	if failed {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func runStep(parent context.Context, st Step, jc *Context, opts Options) StepResult {
	timeout := st.Timeout
	if timeout <= 0 {
		timeout = opts.StepTimeout
	}
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	start := time.Now()
	res := invoke(ctx, st.Action, jc)
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}

	if !res.Success {
		if ctx.Err() == context.DeadlineExceeded && parent.Err() == nil {
			res.Error = "timeout"
		} else if res.Error == "" {
			res.Error = "step failed"
		}
	}
	return res
}

func invoke(ctx context.Context, action Action, jc *Context) (res StepResult) {
	defer func() {
		if r := recover(); r != nil {
			res = StepResult{Error: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return action(ctx, jc)
}

// think waits the step's randomized pause; returns false if ctx was
// cancelled during the wait.
func think(ctx context.Context, st Step, opts Options) bool {
	d := st.ThinkMin
	if spread := st.ThinkMax - st.ThinkMin; spread > 0 {
		if opts.Rand != nil {
			d += time.Duration(opts.Rand.Int63n(int64(spread)))
		} else {
			d += time.Duration(rand.Int63n(int64(spread)))
		}
	}
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
