// Package harness wires the pieces of a run together: target check, status
// server, scheduler over a virtual-user pool, threshold evaluation, report.
package harness

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/taskweave/loadbench/internal/client"
	"github.com/taskweave/loadbench/internal/config"
	"github.com/taskweave/loadbench/internal/journey"
	"github.com/taskweave/loadbench/internal/metrics"
	"github.com/taskweave/loadbench/internal/report"
	"github.com/taskweave/loadbench/internal/scenario"
	"github.com/taskweave/loadbench/internal/schedule"
	"github.com/taskweave/loadbench/internal/threshold"
)

// ErrSetup marks a failed pre-run target check. Nothing ran and no report
// exists when this comes back.
var ErrSetup = errors.New("target setup check failed")

// HealthPath is probed once before the run starts.
const HealthPath = "/health"

// Harness holds everything one run needs. New fills the fields from config;
// tests and callers may override them before Run.
type Harness struct {
	Config   *config.Config
	Logger   *zap.Logger
	Caller   client.Caller
	Sink     *metrics.Sink
	Registry *prometheus.Registry
	Journeys []journey.Journey
	Profile  scenario.RunProfile
	Rules    []threshold.Rule
	Observer schedule.Observer
}

// New builds a harness from config: HTTP caller for the target, fresh sink
// and registry, the full journey catalog, and the named profile.
func New(cfg *config.Config, logger *zap.Logger) (*Harness, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prof, ok := scenario.LookupProfile(cfg.Run.Profile)
	if !ok {
		return nil, fmt.Errorf("harness: unknown profile %q (have %v)",
			cfg.Run.Profile, scenario.ProfileNames())
	}
	if cfg.Run.GracefulStop > 0 {
		prof.Schedule.GracefulStop = cfg.Run.GracefulStop
	}
	if cfg.Run.Tick > 0 {
		prof.Schedule.Tick = cfg.Run.Tick
	}

	header := http.Header{}
	for k, v := range cfg.Target.Headers {
		header.Set(k, v)
	}
	caller, err := client.NewHTTPCaller(cfg.Target.BaseURL, header)
	if err != nil {
		return nil, err
	}

	sink := metrics.NewSink()
	registry := prometheus.NewRegistry()
	registry.MustRegister(sink.Collector("loadbench"))

	return &Harness{
		Config:   cfg,
		Logger:   logger,
		Caller:   caller,
		Sink:     sink,
		Registry: registry,
		Journeys: scenario.NewCatalog(caller).Journeys(),
		Profile:  prof,
		Rules:    prof.Rules,
		Observer: schedule.ZapObserver{Logger: logger},
	}, nil
}

// Run executes the configured profile end to end and returns the summary.
// Threshold failures are reported through Summary.Passed, not through the
// error; only setup and wiring problems error out.
func (h *Harness) Run(ctx context.Context) (*report.Summary, error) {
	if err := h.setupCheck(ctx); err != nil {
		return nil, err
	}

	opts := journey.Options{
		StepTimeout: h.Config.Target.StepTimeout,
		NoThink:     h.Profile.NoThink || h.Config.Run.NoThink,
	}
	if h.Config.Run.MaxRPS > 0 {
		burst := int(h.Config.Run.MaxRPS)
		if burst < 1 {
			burst = 1
		}
		opts.Limiter = rate.NewLimiter(rate.Limit(h.Config.Run.MaxRPS), burst)
	}
	// The seed pins the journey mix, not think-time jitter; each runner
	// seeds its own source since Options.Rand is not goroutine safe.
	var rng *rand.Rand
	if h.Config.Run.Seed != 0 {
		rng = rand.New(rand.NewSource(h.Config.Run.Seed))
	}

	selector, err := journey.NewSelector(h.Journeys, rng)
	if err != nil {
		return nil, err
	}

	pool := journey.NewPool(selector, h.Sink, opts, h.Logger)
	sched := schedule.NewScheduler(h.Profile.Schedule, pool, h.Observer)

	var status *statusServer
	if h.Config.Status.Enabled {
		status, err = startStatus(h.Config.Status.Addr, h, sched, pool)
		if err != nil {
			return nil, err
		}
		defer status.stop()
		h.Logger.Info("status server listening", zap.String("addr", status.addr()))
	}

	meta := report.Meta{
		RunID:     uuid.NewString(),
		Name:      h.Config.Run.Name,
		Profile:   h.Profile.Schedule.Name,
		StartTime: time.Now(),
	}
	h.Logger.Info("run starting",
		zap.String("run_id", meta.RunID),
		zap.String("profile", meta.Profile),
		zap.String("target", h.Config.Target.BaseURL))

	pool.Start(ctx)
	aborted, err := sched.Run(ctx)
	if err != nil {
		return nil, err
	}
	meta.EndTime = time.Now()

	outcomes := threshold.Evaluate(h.Sink, h.Rules)
	summary := report.Build(meta, h.Sink.Snapshots(), outcomes)

	h.Logger.Info("run finished",
		zap.Int64("iterations", summary.TotalIterations),
		zap.Int64("failed", summary.Failed),
		zap.Int("aborted", aborted),
		zap.Bool("passed", summary.Passed))
	if n := h.Sink.KindConflicts(); n > 0 {
		h.Logger.Warn("samples dropped on series kind conflict", zap.Int64("count", n))
	}

	if err := h.writeReports(summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// setupCheck probes the health endpoint once. A target that cannot answer
// it has no business being load-tested.
func (h *Harness) setupCheck(ctx context.Context) error {
	resp, err := h.Caller.Do(ctx, client.Request{
		Method:  http.MethodGet,
		Path:    HealthPath,
		Timeout: 10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSetup, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrSetup, HealthPath, resp.StatusCode)
	}
	return nil
}

func (h *Harness) writeReports(s *report.Summary) error {
	cfg := h.Config.Report
	if !cfg.JSON && !cfg.HTML {
		return nil
	}

	fw := report.FileWriter{Dir: cfg.Dir, Gzip: cfg.Gzip}
	if cfg.JSON {
		path, err := fw.WriteJSONFile(s, s.RunID+".json")
		if err != nil {
			return err
		}
		h.Logger.Info("wrote report", zap.String("path", path))
	}
	if cfg.HTML {
		path, err := fw.WriteHTMLFile(s, s.RunID+".html")
		if err != nil {
			return err
		}
		h.Logger.Info("wrote report", zap.String("path", path))
	}
	return nil
}
