package journey

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/taskweave/loadbench/internal/metrics"
)

// Pool owns a scalable set of virtual-user runners. It implements the
// scheduler's Pool contract: Scale reconciles runner count, Drain waits for
// graceful exit and hard-cancels stragglers.
type Pool struct {
	selector *Selector
	sink     *metrics.Sink
	opts     Options
	logger   *zap.Logger

	mu      sync.Mutex
	started bool
	handles []*handle
	nextID  int

	wg         sync.WaitGroup
	baseCtx    context.Context
	hardCancel context.CancelFunc

	aborted atomic.Int64
}

type handle struct {
	retire chan struct{}
	once   sync.Once
}

func (h *handle) signalRetire() {
	h.once.Do(func() { close(h.retire) })
}

// NewPool creates an empty pool. Runners are spawned by Scale after Start.
func NewPool(selector *Selector, sink *metrics.Sink, opts Options, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		selector: selector,
		sink:     sink,
		opts:     opts,
		logger:   logger,
	}
}

// Start binds the pool to the run. In-flight iterations deliberately survive
// cancellation of ctx; only Drain's grace expiry hard-cancels them.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.baseCtx, p.hardCancel = context.WithCancel(context.WithoutCancel(ctx))
	p.started = true
}

// Active returns the number of runners not yet signalled to retire.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

// Aborted returns how many iterations were hard-cancelled.
func (p *Pool) Aborted() int {
	return int(p.aborted.Load())
}

// Scale spawns or retires runners toward the target. Retiring runners finish
// their current iteration before exiting.
func (p *Pool) Scale(target int) {
	if target < 0 {
		target = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}

	for len(p.handles) < target {
		h := &handle{retire: make(chan struct{})}
		p.nextID++
		id := p.nextID
		p.handles = append(p.handles, h)

		p.wg.Add(1)
		go p.runLoop(id, h.retire)
	}

	for len(p.handles) > target {
		last := len(p.handles) - 1
		p.handles[last].signalRetire()
		p.handles = p.handles[:last]
	}
}

// Drain blocks until every runner has exited or ctx expires. On expiry the
// in-flight iterations are cancelled and counted as aborted.
func (p *Pool) Drain(ctx context.Context) int {
	p.Scale(0)

	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return 0
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.hardCancel()
		<-done
	}

	// Materialize the abort counter even on clean runs, so rules bounding
	// it evaluate against a real zero instead of missing data.
	p.sink.Add(SeriesIterationsAborted, 0)
	return p.Aborted()
}

// runLoop is one virtual user: pick a journey, execute it with a fresh
// per-iteration context, repeat until retired or hard-cancelled.
func (p *Pool) runLoop(id int, retire <-chan struct{}) {
	defer p.wg.Done()

	opts := p.opts
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(int64(id)<<32 ^ rand.Int63()))
	}

	p.logger.Debug("virtual user started", zap.Int("vu", id))
	defer p.logger.Debug("virtual user retired", zap.Int("vu", id))

	var iteration int64
	for {
		select {
		case <-retire:
			return
		case <-p.baseCtx.Done():
			return
		default:
		}

		if opts.Limiter != nil {
			if !p.waitLimit(opts.Limiter, retire) {
				return
			}
		}

		iteration++
		j := p.selector.Pick()
		jc := NewContext(id, iteration)

		if Execute(p.baseCtx, j, jc, p.sink, opts) == OutcomeAborted {
			p.aborted.Add(1)
		}
	}
}

// waitLimit blocks on the pool-wide limiter. It reports false when the
// runner was retired or hard-cancelled while waiting, so a retired runner
// never starts another iteration from inside the wait.
func (p *Pool) waitLimit(l *rate.Limiter, retire <-chan struct{}) bool {
	ctx, cancel := context.WithCancel(p.baseCtx)
	defer cancel()
	go func() {
		select {
		case <-retire:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := l.Wait(ctx); err != nil {
		return false
	}
	select {
	case <-retire:
		return false
	default:
		return true
	}
}
