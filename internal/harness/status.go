package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskweave/loadbench/internal/journey"
	"github.com/taskweave/loadbench/internal/schedule"
)

// statusServer exposes the live run over HTTP: /status with a JSON view of
// scheduler and pool state, /metrics with the prometheus rendering of the
// sink.
type statusServer struct {
	srv      *http.Server
	listener net.Listener
}

type statusView struct {
	State      schedule.State `json:"state"`
	StageIndex int            `json:"stage_index"`
	ActiveVUs  int            `json:"active_vus"`
	Iterations int64          `json:"iterations"`
	Failed     int64          `json:"failed"`
	Aborted    int            `json:"aborted"`
	Timestamp  time.Time      `json:"timestamp"`
}

func startStatus(addr string, h *Harness, sched *schedule.Scheduler, pool *journey.Pool) (*statusServer, error) {
	r := chi.NewRouter()

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		view := statusView{
			State:      sched.State(),
			StageIndex: sched.StageIndex(),
			ActiveVUs:  pool.Active(),
			Iterations: h.Sink.Count(journey.SeriesIterations),
			Aborted:    pool.Aborted(),
			Timestamp:  time.Now(),
		}
		if agg, ok := h.Sink.Snapshot(journey.SeriesJourneyOK); ok {
			view.Failed = agg.Fails
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	})
	r.Handle("/metrics", promhttp.HandlerFor(h.Registry, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("harness: status listen on %s: %w", addr, err)
	}

	s := &statusServer{
		srv:      &http.Server{Handler: r},
		listener: ln,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.Logger.Warn("status server stopped: " + err.Error())
		}
	}()
	return s, nil
}

func (s *statusServer) addr() string {
	return s.listener.Addr().String()
}

func (s *statusServer) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}
