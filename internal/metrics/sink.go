// Package metrics accumulates per-step and per-journey observations for a
// single load test run into named series with derived aggregates.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Kind identifies what a series measures.
type Kind string

const (
	KindTrend   Kind = "trend"   // durations with percentile aggregates
	KindRate    Kind = "rate"    // boolean pass/fail samples
	KindCounter Kind = "counter" // monotonic count
)

// Histogram bounds: 1 microsecond to 1 hour, 3 significant figures.
const (
	histMin     = 1
	histMax     = int64(time.Hour / time.Microsecond)
	histSigFigs = 3
)

// Aggregate is a point-in-time view of one series.
//
// Percentiles come from an HDR histogram (ValueAtQuantile over buckets
// quantized to 3 significant figures, value error <= 0.1%). The same method
// applies to every trend series; counts are always exact.
type Aggregate struct {
	Kind   Kind  `json:"kind"`
	Count  int64 `json:"count"`
	Passes int64 `json:"passes,omitempty"`
	Fails  int64 `json:"fails,omitempty"`

	// Rate is Passes/Count for rate series.
	Rate float64 `json:"rate,omitempty"`
	// FailureRate is Fails/Count for rate series.
	FailureRate float64 `json:"failure_rate,omitempty"`

	Min  time.Duration `json:"min,omitempty"`
	Max  time.Duration `json:"max,omitempty"`
	Mean time.Duration `json:"mean,omitempty"`
	P50  time.Duration `json:"p50,omitempty"`
	P90  time.Duration `json:"p90,omitempty"`
	P95  time.Duration `json:"p95,omitempty"`
	P99  time.Duration `json:"p99,omitempty"`
}

type series struct {
	kind Kind

	mu     sync.Mutex
	hist   *hdrhistogram.Histogram
	count  int64
	passes int64
	fails  int64
}

// Sink collects observations from many concurrent runners. One Sink belongs
// to one test run; it is constructed explicitly and never process-global.
type Sink struct {
	mu     sync.RWMutex
	series map[string]*series

	// conflicts counts samples dropped because a series name was reused
	// with a different kind.
	conflicts atomic.Int64
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{series: make(map[string]*series)}
}

func (s *Sink) getOrCreate(name string, kind Kind) *series {
	s.mu.RLock()
	sr, ok := s.series[name]
	s.mu.RUnlock()
	if ok {
		return sr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sr, ok = s.series[name]; ok {
		return sr
	}
	sr = &series{kind: kind}
	if kind == KindTrend {
		sr.hist = hdrhistogram.New(histMin, histMax, histSigFigs)
	}
	s.series[name] = sr
	return sr
}

// RecordDuration appends one duration sample to a trend series.
func (s *Sink) RecordDuration(name string, d time.Duration) {
	sr := s.getOrCreate(name, KindTrend)
	if sr.kind != KindTrend {
		s.conflicts.Add(1)
		return
	}

	us := d.Microseconds()
	if us < histMin {
		us = histMin
	}
	if us > histMax {
		us = histMax
	}

	sr.mu.Lock()
	_ = sr.hist.RecordValue(us)
	sr.count++
	sr.mu.Unlock()
}

// RecordBool appends one pass/fail sample to a rate series.
func (s *Sink) RecordBool(name string, ok bool) {
	sr := s.getOrCreate(name, KindRate)
	if sr.kind != KindRate {
		s.conflicts.Add(1)
		return
	}

	sr.mu.Lock()
	sr.count++
	if ok {
		sr.passes++
	} else {
		sr.fails++
	}
	sr.mu.Unlock()
}

// Add increments a counter series by n.
func (s *Sink) Add(name string, n int64) {
	sr := s.getOrCreate(name, KindCounter)
	if sr.kind != KindCounter {
		s.conflicts.Add(1)
		return
	}

	sr.mu.Lock()
	sr.count += n
	sr.mu.Unlock()
}

// KindConflicts returns how many samples were dropped because their series
// name was already bound to a different kind. Anything above zero points at
// a naming bug in the journey catalog.
func (s *Sink) KindConflicts() int64 {
	return s.conflicts.Load()
}

// Count returns the sample count of a series, zero if it does not exist.
func (s *Sink) Count(name string) int64 {
	agg, ok := s.Snapshot(name)
	if !ok {
		return 0
	}
	return agg.Count
}

// Snapshot returns the current aggregate for one series. The second return
// value is false when the series has never been written.
func (s *Sink) Snapshot(name string) (Aggregate, bool) {
	s.mu.RLock()
	sr, ok := s.series[name]
	s.mu.RUnlock()
	if !ok {
		return Aggregate{}, false
	}
	return sr.aggregate(), true
}

// Snapshots returns aggregates for every series recorded so far.
func (s *Sink) Snapshots() map[string]Aggregate {
	s.mu.RLock()
	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	s.mu.RUnlock()

	out := make(map[string]Aggregate, len(names))
	for _, name := range names {
		if agg, ok := s.Snapshot(name); ok {
			out[name] = agg
		}
	}
	return out
}

// SeriesNames returns the names of all series recorded so far.
func (s *Sink) SeriesNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	return names
}

func (sr *series) aggregate() Aggregate {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	agg := Aggregate{
		Kind:  sr.kind,
		Count: sr.count,
	}

	switch sr.kind {
	case KindRate:
		agg.Passes = sr.passes
		agg.Fails = sr.fails
		if sr.count > 0 {
			agg.Rate = float64(sr.passes) / float64(sr.count)
			agg.FailureRate = float64(sr.fails) / float64(sr.count)
		}
	case KindTrend:
		if sr.count > 0 {
			agg.Min = time.Duration(sr.hist.Min()) * time.Microsecond
			agg.Max = time.Duration(sr.hist.Max()) * time.Microsecond
			agg.Mean = time.Duration(sr.hist.Mean()) * time.Microsecond
			agg.P50 = time.Duration(sr.hist.ValueAtQuantile(50)) * time.Microsecond
			agg.P90 = time.Duration(sr.hist.ValueAtQuantile(90)) * time.Microsecond
			agg.P95 = time.Duration(sr.hist.ValueAtQuantile(95)) * time.Microsecond
			agg.P99 = time.Duration(sr.hist.ValueAtQuantile(99)) * time.Microsecond
		}
	}

	return agg
}
