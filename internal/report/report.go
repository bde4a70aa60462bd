// Package report reduces a run's metric snapshots and threshold outcomes
// into a structured summary for external renderers.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/taskweave/loadbench/internal/journey"
	"github.com/taskweave/loadbench/internal/metrics"
	"github.com/taskweave/loadbench/internal/threshold"
)

// Meta identifies the run being summarized.
type Meta struct {
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	Profile   string    `json:"profile"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// StepStats aggregates one step label across all iterations.
type StepStats struct {
	Label       string        `json:"label"`
	Count       int64         `json:"count"`
	FailureRate float64       `json:"failure_rate"`
	Min         time.Duration `json:"min"`
	Mean        time.Duration `json:"mean"`
	P50         time.Duration `json:"p50"`
	P90         time.Duration `json:"p90"`
	P95         time.Duration `json:"p95"`
	P99         time.Duration `json:"p99"`
	Max         time.Duration `json:"max"`
}

// JourneyStats aggregates one journey across all iterations.
type JourneyStats struct {
	Name        string        `json:"name"`
	Iterations  int64         `json:"iterations"`
	FailureRate float64       `json:"failure_rate"`
	Mean        time.Duration `json:"mean"`
	P95         time.Duration `json:"p95"`
	P99         time.Duration `json:"p99"`
}

// Summary is the complete structured report. Success, failure, and abort
// counts are disjoint; aborted iterations are excluded from SuccessRate.
type Summary struct {
	Meta
	Duration time.Duration `json:"duration"`

	TotalIterations int64   `json:"total_iterations"`
	Succeeded       int64   `json:"succeeded"`
	Failed          int64   `json:"failed"`
	Aborted         int64   `json:"aborted"`
	SuccessRate     float64 `json:"success_rate"`

	Latency LatencyStats `json:"latency"`

	Steps    []StepStats    `json:"steps"`
	Journeys []JourneyStats `json:"journeys"`

	Thresholds       []threshold.Outcome `json:"thresholds"`
	ThresholdsPassed int                 `json:"thresholds_passed"`
	ThresholdsFailed int                 `json:"thresholds_failed"`

	Passed bool `json:"passed"`
}

// LatencyStats is the overall journey-duration distribution.
type LatencyStats struct {
	Min  time.Duration `json:"min"`
	Mean time.Duration `json:"mean"`
	P50  time.Duration `json:"p50"`
	P90  time.Duration `json:"p90"`
	P95  time.Duration `json:"p95"`
	P99  time.Duration `json:"p99"`
	Max  time.Duration `json:"max"`
}

// Build reduces snapshots and threshold outcomes into a Summary. It has no
// side effects; rendering belongs to the writers.
func Build(meta Meta, snapshots map[string]metrics.Aggregate, outcomes []threshold.Outcome) *Summary {
	s := &Summary{
		Meta:       meta,
		Duration:   meta.EndTime.Sub(meta.StartTime),
		Thresholds: outcomes,
	}

	if agg, ok := snapshots[journey.SeriesJourneyOK]; ok {
		s.Succeeded = agg.Passes
		s.Failed = agg.Fails
		if agg.Count > 0 {
			s.SuccessRate = float64(agg.Passes) / float64(agg.Count)
		}
	}
	if agg, ok := snapshots[journey.SeriesIterationsAborted]; ok {
		s.Aborted = agg.Count
	}
	s.TotalIterations = s.Succeeded + s.Failed + s.Aborted

	if agg, ok := snapshots[journey.SeriesJourneyDuration]; ok {
		s.Latency = LatencyStats{
			Min: agg.Min, Mean: agg.Mean,
			P50: agg.P50, P90: agg.P90, P95: agg.P95, P99: agg.P99,
			Max: agg.Max,
		}
	}

	s.Steps = stepStats(snapshots)
	s.Journeys = journeyStats(snapshots)

	for _, o := range outcomes {
		if o.Passed {
			s.ThresholdsPassed++
		} else {
			s.ThresholdsFailed++
		}
	}
	s.Passed = s.ThresholdsFailed == 0

	return s
}

func stepStats(snapshots map[string]metrics.Aggregate) []StepStats {
	var steps []StepStats
	for name, agg := range snapshots {
		label, ok := strings.CutSuffix(name, "_duration")
		if !ok || agg.Kind != metrics.KindTrend {
			continue
		}
		if label == "journey" || strings.HasPrefix(label, "journey_") {
			continue
		}

		st := StepStats{
			Label: label,
			Count: agg.Count,
			Min:   agg.Min, Mean: agg.Mean,
			P50: agg.P50, P90: agg.P90, P95: agg.P95, P99: agg.P99,
			Max: agg.Max,
		}
		if okAgg, ok := snapshots[label+"_ok"]; ok {
			st.FailureRate = okAgg.FailureRate
		}
		steps = append(steps, st)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Label < steps[j].Label })
	return steps
}

func journeyStats(snapshots map[string]metrics.Aggregate) []JourneyStats {
	var journeys []JourneyStats
	for name, agg := range snapshots {
		trimmed, ok := strings.CutPrefix(name, "journey_")
		if !ok {
			continue
		}
		jname, ok := strings.CutSuffix(trimmed, "_ok")
		if !ok || jname == "" || agg.Kind != metrics.KindRate {
			continue
		}

		js := JourneyStats{
			Name:        jname,
			Iterations:  agg.Count,
			FailureRate: agg.FailureRate,
		}
		if dur, ok := snapshots["journey_"+jname+"_duration"]; ok {
			js.Mean = dur.Mean
			js.P95 = dur.P95
			js.P99 = dur.P99
		}
		journeys = append(journeys, js)
	}
	sort.Slice(journeys, func(i, j int) bool { return journeys[i].Name < journeys[j].Name })
	return journeys
}
