package threshold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskweave/loadbench/internal/metrics"
)

func TestEvaluate_NoDataFailsOpen(t *testing.T) {
	sink := metrics.NewSink()

	outcomes := Evaluate(sink, []Rule{
		MaxLatency("journey_duration", FieldP95, 2*time.Second),
	})

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Passed)
	assert.True(t, outcomes[0].NoData)
	assert.Contains(t, outcomes[0].String(), "no data")
	assert.False(t, AllPassed(outcomes))
}

func TestEvaluate_LatencyRule(t *testing.T) {
	sink := metrics.NewSink()
	for i := 0; i < 100; i++ {
		sink.RecordDuration("login_duration", 100*time.Millisecond)
	}

	pass := Evaluate(sink, []Rule{MaxLatency("login_duration", FieldP95, 2*time.Second)})
	require.Len(t, pass, 1)
	assert.True(t, pass[0].Passed)
	assert.False(t, pass[0].NoData)
	assert.InDelta(t, 100, pass[0].Observed, 2)

	fail := Evaluate(sink, []Rule{MaxLatency("login_duration", FieldP95, 50*time.Millisecond)})
	assert.False(t, fail[0].Passed)
	assert.False(t, fail[0].NoData)
}

func TestEvaluate_FailureRateRule(t *testing.T) {
	sink := metrics.NewSink()
	for i := 0; i < 99; i++ {
		sink.RecordBool("journey_ok", true)
	}
	sink.RecordBool("journey_ok", false)

	// 1% failure rate: strict < 0.01 fails, < 0.05 passes.
	out := Evaluate(sink, []Rule{
		MaxFailureRate("journey_ok", 0.05),
		MaxFailureRate("journey_ok", 0.01),
	})
	require.Len(t, out, 2)
	assert.True(t, out[0].Passed)
	assert.False(t, out[1].Passed)
	assert.InDelta(t, 0.01, out[1].Observed, 1e-9)
}

func TestEvaluate_MinRateAndCount(t *testing.T) {
	sink := metrics.NewSink()
	sink.RecordBool("checks", true)
	sink.RecordBool("checks", true)
	sink.RecordBool("checks", false)
	sink.Add("iterations", 10)

	out := Evaluate(sink, []Rule{
		MinRate("checks", 0.5),
		MinCount("iterations", 10),
		MinCount("iterations", 11),
	})
	assert.True(t, out[0].Passed)
	assert.True(t, out[1].Passed)
	assert.False(t, out[2].Passed)
}

// A counter that exists with value zero is an observation, not missing
// data: a clean run must pass a rule bounding its abort count.
func TestEvaluate_ZeroCounterIsData(t *testing.T) {
	sink := metrics.NewSink()
	sink.Add("iterations_aborted", 0)

	rule := Rule{
		Metric:      "iterations_aborted",
		Field:       FieldCount,
		Comparator:  ComparatorLessOrEqual,
		Target:      100,
		Description: "aborted iterations stay bounded",
	}

	out := Evaluate(sink, []Rule{rule})
	require.Len(t, out, 1)
	assert.True(t, out[0].Passed)
	assert.False(t, out[0].NoData)
	assert.Zero(t, out[0].Observed)
	assert.True(t, AllPassed(out))

	// An absent counter still fails open.
	missing := Evaluate(sink, []Rule{MinCount("never_written", 0)})
	assert.False(t, missing[0].Passed)
	assert.True(t, missing[0].NoData)
}

func TestCompare_Table(t *testing.T) {
	cases := []struct {
		observed, target float64
		comp             Comparator
		want             bool
	}{
		{1, 2, ComparatorLessThan, true},
		{2, 2, ComparatorLessThan, false},
		{2, 2, ComparatorLessOrEqual, true},
		{3, 2, ComparatorGreaterThan, true},
		{2, 2, ComparatorGreaterThan, false},
		{2, 2, ComparatorGreaterOrEqual, true},
		{1, 2, Comparator("!="), false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, compare(c.observed, c.target, c.comp),
			"%v %s %v", c.observed, c.comp, c.target)
	}
}
