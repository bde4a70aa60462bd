package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_TrendAggregate(t *testing.T) {
	sink := NewSink()

	for i := 1; i <= 100; i++ {
		sink.RecordDuration("login_duration", time.Duration(i)*time.Millisecond)
	}

	agg, ok := sink.Snapshot("login_duration")
	require.True(t, ok)
	assert.Equal(t, KindTrend, agg.Kind)
	assert.Equal(t, int64(100), agg.Count)

	// 3 significant figures keeps these within a millisecond of the exact
	// values.
	assert.InDelta(t, 1, agg.Min.Milliseconds(), 1)
	assert.InDelta(t, 100, agg.Max.Milliseconds(), 1)
	assert.InDelta(t, 50, agg.P50.Milliseconds(), 2)
	assert.InDelta(t, 95, agg.P95.Milliseconds(), 2)
}

func TestSink_PercentileMonotonicity(t *testing.T) {
	sink := NewSink()
	durations := []time.Duration{
		3 * time.Millisecond, 250 * time.Millisecond, 17 * time.Millisecond,
		900 * time.Millisecond, 42 * time.Millisecond, 5 * time.Second,
		1 * time.Millisecond, 120 * time.Millisecond,
	}
	for _, d := range durations {
		sink.RecordDuration("mixed", d)
	}

	agg, ok := sink.Snapshot("mixed")
	require.True(t, ok)
	assert.LessOrEqual(t, agg.P50, agg.P90)
	assert.LessOrEqual(t, agg.P90, agg.P95)
	assert.LessOrEqual(t, agg.P95, agg.P99)
	assert.LessOrEqual(t, agg.P99, agg.Max)
	assert.LessOrEqual(t, agg.Min, agg.P50)
}

func TestSink_RateAggregate(t *testing.T) {
	sink := NewSink()

	for i := 0; i < 8; i++ {
		sink.RecordBool("checks", true)
	}
	sink.RecordBool("checks", false)
	sink.RecordBool("checks", false)

	agg, ok := sink.Snapshot("checks")
	require.True(t, ok)
	assert.Equal(t, KindRate, agg.Kind)
	assert.Equal(t, int64(10), agg.Count)
	assert.Equal(t, int64(8), agg.Passes)
	assert.Equal(t, int64(2), agg.Fails)
	assert.InDelta(t, 0.8, agg.Rate, 1e-9)
	assert.InDelta(t, 0.2, agg.FailureRate, 1e-9)
}

func TestSink_Counter(t *testing.T) {
	sink := NewSink()
	sink.Add("iterations", 1)
	sink.Add("iterations", 1)
	sink.Add("iterations", 3)

	assert.Equal(t, int64(5), sink.Count("iterations"))
}

func TestSink_SnapshotMissingSeries(t *testing.T) {
	sink := NewSink()
	_, ok := sink.Snapshot("never_recorded")
	assert.False(t, ok)
	assert.Equal(t, int64(0), sink.Count("never_recorded"))
}

// Concurrent writers must not lose or duplicate samples, whatever the
// arrival interleaving.
func TestSink_ConcurrentRecordCountExact(t *testing.T) {
	sink := NewSink()

	const writers = 16
	const perWriter = 2000

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				sink.RecordDuration("step_duration", time.Duration(w+i+1)*time.Microsecond)
				sink.RecordBool("step_ok", i%3 != 0)
				sink.Add("iterations", 1)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int64(writers*perWriter), sink.Count("step_duration"))
	assert.Equal(t, int64(writers*perWriter), sink.Count("step_ok"))
	assert.Equal(t, int64(writers*perWriter), sink.Count("iterations"))
}

func TestSink_Snapshots(t *testing.T) {
	sink := NewSink()
	sink.RecordDuration("a", time.Millisecond)
	sink.RecordBool("b", true)
	sink.Add("c", 2)

	all := sink.Snapshots()
	require.Len(t, all, 3)
	assert.Equal(t, KindTrend, all["a"].Kind)
	assert.Equal(t, KindRate, all["b"].Kind)
	assert.Equal(t, KindCounter, all["c"].Kind)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, sink.SeriesNames())
}

// Reusing a series name with a different kind drops the sample but leaves
// a visible trace in the conflict counter.
func TestSink_KindConflictIsCounted(t *testing.T) {
	sink := NewSink()
	sink.RecordBool("checkout_ok", true)
	assert.Zero(t, sink.KindConflicts())

	sink.RecordDuration("checkout_ok", 10*time.Millisecond)
	sink.Add("checkout_ok", 1)

	assert.Equal(t, int64(2), sink.KindConflicts())

	// The original series is untouched.
	agg, ok := sink.Snapshot("checkout_ok")
	require.True(t, ok)
	assert.Equal(t, KindRate, agg.Kind)
	assert.Equal(t, int64(1), agg.Count)
}
