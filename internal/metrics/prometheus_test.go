package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_Collector(t *testing.T) {
	sink := NewSink()
	sink.RecordDuration("login_duration", 25*time.Millisecond)
	sink.RecordDuration("login_duration", 75*time.Millisecond)
	sink.RecordBool("journey_ok", true)
	sink.Add("iterations", 3)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(sink.Collector("loadbench")))

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]int)
	for _, fam := range families {
		byName[fam.GetName()] = len(fam.GetMetric())
	}

	assert.Equal(t, 3, byName["loadbench_samples_total"])
	assert.Equal(t, 7, byName["loadbench_duration_seconds"])
	assert.Equal(t, 1, byName["loadbench_pass_ratio"])
}

func TestSink_CollectorTwoRegistriesIsolated(t *testing.T) {
	// Two runs with two sinks must not collide: no global registry involved.
	a, b := NewSink(), NewSink()
	a.Add("iterations", 1)
	b.Add("iterations", 9)

	regA, regB := prometheus.NewRegistry(), prometheus.NewRegistry()
	require.NoError(t, regA.Register(a.Collector("loadbench")))
	require.NoError(t, regB.Register(b.Collector("loadbench")))

	famA, err := regA.Gather()
	require.NoError(t, err)
	famB, err := regB.Gather()
	require.NoError(t, err)

	require.Len(t, famA, 1)
	require.Len(t, famB, 1)
	assert.Equal(t, float64(1), famA[0].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, float64(9), famB[0].GetMetric()[0].GetCounter().GetValue())
}
