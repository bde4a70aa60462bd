package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// promCollector exposes live sink aggregates on an instance-scoped registry.
// The sink is owned by one run, so nothing here touches the default global
// registry.
type promCollector struct {
	sink *Sink

	duration *prometheus.Desc
	samples  *prometheus.Desc
	ratio    *prometheus.Desc
}

// Collector returns a prometheus.Collector view of the sink. Register it on
// a prometheus.NewRegistry owned by the run.
func (s *Sink) Collector(namespace string) prometheus.Collector {
	return &promCollector{
		sink: s,
		duration: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "duration_seconds"),
			"Latency aggregate for a trend series",
			[]string{"series", "stat"}, nil,
		),
		samples: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "samples_total"),
			"Sample count per series",
			[]string{"series"}, nil,
		),
		ratio: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "pass_ratio"),
			"Pass ratio for a rate series",
			[]string{"series"}, nil,
		),
	}
}

func (c *promCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.duration
	ch <- c.samples
	ch <- c.ratio
}

func (c *promCollector) Collect(ch chan<- prometheus.Metric) {
	for name, agg := range c.sink.Snapshots() {
		ch <- prometheus.MustNewConstMetric(c.samples, prometheus.CounterValue,
			float64(agg.Count), name)

		switch agg.Kind {
		case KindRate:
			ch <- prometheus.MustNewConstMetric(c.ratio, prometheus.GaugeValue,
				agg.Rate, name)
		case KindTrend:
			if agg.Count == 0 {
				continue
			}
			for stat, d := range map[string]float64{
				"min":  agg.Min.Seconds(),
				"max":  agg.Max.Seconds(),
				"mean": agg.Mean.Seconds(),
				"p50":  agg.P50.Seconds(),
				"p90":  agg.P90.Seconds(),
				"p95":  agg.P95.Seconds(),
				"p99":  agg.P99.Seconds(),
			} {
				ch <- prometheus.MustNewConstMetric(c.duration,
					prometheus.GaugeValue, d, name, stat)
			}
		}
	}
}
