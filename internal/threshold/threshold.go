// Package threshold evaluates pass/fail acceptance rules against metric
// aggregates at the end of a run.
package threshold

import (
	"fmt"
	"time"

	"github.com/taskweave/loadbench/internal/metrics"
)

// AggregateField selects which aggregate value a rule is checked against.
type AggregateField string

const (
	FieldCount       AggregateField = "count"
	FieldRate        AggregateField = "rate"
	FieldFailureRate AggregateField = "failure_rate"
	FieldMean        AggregateField = "mean"
	FieldMax         AggregateField = "max"
	FieldP50         AggregateField = "p50"
	FieldP90         AggregateField = "p90"
	FieldP95         AggregateField = "p95"
	FieldP99         AggregateField = "p99"
)

// Comparator defines how the observed value is compared to the target.
type Comparator string

const (
	ComparatorLessThan       Comparator = "<"
	ComparatorLessOrEqual    Comparator = "<="
	ComparatorGreaterThan    Comparator = ">"
	ComparatorGreaterOrEqual Comparator = ">="
)

// Rule binds a metric series to a target. Duration fields are compared in
// milliseconds; rate fields as fractions in [0,1].
type Rule struct {
	Metric      string         `json:"metric"`
	Field       AggregateField `json:"field"`
	Comparator  Comparator     `json:"comparator"`
	Target      float64        `json:"target"`
	Description string         `json:"description"`
}

// Outcome is the evaluation result of a single rule.
//
// NoData means the target series had zero samples: the rule fails open so a
// journey that never ran cannot silently pass its thresholds.
type Outcome struct {
	Rule     Rule    `json:"rule"`
	Passed   bool    `json:"passed"`
	NoData   bool    `json:"no_data"`
	Observed float64 `json:"observed"`
}

// String renders the outcome the way the report prints it.
func (o Outcome) String() string {
	if o.NoData {
		return fmt.Sprintf("%s: no data ✗", o.Rule.Description)
	}
	mark := "✓"
	if !o.Passed {
		mark = "✗"
	}
	return fmt.Sprintf("%s: %.2f %s %.2f %s",
		o.Rule.Description, o.Observed, o.Rule.Comparator, o.Rule.Target, mark)
}

// MaxLatency builds a rule bounding a latency percentile of a trend series.
func MaxLatency(metric string, field AggregateField, max time.Duration) Rule {
	return Rule{
		Metric:      metric,
		Field:       field,
		Comparator:  ComparatorLessThan,
		Target:      float64(max.Milliseconds()),
		Description: fmt.Sprintf("%s %s < %v", metric, field, max),
	}
}

// MaxFailureRate builds a rule bounding the failure fraction of a rate series.
func MaxFailureRate(metric string, max float64) Rule {
	return Rule{
		Metric:      metric,
		Field:       FieldFailureRate,
		Comparator:  ComparatorLessThan,
		Target:      max,
		Description: fmt.Sprintf("%s failure rate < %.2f%%", metric, max*100),
	}
}

// MinRate builds a rule requiring a minimum pass fraction of a rate series.
func MinRate(metric string, min float64) Rule {
	return Rule{
		Metric:      metric,
		Field:       FieldRate,
		Comparator:  ComparatorGreaterOrEqual,
		Target:      min,
		Description: fmt.Sprintf("%s pass rate >= %.2f%%", metric, min*100),
	}
}

// MinCount builds a rule requiring a minimum sample count.
func MinCount(metric string, min int64) Rule {
	return Rule{
		Metric:      metric,
		Field:       FieldCount,
		Comparator:  ComparatorGreaterOrEqual,
		Target:      float64(min),
		Description: fmt.Sprintf("%s count >= %d", metric, min),
	}
}

// Evaluate checks every rule against the sink's current aggregates.
func Evaluate(sink *metrics.Sink, rules []Rule) []Outcome {
	outcomes := make([]Outcome, 0, len(rules))
	for _, rule := range rules {
		outcomes = append(outcomes, evaluateOne(sink, rule))
	}
	return outcomes
}

// AllPassed reports whether every outcome passed.
func AllPassed(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if !o.Passed {
			return false
		}
	}
	return true
}

func evaluateOne(sink *metrics.Sink, rule Rule) Outcome {
	agg, ok := sink.Snapshot(rule.Metric)
	// A counter reports its value through Count, so a present zero counter
	// is a real observation. Zero-sample trend and rate series have no
	// defined percentiles or fractions and stay no-data.
	if !ok || (agg.Count == 0 && agg.Kind != metrics.KindCounter) {
		return Outcome{Rule: rule, Passed: false, NoData: true}
	}

	observed := extract(agg, rule.Field)
	return Outcome{
		Rule:     rule,
		Passed:   compare(observed, rule.Target, rule.Comparator),
		Observed: observed,
	}
}

func extract(agg metrics.Aggregate, field AggregateField) float64 {
	switch field {
	case FieldCount:
		return float64(agg.Count)
	case FieldRate:
		return agg.Rate
	case FieldFailureRate:
		return agg.FailureRate
	case FieldMean:
		return millis(agg.Mean)
	case FieldMax:
		return millis(agg.Max)
	case FieldP50:
		return millis(agg.P50)
	case FieldP90:
		return millis(agg.P90)
	case FieldP95:
		return millis(agg.P95)
	case FieldP99:
		return millis(agg.P99)
	default:
		return 0
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func compare(observed, target float64, comp Comparator) bool {
	switch comp {
	case ComparatorLessThan:
		return observed < target
	case ComparatorLessOrEqual:
		return observed <= target
	case ComparatorGreaterThan:
		return observed > target
	case ComparatorGreaterOrEqual:
		return observed >= target
	default:
		return false
	}
}
