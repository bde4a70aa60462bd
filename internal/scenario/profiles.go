package scenario

import (
	"sort"
	"time"

	"github.com/taskweave/loadbench/internal/journey"
	"github.com/taskweave/loadbench/internal/schedule"
	"github.com/taskweave/loadbench/internal/threshold"
)

// RunProfile bundles a staging schedule with the threshold rules and runner
// behavior that make sense for it.
type RunProfile struct {
	Description string
	Schedule    schedule.Profile
	Rules       []threshold.Rule

	// NoThink drops think-time pauses so each virtual user hammers the
	// target back to back.
	NoThink bool
}

// Profiles returns the named staging profiles.
func Profiles() map[string]RunProfile {
	return map[string]RunProfile{
		"smoke": {
			Description: "1 VU for 30s, sanity before anything bigger",
			Schedule: schedule.Profile{
				Name:        "smoke",
				StartTarget: 1,
				Stages: []schedule.Stage{
					{Duration: 30 * time.Second, Target: 1},
				},
				GracefulStop: 10 * time.Second,
			},
			Rules: []threshold.Rule{
				threshold.MaxLatency(journey.SeriesJourneyDuration, threshold.FieldP95, 500*time.Millisecond),
				threshold.MaxFailureRate(journey.SeriesJourneyOK, 0.01),
			},
		},
		"load": {
			Description: "ramp to 50 VUs, hold 5m, ramp down",
			Schedule: schedule.Profile{
				Name:        "load",
				StartTarget: 0,
				Stages: []schedule.Stage{
					{Duration: 2 * time.Minute, Target: 50},
					{Duration: 5 * time.Minute, Target: 50},
					{Duration: 2 * time.Minute, Target: 0},
				},
			},
			Rules: []threshold.Rule{
				threshold.MaxLatency(journey.SeriesJourneyDuration, threshold.FieldP95, 800*time.Millisecond),
				threshold.MaxFailureRate(journey.SeriesJourneyOK, 0.01),
			},
		},
		"stress": {
			Description: "two escalating plateaus past expected capacity, no think time",
			Schedule: schedule.Profile{
				Name:        "stress",
				StartTarget: 0,
				Stages: []schedule.Stage{
					{Duration: 2 * time.Minute, Target: 100},
					{Duration: 5 * time.Minute, Target: 100},
					{Duration: 2 * time.Minute, Target: 200},
					{Duration: 5 * time.Minute, Target: 200},
					{Duration: 2 * time.Minute, Target: 0},
				},
				GracefulStop: time.Minute,
			},
			Rules: []threshold.Rule{
				threshold.MaxLatency(journey.SeriesJourneyDuration, threshold.FieldP99, 2*time.Second),
				threshold.MaxFailureRate(journey.SeriesJourneyOK, 0.05),
			},
			NoThink: true,
		},
		"spike": {
			Description: "sudden jump to 150 VUs, then recovery at 5",
			Schedule: schedule.Profile{
				Name:        "spike",
				StartTarget: 5,
				Stages: []schedule.Stage{
					{Duration: time.Minute, Target: 150, Mode: schedule.ModeStep},
					{Duration: 2 * time.Minute, Target: 5, Mode: schedule.ModeStep},
				},
				GracefulStop: time.Minute,
			},
			Rules: []threshold.Rule{
				threshold.MaxFailureRate(journey.SeriesJourneyOK, 0.10),
				threshold.MinCount(journey.SeriesIterations, 100),
			},
		},
		"soak": {
			Description: "30 VUs held for an hour, watching for drift",
			Schedule: schedule.Profile{
				Name:        "soak",
				StartTarget: 0,
				Stages: []schedule.Stage{
					{Duration: 2 * time.Minute, Target: 30},
					{Duration: time.Hour, Target: 30},
					{Duration: 2 * time.Minute, Target: 0},
				},
			},
			Rules: []threshold.Rule{
				threshold.MaxLatency(journey.SeriesJourneyDuration, threshold.FieldP95, 800*time.Millisecond),
				threshold.MaxFailureRate(journey.SeriesJourneyOK, 0.01),
			},
		},
		"breakpoint": {
			Description: "slow climb to 500 VUs to find the knee",
			Schedule: schedule.Profile{
				Name:        "breakpoint",
				StartTarget: 0,
				Stages: []schedule.Stage{
					{Duration: 30 * time.Minute, Target: 500},
				},
				GracefulStop: 2 * time.Minute,
			},
			// Failures are expected near the knee, so only runaway latency
			// and aborts gate the run.
			Rules: []threshold.Rule{
				threshold.MaxLatency(journey.SeriesJourneyDuration, threshold.FieldP99, 5*time.Second),
				{
					Metric:      journey.SeriesIterationsAborted,
					Field:       threshold.FieldCount,
					Comparator:  threshold.ComparatorLessOrEqual,
					Target:      100,
					Description: "aborted iterations stay bounded",
				},
			},
			NoThink: true,
		},
		"mixed": {
			Description: "two moderate plateaus, the everyday regression profile",
			Schedule: schedule.Profile{
				Name:        "mixed",
				StartTarget: 0,
				Stages: []schedule.Stage{
					{Duration: time.Minute, Target: 40},
					{Duration: 3 * time.Minute, Target: 40},
					{Duration: time.Minute, Target: 80},
					{Duration: 3 * time.Minute, Target: 80},
					{Duration: time.Minute, Target: 0},
				},
			},
			Rules: []threshold.Rule{
				threshold.MaxLatency(journey.SeriesJourneyDuration, threshold.FieldP95, time.Second),
				threshold.MaxFailureRate(journey.SeriesJourneyOK, 0.02),
			},
		},
	}
}

// ProfileNames lists the profiles in stable order.
func ProfileNames() []string {
	all := Profiles()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupProfile fetches one profile by name.
func LookupProfile(name string) (RunProfile, bool) {
	p, ok := Profiles()[name]
	return p, ok
}
