package schedule

import (
	"testing"
	"time"
)

func TestProfile_Validate(t *testing.T) {
	valid := Profile{
		Name:   "ok",
		Stages: []Stage{{Duration: time.Second, Target: 5}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name    string
		profile Profile
	}{
		{"empty", Profile{Name: "empty"}},
		{"zero duration", Profile{Name: "d", Stages: []Stage{{Duration: 0, Target: 1}}}},
		{"negative target", Profile{Name: "t", Stages: []Stage{{Duration: time.Second, Target: -1}}}},
		{"bad mode", Profile{Name: "m", Stages: []Stage{{Duration: time.Second, Target: 1, Mode: "wavy"}}}},
		{"negative start", Profile{Name: "s", StartTarget: -2, Stages: []Stage{{Duration: time.Second, Target: 1}}}},
	}
	for _, c := range cases {
		if err := c.profile.Validate(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestProfile_TargetAt_LinearRamp(t *testing.T) {
	profile := Profile{
		Stages: []Stage{
			{Duration: 1000 * time.Millisecond, Target: 0},
			{Duration: 2000 * time.Millisecond, Target: 10},
			{Duration: 1000 * time.Millisecond, Target: 0},
		},
	}

	cases := []struct {
		at   time.Duration
		want int
	}{
		{0, 0},
		{500 * time.Millisecond, 0},
		{1000 * time.Millisecond, 0},
		{2000 * time.Millisecond, 5}, // midpoint of the ramp
		{2999 * time.Millisecond, 9},
		{3000 * time.Millisecond, 10},
		{3500 * time.Millisecond, 5},
		{4000 * time.Millisecond, 0},
		{9999 * time.Millisecond, 0},
	}
	for _, c := range cases {
		if got := profile.TargetAt(c.at); got != c.want {
			t.Errorf("TargetAt(%v) = %d, want %d", c.at, got, c.want)
		}
	}
}

func TestProfile_TargetAt_Step(t *testing.T) {
	profile := Profile{
		StartTarget: 2,
		Stages: []Stage{
			{Duration: time.Second, Target: 2, Mode: ModeStep},
			{Duration: time.Second, Target: 50, Mode: ModeStep},
			{Duration: time.Second, Target: 2, Mode: ModeStep},
		},
	}

	if got := profile.TargetAt(0); got != 2 {
		t.Errorf("baseline target = %d, want 2", got)
	}
	// Spike jumps immediately at stage start, no ramp.
	if got := profile.TargetAt(1000 * time.Millisecond); got != 50 {
		t.Errorf("spike start target = %d, want 50", got)
	}
	if got := profile.TargetAt(1001 * time.Millisecond); got != 50 {
		t.Errorf("spike target = %d, want 50", got)
	}
	if got := profile.TargetAt(2500 * time.Millisecond); got != 2 {
		t.Errorf("recovery target = %d, want 2", got)
	}
}

func TestProfile_TargetAt_EndEqualsLastTarget(t *testing.T) {
	profiles := []Profile{
		{Stages: []Stage{{Duration: time.Second, Target: 7}}},
		{StartTarget: 3, Stages: []Stage{
			{Duration: time.Second, Target: 20},
			{Duration: 3 * time.Second, Target: 4},
		}},
		{Stages: []Stage{
			{Duration: time.Second, Target: 100, Mode: ModeStep},
			{Duration: time.Second, Target: 0},
		}},
	}
	for i, p := range profiles {
		end := p.TotalDuration()
		if got := p.TargetAt(end); got != p.EndTarget() {
			t.Errorf("profile %d: TargetAt(end) = %d, want %d", i, got, p.EndTarget())
		}
		if got := p.TargetAt(end + time.Hour); got != p.EndTarget() {
			t.Errorf("profile %d: TargetAt(end+1h) = %d, want %d", i, got, p.EndTarget())
		}
	}
}

func TestProfile_TargetAt_ZeroTargetRecoveryWindow(t *testing.T) {
	// Recovery-observation window between two spikes must drain everyone.
	profile := Profile{
		Stages: []Stage{
			{Duration: time.Second, Target: 40, Mode: ModeStep},
			{Duration: 2 * time.Second, Target: 0, Mode: ModeStep},
			{Duration: time.Second, Target: 40, Mode: ModeStep},
		},
	}
	if got := profile.TargetAt(1500 * time.Millisecond); got != 0 {
		t.Errorf("recovery window target = %d, want 0", got)
	}
	if got := profile.TargetAt(3500 * time.Millisecond); got != 40 {
		t.Errorf("second spike target = %d, want 40", got)
	}
}

func TestProfile_StageIndexAt(t *testing.T) {
	profile := Profile{
		Stages: []Stage{
			{Duration: time.Second, Target: 1},
			{Duration: time.Second, Target: 2},
		},
	}

	if idx, ok := profile.StageIndexAt(0); idx != 0 || !ok {
		t.Errorf("StageIndexAt(0) = %d,%v", idx, ok)
	}
	if idx, ok := profile.StageIndexAt(1500 * time.Millisecond); idx != 1 || !ok {
		t.Errorf("StageIndexAt(1.5s) = %d,%v", idx, ok)
	}
	if idx, ok := profile.StageIndexAt(5 * time.Second); idx != 1 || ok {
		t.Errorf("StageIndexAt(5s) = %d,%v, want 1,false", idx, ok)
	}
}

func TestProfile_MaxTarget(t *testing.T) {
	profile := Profile{
		StartTarget: 3,
		Stages: []Stage{
			{Duration: time.Second, Target: 1},
			{Duration: time.Second, Target: 9},
			{Duration: time.Second, Target: 0},
		},
	}
	if got := profile.MaxTarget(); got != 9 {
		t.Errorf("MaxTarget = %d, want 9", got)
	}
}
