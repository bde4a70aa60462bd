package schedule

import (
	"time"

	"go.uber.org/zap"
)

// Observer receives lifecycle events from the scheduler. Implementations
// must return quickly; they are called from the reconciliation loop.
type Observer interface {
	RunStarted(profile Profile)
	StageChanged(index int, stage Stage)
	TargetChanged(target, active int)
	DrainStarted(active int)
	RunFinished(elapsed time.Duration, aborted int)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) RunStarted(Profile)               {}
func (NopObserver) StageChanged(int, Stage)          {}
func (NopObserver) TargetChanged(int, int)           {}
func (NopObserver) DrainStarted(int)                 {}
func (NopObserver) RunFinished(time.Duration, int)   {}

// ZapObserver logs lifecycle events through a zap logger.
type ZapObserver struct {
	Logger *zap.Logger
}

func (o ZapObserver) RunStarted(profile Profile) {
	o.Logger.Info("run started",
		zap.String("profile", profile.Name),
		zap.Int("stages", len(profile.Stages)),
		zap.Duration("duration", profile.TotalDuration()))
}

func (o ZapObserver) StageChanged(index int, stage Stage) {
	o.Logger.Info("stage transition",
		zap.Int("stage", index),
		zap.Int("target", stage.Target),
		zap.Duration("duration", stage.Duration),
		zap.String("mode", string(stage.Mode)))
}

func (o ZapObserver) TargetChanged(target, active int) {
	o.Logger.Debug("target changed",
		zap.Int("target", target),
		zap.Int("active", active))
}

func (o ZapObserver) DrainStarted(active int) {
	o.Logger.Info("draining", zap.Int("in_flight", active))
}

func (o ZapObserver) RunFinished(elapsed time.Duration, aborted int) {
	o.Logger.Info("run finished",
		zap.Duration("elapsed", elapsed),
		zap.Int("aborted", aborted))
}
