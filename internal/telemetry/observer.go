// Package telemetry reports simulation activity. Physics never logs from Step; the frame
// loop hands each step's stats to an Observer instead.
package telemetry

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"spherephys/internal/physics"
)

// Observer receives what happened during simulation frames.
type Observer interface {
	ObserveStep(frame uint64, stats physics.StepStats)
	ObserveContact(ev physics.ContactEvent)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveStep(uint64, physics.StepStats) {}
func (Nop) ObserveContact(physics.ContactEvent)   {}

// Totals accumulates counters over every observed step.
type Totals struct {
	Steps        uint64
	Contacts     uint64
	Swept        uint64
	Discrete     uint64
	BodyPairs    uint64
	GridRebuilds uint64
	ContactBegan uint64
	ContactLogs  uint64
	Dropped      uint64
}

type Options struct {
	// StatsInterval is the minimum time between step summaries. Zero logs every step.
	StatsInterval time.Duration
	// ContactRate and ContactBurst size the token bucket for contact-began logs.
	ContactRate  float64
	ContactBurst int
}

func DefaultOptions() Options {
	return Options{StatsInterval: time.Second, ContactRate: 20, ContactBurst: 10}
}

// ZapObserver logs throttled step summaries at debug level and token-bucketed contact
// begins, both through zap.
type ZapObserver struct {
	logger    *zap.Logger
	sometimes rate.Sometimes
	limiter   *rate.Limiter
	totals    Totals
	dropped   uint64 // since the last summary
}

func NewZapObserver(logger *zap.Logger, opts Options) *ZapObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &ZapObserver{
		logger:  logger.Named("telemetry"),
		limiter: rate.NewLimiter(rate.Limit(opts.ContactRate), opts.ContactBurst),
	}
	if opts.StatsInterval > 0 {
		o.sometimes = rate.Sometimes{Interval: opts.StatsInterval}
	} else {
		o.sometimes = rate.Sometimes{Every: 1}
	}
	return o
}

func (o *ZapObserver) ObserveStep(frame uint64, stats physics.StepStats) {
	o.totals.Steps++
	o.totals.Contacts += uint64(len(stats.Contacts))
	o.totals.Swept += uint64(stats.Swept)
	o.totals.Discrete += uint64(stats.Discrete)
	o.totals.BodyPairs += uint64(stats.BodyPairs)
	if stats.GridRebuilt {
		o.totals.GridRebuilds++
	}

	if !o.logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	o.sometimes.Do(func() {
		o.logger.Debug("step",
			zap.Uint64("frame", frame),
			zap.Float32("dt", stats.Dt),
			zap.Int("bodies", stats.Bodies),
			zap.Int("awake", stats.Awake),
			zap.Int("candidates", stats.Candidates),
			zap.Int("contacts", len(stats.Contacts)),
			zap.Int("swept", stats.Swept),
			zap.Int("bodyPairs", stats.BodyPairs),
			zap.Bool("gridRebuilt", stats.GridRebuilt),
			zap.Uint64("contactLogsDropped", o.dropped))
		o.dropped = 0
	})
}

func (o *ZapObserver) ObserveContact(ev physics.ContactEvent) {
	o.totals.ContactBegan++
	if !o.limiter.Allow() {
		o.totals.Dropped++
		o.dropped++
		return
	}
	o.totals.ContactLogs++
	fields := []zap.Field{zap.Uint32("body", uint32(ev.Body))}
	if ev.Static != 0 {
		fields = append(fields, zap.Uint32("static", uint32(ev.Static)))
	} else {
		fields = append(fields, zap.Uint32("other", uint32(ev.Other)))
	}
	o.logger.Debug("contact began", fields...)
}

func (o *ZapObserver) Totals() Totals {
	return o.totals
}

// NewLogger builds a console logger for development or a JSON logger for production,
// both at level.
func NewLogger(level zapcore.Level, development bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
