package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"spherephys/internal/physics"
)

func observed(level zapcore.Level, opts Options) (*ZapObserver, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewZapObserver(zap.New(core), opts), logs
}

func TestStepSummariesAreThrottled(t *testing.T) {
	o, logs := observed(zapcore.DebugLevel, Options{StatsInterval: time.Hour, ContactRate: 1, ContactBurst: 1})

	for i := 0; i < 100; i++ {
		o.ObserveStep(uint64(i), physics.StepStats{Bodies: 3, Swept: 1, GridRebuilt: i == 0})
	}
	steps := logs.FilterMessage("step").All()
	require.Len(t, steps, 1)
	assert.Equal(t, int64(3), steps[0].ContextMap()["bodies"])

	totals := o.Totals()
	assert.Equal(t, uint64(100), totals.Steps)
	assert.Equal(t, uint64(100), totals.Swept)
	assert.Equal(t, uint64(1), totals.GridRebuilds)
}

func TestZeroIntervalLogsEveryStep(t *testing.T) {
	o, logs := observed(zapcore.DebugLevel, Options{ContactRate: 1, ContactBurst: 1})
	for i := 0; i < 5; i++ {
		o.ObserveStep(uint64(i), physics.StepStats{})
	}
	assert.Equal(t, 5, logs.FilterMessage("step").Len())
}

func TestStepSummariesSkippedAboveDebug(t *testing.T) {
	o, logs := observed(zapcore.InfoLevel, Options{})
	o.ObserveStep(1, physics.StepStats{Contacts: make([]physics.ContactInfo, 2)})
	assert.Zero(t, logs.Len())
	assert.Equal(t, uint64(2), o.Totals().Contacts, "totals are kept regardless of level")
}

func TestContactLogsUseTokenBucket(t *testing.T) {
	// a near-zero refill rate leaves only the burst
	o, logs := observed(zapcore.DebugLevel, Options{StatsInterval: 0, ContactRate: 0.0001, ContactBurst: 3})

	for i := 0; i < 10; i++ {
		o.ObserveContact(physics.ContactEvent{Body: physics.BodyID(i + 1), Static: 1})
	}
	began := logs.FilterMessage("contact began").All()
	require.Len(t, began, 3)
	assert.Equal(t, uint32(1), began[0].ContextMap()["static"])

	totals := o.Totals()
	assert.Equal(t, uint64(10), totals.ContactBegan)
	assert.Equal(t, uint64(3), totals.ContactLogs)
	assert.Equal(t, uint64(7), totals.Dropped)

	// the next summary reports and resets the drop count
	o.ObserveStep(1, physics.StepStats{})
	o.ObserveStep(2, physics.StepStats{})
	steps := logs.FilterMessage("step").All()
	require.Len(t, steps, 2)
	assert.Equal(t, uint64(7), steps[0].ContextMap()["contactLogsDropped"])
	assert.Equal(t, uint64(0), steps[1].ContextMap()["contactLogsDropped"])
}

func TestBodyContactNamesOther(t *testing.T) {
	o, logs := observed(zapcore.DebugLevel, DefaultOptions())
	o.ObserveContact(physics.ContactEvent{Body: 1, Other: 2})
	entry := logs.FilterMessage("contact began").All()
	require.Len(t, entry, 1)
	assert.Equal(t, uint32(2), entry[0].ContextMap()["other"])
	assert.NotContains(t, entry[0].ContextMap(), "static")
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(zapcore.WarnLevel, true)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	var _ Observer = Nop{}
	var _ Observer = NewZapObserver(nil, DefaultOptions())
}
