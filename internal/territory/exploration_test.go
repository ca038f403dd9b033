package territory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplorationMonitor_StaysExploringUnderLimit(t *testing.T) {
	m := NewExplorationMonitor(DefaultExplorationConfig(), nil)

	now := t0
	for i := 0; i < 10; i++ {
		assert.Equal(t, Exploring, m.ObserveSpeed(12, now))
		now = now.Add(2 * time.Second)
	}
}

func TestExplorationMonitor_CountdownAndRecovery(t *testing.T) {
	cfg := ExplorationConfig{LimitKmh: 30, GracePeriod: 10 * time.Second}
	m := NewExplorationMonitor(cfg, nil)

	require.Equal(t, OverSpeedWarning, m.ObserveSpeed(45, t0))
	assert.InDelta(t, 6.0, m.SecondsRemaining(t0.Add(4*time.Second)), 1e-9)

	// Recovery before the deadline abandons the countdown.
	require.Equal(t, Exploring, m.ObserveSpeed(20, t0.Add(8*time.Second)))
	assert.Zero(t, m.SecondsRemaining(t0.Add(8*time.Second)))

	// A fresh excursion restarts the full grace period.
	m.ObserveSpeed(45, t0.Add(10*time.Second))
	assert.Equal(t, OverSpeedWarning, m.ObserveSpeed(45, t0.Add(15*time.Second)))
}

func TestExplorationMonitor_FailsWhenGraceExpires(t *testing.T) {
	cfg := ExplorationConfig{LimitKmh: 30, GracePeriod: 10 * time.Second}
	sink := &collectSink{}
	m := NewExplorationMonitor(cfg, sink)

	m.ObserveSpeed(45, t0)
	require.Equal(t, ExplorationFailed, m.ObserveSpeed(45, t0.Add(10*time.Second)))

	// Terminal: recovery after failure does nothing.
	assert.Equal(t, ExplorationFailed, m.ObserveSpeed(5, t0.Add(20*time.Second)))

	events := sink.byStage(StageExploration)
	require.GreaterOrEqual(t, len(events), 2)
}

func TestExplorationMonitor_TickExpiresWithoutSample(t *testing.T) {
	cfg := ExplorationConfig{LimitKmh: 30, GracePeriod: 10 * time.Second}
	m := NewExplorationMonitor(cfg, nil)

	m.ObserveSpeed(45, t0)

	// Device stops reporting while over the limit; the periodic tick still
	// fails the session once the grace period lapses.
	require.Equal(t, OverSpeedWarning, m.Tick(t0.Add(9*time.Second)))
	assert.Equal(t, ExplorationFailed, m.Tick(t0.Add(11*time.Second)))
}
