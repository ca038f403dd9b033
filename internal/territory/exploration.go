package territory

import "time"

// ExplorationState is the lifecycle state of the walking-exploration
// over-speed monitor.
type ExplorationState string

const (
	Exploring         ExplorationState = "exploring"
	OverSpeedWarning  ExplorationState = "over_speed_warning"
	ExplorationFailed ExplorationState = "failed"
)

// ExplorationConfig tunes the countdown-based over-speed policy used by the
// walking-for-rewards feature.
type ExplorationConfig struct {
	LimitKmh    float64       // Sustained speed above this starts the countdown
	GracePeriod time.Duration // Time allowed to recover before the session fails
}

// DefaultExplorationConfig returns the production tuning values.
func DefaultExplorationConfig() ExplorationConfig {
	return ExplorationConfig{
		LimitKmh:    30,
		GracePeriod: 15 * time.Second,
	}
}

// ExplorationMonitor enforces the exploration speed limit with a recovery
// countdown instead of a per-sample hard stop. This is deliberately a
// separate state machine from SpeedGuard: exceeding the limit here fails the
// whole exploration session after a grace period, whereas the claiming guard
// discards the offending point and stops immediately.
type ExplorationMonitor struct {
	cfg  ExplorationConfig
	sink EventSink

	state    ExplorationState
	deadline time.Time
}

// NewExplorationMonitor creates a monitor in the Exploring state. A nil sink
// is replaced with NullSink.
func NewExplorationMonitor(cfg ExplorationConfig, sink EventSink) *ExplorationMonitor {
	if sink == nil {
		sink = NullSink{}
	}
	return &ExplorationMonitor{cfg: cfg, sink: sink, state: Exploring}
}

// ObserveSpeed feeds the current speed into the monitor. Transitions:
//
//	exploring          --speed > limit-->  overSpeedWarning (deadline set)
//	overSpeedWarning   --speed <= limit--> exploring (countdown abandoned)
//	overSpeedWarning   --deadline passed-> failed (terminal)
func (m *ExplorationMonitor) ObserveSpeed(speedKmh float64, now time.Time) ExplorationState {
	switch m.state {
	case ExplorationFailed:
		return m.state

	case Exploring:
		if speedKmh > m.cfg.LimitKmh {
			m.state = OverSpeedWarning
			m.deadline = now.Add(m.cfg.GracePeriod)
			m.sink.Emit(Event{
				Stage: StageExploration, Passed: false,
				Measurement: speedKmh,
				Detail:      "over speed limit, countdown started",
				Time:        now,
			})
		}

	case OverSpeedWarning:
		if speedKmh <= m.cfg.LimitKmh {
			m.state = Exploring
			m.deadline = time.Time{}
			m.sink.Emit(Event{
				Stage: StageExploration, Passed: true,
				Measurement: speedKmh,
				Detail:      "speed recovered",
				Time:        now,
			})
		} else if !now.Before(m.deadline) {
			m.fail(speedKmh, now)
		}
	}
	return m.state
}

// Tick advances the countdown without a new speed sample. Call on the
// periodic sampling tick so a session that simply stops reporting while over
// the limit still fails when the grace period lapses.
func (m *ExplorationMonitor) Tick(now time.Time) ExplorationState {
	if m.state == OverSpeedWarning && !now.Before(m.deadline) {
		m.fail(0, now)
	}
	return m.state
}

func (m *ExplorationMonitor) fail(speedKmh float64, now time.Time) {
	m.state = ExplorationFailed
	m.sink.Emit(Event{
		Stage: StageExploration, Passed: false,
		Measurement: speedKmh,
		Detail:      "grace period expired",
		Time:        now,
	})
}

// State returns the current state.
func (m *ExplorationMonitor) State() ExplorationState {
	return m.state
}

// SecondsRemaining returns the countdown remaining while in
// OverSpeedWarning, otherwise zero.
func (m *ExplorationMonitor) SecondsRemaining(now time.Time) float64 {
	if m.state != OverSpeedWarning {
		return 0
	}
	remaining := m.deadline.Sub(now).Seconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}
