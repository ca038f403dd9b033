package territory

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/walkabout-games/territory/internal/geo"
	"github.com/walkabout-games/territory/internal/timeutil"
	"github.com/walkabout-games/territory/internal/units"
)

// SessionState is the lifecycle state of a recording session.
type SessionState string

const (
	SessionRecording SessionState = "recording"
	SessionStopped   SessionState = "stopped"   // hard stop: speed or collision violation
	SessionCancelled SessionState = "cancelled" // user or policy cancellation
	SessionClaimed   SessionState = "claimed"   // closed and validated
	SessionRejected  SessionState = "rejected"  // closed but failed validation
)

// StopCause says why a session was hard-stopped.
type StopCause string

const (
	StopSpeedViolation    StopCause = "speed_violation"
	StopStartCollision    StopCause = "start_collision"
	StopBoundaryCollision StopCause = "boundary_collision"
)

// ErrNotClaimed is returned by Claim on a session that has not passed
// validation.
var ErrNotClaimed = errors.New("territory: session has no validated claim")

// FixOutcome reports what one fix did to the session.
type FixOutcome struct {
	Accepted  bool
	Reject    RejectReason
	Band      SpeedBand
	State     SessionState
	Closed    bool
	Verdict   *Verdict
	Collision *CollisionResult
}

// Session orchestrates one territory-claiming attempt: it owns the recorder,
// the speed guard, closure detection, validation and the collision snapshot.
//
// All entry points serialize through one mutex, preserving the append-only,
// order-sensitive path invariants when the surrounding integration delivers
// fixes and ticks from different goroutines. The engine itself never blocks
// and never performs I/O.
type Session struct {
	mu sync.Mutex

	id      string
	ownerID string
	cfg     Config
	clock   timeutil.Clock
	sink    EventSink

	recorder   *Recorder
	guard      *SpeedGuard
	closure    *ClosureDetector
	validator  *Validator
	collisions *CollisionEngine

	// Read-only snapshot of other players' polygons; possibly stale or
	// empty, which is treated as "no other territories".
	territories []ClaimedTerritory

	state     SessionState
	stopCause StopCause
	closed    bool
	verdict   *Verdict

	startedAt       time.Time
	speedSamplesKmh []float64
	rejectCounts    map[RejectReason]int
	lastProximity   CollisionResult
}

// NewSession creates a recording session for the given owner. The territory
// snapshot is borrowed read-only for the life of the session. A nil clock
// defaults to the real clock, a nil sink to NullSink.
func NewSession(ownerID string, cfg Config, clock timeutil.Clock, sink EventSink, territories []ClaimedTerritory) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if sink == nil {
		sink = NullSink{}
	}
	return &Session{
		id:            uuid.NewString(),
		ownerID:       ownerID,
		cfg:           cfg,
		clock:         clock,
		sink:          sink,
		recorder:      NewRecorder(cfg, sink),
		guard:         NewSpeedGuard(cfg.WarningSpeedKmh, cfg.ViolationSpeedKmh),
		closure:       NewClosureDetector(cfg.MinPathPoints, cfg.ClosureThresholdMeters),
		validator:     NewValidator(cfg, sink),
		collisions:    NewCollisionEngine(cfg),
		territories:   territories,
		state:         SessionRecording,
		rejectCounts:  make(map[RejectReason]int),
		lastProximity: CollisionResult{
			Level:                 LevelSafe,
			ClosestDistanceMeters: math.Inf(1),
		},
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// OwnerID returns the claiming player's id.
func (s *Session) OwnerID() string { return s.ownerID }

// OnFix feeds one GPS fix through the pipeline: filter/debounce, speed
// classification, collision checks, closure detection, and validation on
// first closure. Fixes must be delivered in arrival order.
func (s *Session) OnFix(fix Fix) FixOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionRecording {
		return FixOutcome{Reject: RejectClosed, State: s.state, Closed: s.closed, Verdict: s.verdict}
	}

	decision := s.recorder.Observe(fix)
	if !decision.Accepted {
		s.rejectCounts[decision.Reason]++
		return FixOutcome{Reject: decision.Reason, State: s.state}
	}

	// First accepted point: session start. Starting inside another player's
	// territory is fatal to the attempt.
	if s.recorder.Len() == 1 {
		s.startedAt = fix.Time
		if result := s.collisions.CheckStartPoint(fix.Point, s.ownerID, s.territories); result.HasCollision {
			s.emitCollision(result, fix.Time)
			s.hardStop(StopStartCollision)
			return FixOutcome{State: s.state, Collision: &result}
		}
		return FixOutcome{Accepted: true, Band: SpeedNormal, State: s.state}
	}

	band := s.guard.Classify(decision.DistanceMeters, decision.Elapsed.Seconds())
	speedKmh := 0.0
	if decision.Elapsed > 0 {
		speedKmh = units.KmhFromMps(decision.DistanceMeters / decision.Elapsed.Seconds())
	}
	s.sink.Emit(Event{
		Stage:       StageSpeed,
		Passed:      band != SpeedViolation,
		Measurement: speedKmh,
		Detail:      string(band),
		Time:        fix.Time,
	})

	if band == SpeedViolation {
		// The triggering point is discarded, not recorded.
		s.recorder.Undo()
		s.rejectCounts[RejectSpeed]++
		s.hardStop(StopSpeedViolation)
		return FixOutcome{Band: band, State: s.state}
	}
	s.speedSamplesKmh = append(s.speedSamplesKmh, speedKmh)

	// Incremental collision check on the newest segment only; earlier
	// segments were checked when they were appended.
	path := s.recorder.Path()
	tail := path[len(path)-2:]
	if result := s.collisions.CheckPathCrossesBoundary(tail, s.ownerID, s.territories); result.HasCollision {
		s.emitCollision(result, fix.Time)
		s.hardStop(StopBoundaryCollision)
		return FixOutcome{Band: band, State: s.state, Collision: &result}
	}

	outcome := FixOutcome{Accepted: true, Band: band, State: s.state}

	// Closure check runs after every acceptance and is idempotent by
	// construction: once closed the session leaves SessionRecording and this
	// code is unreachable.
	if s.closure.IsClosed(path) {
		s.closed = true
		closingDistance := geo.DistanceMeters(path[0], path[len(path)-1])
		s.sink.Emit(Event{
			Stage: StageClosure, Passed: true,
			Measurement: closingDistance,
			Time:        fix.Time,
		})

		verdict := s.validator.Validate(path, fix.Time)
		s.verdict = &verdict
		if verdict.Passed {
			s.state = SessionClaimed
		} else {
			// The path is retained read-only for diagnostics, but the state
			// is terminal: re-validation of a rejected path is not possible,
			// the player starts a new session.
			s.state = SessionRejected
		}
		outcome.Closed = true
		outcome.Verdict = s.verdict
		outcome.State = s.state
	}

	return outcome
}

// ErrNotRecording is returned by Finish when the session already ended.
var ErrNotRecording = errors.New("territory: session is not recording")

// Finish ends recording at the player's request and validates whatever path
// has been recorded, whether or not it closed geometrically. A short path
// fails validation at the point-count stage with the measured count.
func (s *Session) Finish() (Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionRecording {
		return Verdict{}, ErrNotRecording
	}

	s.closed = true
	verdict := s.validator.Validate(s.recorder.Path(), s.clock.Now())
	s.verdict = &verdict
	if verdict.Passed {
		s.state = SessionClaimed
	} else {
		s.state = SessionRejected
	}
	return verdict, nil
}

// Tick is the periodic sampling entry point, driven by an external scheduler
// at roughly Config.SampleInterval. While recording it refreshes the
// proximity warning against the territory snapshot.
func (s *Session) Tick() CollisionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionRecording || s.recorder.Len() == 0 {
		return s.lastProximity
	}

	result := s.collisions.ComprehensiveCheck(s.recorder.Path(), s.ownerID, s.territories)
	if result.Level != s.lastProximity.Level {
		s.sink.Emit(Event{
			Stage:       StageProximity,
			Passed:      !result.HasCollision,
			Measurement: result.ClosestDistanceMeters,
			Detail:      string(result.Level),
			Time:        s.clock.Now(),
		})
	}
	s.lastProximity = result

	if result.HasCollision {
		s.hardStop(StopBoundaryCollision)
	}
	return result
}

// Cancel aborts the session: the path is cleared, closure state reset, and
// any verdict discarded. No partial polygon ever reaches the store.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recorder.Reset()
	s.closed = false
	s.verdict = nil
	s.state = SessionCancelled
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StopCause returns why the session was hard-stopped, if it was.
func (s *Session) StopCause() StopCause {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCause
}

// Verdict returns the validation verdict, or nil if the path never closed.
func (s *Session) Verdict() *Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verdict
}

// Path returns a copy of the recorded points.
func (s *Session) Path() []geo.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder.Path()
}

// Proximity returns the most recent proximity result computed by Tick.
func (s *Session) Proximity() CollisionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastProximity
}

// Claim builds the persistable record for a validated session. Returns
// ErrNotClaimed unless the session state is SessionClaimed.
func (s *Session) Claim() (*ClaimRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionClaimed || s.verdict == nil {
		return nil, ErrNotClaimed
	}
	return buildClaimRecord(s.id, s.ownerID, s.recorder.Path(), *s.verdict, s.clock.Now())
}

// Summary describes a session for reporting and the API.
type Summary struct {
	ID             string               `json:"id"`
	OwnerID        string               `json:"owner_id"`
	State          SessionState         `json:"state"`
	StopCause      StopCause            `json:"stop_cause,omitempty"`
	StartedAt      time.Time            `json:"started_at"`
	LastFixAt      time.Time            `json:"last_fix_at"`
	PointCount     int                  `json:"point_count"`
	DistanceMeters float64              `json:"distance_m"`
	AvgSpeedKmh    float64              `json:"avg_speed_kmh"`
	P85SpeedKmh    float64              `json:"p85_speed_kmh"`
	Rejections     map[RejectReason]int `json:"rejections,omitempty"`
	Verdict        *Verdict             `json:"verdict,omitempty"`
}

// Summary returns a snapshot of session statistics. Speed aggregates use the
// per-sample speeds between accepted fixes.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := Summary{
		ID:             s.id,
		OwnerID:        s.ownerID,
		State:          s.state,
		StopCause:      s.stopCause,
		StartedAt:      s.startedAt,
		LastFixAt:      s.recorder.LastTime(),
		PointCount:     s.recorder.Len(),
		DistanceMeters: TotalDistance(s.recorder.Path()),
		Verdict:        s.verdict,
	}
	if len(s.rejectCounts) > 0 {
		summary.Rejections = make(map[RejectReason]int, len(s.rejectCounts))
		for k, v := range s.rejectCounts {
			summary.Rejections[k] = v
		}
	}
	if len(s.speedSamplesKmh) > 0 {
		summary.AvgSpeedKmh = stat.Mean(s.speedSamplesKmh, nil)
		sorted := make([]float64, len(s.speedSamplesKmh))
		copy(sorted, s.speedSamplesKmh)
		sort.Float64s(sorted)
		summary.P85SpeedKmh = stat.Quantile(0.85, stat.Empirical, sorted, nil)
	}
	return summary
}

func (s *Session) hardStop(cause StopCause) {
	s.state = SessionStopped
	s.stopCause = cause
}

func (s *Session) emitCollision(result CollisionResult, t time.Time) {
	s.sink.Emit(Event{
		Stage:       StageCollision,
		Passed:      false,
		Measurement: result.ClosestDistanceMeters,
		Detail:      string(result.Kind),
		Time:        t,
	})
}
