package territory

import (
	"testing"
	"time"

	"github.com/walkabout-games/territory/internal/geo"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestRecorder_FirstPointAcceptedUnconditionally(t *testing.T) {
	r := NewRecorder(DefaultConfig(), nil)

	d := r.Observe(Fix{Point: testOrigin, Time: t0, AccuracyMeters: 49})
	if !d.Accepted {
		t.Fatalf("first fix rejected: %v", d.Reason)
	}
	if r.Len() != 1 {
		t.Errorf("path length = %d, want 1", r.Len())
	}
}

func TestRecorder_RejectsLowAccuracy(t *testing.T) {
	sink := &collectSink{}
	r := NewRecorder(DefaultConfig(), sink)

	tests := []struct {
		name     string
		accuracy float64
	}{
		{"above threshold", 50.1},
		{"negative", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Observe(Fix{Point: testOrigin, Time: t0, AccuracyMeters: tt.accuracy})
			if d.Accepted {
				t.Fatal("expected rejection")
			}
			if d.Reason != RejectAccuracy {
				t.Errorf("reason = %v, want %v", d.Reason, RejectAccuracy)
			}
		})
	}
	if r.Len() != 0 {
		t.Errorf("rejected fixes mutated the path, length = %d", r.Len())
	}
	if got := len(sink.byStage(StageAccuracy)); got != 2 {
		t.Errorf("accuracy events = %d, want 2", got)
	}
}

// Scenario: two fixes 150m apart arriving 1s apart imply ~540 km/h. The fix
// must be rejected as a GPS jump before speed is ever evaluated.
func TestRecorder_RejectsJumpBeforeSpeed(t *testing.T) {
	sink := &collectSink{}
	r := NewRecorder(DefaultConfig(), sink)

	r.Observe(Fix{Point: testOrigin, Time: t0, AccuracyMeters: 10})
	d := r.Observe(Fix{
		Point:          pointAt(testOrigin, 150, 0),
		Time:           t0.Add(time.Second),
		AccuracyMeters: 10,
	})

	if d.Accepted {
		t.Fatal("expected rejection")
	}
	if d.Reason != RejectJump {
		t.Errorf("reason = %v, want %v", d.Reason, RejectJump)
	}
	if r.Len() != 1 {
		t.Errorf("path length = %d, want 1", r.Len())
	}
	if got := len(sink.byStage(StageJump)); got != 1 {
		t.Errorf("jump events = %d, want 1", got)
	}
	if got := len(sink.byStage(StageSpeed)); got != 0 {
		t.Errorf("speed events = %d, want 0 (jump precedes speed)", got)
	}
}

func TestRecorder_RejectsInsufficientMovement(t *testing.T) {
	r := NewRecorder(DefaultConfig(), nil)

	r.Observe(Fix{Point: testOrigin, Time: t0, AccuracyMeters: 10})
	d := r.Observe(Fix{
		Point:          pointAt(testOrigin, 5, 0),
		Time:           t0.Add(10 * time.Second),
		AccuracyMeters: 10,
	})

	if d.Reason != RejectMinDistance {
		t.Errorf("reason = %v, want %v", d.Reason, RejectMinDistance)
	}
}

func TestRecorder_RejectsBurstDuplicates(t *testing.T) {
	r := NewRecorder(DefaultConfig(), nil)

	r.Observe(Fix{Point: testOrigin, Time: t0, AccuracyMeters: 10})
	// Plenty of distance but only 200ms elapsed.
	d := r.Observe(Fix{
		Point:          pointAt(testOrigin, 20, 0),
		Time:           t0.Add(200 * time.Millisecond),
		AccuracyMeters: 10,
	})

	if d.Reason != RejectMinInterval {
		t.Errorf("reason = %v, want %v", d.Reason, RejectMinInterval)
	}
}

func TestRecorder_AcceptChainMaintainsSpacing(t *testing.T) {
	r := NewRecorder(DefaultConfig(), nil)

	path := rectanglePath(testOrigin)
	for i, f := range fixSeries(path, t0, 10*time.Second, 10) {
		if d := r.Observe(f); !d.Accepted {
			t.Fatalf("fix %d rejected: %v", i, d.Reason)
		}
	}

	got := r.Path()
	if len(got) != len(path) {
		t.Fatalf("recorded %d points, want %d", len(got), len(path))
	}
	// Invariant: consecutive accepted points are at least MinRecordMeters apart.
	for i := 1; i < len(got); i++ {
		d := geo.DistanceMeters(got[i-1], got[i])
		if d < DefaultConfig().MinRecordMeters {
			t.Errorf("points %d-%d only %.1fm apart", i-1, i, d)
		}
	}
}

func TestRecorder_UndoAndReset(t *testing.T) {
	r := NewRecorder(DefaultConfig(), nil)
	for _, f := range fixSeries(rectanglePath(testOrigin)[:3], t0, 10*time.Second, 10) {
		r.Observe(f)
	}

	r.Undo()
	if r.Len() != 2 {
		t.Errorf("length after undo = %d, want 2", r.Len())
	}

	r.Reset()
	if r.Len() != 0 {
		t.Errorf("length after reset = %d, want 0", r.Len())
	}
	if !r.LastTime().IsZero() {
		t.Error("reset did not clear last time")
	}
}
