package db

import (
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/walkabout-games/territory/internal/geo"
	"github.com/walkabout-games/territory/internal/territory"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "territory.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// squareClaim builds a claim record for a small square at the given corner.
func squareClaim(t *testing.T, id, sessionID, ownerID string, cornerLat, cornerLon float64) *territory.ClaimRecord {
	t.Helper()
	d := 100 / geo.MetersPerDegreeLat // roughly 100m on a side
	vertices := []geo.Point{
		{Latitude: cornerLat, Longitude: cornerLon},
		{Latitude: cornerLat, Longitude: cornerLon + d},
		{Latitude: cornerLat + d, Longitude: cornerLon + d},
		{Latitude: cornerLat + d, Longitude: cornerLon},
	}
	return &territory.ClaimRecord{
		ID:               id,
		SessionID:        sessionID,
		OwnerID:          ownerID,
		Vertices:         vertices,
		WKT:              territory.PolygonWKT(vertices),
		EncodedPolyline:  territory.EncodePath(vertices),
		Bounds:           geo.BoundsOf(vertices),
		PointCount:       len(vertices),
		AreaSquareMeters: 10000,
		PerimeterMeters:  400,
		ClaimedAt:        time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestInsertAndGetTerritory(t *testing.T) {
	database := newTestDB(t)

	rec := squareClaim(t, "terr-1", "sess-1", "player-1", 48.10, 11.50)
	if err := database.InsertTerritory(rec); err != nil {
		t.Fatalf("InsertTerritory failed: %v", err)
	}

	got, err := database.GetTerritory("terr-1")
	if err != nil {
		t.Fatalf("GetTerritory failed: %v", err)
	}
	if got.OwnerID != "player-1" || got.SessionID != "sess-1" {
		t.Errorf("identity = %q/%q", got.OwnerID, got.SessionID)
	}
	if diff := cmp.Diff(rec.Vertices, got.Vertices); diff != "" {
		t.Errorf("vertex round trip mismatch (-want +got):\n%s", diff)
	}
	if got.AreaSquareMeters != 10000 {
		t.Errorf("area = %v", got.AreaSquareMeters)
	}

	if _, err := database.GetTerritory("missing"); err != sql.ErrNoRows {
		t.Errorf("missing territory err = %v, want sql.ErrNoRows", err)
	}
}

func TestTerritoriesSnapshot(t *testing.T) {
	database := newTestDB(t)

	if err := database.InsertTerritory(squareClaim(t, "terr-1", "s1", "player-1", 48.10, 11.50)); err != nil {
		t.Fatal(err)
	}
	if err := database.InsertTerritory(squareClaim(t, "terr-2", "s2", "player-2", 48.20, 11.60)); err != nil {
		t.Fatal(err)
	}

	all, err := database.Territories()
	if err != nil {
		t.Fatalf("Territories failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d territories, want 2", len(all))
	}
	for _, terr := range all {
		if len(terr.Vertices) != 4 {
			t.Errorf("territory %s has %d vertices", terr.ID, len(terr.Vertices))
		}
	}
}

func TestTerritoriesNear(t *testing.T) {
	database := newTestDB(t)

	// Two squares roughly 11km apart.
	if err := database.InsertTerritory(squareClaim(t, "close", "s1", "player-1", 48.10, 11.50)); err != nil {
		t.Fatal(err)
	}
	if err := database.InsertTerritory(squareClaim(t, "far", "s2", "player-2", 48.20, 11.50)); err != nil {
		t.Fatal(err)
	}

	near, err := database.TerritoriesNear(geo.Point{Latitude: 48.101, Longitude: 11.501}, 500)
	if err != nil {
		t.Fatalf("TerritoriesNear failed: %v", err)
	}
	if len(near) != 1 || near[0].ID != "close" {
		t.Fatalf("near = %+v, want only the close square", near)
	}

	// A radius wide enough to catch both.
	near, err = database.TerritoriesNear(geo.Point{Latitude: 48.15, Longitude: 11.50}, 20000)
	if err != nil {
		t.Fatal(err)
	}
	if len(near) != 2 {
		t.Errorf("wide radius found %d territories, want 2", len(near))
	}
}

func TestOwnerArea(t *testing.T) {
	database := newTestDB(t)

	if err := database.InsertTerritory(squareClaim(t, "t1", "s1", "player-1", 48.10, 11.50)); err != nil {
		t.Fatal(err)
	}
	if err := database.InsertTerritory(squareClaim(t, "t2", "s2", "player-1", 48.11, 11.51)); err != nil {
		t.Fatal(err)
	}
	if err := database.InsertTerritory(squareClaim(t, "t3", "s3", "player-2", 48.12, 11.52)); err != nil {
		t.Fatal(err)
	}

	area, err := database.OwnerArea("player-1")
	if err != nil {
		t.Fatalf("OwnerArea failed: %v", err)
	}
	if math.Abs(area-20000) > 1e-6 {
		t.Errorf("area = %v, want 20000", area)
	}

	empty, err := database.OwnerArea("nobody")
	if err != nil {
		t.Fatal(err)
	}
	if empty != 0 {
		t.Errorf("area for unknown owner = %v, want 0", empty)
	}

	count, err := database.OwnerTerritoryCount("player-1")
	if err != nil {
		t.Fatalf("OwnerTerritoryCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if none, _ := database.OwnerTerritoryCount("nobody"); none != 0 {
		t.Errorf("count for unknown owner = %d, want 0", none)
	}
}

func TestSaveSessionSummaryUpsert(t *testing.T) {
	database := newTestDB(t)

	sum := territory.Summary{
		ID:             "sess-1",
		OwnerID:        "player-1",
		State:          territory.SessionRecording,
		StartedAt:      time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		PointCount:     4,
		DistanceMeters: 60,
		AvgSpeedKmh:    6.5,
		P85SpeedKmh:    7.2,
	}
	if err := database.SaveSessionSummary(sum); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	sum.State = territory.SessionRejected
	sum.PointCount = 6
	sum.Verdict = &territory.Verdict{Passed: false, Reason: territory.ReasonPointCount, PointCount: 6}
	if err := database.SaveSessionSummary(sum); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	var state, failureReason string
	var points int
	err := database.QueryRow(
		`SELECT state, failure_reason, point_count FROM session_summaries WHERE session_id = ?`,
		"sess-1").Scan(&state, &failureReason, &points)
	if err != nil {
		t.Fatalf("readback failed: %v", err)
	}
	if state != string(territory.SessionRejected) || points != 6 {
		t.Errorf("state/points = %q/%d", state, points)
	}
	if failureReason != string(territory.ReasonPointCount) {
		t.Errorf("failure_reason = %q", failureReason)
	}
}

func TestRejectionLog(t *testing.T) {
	database := newTestDB(t)

	events := []territory.Event{
		{Stage: territory.StageAccuracy, Measurement: 72, Time: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)},
		{Stage: territory.StageSpeed, Measurement: 34.5, Detail: "violation", Time: time.Date(2025, 6, 1, 9, 1, 0, 0, time.UTC)},
	}
	for _, e := range events {
		if err := database.RecordRejection("sess-1", e); err != nil {
			t.Fatalf("RecordRejection failed: %v", err)
		}
	}
	if err := database.RecordRejection("sess-2", events[0]); err != nil {
		t.Fatal(err)
	}

	got, err := database.RejectionsForSession("sess-1")
	if err != nil {
		t.Fatalf("RejectionsForSession failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rejections, want 2", len(got))
	}
	if got[0].Stage != string(territory.StageAccuracy) || got[1].Detail != "violation" {
		t.Errorf("rejections = %+v", got)
	}
}
