package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/walkabout-games/territory/internal/geo"
	"github.com/walkabout-games/territory/internal/territory"
)

// InsertTerritory persists a validated claim. The vertex list is stored as
// JSON alongside the WKT and polyline renderings; the JSON copy is the
// authoritative geometry, the others are for interop and map display.
func (db *DB) InsertTerritory(rec *territory.ClaimRecord) error {
	verticesJSON, err := json.Marshal(rec.Vertices)
	if err != nil {
		return fmt.Errorf("failed to encode vertices: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO territories (
			id, session_id, owner_id, wkt, encoded_polyline, vertices_json,
			point_count, area_m2, perimeter_m,
			min_lat, min_lon, max_lat, max_lon, claimed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.OwnerID, rec.WKT, rec.EncodedPolyline, string(verticesJSON),
		rec.PointCount, rec.AreaSquareMeters, rec.PerimeterMeters,
		rec.Bounds.MinLat, rec.Bounds.MinLon, rec.Bounds.MaxLat, rec.Bounds.MaxLon,
		rec.ClaimedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert territory: %w", err)
	}
	return nil
}

// Territories returns the collision snapshot of every stored territory.
func (db *DB) Territories() ([]territory.ClaimedTerritory, error) {
	rows, err := db.Query(`SELECT id, owner_id, vertices_json FROM territories ORDER BY claimed_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanClaimed(rows)
}

// TerritoriesNear returns the collision snapshot of territories whose
// bounding box, widened by radiusMeters, contains the center point. The box
// test over-selects near the corners; that is fine for a snapshot the
// collision engine re-checks precisely.
func (db *DB) TerritoriesNear(center geo.Point, radiusMeters float64) ([]territory.ClaimedTerritory, error) {
	probe := geo.GeoBounds{
		MinLat: center.Latitude, MaxLat: center.Latitude,
		MinLon: center.Longitude, MaxLon: center.Longitude,
	}.Expand(radiusMeters)

	rows, err := db.Query(
		`SELECT id, owner_id, vertices_json FROM territories
		 WHERE max_lat >= ? AND min_lat <= ? AND max_lon >= ? AND min_lon <= ?
		 ORDER BY claimed_at DESC`,
		probe.MinLat, probe.MaxLat, probe.MinLon, probe.MaxLon,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanClaimed(rows)
}

func scanClaimed(rows *sql.Rows) ([]territory.ClaimedTerritory, error) {
	var territories []territory.ClaimedTerritory
	for rows.Next() {
		var t territory.ClaimedTerritory
		var verticesJSON string
		if err := rows.Scan(&t.ID, &t.OwnerID, &verticesJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(verticesJSON), &t.Vertices); err != nil {
			return nil, fmt.Errorf("failed to decode vertices for territory %s: %w", t.ID, err)
		}
		territories = append(territories, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return territories, nil
}

// GetTerritory returns the full stored record, or sql.ErrNoRows.
func (db *DB) GetTerritory(id string) (*territory.ClaimRecord, error) {
	row := db.QueryRow(
		`SELECT id, session_id, owner_id, wkt, encoded_polyline, vertices_json,
		        point_count, area_m2, perimeter_m,
		        min_lat, min_lon, max_lat, max_lon, claimed_at
		 FROM territories WHERE id = ?`, id)

	var rec territory.ClaimRecord
	var verticesJSON string
	err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.OwnerID, &rec.WKT, &rec.EncodedPolyline, &verticesJSON,
		&rec.PointCount, &rec.AreaSquareMeters, &rec.PerimeterMeters,
		&rec.Bounds.MinLat, &rec.Bounds.MinLon, &rec.Bounds.MaxLat, &rec.Bounds.MaxLon,
		&rec.ClaimedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(verticesJSON), &rec.Vertices); err != nil {
		return nil, fmt.Errorf("failed to decode vertices for territory %s: %w", rec.ID, err)
	}
	return &rec, nil
}

// OwnerArea sums the claimed area for one player, in square meters.
func (db *DB) OwnerArea(ownerID string) (float64, error) {
	var total sql.NullFloat64
	err := db.QueryRow(`SELECT SUM(area_m2) FROM territories WHERE owner_id = ?`, ownerID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

// OwnerTerritoryCount returns how many territories one player holds.
func (db *DB) OwnerTerritoryCount(ownerID string) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM territories WHERE owner_id = ?`, ownerID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SaveSessionSummary upserts the final summary of a session.
func (db *DB) SaveSessionSummary(sum territory.Summary) error {
	var failureReason string
	if sum.Verdict != nil && !sum.Verdict.Passed {
		failureReason = string(sum.Verdict.Reason)
	}

	_, err := db.Exec(
		`INSERT INTO session_summaries (
			session_id, owner_id, state, stop_cause, started_at, last_fix_at,
			point_count, distance_m, avg_speed_kmh, p85_speed_kmh, failure_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			state = excluded.state,
			stop_cause = excluded.stop_cause,
			last_fix_at = excluded.last_fix_at,
			point_count = excluded.point_count,
			distance_m = excluded.distance_m,
			avg_speed_kmh = excluded.avg_speed_kmh,
			p85_speed_kmh = excluded.p85_speed_kmh,
			failure_reason = excluded.failure_reason`,
		sum.ID, sum.OwnerID, string(sum.State), string(sum.StopCause), sum.StartedAt, sum.LastFixAt,
		sum.PointCount, sum.DistanceMeters, sum.AvgSpeedKmh, sum.P85SpeedKmh, failureReason,
	)
	if err != nil {
		return fmt.Errorf("failed to save session summary: %w", err)
	}
	return nil
}

// Rejection is one logged filter or validation rejection.
type Rejection struct {
	SessionID   string    `json:"session_id"`
	Stage       string    `json:"stage"`
	Measurement float64   `json:"measurement"`
	Detail      string    `json:"detail,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// RecordRejection logs one rejected fix or failed validation stage.
func (db *DB) RecordRejection(sessionID string, e territory.Event) error {
	_, err := db.Exec(
		`INSERT INTO rejections (session_id, stage, measurement, detail, occurred_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, string(e.Stage), e.Measurement, e.Detail, e.Time,
	)
	return err
}

// RejectionsForSession returns the logged rejections for one session, oldest
// first.
func (db *DB) RejectionsForSession(sessionID string) ([]Rejection, error) {
	rows, err := db.Query(
		`SELECT session_id, stage, measurement, detail, occurred_at
		 FROM rejections WHERE session_id = ? ORDER BY rejection_id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rejections []Rejection
	for rows.Next() {
		var r Rejection
		if err := rows.Scan(&r.SessionID, &r.Stage, &r.Measurement, &r.Detail, &r.OccurredAt); err != nil {
			return nil, err
		}
		rejections = append(rejections, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rejections, nil
}
