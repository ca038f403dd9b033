package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/walkabout-games/territory/internal/db"
	"github.com/walkabout-games/territory/internal/geo"
	"github.com/walkabout-games/territory/internal/httputil"
	"github.com/walkabout-games/territory/internal/monitoring"
	"github.com/walkabout-games/territory/internal/territory"
	"github.com/walkabout-games/territory/internal/timeutil"
	"github.com/walkabout-games/territory/internal/units"
	"github.com/walkabout-games/territory/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server exposes the claiming engine over HTTP. Sessions live in memory for
// their duration; territories and session summaries are persisted.
type Server struct {
	db             *db.DB
	cfg            territory.Config
	explorationCfg territory.ExplorationConfig
	clock          timeutil.Clock
	units          string

	mu       sync.Mutex
	sessions map[string]*liveSession
}

// liveSession pairs a claiming session with its exploration speed monitor.
type liveSession struct {
	session     *territory.Session
	exploration *territory.ExplorationMonitor

	// persistMu serializes terminal persistence; fix delivery and the
	// sampling goroutine can reach it concurrently for the same session.
	persistMu sync.Mutex
	persisted bool
}

func NewServer(database *db.DB, cfg territory.Config, explorationCfg territory.ExplorationConfig, clock timeutil.Clock, apiUnits string) *Server {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Server{
		db:             database,
		cfg:            cfg,
		explorationCfg: explorationCfg,
		clock:          clock,
		units:          apiUnits,
		sessions:       make(map[string]*liveSession),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", s.createSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.showSession)
	mux.HandleFunc("POST /api/sessions/{id}/fixes", s.recordFix)
	mux.HandleFunc("POST /api/sessions/{id}/tick", s.tickSession)
	mux.HandleFunc("POST /api/sessions/{id}/finish", s.finishSession)
	mux.HandleFunc("POST /api/sessions/{id}/cancel", s.cancelSession)
	mux.HandleFunc("GET /api/sessions/{id}/rejections", s.listRejections)
	mux.HandleFunc("GET /api/territories", s.listTerritories)
	mux.HandleFunc("GET /api/territories/{id}", s.showTerritory)
	mux.HandleFunc("GET /api/owners/{id}/stats", s.showOwnerStats)
	mux.HandleFunc("GET /api/config", s.showConfig)
	return mux
}

func (s *Server) lookup(id string) *liveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

type createSessionRequest struct {
	OwnerID string `json:"owner_id"`
}

type createSessionResponse struct {
	ID                string                 `json:"id"`
	State             territory.SessionState `json:"state"`
	NearbyTerritories int                    `json:"nearby_territories"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.OwnerID == "" {
		httputil.BadRequest(w, "owner_id is required")
		return
	}

	// Snapshot the stored territories for the life of the session. A stale
	// snapshot only weakens the advisory warnings; claims are still checked
	// against the store at insert time by the game layer.
	territories, err := s.db.Territories()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load territories: %v", err))
		return
	}

	sink := &persistingSink{db: s.db}
	session, err := territory.NewSession(req.OwnerID, s.cfg, s.clock, sink, territories)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to create session: %v", err))
		return
	}
	sink.sessionID = session.ID()

	live := &liveSession{
		session:     session,
		exploration: territory.NewExplorationMonitor(s.explorationCfg, sink),
	}
	s.mu.Lock()
	s.sessions[session.ID()] = live
	s.mu.Unlock()

	monitoring.Logf("api: session %s started for owner %s (%d territories in snapshot)",
		session.ID(), req.OwnerID, len(territories))

	httputil.WriteJSON(w, http.StatusCreated, createSessionResponse{
		ID:                session.ID(),
		State:             session.State(),
		NearbyTerritories: len(territories),
	})
}

// persistingSink logs failed stage events and records them against the
// session for later inspection. Passing events are high volume and are not
// persisted.
type persistingSink struct {
	db        *db.DB
	sessionID string
}

func (p *persistingSink) Emit(e territory.Event) {
	if e.Passed {
		return
	}
	monitoring.Logf("api: session %s stage %s failed (measurement %.2f %s)",
		p.sessionID, e.Stage, e.Measurement, e.Detail)
	if err := p.db.RecordRejection(p.sessionID, e); err != nil {
		monitoring.Logf("api: session %s rejection log failed: %v", p.sessionID, err)
	}
}

type fixRequest struct {
	Latitude       float64   `json:"lat"`
	Longitude      float64   `json:"lon"`
	AccuracyMeters float64   `json:"accuracy_m"`
	Time           time.Time `json:"time"`
	SpeedMps       *float64  `json:"speed_mps,omitempty"`
}

type fixResponse struct {
	Accepted    bool                       `json:"accepted"`
	Reject      territory.RejectReason     `json:"reject_reason,omitempty"`
	Band        territory.SpeedBand        `json:"speed_band,omitempty"`
	State       territory.SessionState     `json:"state"`
	Closed      bool                       `json:"closed"`
	Verdict     *territory.Verdict         `json:"verdict,omitempty"`
	Collision   *territory.CollisionResult `json:"collision,omitempty"`
	Exploration territory.ExplorationState `json:"exploration_state"`
}

func (s *Server) recordFix(w http.ResponseWriter, r *http.Request) {
	live := s.lookup(r.PathValue("id"))
	if live == nil {
		httputil.NotFound(w, "session not found")
		return
	}

	var req fixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Time.IsZero() {
		req.Time = s.clock.Now()
	}

	fix := territory.Fix{
		Point:          geo.Point{Latitude: req.Latitude, Longitude: req.Longitude},
		Time:           req.Time,
		AccuracyMeters: req.AccuracyMeters,
		SpeedMps:       req.SpeedMps,
	}
	if !fix.Point.Valid() {
		httputil.BadRequest(w, "coordinates out of range")
		return
	}

	outcome := live.session.OnFix(fix)

	// The exploration monitor watches the device-reported speed, which is
	// available even when the fix is filtered out of the path.
	if req.SpeedMps != nil {
		live.exploration.ObserveSpeed(units.KmhFromMps(*req.SpeedMps), req.Time)
	}

	s.persistIfTerminal(live)

	httputil.WriteJSONOK(w, fixResponse{
		Accepted:    outcome.Accepted,
		Reject:      outcome.Reject,
		Band:        outcome.Band,
		State:       outcome.State,
		Closed:      outcome.Closed,
		Verdict:     outcome.Verdict,
		Collision:   outcome.Collision,
		Exploration: live.exploration.State(),
	})
}

type tickResponse struct {
	State            territory.SessionState     `json:"state"`
	Proximity        territory.CollisionResult  `json:"proximity"`
	Exploration      territory.ExplorationState `json:"exploration_state"`
	GraceSecondsLeft float64                    `json:"grace_seconds_left,omitempty"`
}

func (s *Server) tickSession(w http.ResponseWriter, r *http.Request) {
	live := s.lookup(r.PathValue("id"))
	if live == nil {
		httputil.NotFound(w, "session not found")
		return
	}

	now := s.clock.Now()
	proximity := live.session.Tick()
	live.exploration.Tick(now)

	if live.exploration.State() == territory.ExplorationFailed &&
		live.session.State() == territory.SessionRecording {
		live.session.Cancel()
		monitoring.Logf("api: session %s cancelled, exploration speed limit exceeded", live.session.ID())
	}

	s.persistIfTerminal(live)

	httputil.WriteJSONOK(w, tickResponse{
		State:            live.session.State(),
		Proximity:        proximity,
		Exploration:      live.exploration.State(),
		GraceSecondsLeft: live.exploration.SecondsRemaining(now),
	})
}

func (s *Server) finishSession(w http.ResponseWriter, r *http.Request) {
	live := s.lookup(r.PathValue("id"))
	if live == nil {
		httputil.NotFound(w, "session not found")
		return
	}

	verdict, err := live.session.Finish()
	if err != nil {
		httputil.WriteJSONError(w, http.StatusConflict, err.Error())
		return
	}

	s.persistIfTerminal(live)
	httputil.WriteJSONOK(w, map[string]interface{}{
		"state":   live.session.State(),
		"verdict": verdict,
	})
}

func (s *Server) cancelSession(w http.ResponseWriter, r *http.Request) {
	live := s.lookup(r.PathValue("id"))
	if live == nil {
		httputil.NotFound(w, "session not found")
		return
	}

	live.session.Cancel()
	s.persistIfTerminal(live)
	httputil.WriteJSONOK(w, map[string]interface{}{"state": live.session.State()})
}

type sessionResponse struct {
	territory.Summary
	Exploration territory.ExplorationState `json:"exploration_state"`
	AvgSpeed    float64                    `json:"avg_speed"`
	P85Speed    float64                    `json:"p85_speed"`
	SpeedUnits  string                     `json:"speed_units"`
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	live := s.lookup(r.PathValue("id"))
	if live == nil {
		httputil.NotFound(w, "session not found")
		return
	}

	sum := live.session.Summary()
	httputil.WriteJSONOK(w, sessionResponse{
		Summary:     sum,
		Exploration: live.exploration.State(),
		AvgSpeed:    units.ConvertSpeed(units.MpsFromKmh(sum.AvgSpeedKmh), s.units),
		P85Speed:    units.ConvertSpeed(units.MpsFromKmh(sum.P85SpeedKmh), s.units),
		SpeedUnits:  s.units,
	})
}

func (s *Server) listRejections(w http.ResponseWriter, r *http.Request) {
	rejections, err := s.db.RejectionsForSession(r.PathValue("id"))
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list rejections: %v", err))
		return
	}
	httputil.WriteJSONOK(w, rejections)
}

func (s *Server) listTerritories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("lat") != "" || q.Get("lon") != "" {
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
		if errLat != nil || errLon != nil {
			httputil.BadRequest(w, "invalid 'lat' or 'lon' parameter")
			return
		}
		radius := 1000.0
		if rad := q.Get("radius_m"); rad != "" {
			parsed, err := strconv.ParseFloat(rad, 64)
			if err != nil || parsed <= 0 {
				httputil.BadRequest(w, "invalid 'radius_m' parameter")
				return
			}
			radius = parsed
		}

		territories, err := s.db.TerritoriesNear(geo.Point{Latitude: lat, Longitude: lon}, radius)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to query territories: %v", err))
			return
		}
		httputil.WriteJSONOK(w, territories)
		return
	}

	territories, err := s.db.Territories()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list territories: %v", err))
		return
	}
	httputil.WriteJSONOK(w, territories)
}

func (s *Server) showTerritory(w http.ResponseWriter, r *http.Request) {
	rec, err := s.db.GetTerritory(r.PathValue("id"))
	if err != nil {
		httputil.NotFound(w, "territory not found")
		return
	}
	httputil.WriteJSONOK(w, rec)
}

type ownerStatsResponse struct {
	OwnerID        string  `json:"owner_id"`
	TotalAreaM2    float64 `json:"total_area_m2"`
	TerritoryCount int     `json:"territory_count"`
}

func (s *Server) showOwnerStats(w http.ResponseWriter, r *http.Request) {
	ownerID := r.PathValue("id")
	area, err := s.db.OwnerArea(ownerID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to compute owner area: %v", err))
		return
	}
	count, err := s.db.OwnerTerritoryCount(ownerID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to count territories: %v", err))
		return
	}
	httputil.WriteJSONOK(w, ownerStatsResponse{
		OwnerID:        ownerID,
		TotalAreaM2:    area,
		TerritoryCount: count,
	})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]interface{}{
		"version":     version.Version,
		"units":       s.units,
		"engine":      s.cfg,
		"exploration": s.explorationCfg,
	})
}

// TickAll runs the periodic sampling check on every live session. Called
// from the sampling goroutine at Config.SampleInterval.
func (s *Server) TickAll() {
	s.mu.Lock()
	live := make([]*liveSession, 0, len(s.sessions))
	for _, l := range s.sessions {
		live = append(live, l)
	}
	s.mu.Unlock()

	now := s.clock.Now()
	for _, l := range live {
		if l.session.State() != territory.SessionRecording {
			continue
		}
		l.session.Tick()
		l.exploration.Tick(now)
		if l.exploration.State() == territory.ExplorationFailed &&
			l.session.State() == territory.SessionRecording {
			l.session.Cancel()
			monitoring.Logf("api: session %s cancelled, exploration speed limit exceeded", l.session.ID())
		}
		s.persistIfTerminal(l)
	}
}

// persistIfTerminal writes the session summary and, for a successful claim,
// the territory record, the first time the session reaches a terminal state.
func (s *Server) persistIfTerminal(live *liveSession) {
	state := live.session.State()
	if state == territory.SessionRecording {
		return
	}

	live.persistMu.Lock()
	defer live.persistMu.Unlock()
	if live.persisted {
		return
	}

	if state == territory.SessionClaimed {
		record, err := live.session.Claim()
		if err != nil {
			monitoring.Logf("api: session %s claim build failed: %v", live.session.ID(), err)
		} else if err := s.db.InsertTerritory(record); err != nil {
			monitoring.Logf("api: session %s territory insert failed: %v", live.session.ID(), err)
		} else {
			monitoring.Logf("api: session %s claimed territory %s (%.0f m2)",
				live.session.ID(), record.ID, record.AreaSquareMeters)
		}
	}

	if err := s.db.SaveSessionSummary(live.session.Summary()); err != nil {
		monitoring.Logf("api: session %s summary save failed: %v", live.session.ID(), err)
	}
	live.persisted = true
}
