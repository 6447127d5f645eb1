package monitor

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/ashgrove-robotics/fieldpose/internal/config"
	"github.com/ashgrove-robotics/fieldpose/internal/feed"
	"github.com/ashgrove-robotics/fieldpose/internal/field"
	"github.com/ashgrove-robotics/fieldpose/internal/httputil"
	"github.com/ashgrove-robotics/fieldpose/internal/match"
	"github.com/ashgrove-robotics/fieldpose/internal/monitoring"
	"github.com/ashgrove-robotics/fieldpose/internal/pipeline"
	"github.com/ashgrove-robotics/fieldpose/internal/telemetry"
	"github.com/ashgrove-robotics/fieldpose/internal/version"
)

//go:embed status.html
var StatusHTML embed.FS

// WebServer handles the HTTP interface for monitoring the matcher. It
// serves a status page, JSON endpoints for scripts, and the database
// debug pages when telemetry is configured.
type WebServer struct {
	address   string
	engine    *match.Engine
	tables    *config.Tables
	state     *feed.State
	feedStats *feed.FeedStats
	loopStats *pipeline.LoopStats
	store     *telemetry.Store
	server    *http.Server
	started   time.Time
}

// WebServerConfig contains configuration options for the web server.
// Engine and Tables are required; the rest may be nil and the matching
// endpoints degrade gracefully.
type WebServerConfig struct {
	Address   string
	Engine    *match.Engine
	Tables    *config.Tables
	State     *feed.State
	FeedStats *feed.FeedStats
	LoopStats *pipeline.LoopStats
	Store     *telemetry.Store
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(cfg WebServerConfig) *WebServer {
	ws := &WebServer{
		address:   cfg.Address,
		engine:    cfg.Engine,
		tables:    cfg.Tables,
		state:     cfg.State,
		feedStats: cfg.FeedStats,
		loopStats: cfg.LoopStats,
		store:     cfg.Store,
		started:   time.Now(),
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: LoggingMiddleware(ws.setupRoutes()),
	}

	return ws
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatus)
	mux.HandleFunc("/api/status", ws.handleAPIStatus)
	mux.HandleFunc("/api/tables", ws.handleTables)
	mux.HandleFunc("/api/match", ws.handleMatch)
	mux.HandleFunc("/api/recent", ws.handleRecent)
	mux.HandleFunc("/api/summary", ws.handleSummary)
	mux.HandleFunc("/debug/field", ws.handleFieldChart)

	if ws.store != nil {
		if err := ws.store.AttachAdminRoutes(mux); err != nil {
			monitoring.Logf("Failed to attach admin routes: %v", err)
		}
	}

	return mux
}

// Start begins the HTTP server and blocks until ctx is cancelled, then
// shuts the server down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}

	monitoring.Logf("HTTP server routine stopped")
	return nil
}

// Close shuts down the web server
func (ws *WebServer) Close() error {
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}

// handleHealth handles the health check endpoint
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "fieldpose", "timestamp": "%s"}`,
		time.Now().UTC().Format(time.RFC3339))
}

// statusResponse is the JSON shape served by /api/status.
type statusResponse struct {
	Service       string                 `json:"service"`
	Version       string                 `json:"version"`
	GitSHA        string                 `json:"git_sha"`
	Uptime        string                 `json:"uptime"`
	TableRevision string                 `json:"table_revision"`
	BluePoses     int                    `json:"blue_poses"`
	RedPoses      int                    `json:"red_poses"`
	OffsetMeters  float64                `json:"offset_m"`
	Fallback      string                 `json:"fallback_alliance"`
	Alliance      string                 `json:"alliance"`
	Pose          *feed.PoseSnapshot     `json:"pose,omitempty"`
	FeedTotals    *feed.Totals           `json:"feed_totals,omitempty"`
	Feed          *feed.StatsSnapshot    `json:"feed_rates,omitempty"`
	Loop          *pipeline.LoopSnapshot `json:"loop,omitempty"`
	SessionID     string                 `json:"session_id,omitempty"`
	StoredEvents  int64                  `json:"stored_events,omitempty"`
}

func (ws *WebServer) buildStatus() statusResponse {
	resp := statusResponse{
		Service:       "fieldpose",
		Version:       version.Version,
		GitSHA:        version.GitSHA,
		Uptime:        time.Since(ws.started).Round(time.Second).String(),
		TableRevision: ws.tables.Revision,
		BluePoses:     ws.engine.Tables().Blue().Len(),
		RedPoses:      ws.engine.Tables().Red().Len(),
		OffsetMeters:  ws.engine.OffsetMeters(),
		Fallback:      string(ws.engine.Tables().Fallback()),
		Alliance:      string(match.AllianceUnknown),
	}
	if ws.state != nil {
		resp.Alliance = string(ws.state.Alliance().Alliance)
		if snap, ok := ws.state.Pose(); ok {
			resp.Pose = &snap
		}
	}
	if ws.feedStats != nil {
		totals := ws.feedStats.GetTotals()
		resp.FeedTotals = &totals
		resp.Feed = ws.feedStats.GetLatestSnapshot()
	}
	if ws.loopStats != nil {
		snap := ws.loopStats.Snapshot()
		resp.Loop = &snap
	}
	if ws.store != nil {
		resp.SessionID = ws.store.SessionID()
		if count, err := ws.store.EventCount(); err == nil {
			resp.StoredEvents = count
		}
	}
	return resp
}

func (ws *WebServer) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ws.buildStatus())
}

// handleStatus handles the main status page endpoint
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")

	tmpl, err := template.ParseFS(StatusHTML, "status.html")
	if err != nil {
		http.Error(w, "Error loading template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	status := ws.buildStatus()

	poseLine := "no data"
	poseAge := ""
	if status.Pose != nil {
		poseLine = status.Pose.Pose.String()
		poseAge = time.Since(status.Pose.At).Round(time.Millisecond).String() + " ago"
	}

	lastTarget := "none yet"
	lastMatchAt := ""
	if status.Loop != nil && status.Loop.LastDecision != nil {
		dec := status.Loop.LastDecision
		lastTarget = fmt.Sprintf("%s via %s[%d]", dec.Target.String(), dec.Table, dec.Match.Index)
		lastMatchAt = dec.Time.Format(time.RFC3339)
	}

	data := struct {
		Status      statusResponse
		HTTPAddress string
		PoseLine    string
		PoseAge     string
		LastTarget  string
		LastMatchAt string
		HasStore    bool
	}{
		Status:      status,
		HTTPAddress: ws.address,
		PoseLine:    poseLine,
		PoseAge:     poseAge,
		LastTarget:  lastTarget,
		LastMatchAt: lastMatchAt,
		HasStore:    ws.store != nil,
	}

	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// handleTables returns both alliance tables as JSON.
func (ws *WebServer) handleTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, struct {
		Revision string       `json:"revision"`
		Blue     []field.Pose `json:"blue"`
		Red      []field.Pose `json:"red"`
	}{
		Revision: ws.tables.Revision,
		Blue:     ws.engine.Tables().Blue().Poses(),
		Red:      ws.engine.Tables().Red().Poses(),
	})
}

// handleMatch answers an ad-hoc match query so a pose can be checked
// from a browser or curl without feeding the UDP listener.
// Query params:
//
//	x, y (required, meters)
//	heading (optional, radians, default 0)
//	alliance (optional, defaults to the live alliance feed)
//	offset (optional, meters, defaults to the configured offset)
func (ws *WebServer) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := r.URL.Query()
	x, err := strconv.ParseFloat(q.Get("x"), 64)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, "invalid 'x' parameter")
		return
	}
	y, err := strconv.ParseFloat(q.Get("y"), 64)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, "invalid 'y' parameter")
		return
	}
	heading := 0.0
	if h := q.Get("heading"); h != "" {
		heading, err = strconv.ParseFloat(h, 64)
		if err != nil {
			httputil.WriteJSONError(w, http.StatusBadRequest, "invalid 'heading' parameter")
			return
		}
	}

	alliance := match.AllianceUnknown
	if a := q.Get("alliance"); a != "" {
		alliance = match.ParseAlliance(a)
	} else if ws.state != nil {
		alliance = ws.state.Alliance().Alliance
	}

	offset := ws.engine.OffsetMeters()
	if o := q.Get("offset"); o != "" {
		offset, err = strconv.ParseFloat(o, 64)
		if err != nil {
			httputil.WriteJSONError(w, http.StatusBadRequest, "invalid 'offset' parameter")
			return
		}
	}

	res, err := ws.engine.MatchAndOffsetBy(alliance, field.Pose{X: x, Y: y, Heading: heading}, offset)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, fmt.Sprintf("match failed: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// handleRecent returns the most recently recorded match events.
// Query params:
//
//	limit (optional, default 50, max 500)
func (ws *WebServer) handleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if ws.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "telemetry not configured")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 500 {
			httputil.WriteJSONError(w, http.StatusBadRequest, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	events, err := ws.store.RecentMatches(limit)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to load recent matches: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

// handleSummary returns distance statistics for a recording session.
// Query params:
//
//	session (optional, defaults to the active session)
func (ws *WebServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if ws.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "telemetry not configured")
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = ws.store.SessionID()
	}
	if sessionID == "" {
		httputil.WriteJSONError(w, http.StatusBadRequest, "no session to summarise")
		return
	}

	summary, err := ws.store.SessionSummary(sessionID)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to summarise session: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}
