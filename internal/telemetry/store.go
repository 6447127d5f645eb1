// Package telemetry persists match decisions to SQLite so practice runs
// can be reviewed after the robot powers down.
package telemetry

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"

	"github.com/ashgrove-robotics/fieldpose/internal/field"
	"github.com/ashgrove-robotics/fieldpose/internal/match"
	"github.com/ashgrove-robotics/fieldpose/internal/monitoring"
)

//go:embed migrations
var migrationsFS embed.FS

// ErrNoSession is returned by RecordMatch before BeginSession has been
// called.
var ErrNoSession = errors.New("telemetry: no active session")

// Store is a SQLite-backed recorder of match decisions.
type Store struct {
	*sql.DB
	path      string
	sessionID string
}

// Open opens the database at path, creating it if needed, and applies
// any pending schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{DB: db, path: path}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the filesystem path the store was opened with.
func (s *Store) Path() string { return s.path }

// migrateUp applies all pending migrations from the embedded set.
func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Note: we don't close m here because it would close the underlying
	// DB connection.
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger on top of the package logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// BeginSession opens a new recording session and makes it the target of
// subsequent RecordMatch calls. It returns the new session's ID.
// Call it before handing the store to the match loop.
func (s *Store) BeginSession(revision string, offsetMeters float64) (string, error) {
	id := uuid.New().String()
	_, err := s.Exec(
		`INSERT INTO sessions (session_id, started_unix_ns, table_revision, offset_m)
		 VALUES (?, ?, ?, ?)`,
		id, time.Now().UnixNano(), revision, offsetMeters,
	)
	if err != nil {
		return "", fmt.Errorf("failed to begin session: %w", err)
	}
	s.sessionID = id
	return id, nil
}

// SessionID returns the active session's ID, or "" before BeginSession.
func (s *Store) SessionID() string { return s.sessionID }

// RecordMatch stores one match decision under the active session.
func (s *Store) RecordMatch(res match.Result, robot field.Pose, at time.Time) error {
	if s.sessionID == "" {
		return ErrNoSession
	}
	_, err := s.Exec(
		`INSERT INTO match_events (
			session_id, recorded_unix_ns, alliance, used_fallback, table_name,
			robot_x, robot_y, robot_heading,
			match_idx, match_x, match_y, match_heading, distance_sq,
			target_x, target_y, target_heading
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.sessionID, at.UnixNano(), string(res.Alliance), res.UsedFallback, res.Table,
		robot.X, robot.Y, robot.Heading,
		res.Match.Index, res.Match.Pose.X, res.Match.Pose.Y, res.Match.Pose.Heading,
		res.Match.DistanceSquared,
		res.Target.X, res.Target.Y, res.Target.Heading,
	)
	if err != nil {
		return fmt.Errorf("failed to record match: %w", err)
	}
	return nil
}

// MatchEvent is one recorded match decision.
type MatchEvent struct {
	EventID      int64      `json:"event_id"`
	SessionID    string     `json:"session_id"`
	At           time.Time  `json:"at"`
	Alliance     string     `json:"alliance"`
	UsedFallback bool       `json:"used_fallback"`
	Table        string     `json:"table"`
	Robot        field.Pose `json:"robot"`
	MatchIndex   int        `json:"match_index"`
	MatchPose    field.Pose `json:"match_pose"`
	DistanceSq   float64    `json:"distance_sq"`
	Target       field.Pose `json:"target"`
}

// RecentMatches returns up to limit of the most recently recorded match
// events, newest first. A limit of zero or less means 50.
func (s *Store) RecentMatches(limit int) ([]MatchEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Query(
		`SELECT event_id, session_id, recorded_unix_ns, alliance, used_fallback, table_name,
			robot_x, robot_y, robot_heading,
			match_idx, match_x, match_y, match_heading, distance_sq,
			target_x, target_y, target_heading
		 FROM match_events ORDER BY event_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []MatchEvent
	for rows.Next() {
		var ev MatchEvent
		var recordedNs int64
		if err := rows.Scan(
			&ev.EventID, &ev.SessionID, &recordedNs, &ev.Alliance, &ev.UsedFallback, &ev.Table,
			&ev.Robot.X, &ev.Robot.Y, &ev.Robot.Heading,
			&ev.MatchIndex, &ev.MatchPose.X, &ev.MatchPose.Y, &ev.MatchPose.Heading, &ev.DistanceSq,
			&ev.Target.X, &ev.Target.Y, &ev.Target.Heading,
		); err != nil {
			return nil, err
		}
		ev.At = time.Unix(0, recordedNs).UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// EventCount returns the total number of recorded match events.
func (s *Store) EventCount() (int64, error) {
	var count int64
	err := s.QueryRow("SELECT COUNT(*) FROM match_events").Scan(&count)
	return count, err
}

// Summary aggregates one session's match distances in meters.
type Summary struct {
	SessionID      string  `json:"session_id"`
	Events         int     `json:"events"`
	FallbackEvents int     `json:"fallback_events"`
	MeanDistance   float64 `json:"mean_distance_m"`
	MedianDistance float64 `json:"median_distance_m"`
	P95Distance    float64 `json:"p95_distance_m"`
	MinDistance    float64 `json:"min_distance_m"`
	MaxDistance    float64 `json:"max_distance_m"`
}

// SessionSummary computes distance statistics over every event recorded
// under sessionID. A session with no events yields a zero Summary.
func (s *Store) SessionSummary(sessionID string) (*Summary, error) {
	rows, err := s.Query(
		`SELECT distance_sq, used_fallback FROM match_events
		 WHERE session_id = ? ORDER BY event_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dists []float64
	fallbacks := 0
	for rows.Next() {
		var d2 float64
		var usedFallback bool
		if err := rows.Scan(&d2, &usedFallback); err != nil {
			return nil, err
		}
		dists = append(dists, math.Sqrt(d2))
		if usedFallback {
			fallbacks++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(dists) == 0 {
		return &Summary{SessionID: sessionID}, nil
	}

	// Quantile wants sorted input.
	sort.Float64s(dists)
	return &Summary{
		SessionID:      sessionID,
		Events:         len(dists),
		FallbackEvents: fallbacks,
		MeanDistance:   stat.Mean(dists, nil),
		MedianDistance: stat.Quantile(0.5, stat.Empirical, dists, nil),
		P95Distance:    stat.Quantile(0.95, stat.Empirical, dists, nil),
		MinDistance:    floats.Min(dists),
		MaxDistance:    floats.Max(dists),
	}, nil
}
