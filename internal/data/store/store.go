// Package store is the SQLite backing store for focus events and screenshots.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/penwyp/go-activity-monitor/internal/core/constants"
	"github.com/penwyp/go-activity-monitor/internal/core/model"
)

const (
	// SystemAppName owns application-level events such as the close marker
	SystemAppName = "System"
	systemAppPath = "system://application"

	// CloseEventTitle and CloseEventType mark the viewer shutting down
	CloseEventTitle = "Application Closing"
	CloseEventType  = "APPLICATION_CLOSE"
)

// Store is the data service the viewer reads from and the importer writes to.
type Store interface {
	FetchWindowEvents(ctx context.Context, startMs, endMs int64, limit int, order model.FetchOrder) ([]model.RawEvent, error)
	GetNearestScreenshot(ctx context.Context, tsMs int64, appID *int64) (*model.Screenshot, error)
	SaveApp(ctx context.Context, name, path string) (int64, error)
	InsertWindowEvent(ctx context.Context, appID int64, title, eventType string, occurredAtSec int64) error
	SaveScreenshot(ctx context.Context, appID int64, image []byte, createdAtSec int64) error
	RecordClose(ctx context.Context, atSec int64) error
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Stats summarizes the stored data
type Stats struct {
	Apps        int   `json:"apps"`
	Events      int   `json:"events"`
	Screenshots int   `json:"screenshots"`
	FirstSec    int64 `json:"firstSec"`
	LastSec     int64 `json:"lastSec"`
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	fetchEvents     *sql.Stmt
	fetchEventsDesc *sql.Stmt
	insertEvent     *sql.Stmt
	getApp          *sql.Stmt
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// each pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := NewMigrationRunner(db).Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore creates a SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.fetchEvents, err = s.db.Prepare(`
		SELECT e.app_id, a.name, e.window_title, e.event_type, e.created_at
		FROM window_event e
		JOIN app a ON a.id = e.app_id
		WHERE e.created_at BETWEEN ? AND ?
		ORDER BY e.created_at ASC, e.id ASC
		LIMIT ?
	`)
	if err != nil {
		return err
	}

	s.fetchEventsDesc, err = s.db.Prepare(`
		SELECT e.app_id, a.name, e.window_title, e.event_type, e.created_at
		FROM window_event e
		JOIN app a ON a.id = e.app_id
		WHERE e.created_at BETWEEN ? AND ?
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT ?
	`)
	if err != nil {
		return err
	}

	s.insertEvent, err = s.db.Prepare(`
		INSERT INTO window_event (app_id, window_title, event_type, created_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.getApp, err = s.db.Prepare(`SELECT id FROM app WHERE name = ?`)
	return err
}

// FetchWindowEvents returns at most limit events whose second falls within
// [startMs/1000, endMs/1000], sorted in the given order.
func (s *SQLiteStore) FetchWindowEvents(ctx context.Context, startMs, endMs int64, limit int, order model.FetchOrder) ([]model.RawEvent, error) {
	if limit <= 0 {
		limit = constants.DefaultFetchLimit
	}

	stmt := s.fetchEvents
	if order == model.NewestFirst {
		stmt = s.fetchEventsDesc
	}
	rows, err := stmt.QueryContext(ctx, startMs/1000, endMs/1000, limit)
	if err != nil {
		return nil, fmt.Errorf("query window events: %w", err)
	}
	defer rows.Close()

	var events []model.RawEvent
	for rows.Next() {
		var e model.RawEvent
		if err := rows.Scan(&e.AppID, &e.AppName, &e.WindowTitle, &e.EventType, &e.OccurredAtSec); err != nil {
			return nil, fmt.Errorf("scan window event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate window events: %w", err)
	}
	return events, nil
}

// GetNearestScreenshot returns the screenshot closest in time to tsMs,
// optionally restricted to one app, with its image normalized to PNG.
// It returns nil when no screenshot matches.
func (s *SQLiteStore) GetNearestScreenshot(ctx context.Context, tsMs int64, appID *int64) (*model.Screenshot, error) {
	var filter sql.NullInt64
	if appID != nil {
		filter = sql.NullInt64{Int64: *appID, Valid: true}
	}

	var shot model.Screenshot
	var blob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, app_id, created_at, screenshot
		FROM screenshot
		WHERE (?1 IS NULL OR app_id = ?1)
		ORDER BY ABS(created_at - ?2) ASC, created_at DESC
		LIMIT 1
	`, filter, tsMs/1000).Scan(&shot.ID, &shot.AppID, &shot.CreatedAtSec, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query nearest screenshot: %w", err)
	}

	shot.PNG = NormalizePNG(blob)
	return &shot, nil
}

// SaveApp returns the id of the app with name, creating it if needed.
// An existing app's path is updated when a non-empty path is given.
func (s *SQLiteStore) SaveApp(ctx context.Context, name, path string) (int64, error) {
	var id int64
	err := s.getApp.QueryRowContext(ctx, name).Scan(&id)
	switch {
	case err == nil:
		if path != "" {
			if _, err := s.db.ExecContext(ctx, `UPDATE app SET path = ? WHERE id = ? AND path <> ?`, path, id, path); err != nil {
				return 0, fmt.Errorf("update app path: %w", err)
			}
		}
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("get app %q: %w", name, err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO app (name, path) VALUES (?, ?)`, name, path)
	if err != nil {
		return 0, fmt.Errorf("insert app %q: %w", name, err)
	}
	return res.LastInsertId()
}

// InsertWindowEvent records a focus event
func (s *SQLiteStore) InsertWindowEvent(ctx context.Context, appID int64, title, eventType string, occurredAtSec int64) error {
	if _, err := s.insertEvent.ExecContext(ctx, appID, title, eventType, occurredAtSec); err != nil {
		return fmt.Errorf("insert window event: %w", err)
	}
	return nil
}

// SaveScreenshot stores an encoded image captured at createdAtSec
func (s *SQLiteStore) SaveScreenshot(ctx context.Context, appID int64, image []byte, createdAtSec int64) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO screenshot (app_id, screenshot, created_at) VALUES (?, ?, ?)`,
		appID, image, createdAtSec,
	); err != nil {
		return fmt.Errorf("insert screenshot: %w", err)
	}
	return nil
}

// RecordClose writes the close marker under the System app, ending the last
// real interval at atSec.
func (s *SQLiteStore) RecordClose(ctx context.Context, atSec int64) error {
	appID, err := s.SaveApp(ctx, SystemAppName, systemAppPath)
	if err != nil {
		return err
	}
	return s.InsertWindowEvent(ctx, appID, CloseEventTitle, CloseEventType, atSec)
}

// Stats returns row counts and the stored event time range
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	var first, last sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM app),
			(SELECT COUNT(*) FROM window_event),
			(SELECT COUNT(*) FROM screenshot),
			(SELECT MIN(created_at) FROM window_event),
			(SELECT MAX(created_at) FROM window_event)
	`).Scan(&st.Apps, &st.Events, &st.Screenshots, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	st.FirstSec, st.LastSec = first.Int64, last.Int64
	return &st, nil
}

// Close releases prepared statements and the database
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.fetchEvents, s.fetchEventsDesc, s.insertEvent, s.getApp} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
