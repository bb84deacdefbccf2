// internal/adapter/storage/incident_store.go

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"incidentmap/internal/domain/incident"
)

const schema = `
	CREATE TABLE IF NOT EXISTS incident_watermark (
		id        SMALLINT PRIMARY KEY,
		value     BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS incident_markers (
		location_key TEXT PRIMARY KEY,
		lng          DOUBLE PRECISION NOT NULL,
		lat          DOUBLE PRECISION NOT NULL,
		location     TEXT NOT NULL,
		icon         TEXT NOT NULL,
		history      JSONB NOT NULL,
		last_update  BIGINT NOT NULL,
		opacity      DOUBLE PRECISION NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS incident_sidebar (
		seq        BIGSERIAL PRIMARY KEY,
		id         TEXT UNIQUE NOT NULL,
		ts         BIGINT NOT NULL,
		when_text  TEXT NOT NULL,
		heading    TEXT NOT NULL,
		glyph      TEXT NOT NULL,
		label      TEXT NOT NULL,
		body       TEXT NOT NULL,
		focus_lng  DOUBLE PRECISION,
		focus_lat  DOUBLE PRECISION
	);
`

// IncidentStore persists reconciliation state in Postgres
type IncidentStore struct {
	db           *pgxpool.Pool
	sidebarLimit int
}

// NewIncidentStore creates a new incident store. sidebarLimit bounds how
// many sidebar entries LoadSnapshot returns; <= 0 returns all.
func NewIncidentStore(db *pgxpool.Pool, sidebarLimit int) *IncidentStore {
	return &IncidentStore{
		db:           db,
		sidebarLimit: sidebarLimit,
	}
}

// EnsureSchema creates the tables if they do not exist
func (s *IncidentStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("error creating schema: %w", err)
	}
	return nil
}

// SaveCycle writes the watermark, the touched markers and the new sidebar
// entries in one transaction
func (s *IncidentStore) SaveCycle(ctx context.Context, rec incident.CycleRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO incident_watermark (id, value) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET value = GREATEST(incident_watermark.value, $1)
	`, rec.Watermark)
	if err != nil {
		return fmt.Errorf("error saving watermark: %w", err)
	}

	for _, m := range rec.Markers {
		historyJSON, err := json.Marshal(m.History)
		if err != nil {
			return fmt.Errorf("error marshaling history: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO incident_markers (
				location_key, lng, lat, location, icon, history, last_update, opacity
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (location_key) DO UPDATE
			SET
				icon = $5,
				history = $6,
				last_update = $7,
				opacity = $8
		`,
			m.LocationKey,
			m.Coordinate.Longitude,
			m.Coordinate.Latitude,
			m.Location,
			m.Icon,
			historyJSON,
			m.LastUpdate,
			m.Opacity,
		)
		if err != nil {
			return fmt.Errorf("error saving marker %s: %w", m.LocationKey, err)
		}
	}

	// rec.Sidebar is in admission order, so seq follows admission
	for _, e := range rec.Sidebar {
		var lng, lat *float64
		if e.Focus != nil {
			lng = &e.Focus.Longitude
			lat = &e.Focus.Latitude
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO incident_sidebar (
				id, ts, when_text, heading, glyph, label, body, focus_lng, focus_lat
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING
		`,
			e.ID,
			e.Timestamp,
			e.When,
			e.Heading,
			e.Glyph,
			e.Label,
			e.Text,
			lng,
			lat,
		)
		if err != nil {
			return fmt.Errorf("error saving sidebar entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing cycle: %w", err)
	}

	return nil
}

// LoadSnapshot reads the persisted state. Markers come back in creation
// order and the sidebar newest first.
func (s *IncidentStore) LoadSnapshot(ctx context.Context) (incident.Snapshot, error) {
	var snap incident.Snapshot

	err := s.db.QueryRow(ctx, `SELECT value FROM incident_watermark WHERE id = 1`).Scan(&snap.Watermark)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return snap, fmt.Errorf("error loading watermark: %w", err)
	}

	markers, err := s.loadMarkers(ctx)
	if err != nil {
		return snap, err
	}
	snap.Markers = markers

	sidebar, err := s.loadSidebar(ctx)
	if err != nil {
		return snap, err
	}
	snap.Sidebar = sidebar

	return snap, nil
}

func (s *IncidentStore) loadMarkers(ctx context.Context) ([]incident.MarkerState, error) {
	rows, err := s.db.Query(ctx, `
		SELECT location_key, lng, lat, location, icon, history, last_update, opacity
		FROM incident_markers
		ORDER BY created_at, location_key
	`)
	if err != nil {
		return nil, fmt.Errorf("error querying markers: %w", err)
	}
	defer rows.Close()

	var markers []incident.MarkerState
	for rows.Next() {
		var m incident.MarkerState
		var historyJSON []byte

		if err := rows.Scan(
			&m.LocationKey,
			&m.Coordinate.Longitude,
			&m.Coordinate.Latitude,
			&m.Location,
			&m.Icon,
			&historyJSON,
			&m.LastUpdate,
			&m.Opacity,
		); err != nil {
			return nil, fmt.Errorf("error scanning marker: %w", err)
		}

		if err := json.Unmarshal(historyJSON, &m.History); err != nil {
			return nil, fmt.Errorf("error unmarshaling history for %s: %w", m.LocationKey, err)
		}

		markers = append(markers, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating markers: %w", err)
	}

	return markers, nil
}

func (s *IncidentStore) loadSidebar(ctx context.Context) ([]incident.SidebarEntry, error) {
	query := `
		SELECT id, ts, when_text, heading, glyph, label, body, focus_lng, focus_lat
		FROM incident_sidebar
		ORDER BY seq DESC
	`
	args := []interface{}{}
	if s.sidebarLimit > 0 {
		query += ` LIMIT $1`
		args = append(args, s.sidebarLimit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying sidebar: %w", err)
	}
	defer rows.Close()

	var entries []incident.SidebarEntry
	for rows.Next() {
		var e incident.SidebarEntry
		var lng, lat *float64

		if err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&e.When,
			&e.Heading,
			&e.Glyph,
			&e.Label,
			&e.Text,
			&lng,
			&lat,
		); err != nil {
			return nil, fmt.Errorf("error scanning sidebar entry: %w", err)
		}

		if lng != nil && lat != nil {
			e.Focus = &incident.Coordinate{Longitude: *lng, Latitude: *lat}
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sidebar: %w", err)
	}

	return entries, nil
}
