package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"fieldnav/pkg/db"
	"fieldnav/pkg/model"
)

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Waypoints ---

func (s *SQLiteStore) SaveWaypoint(ctx context.Context, wp *model.Waypoint) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO waypoints
		 (id, lat, lon, altitude, accuracy, zone, band, easting, northing, timestamp, type, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wp.ID, wp.Lat, wp.Lon, nullFloat(wp.Altitude), nullFloat(wp.Accuracy),
		wp.Zone, wp.Band, wp.Easting, wp.Northing, wp.Timestamp, wp.Type, wp.Note,
	)
	return err
}

func (s *SQLiteStore) DeleteWaypoint(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM waypoints WHERE id = ?", id)
	return err
}

func (s *SQLiteStore) ListWaypoints(ctx context.Context) ([]model.Waypoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lat, lon, altitude, accuracy, zone, band, easting, northing, timestamp, type, note
		 FROM waypoints ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Waypoint
	for rows.Next() {
		var wp model.Waypoint
		var altitude, accuracy sql.NullFloat64
		if err := rows.Scan(
			&wp.ID, &wp.Lat, &wp.Lon, &altitude, &accuracy,
			&wp.Zone, &wp.Band, &wp.Easting, &wp.Northing,
			&wp.Timestamp, &wp.Type, &wp.Note,
		); err != nil {
			return nil, err
		}
		if altitude.Valid {
			v := altitude.Float64
			wp.Altitude = &v
		}
		if accuracy.Valid {
			v := accuracy.Float64
			wp.Accuracy = &v
		}
		out = append(out, wp)
	}
	return out, rows.Err()
}

// --- Track ---

func (s *SQLiteStore) AppendTrackPoint(ctx context.Context, p model.TrackPoint) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO track_points (lat, lon) VALUES (?, ?)", p.Lat, p.Lon)
	return err
}

func (s *SQLiteStore) ReplaceTrack(ctx context.Context, points []model.TrackPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, "DELETE FROM track_points"); err != nil {
		return err
	}
	for _, p := range points {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO track_points (lat, lon) VALUES (?, ?)", p.Lat, p.Lon); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListTrack(ctx context.Context) ([]model.TrackPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT lat, lon FROM track_points ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TrackPoint
	for rows.Next() {
		var p model.TrackPoint
		if err := rows.Scan(&p.Lat, &p.Lon); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ClearTrack(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM track_points")
	return err
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("state read failed", "key", key, "error", err)
		}
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO persistent_state (key, value) VALUES (?, ?)", key, val)
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
