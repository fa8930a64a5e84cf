// Package store persists simulation snapshots in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"solar-system/simulator/model"
)

var ErrNotFound = errors.New("snapshot not found")

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	tick    INTEGER PRIMARY KEY,
	elapsed REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS positions (
	tick INTEGER NOT NULL,
	idx  INTEGER NOT NULL,
	name TEXT NOT NULL,
	x    REAL NOT NULL,
	y    REAL NOT NULL,
	z    REAL NOT NULL,
	PRIMARY KEY (tick, idx)
);
CREATE INDEX IF NOT EXISTS positions_name ON positions (name, tick);`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// SQLite serializes writers anyway; one connection also keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores snap, replacing any snapshot already stored for the same tick.
func (s *Store) Save(ctx context.Context, snap model.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO snapshots (tick, elapsed) VALUES (?, ?)", snap.Tick, snap.Elapsed); err != nil {
		return fmt.Errorf("insert snapshot %d: %w", snap.Tick, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM positions WHERE tick = ?", snap.Tick); err != nil {
		return fmt.Errorf("clear positions %d: %w", snap.Tick, err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO positions (tick, idx, name, x, y, z) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare positions: %w", err)
	}
	defer stmt.Close()
	for i, b := range snap.Bodies {
		if _, err := stmt.ExecContext(ctx, snap.Tick, i, b.Name, b.X, b.Y, b.Z); err != nil {
			return fmt.Errorf("insert position %d/%d: %w", snap.Tick, i, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Get(ctx context.Context, tick uint64) (model.Snapshot, error) {
	snap := model.Snapshot{Tick: tick}
	err := s.db.QueryRowContext(ctx, "SELECT elapsed FROM snapshots WHERE tick = ?", tick).Scan(&snap.Elapsed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("get snapshot %d: %w", tick, err)
	}
	if snap.Bodies, err = s.bodies(ctx, tick); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) Latest(ctx context.Context) (model.Snapshot, error) {
	var tick uint64
	err := s.db.QueryRowContext(ctx, "SELECT tick FROM snapshots ORDER BY tick DESC LIMIT 1").Scan(&tick)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	return s.Get(ctx, tick)
}

// List returns up to limit snapshots, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT tick, elapsed FROM snapshots ORDER BY tick DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	snaps, err := scanSnapshots(rows)
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	for i := range snaps {
		if snaps[i].Bodies, err = s.bodies(ctx, snaps[i].Tick); err != nil {
			return nil, err
		}
	}
	return snaps, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSnapshots(rows rowScanner) ([]model.Snapshot, error) {
	snaps := []model.Snapshot{}
	for rows.Next() {
		var snap model.Snapshot
		if err := rows.Scan(&snap.Tick, &snap.Elapsed); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

// Delete removes the snapshot at tick.
func (s *Store) Delete(ctx context.Context, tick uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE tick = ?", tick)
	if err != nil {
		return fmt.Errorf("delete snapshot %d: %w", tick, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM positions WHERE tick = ?", tick); err != nil {
		return fmt.Errorf("delete positions %d: %w", tick, err)
	}
	return tx.Commit()
}

// TrackPoint is a body's position at one tick.
type TrackPoint struct {
	Tick uint64 `json:"tick"`
	model.Vec3
}

// Trajectory returns up to limit recorded positions of the named body,
// oldest first.
func (s *Store) Trajectory(ctx context.Context, name string, limit int) ([]TrackPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick, x, y, z FROM (
			SELECT tick, x, y, z FROM positions WHERE name = ? ORDER BY tick DESC LIMIT ?
		) ORDER BY tick ASC`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("trajectory %s: %w", name, err)
	}
	defer rows.Close()

	points := []TrackPoint{}
	for rows.Next() {
		var p TrackPoint
		if err := rows.Scan(&p.Tick, &p.X, &p.Y, &p.Z); err != nil {
			return nil, fmt.Errorf("scan trajectory: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *Store) bodies(ctx context.Context, tick uint64) ([]model.BodyPosition, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, x, y, z FROM positions WHERE tick = ? ORDER BY idx", tick)
	if err != nil {
		return nil, fmt.Errorf("positions %d: %w", tick, err)
	}
	defer rows.Close()

	bodies := []model.BodyPosition{}
	for rows.Next() {
		var b model.BodyPosition
		if err := rows.Scan(&b.Name, &b.X, &b.Y, &b.Z); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		bodies = append(bodies, b)
	}
	return bodies, rows.Err()
}
