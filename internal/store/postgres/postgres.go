// Package postgres is a PostgreSQL-backed store.Store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rbright/agrovoz/internal/store"
)

// Schema creates the record tables when they are missing.
const Schema = `
CREATE TABLE IF NOT EXISTS recorders (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL DEFAULT '',
    transcription TEXT NOT NULL DEFAULT '',
    file          TEXT NOT NULL DEFAULT '',
    location      TEXT NOT NULL DEFAULT '',
    datetime      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS praga (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    fazenda     TEXT NOT NULL DEFAULT '',
    praga       TEXT NOT NULL DEFAULT '',
    file        TEXT NOT NULL DEFAULT '',
    location    TEXT NOT NULL DEFAULT '',
    datetime    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS workdays (
    id         TEXT PRIMARY KEY,
    objective  TEXT NOT NULL,
    property   TEXT NOT NULL,
    field      TEXT NOT NULL,
    started_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_praga_datetime ON praga(datetime);
`

var _ store.Store = (*Store)(nil)

var timeNow = time.Now

// Store implements store.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn, pings the server, and migrates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres store: migrate: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) InsertRecording(ctx context.Context, rec *store.Recording) error {
	store.Stamp(&rec.ID, &rec.Datetime, timeNow())

	const query = `
		INSERT INTO recorders (id, name, transcription, file, location, datetime)
		VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Name, rec.Transcription, rec.File, rec.Location, rec.Datetime,
	); err != nil {
		return fmt.Errorf("postgres store: insert recording: %w", err)
	}
	return nil
}

func (s *Store) ListRecordings(ctx context.Context) ([]store.Recording, error) {
	const query = `
		SELECT id, name, transcription, file, location, datetime
		FROM recorders ORDER BY datetime, id`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list recordings: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Recording, error) {
		var r store.Recording
		err := row.Scan(&r.ID, &r.Name, &r.Transcription, &r.File, &r.Location, &r.Datetime)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan recordings: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteRecording(ctx context.Context, id string) (store.Recording, error) {
	const query = `
		DELETE FROM recorders WHERE id = $1
		RETURNING id, name, transcription, file, location, datetime`
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return store.Recording{}, fmt.Errorf("postgres store: delete recording: %w", err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (store.Recording, error) {
		var r store.Recording
		err := row.Scan(&r.ID, &r.Name, &r.Transcription, &r.File, &r.Location, &r.Datetime)
		return r, err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Recording{}, store.ErrNotFound
	}
	if err != nil {
		return store.Recording{}, fmt.Errorf("postgres store: delete recording: %w", err)
	}
	return rec, nil
}

func (s *Store) InsertPestReport(ctx context.Context, rep *store.PestReport) error {
	store.Stamp(&rep.ID, &rep.Datetime, timeNow())

	const query = `
		INSERT INTO praga (id, name, description, fazenda, praga, file, location, datetime)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	if _, err := s.pool.Exec(ctx, query,
		rep.ID, rep.Name, rep.Description, rep.Property, rep.Pest, rep.File, rep.Location, rep.Datetime,
	); err != nil {
		return fmt.Errorf("postgres store: insert pest report: %w", err)
	}
	return nil
}

func (s *Store) ListPestReports(ctx context.Context) ([]store.PestReport, error) {
	const query = `
		SELECT id, name, description, fazenda, praga, file, location, datetime
		FROM praga ORDER BY datetime, id`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list pest reports: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.PestReport, error) {
		var r store.PestReport
		err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Property, &r.Pest, &r.File, &r.Location, &r.Datetime)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan pest reports: %w", err)
	}
	return out, nil
}

func (s *Store) DeletePestReport(ctx context.Context, id string) (store.PestReport, error) {
	const query = `
		DELETE FROM praga WHERE id = $1
		RETURNING id, name, description, fazenda, praga, file, location, datetime`
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return store.PestReport{}, fmt.Errorf("postgres store: delete pest report: %w", err)
	}
	rep, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (store.PestReport, error) {
		var r store.PestReport
		err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Property, &r.Pest, &r.File, &r.Location, &r.Datetime)
		return r, err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return store.PestReport{}, store.ErrNotFound
	}
	if err != nil {
		return store.PestReport{}, fmt.Errorf("postgres store: delete pest report: %w", err)
	}
	return rep, nil
}

func (s *Store) InsertWorkday(ctx context.Context, day *store.Workday) error {
	store.Stamp(&day.ID, &day.StartedAt, timeNow())

	const query = `
		INSERT INTO workdays (id, objective, property, field, started_at)
		VALUES ($1,$2,$3,$4,$5)`
	if _, err := s.pool.Exec(ctx, query,
		day.ID, day.Objective, day.Property, day.Field, day.StartedAt,
	); err != nil {
		return fmt.Errorf("postgres store: insert workday: %w", err)
	}
	return nil
}

func (s *Store) ListWorkdays(ctx context.Context) ([]store.Workday, error) {
	const query = `
		SELECT id, objective, property, field, started_at
		FROM workdays ORDER BY started_at, id`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list workdays: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Workday, error) {
		var d store.Workday
		err := row.Scan(&d.ID, &d.Objective, &d.Property, &d.Field, &d.StartedAt)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan workdays: %w", err)
	}
	return out, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
