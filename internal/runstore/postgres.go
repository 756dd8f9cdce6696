package runstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/utils"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// pgUniqueViolation is the SQLSTATE for a duplicate key
const pgUniqueViolation = "23505"

const (
	insertRunQuery = `INSERT INTO optimization_runs (id, status, created_at, finished_at, dataset_points, candidates, failed, fallback, fallback_reason, optimal, top_results) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	selectRunQuery = `SELECT id, status, created_at, finished_at, dataset_points, candidates, failed, fallback, fallback_reason, optimal, top_results FROM optimization_runs`
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens dsn, checks the connection and applies migrations
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := NewPostgresStoreFromDB(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// NewPostgresStoreFromDB wraps an open database without migrating it
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the embedded schema
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema, err := migrationsFS.ReadFile("migrations/001_runs.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *RunRecord) error {
	if rec.ID == "" {
		rec.ID = utils.NewRunID()
	}

	optimal, err := json.Marshal(rec.Optimal)
	if err != nil {
		return fmt.Errorf("failed to encode optimal parameters: %w", err)
	}
	top, err := json.Marshal(rec.Top)
	if err != nil {
		return fmt.Errorf("failed to encode top results: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertRunQuery,
		rec.ID, string(rec.Status), rec.CreatedAt, rec.FinishedAt,
		rec.DatasetPoints, rec.Candidates, rec.Failed,
		rec.Fallback, rec.FallbackReason, optimal, top,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrExists, rec.ID)
		}
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*RunRecord, error) {
	// ids are UUIDs; anything else cannot exist and would fail the cast
	runID, err := utils.ParseRunID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	rec, err := scanRun(s.db.QueryRowContext(ctx, selectRunQuery+` WHERE id = $1`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]*RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectRunQuery+` ORDER BY created_at DESC LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*RunRecord, 0)
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var rec RunRecord
	var status string
	var optimal, top []byte

	err := row.Scan(
		&rec.ID, &status, &rec.CreatedAt, &rec.FinishedAt,
		&rec.DatasetPoints, &rec.Candidates, &rec.Failed,
		&rec.Fallback, &rec.FallbackReason, &optimal, &top,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = Status(status)

	if err := json.Unmarshal(optimal, &rec.Optimal); err != nil {
		return nil, fmt.Errorf("failed to decode optimal parameters: %w", err)
	}
	if err := json.Unmarshal(top, &rec.Top); err != nil {
		return nil, fmt.Errorf("failed to decode top results: %w", err)
	}
	if rec.Top == nil {
		rec.Top = []models.EvaluationResult{}
	}
	return &rec, nil
}
