// Package audit keeps an append-only Postgres history of completed
// analyses. It is optional: the pipeline runs without it when no DSN is
// configured.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Record is one completed analysis.
type Record struct {
	CycleID       string
	DecidedAt     time.Time
	Probability   float64
	Confidence    float64
	PassCount     int
	Verdict       string
	PolicyApplied bool
}

// Store manages the PostgreSQL connection for analysis history.
type Store struct {
	conn *pgx.Conn
}

// New establishes a connection and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS analyses (
			cycle_id TEXT PRIMARY KEY,
			decided_at TIMESTAMPTZ NOT NULL,
			probability DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			pass_count INT NOT NULL,
			verdict TEXT NOT NULL,
			policy_applied BOOLEAN NOT NULL
		);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Insert appends one analysis record.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO analyses (cycle_id, decided_at, probability, confidence, pass_count, verdict, policy_applied)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.CycleID, rec.DecidedAt, rec.Probability, rec.Confidence, rec.PassCount, rec.Verdict, rec.PolicyApplied,
	)
	return err
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.conn.Query(ctx,
		`SELECT cycle_id, decided_at, probability, confidence, pass_count, verdict, policy_applied
		 FROM analyses ORDER BY decided_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.CycleID, &rec.DecidedAt, &rec.Probability, &rec.Confidence,
			&rec.PassCount, &rec.Verdict, &rec.PolicyApplied); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the database connection.
func (s *Store) Close(ctx context.Context) {
	if s.conn != nil {
		s.conn.Close(ctx)
	}
}
