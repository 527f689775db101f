package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists transcripts and feedback reports in PostgreSQL.
// Records are stored as JSONB payloads keyed by room id so the wire shape and
// the durable shape stay identical.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS interview_transcripts (
			room_id TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS interview_feedback (
			room_id TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveTranscript(ctx context.Context, record Record) error {
	return s.save(ctx, "interview_transcripts", record.RoomID, record)
}

func (s *PostgresStore) GetTranscript(ctx context.Context, roomID string) (Record, error) {
	var r Record
	if err := s.get(ctx, "interview_transcripts", roomID, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (s *PostgresStore) HasTranscript(ctx context.Context, roomID string) (bool, error) {
	return s.has(ctx, "interview_transcripts", roomID)
}

func (s *PostgresStore) SaveFeedback(ctx context.Context, report FeedbackReport) error {
	return s.save(ctx, "interview_feedback", report.RoomID, report)
}

func (s *PostgresStore) GetFeedback(ctx context.Context, roomID string) (FeedbackReport, error) {
	var r FeedbackReport
	if err := s.get(ctx, "interview_feedback", roomID, &r); err != nil {
		return FeedbackReport{}, err
	}
	return r, nil
}

func (s *PostgresStore) HasFeedback(ctx context.Context, roomID string) (bool, error) {
	return s.has(ctx, "interview_feedback", roomID)
}

func (s *PostgresStore) RoomIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT room_id FROM interview_transcripts ORDER BY room_id`)
	if err != nil {
		return nil, fmt.Errorf("query room ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan room id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room ids: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) save(ctx context.Context, table, roomID string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+table+` (room_id, payload, saved_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (room_id) DO UPDATE SET payload = EXCLUDED.payload, saved_at = now()`,
		roomID,
		payload,
	)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

func (s *PostgresStore) get(ctx context.Context, table, roomID string, out any) error {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM `+table+` WHERE room_id=$1`, roomID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	return nil
}

func (s *PostgresStore) has(ctx context.Context, table, roomID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE room_id=$1)`, roomID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check record: %w", err)
	}
	return exists, nil
}
