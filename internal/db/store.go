package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"incidentdesk/internal/domain"
)

var ErrIncidentNotFound = errors.New("incident not found")

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Store archives closed incident reports.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS incident_reports (
			incident_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			issue_type TEXT NOT NULL,
			outcome TEXT NOT NULL,
			record JSONB NOT NULL,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_incident_reports_created ON incident_reports(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_incident_reports_outcome_created ON incident_reports(outcome, created_at);`,
	}

	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SaveIncident(ctx context.Context, event domain.IncidentEvent) error {
	record, err := event.MarshalRecord()
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO incident_reports(incident_id, session_id, issue_type, outcome, record, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (incident_id) DO NOTHING
	`, event.IncidentID, event.SessionID, string(event.IssueType), string(event.Outcome), record, nullIfEmpty(event.Error), createdAt)
	return err
}

func (s *Store) GetIncident(ctx context.Context, incidentID string) (domain.IncidentEvent, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT incident_id, session_id, issue_type, outcome, record, COALESCE(error, ''), created_at
		FROM incident_reports
		WHERE incident_id=$1
	`, incidentID)
	out, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.IncidentEvent{}, ErrIncidentNotFound
	}
	return out, err
}

// RecentIncidents lists the newest archived reports first.
func (s *Store) RecentIncidents(ctx context.Context, limit int) ([]domain.IncidentEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT incident_id, session_id, issue_type, outcome, record, COALESCE(error, ''), created_at
		FROM incident_reports
		ORDER BY created_at DESC
		LIMIT $1
	`, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.IncidentEvent
	for rows.Next() {
		item, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanIncident(row pgx.Row) (domain.IncidentEvent, error) {
	var out domain.IncidentEvent
	var issueType, outcome string
	var recordRaw []byte
	var createdAt time.Time
	if err := row.Scan(&out.IncidentID, &out.SessionID, &issueType, &outcome, &recordRaw, &out.Error, &createdAt); err != nil {
		return domain.IncidentEvent{}, err
	}
	if err := json.Unmarshal(recordRaw, &out.Record); err != nil {
		return domain.IncidentEvent{}, err
	}
	out.IssueType = domain.IssueType(issueType)
	out.Outcome = domain.SubmissionOutcome(outcome)
	out.CreatedAt = createdAt.UTC()
	return out, nil
}

// ClampLimit bounds a list size requested by a client.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
