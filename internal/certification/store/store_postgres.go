package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"attest/internal/certification/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// PostgresStore persists certification trees as JSONB payloads with the
// hierarchy and sign off columns broken out for projection queries.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the table the store expects. Kept here so integration tests and
// deploy tooling share one definition.
const Schema = `
CREATE TABLE IF NOT EXISTS certifications (
    id         UUID PRIMARY KEY,
    parent_id  UUID NULL,
    cert_type  TEXT NOT NULL,
    phase      TEXT NOT NULL DEFAULT '',
    signed_at  TIMESTAMPTZ NULL,
    payload    JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_certifications_parent ON certifications (parent_id);
`

func (s *PostgresStore) Save(ctx context.Context, cert *models.Certification) error {
	for _, it := range cert.Items {
		it.Persisted = true
	}
	payload, err := json.Marshal(cert)
	if err != nil {
		return fmt.Errorf("marshal certification: %w", err)
	}

	var parent any
	if !cert.Parent.IsZero() {
		parent = cert.Parent.String()
	}
	var signed any
	if !cert.Signed.IsZero() {
		signed = cert.Signed
	}

	query := `
		INSERT INTO certifications (id, parent_id, cert_type, phase, signed_at, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO UPDATE SET
			parent_id  = EXCLUDED.parent_id,
			cert_type  = EXCLUDED.cert_type,
			phase      = EXCLUDED.phase,
			signed_at  = EXCLUDED.signed_at,
			payload    = EXCLUDED.payload,
			updated_at = now()
	`
	_, err = s.db.ExecContext(ctx, query, cert.ID.String(), parent,
		string(cert.Type), cert.Phase.String(), signed, payload)
	if err != nil {
		return fmt.Errorf("save certification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, certID id.CertificationID) (*models.Certification, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM certifications WHERE id = $1`, certID.String()).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find certification: %w", err)
	}

	var cert models.Certification
	if err := json.Unmarshal(payload, &cert); err != nil {
		return nil, fmt.Errorf("unmarshal certification: %w", err)
	}
	return &cert, nil
}

func (s *PostgresStore) Children(ctx context.Context, parentID id.CertificationID) ([]ChildRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, signed_at FROM certifications WHERE parent_id = $1`, parentID.String())
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []ChildRecord
	for rows.Next() {
		var rawID string
		var signed sql.NullTime
		if err := rows.Scan(&rawID, &signed); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		childID, err := id.ParseCertificationID(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse child id: %w", err)
		}
		var signedAt time.Time
		if signed.Valid {
			signedAt = signed.Time
		}
		children = append(children, ChildRecord{ID: childID, Signed: signedAt})
	}
	return children, rows.Err()
}
