package calls

import (
	"context"
	"database/sql"
	"errors"
)

// PGStore persists call records in Postgres via database/sql (pgx stdlib
// driver).
//
// NOTE: assumes the following table exists:
//
//	CREATE TABLE call_records (
//	    id                TEXT PRIMARY KEY,
//	    provider_call_sid TEXT NOT NULL UNIQUE,
//	    owner_id          TEXT NOT NULL,
//	    target_number     TEXT NOT NULL,
//	    strategy          TEXT NOT NULL,
//	    status            TEXT NOT NULL,
//	    created_at        TIMESTAMPTZ NOT NULL,
//	    updated_at        TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX call_records_owner_created ON call_records (owner_id, created_at DESC);
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

const callColumns = `id, provider_call_sid, owner_id, target_number, strategy, status, created_at, updated_at`

func scanCall(row *sql.Row) (CallRecord, error) {
	var rec CallRecord
	err := row.Scan(
		&rec.ID,
		&rec.ProviderCallSid,
		&rec.OwnerID,
		&rec.TargetNumber,
		&rec.Strategy,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}

func (s *PGStore) Create(ctx context.Context, rec CallRecord) (CallRecord, error) {
	const q = `
INSERT INTO call_records (id, provider_call_sid, owner_id, target_number, strategy, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (provider_call_sid) DO NOTHING
RETURNING ` + callColumns
	out, err := scanCall(s.db.QueryRowContext(ctx, q,
		rec.ID,
		rec.ProviderCallSid,
		rec.OwnerID,
		rec.TargetNumber,
		rec.Strategy,
		rec.Status,
		rec.CreatedAt,
		rec.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// DO NOTHING returned no row: the sid is already taken.
			return CallRecord{}, ErrConflict
		}
		return CallRecord{}, err
	}
	return out, nil
}

func (s *PGStore) UpdateStatusByProviderCallSid(ctx context.Context, providerCallSid string, status Status) (CallRecord, error) {
	// The WHERE status guard is the terminal-status invariant: a second
	// webhook after a terminal value is set matches no row.
	const q = `
UPDATE call_records
SET status = $2, updated_at = now()
WHERE provider_call_sid = $1 AND status = $3
RETURNING ` + callColumns
	out, err := scanCall(s.db.QueryRowContext(ctx, q, providerCallSid, status, StatusPending))
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return CallRecord{}, err
	}

	// Distinguish unknown sid from already-final.
	if _, getErr := s.GetByProviderCallSid(ctx, providerCallSid); getErr != nil {
		return CallRecord{}, getErr
	}
	return CallRecord{}, ErrFinalStatus
}

func (s *PGStore) GetByProviderCallSid(ctx context.Context, providerCallSid string) (CallRecord, error) {
	const q = `
SELECT ` + callColumns + `
FROM call_records
WHERE provider_call_sid = $1
`
	out, err := scanCall(s.db.QueryRowContext(ctx, q, providerCallSid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecord{}, ErrNotFound
		}
		return CallRecord{}, err
	}
	return out, nil
}

func (s *PGStore) ListByOwner(ctx context.Context, ownerID string) ([]CallRecord, error) {
	if ownerID == "" {
		return nil, ErrInvalidArgument
	}
	const q = `
SELECT ` + callColumns + `
FROM call_records
WHERE owner_id = $1
ORDER BY created_at DESC
`
	rows, err := s.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallRecord, 0)
	for rows.Next() {
		var rec CallRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.ProviderCallSid,
			&rec.OwnerID,
			&rec.TargetNumber,
			&rec.Strategy,
			&rec.Status,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
