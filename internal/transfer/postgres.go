package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"registre/internal/courrier/models"
	id "registre/pkg/domain"
	"registre/pkg/platform/sentinel"
)

// PostgresStore persists the ledger. Rows are only ever inserted or amended
// once (status_after), matching the append-only contract.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transfers (
			id UUID PRIMARY KEY,
			courrier_id UUID NOT NULL,
			from_user_id UUID NOT NULL,
			to_user_id UUID NOT NULL,
			date TIMESTAMPTZ NOT NULL,
			status_before TEXT NOT NULL,
			status_after TEXT,
			reason TEXT NOT NULL DEFAULT '',
			position BIGSERIAL
		);
		CREATE INDEX IF NOT EXISTS transfers_courrier_idx ON transfers (courrier_id, position)`)
	return err
}

func (s *PostgresStore) Append(ctx context.Context, t *Transfer) error {
	var after sql.NullString
	if t.StatusAfter != nil {
		after = sql.NullString{String: string(*t.StatusAfter), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transfers (id, courrier_id, from_user_id, to_user_id, date, status_before, status_after, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		uuid.UUID(t.ID), uuid.UUID(t.CourrierID), uuid.UUID(t.FromUserID), uuid.UUID(t.ToUserID),
		t.Date, string(t.StatusBefore), after, t.Reason)
	if err != nil {
		return fmt.Errorf("append transfer: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetStatusAfter(ctx context.Context, transferID id.TransferID, status models.Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transfers SET status_after = $2
		WHERE id = $1 AND status_after IS NULL`,
		uuid.UUID(transferID), string(status))
	if err != nil {
		return fmt.Errorf("complete transfer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete transfer: %w", err)
	}
	if n == 0 {
		// Either unknown id or already completed; distinguish for callers.
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM transfers WHERE id = $1)`, uuid.UUID(transferID)).Scan(&exists)
		if err != nil {
			return fmt.Errorf("complete transfer: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) ListByCourrier(ctx context.Context, courrierID id.CourrierID) ([]*Transfer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, courrier_id, from_user_id, to_user_id, date, status_before, status_after, reason
		FROM transfers WHERE courrier_id = $1 ORDER BY position`,
		uuid.UUID(courrierID))
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var out []*Transfer
	for rows.Next() {
		var (
			t                  Transfer
			rawID, rawCourrier uuid.UUID
			rawFrom, rawTo     uuid.UUID
			statusBefore       string
			statusAfter        sql.NullString
		)
		err := rows.Scan(&rawID, &rawCourrier, &rawFrom, &rawTo, &t.Date, &statusBefore, &statusAfter, &t.Reason)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, sentinel.ErrNotFound
			}
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		t.ID = id.TransferID(rawID)
		t.CourrierID = id.CourrierID(rawCourrier)
		t.FromUserID = id.UserID(rawFrom)
		t.ToUserID = id.UserID(rawTo)
		t.StatusBefore = models.Status(statusBefore)
		if statusAfter.Valid {
			v := models.Status(statusAfter.String)
			t.StatusAfter = &v
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
