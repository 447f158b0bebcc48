package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"registre/internal/courrier/models"
	id "registre/pkg/domain"
	"registre/pkg/platform/sentinel"
)

// Postgres persists courriers in PostgreSQL. Execute maps to a
// SELECT ... FOR UPDATE transaction so the per-id single-writer guarantee
// holds across service instances.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the tables when they do not exist yet. Kept inline
// rather than behind a migration tool: the schema is two tables.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS courriers (
	id UUID PRIMARY KEY,
	ref TEXT NOT NULL UNIQUE,
	type TEXT NOT NULL,
	subject TEXT NOT NULL,
	sender TEXT NOT NULL DEFAULT '',
	recipient TEXT NOT NULL DEFAULT '',
	business_date TEXT NOT NULL,
	status TEXT NOT NULL,
	priority TEXT NOT NULL,
	service TEXT NOT NULL DEFAULT '',
	responsible_user_id UUID,
	attachment TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	linked_to UUID,
	received_at TIMESTAMPTZ,
	digitized_at TIMESTAMPTZ,
	encoded_at TIMESTAMPTZ,
	processed_at TIMESTAMPTZ,
	validated_at TIMESTAMPTZ,
	digitized_by UUID,
	encoded_by UUID,
	processed_by UUID,
	validated_by UUID,
	processing_deadline TIMESTAMPTZ,
	created_by UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	position BIGSERIAL
);
CREATE TABLE IF NOT EXISTS courrier_refs (
	scope TEXT PRIMARY KEY,
	counter INT NOT NULL
);`

const courrierColumns = `id, ref, type, subject, sender, recipient, business_date, status,
	priority, service, responsible_user_id, attachment, notes, linked_to,
	received_at, digitized_at, encoded_at, processed_at, validated_at,
	digitized_by, encoded_by, processed_by, validated_by,
	processing_deadline, created_by, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, t models.Type, year int, build func(ref string) (*models.Courrier, error)) (*models.Courrier, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	scope := fmt.Sprintf("%s-%d", t.RefPrefix(), year)
	var counter int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO courrier_refs (scope, counter) VALUES ($1, 1)
		ON CONFLICT (scope) DO UPDATE SET counter = courrier_refs.counter + 1
		RETURNING counter`, scope).Scan(&counter)
	if err != nil {
		return nil, fmt.Errorf("allocate ref: %w", err)
	}

	c, err := build(fmt.Sprintf("%s-%04d", scope, counter))
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO courriers (`+courrierColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
		insertArgs(c)...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("insert courrier: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create tx: %w", err)
	}
	return c, nil
}

func (s *Postgres) FindByID(ctx context.Context, courrierID id.CourrierID) (*models.Courrier, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+courrierColumns+` FROM courriers WHERE id = $1`, uuid.UUID(courrierID))
	return scanCourrier(row)
}

func (s *Postgres) FindByRef(ctx context.Context, ref string) (*models.Courrier, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+courrierColumns+` FROM courriers WHERE ref = $1`, ref)
	return scanCourrier(row)
}

func (s *Postgres) List(ctx context.Context, filter Filter) ([]*models.Courrier, error) {
	// Filtering in SQL would need dynamic clauses for five optional fields;
	// table scans stay cheap at registry volumes, so filter in memory like
	// the default store does.
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+courrierColumns+` FROM courriers ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list courriers: %w", err)
	}
	defer rows.Close()

	var out []*models.Courrier
	for rows.Next() {
		c, err := scanCourrier(rows)
		if err != nil {
			return nil, err
		}
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	return out, rows.Err()
}

func (s *Postgres) Execute(ctx context.Context, courrierID id.CourrierID, validate func(*models.Courrier) error, mutate func(*models.Courrier)) (*models.Courrier, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin execute tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+courrierColumns+` FROM courriers WHERE id = $1 FOR UPDATE`, uuid.UUID(courrierID))
	c, err := scanCourrier(row)
	if err != nil {
		return nil, err
	}

	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)

	if err := updateRow(ctx, tx, c); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit execute tx: %w", err)
	}
	return c, nil
}

func (s *Postgres) UpdateDetails(ctx context.Context, courrierID id.CourrierID, patch DetailsPatch, now time.Time) (*models.Courrier, error) {
	return s.Execute(ctx, courrierID,
		func(c *models.Courrier) error {
			if c.Archived() {
				return sentinel.ErrInvalidState
			}
			return nil
		},
		func(c *models.Courrier) {
			applyPatch(c, patch, now)
		},
	)
}

func insertArgs(c *models.Courrier) []any {
	return []any{
		uuid.UUID(c.ID), c.Ref, string(c.Type), c.Subject, c.Sender, c.Recipient,
		c.Date, string(c.Status), string(c.Priority), c.Service,
		nullUserID(c.ResponsibleUserID), c.Attachment, c.Notes, nullCourrierID(c.LinkedTo),
		nullTime(c.ReceivedAt), nullTime(c.DigitizedAt), nullTime(c.EncodedAt),
		nullTime(c.ProcessedAt), nullTime(c.ValidatedAt),
		nullUserID(c.DigitizedBy), nullUserID(c.EncodedBy), nullUserID(c.ProcessedBy),
		nullUserID(c.ValidatedBy), nullTime(c.ProcessingDeadline),
		uuid.UUID(c.CreatedBy), c.CreatedAt, c.UpdatedAt,
	}
}

func updateRow(ctx context.Context, tx *sql.Tx, c *models.Courrier) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE courriers SET
			subject = $2, status = $3, priority = $4, service = $5,
			responsible_user_id = $6, attachment = $7, notes = $8,
			received_at = $9, digitized_at = $10, encoded_at = $11,
			processed_at = $12, validated_at = $13,
			digitized_by = $14, encoded_by = $15, processed_by = $16,
			validated_by = $17, processing_deadline = $18, updated_at = $19
		WHERE id = $1`,
		uuid.UUID(c.ID), c.Subject, string(c.Status), string(c.Priority), c.Service,
		nullUserID(c.ResponsibleUserID), c.Attachment, c.Notes,
		nullTime(c.ReceivedAt), nullTime(c.DigitizedAt), nullTime(c.EncodedAt),
		nullTime(c.ProcessedAt), nullTime(c.ValidatedAt),
		nullUserID(c.DigitizedBy), nullUserID(c.EncodedBy), nullUserID(c.ProcessedBy),
		nullUserID(c.ValidatedBy), nullTime(c.ProcessingDeadline), c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update courrier: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourrier(row rowScanner) (*models.Courrier, error) {
	var (
		c            models.Courrier
		rawID, rawBy uuid.UUID
		typ, status  string
		priority     string
		responsible  uuid.NullUUID
		linkedTo     uuid.NullUUID
		receivedAt   sql.NullTime
		digitizedAt  sql.NullTime
		encodedAt    sql.NullTime
		processedAt  sql.NullTime
		validatedAt  sql.NullTime
		digitizedBy  uuid.NullUUID
		encodedBy    uuid.NullUUID
		processedBy  uuid.NullUUID
		validatedBy  uuid.NullUUID
		deadline     sql.NullTime
	)
	err := row.Scan(
		&rawID, &c.Ref, &typ, &c.Subject, &c.Sender, &c.Recipient, &c.Date, &status,
		&priority, &c.Service, &responsible, &c.Attachment, &c.Notes, &linkedTo,
		&receivedAt, &digitizedAt, &encodedAt, &processedAt, &validatedAt,
		&digitizedBy, &encodedBy, &processedBy, &validatedBy,
		&deadline, &rawBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan courrier: %w", err)
	}

	c.ID = id.CourrierID(rawID)
	c.Type = models.Type(typ)
	c.Status = models.Status(status)
	c.Priority = models.Priority(priority)
	c.CreatedBy = id.UserID(rawBy)
	c.ResponsibleUserID = userIDPtr(responsible)
	c.LinkedTo = courrierIDPtr(linkedTo)
	c.ReceivedAt = timePtr(receivedAt)
	c.DigitizedAt = timePtr(digitizedAt)
	c.EncodedAt = timePtr(encodedAt)
	c.ProcessedAt = timePtr(processedAt)
	c.ValidatedAt = timePtr(validatedAt)
	c.DigitizedBy = userIDPtr(digitizedBy)
	c.EncodedBy = userIDPtr(encodedBy)
	c.ProcessedBy = userIDPtr(processedBy)
	c.ValidatedBy = userIDPtr(validatedBy)
	c.ProcessingDeadline = timePtr(deadline)
	return &c, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullUserID(u *id.UserID) uuid.NullUUID {
	if u == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*u), Valid: true}
}

func nullCourrierID(c *id.CourrierID) uuid.NullUUID {
	if c == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*c), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func userIDPtr(u uuid.NullUUID) *id.UserID {
	if !u.Valid {
		return nil
	}
	v := id.UserID(u.UUID)
	return &v
}

func courrierIDPtr(u uuid.NullUUID) *id.CourrierID {
	if !u.Valid {
		return nil
	}
	v := id.CourrierID(u.UUID)
	return &v
}
