package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"aldercrest-web/internal/models"
	"aldercrest-web/internal/store"
)

// Compile-time check to ensure PostgresStore implements store.EnquiryStore.
var _ store.EnquiryStore = (*PostgresStore)(nil)

type PostgresStore struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewPostgresStore(db *pgxpool.Pool, log *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

const ensureEnquiriesTable = `
CREATE TABLE IF NOT EXISTS enquiries (
    id              UUID PRIMARY KEY,
    name            TEXT NOT NULL,
    encrypted_email BYTEA NOT NULL,
    programme       TEXT,
    message         TEXT NOT NULL,
    page            TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// EnsureSchema creates the enquiries table when it is missing. The site has
// a single self-owned table, so this replaces a migration tool.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, ensureEnquiriesTable); err != nil {
		return fmt.Errorf("ensuring enquiries schema: %w", err)
	}
	return nil
}

const createEnquiry = `-- name: CreateEnquiry :one
INSERT INTO enquiries (
    id, name, encrypted_email, programme, message, page
) VALUES (
    $1, $2, $3, $4, $5, $6
)
RETURNING id, name, encrypted_email, programme, message, page, created_at;
`

// CreateEnquiry inserts a new enquiry row. Email arrives as AES-GCM
// ciphertext from the service layer.
func (s *PostgresStore) CreateEnquiry(ctx context.Context, arg store.CreateEnquiryParams) (*models.Enquiry, error) {
	id := arg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := s.db.QueryRow(ctx, createEnquiry,
		id,
		arg.Name,
		arg.EncryptedEmail,
		arg.Programme, // pgx maps *string to NULL automatically
		arg.Message,
		arg.Page,
	)

	var e models.Enquiry
	err := row.Scan(
		&e.ID,
		&e.Name,
		&e.EncryptedEmail,
		&e.Programme,
		&e.Message,
		&e.Page,
		&e.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			s.log.Error("enquiry insert failed",
				zap.String("pg_code", pgErr.Code),
				zap.String("pg_message", pgErr.Message),
			)
		}
		return nil, fmt.Errorf("database error creating enquiry: %w", err)
	}

	s.log.Debug("enquiry stored", zap.String("enquiry_id", e.ID.String()))
	return &e, nil
}

const getEnquiryByID = `-- name: GetEnquiryByID :one
SELECT id, name, encrypted_email, programme, message, page, created_at
FROM enquiries
WHERE id = $1;
`

// GetEnquiryByID retrieves an enquiry, or store.ErrNotFound.
func (s *PostgresStore) GetEnquiryByID(ctx context.Context, id uuid.UUID) (*models.Enquiry, error) {
	row := s.db.QueryRow(ctx, getEnquiryByID, id)

	var e models.Enquiry
	err := row.Scan(
		&e.ID,
		&e.Name,
		&e.EncryptedEmail,
		&e.Programme,
		&e.Message,
		&e.Page,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning enquiry: %w", err)
	}
	return &e, nil
}
