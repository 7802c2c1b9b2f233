package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"aldercrest-web/internal/models"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// ErrHistoryRewrite is returned by SessionStore.Update when a mutation would
// drop or alter already-committed transcript entries. The transcript is
// append-only; any update that does not keep the prior history as a prefix
// is rejected wholesale.
var ErrHistoryRewrite = errors.New("message history may only be appended to")

// SessionStore holds live widget sessions. Sessions are ephemeral: they
// expire with the page session and are never written to the database.
type SessionStore interface {
	// Create inserts a new session and returns a snapshot of it.
	Create(ctx context.Context, session *models.ChatContext) (*models.ChatContext, error)

	// Get returns a snapshot of the session, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*models.ChatContext, error)

	// Update applies fn to the live session under the session's lock and
	// returns a snapshot of the result. fn receives the live value and
	// mutates it in place; returning an error rolls the mutation back.
	// Concurrent Updates on one session are serialized, which is what the
	// idle/submitting transition relies on.
	Update(ctx context.Context, id uuid.UUID, fn func(*models.ChatContext) error) (*models.ChatContext, error)

	// Delete removes the session. Deleting an absent session is a no-op.
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateEnquiryParams contains parameters for persisting an enquiry. Email
// arrives already encrypted; the store never sees the plaintext address.
type CreateEnquiryParams struct {
	ID             uuid.UUID
	Name           string
	EncryptedEmail []byte
	Programme      *string
	Message        string
	Page           *string
}

// EnquiryStore defines the database operations for enquiries. It is an
// interface to allow mocking in tests and potential DB backend switching.
type EnquiryStore interface {
	CreateEnquiry(ctx context.Context, arg CreateEnquiryParams) (*models.Enquiry, error)
	GetEnquiryByID(ctx context.Context, id uuid.UUID) (*models.Enquiry, error)
}
