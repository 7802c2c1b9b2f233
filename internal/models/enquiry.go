package models

import (
	"time"

	"github.com/google/uuid"
)

// Enquiry represents a prospective-student enquiry row. EncryptedEmail holds
// AES-GCM ciphertext; the plaintext address exists only in the request that
// created the row and in the notification sent about it.
type Enquiry struct {
	ID             uuid.UUID `db:"id"`
	Name           string    `db:"name"`
	EncryptedEmail []byte    `db:"encrypted_email"`
	Programme      *string   `db:"programme"`
	Message        string    `db:"message"`
	Page           *string   `db:"page"`
	CreatedAt      time.Time `db:"created_at"`
}
