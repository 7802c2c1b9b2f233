package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aldercrest-web/internal/crypto"
	"aldercrest-web/internal/models"
	"aldercrest-web/internal/store"
)

// Custom errors for enquiry service
var (
	ErrEnquiryValidation = errors.New("enquiry validation failed")
)

// EnquiryNotice is the plaintext view of a new enquiry handed to the
// notifier. It exists only for the duration of the notification; the stored
// row keeps the email encrypted.
type EnquiryNotice struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Programme *string
	Message   string
	Page      *string
}

// EnquiryNotifier forwards a new enquiry to wherever the admissions team
// watches. A nil notifier disables notifications.
type EnquiryNotifier interface {
	NotifyEnquiry(ctx context.Context, notice EnquiryNotice) error
}

// EnquiryService defines the operations around prospective-student
// enquiries.
type EnquiryService interface {
	CreateEnquiry(ctx context.Context, req models.CreateEnquiryRequest, page *string) (*models.EnquiryResponse, error)
	GetEnquiry(ctx context.Context, id uuid.UUID) (*models.EnquiryResponse, error)
}

type enquiryService struct {
	store    store.EnquiryStore
	sealer   *crypto.Sealer
	notifier EnquiryNotifier
	log      *zap.Logger
}

// NewEnquiryService creates a new EnquiryService.
func NewEnquiryService(s store.EnquiryStore, sealer *crypto.Sealer, notifier EnquiryNotifier, log *zap.Logger) EnquiryService {
	return &enquiryService{
		store:    s,
		sealer:   sealer,
		notifier: notifier,
		log:      log,
	}
}

// CreateEnquiry validates the submission, seals the email address and
// persists the enquiry. Notification failures are logged and swallowed: the
// enquiry is already stored, and losing a ping must not bounce a visitor.
func (s *enquiryService) CreateEnquiry(ctx context.Context, req models.CreateEnquiryRequest, page *string) (*models.EnquiryResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	message := strings.TrimSpace(req.Message)

	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrEnquiryValidation)
	}
	if message == "" {
		return nil, fmt.Errorf("%w: message cannot be empty", ErrEnquiryValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrEnquiryValidation)
	}

	sealedEmail, err := s.sealer.SealString(email)
	if err != nil {
		return nil, fmt.Errorf("failed to seal enquiry email: %w", err)
	}

	created, err := s.store.CreateEnquiry(ctx, store.CreateEnquiryParams{
		ID:             uuid.New(),
		Name:           name,
		EncryptedEmail: sealedEmail,
		Programme:      req.Programme,
		Message:        message,
		Page:           page,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store enquiry: %w", err)
	}

	if s.notifier != nil {
		notice := EnquiryNotice{
			ID:        created.ID,
			Name:      name,
			Email:     email,
			Programme: req.Programme,
			Message:   message,
			Page:      page,
		}
		if err := s.notifier.NotifyEnquiry(ctx, notice); err != nil {
			s.log.Warn("enquiry notification failed",
				zap.String("enquiry_id", created.ID.String()),
				zap.Error(err),
			)
		}
	}

	return &models.EnquiryResponse{
		ID:         created.ID,
		ReceivedAt: created.CreatedAt,
	}, nil
}

// GetEnquiry looks an enquiry up by its reference and returns the
// acknowledgment view only. Contact details stay sealed in the row; nothing
// here decrypts them.
func (s *enquiryService) GetEnquiry(ctx context.Context, id uuid.UUID) (*models.EnquiryResponse, error) {
	enquiry, err := s.store.GetEnquiryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.EnquiryResponse{
		ID:         enquiry.ID,
		ReceivedAt: enquiry.CreatedAt,
	}, nil
}
