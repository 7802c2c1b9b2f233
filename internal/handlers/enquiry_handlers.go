package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"aldercrest-web/internal/models"
	"aldercrest-web/internal/services"
	"aldercrest-web/internal/store"
	"aldercrest-web/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EnquiryHandlers handles HTTP requests from the enquiry form.
type EnquiryHandlers struct {
	enquiries services.EnquiryService
	log       *zap.Logger
}

// NewEnquiryHandlers creates a new EnquiryHandlers instance.
func NewEnquiryHandlers(enquiries services.EnquiryService, log *zap.Logger) *EnquiryHandlers {
	return &EnquiryHandlers{
		enquiries: enquiries,
		log:       log,
	}
}

// HandleCreateEnquiry handles POST /v1/enquiries. The page the form was
// submitted from is taken from the Referer header rather than the body, so a
// tampered body cannot claim a different origin page.
func (h *EnquiryHandlers) HandleCreateEnquiry(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEnquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	var page *string
	if ref := r.Header.Get("Referer"); ref != "" {
		page = &ref
	}

	resp, err := h.enquiries.CreateEnquiry(r.Context(), req, page)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEnquiryValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error()) // 400
		default:
			h.log.Error("failed to store enquiry", zap.Error(err))
			httputil.RespondError(w, http.StatusInternalServerError, "Could not submit the enquiry") // 500
		}
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleGetEnquiry handles GET /v1/enquiries/{enquiryID}. It confirms receipt
// by reference number and returns the acknowledgment only, never the
// submitted contact details.
func (h *EnquiryHandlers) HandleGetEnquiry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "enquiryID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid enquiry reference format")
		return
	}

	resp, err := h.enquiries.GetEnquiry(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Enquiry not found") // 404
		default:
			h.log.Error("failed to fetch enquiry", zap.Error(err))
			httputil.RespondError(w, http.StatusInternalServerError, "Could not fetch the enquiry") // 500
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}
