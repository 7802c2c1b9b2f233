package handlers

import (
	"net/http"

	"aldercrest-web/internal/integrations"
	"aldercrest-web/internal/models"
	"aldercrest-web/pkg/httputil"

	"go.uber.org/zap"
)

// FAQHandler serves the FAQ entries shown on the site and suggested inside
// the widget.
type FAQHandler struct {
	source integrations.FAQSource
	log    *zap.Logger
}

// NewFAQHandler creates a new FAQHandler instance.
func NewFAQHandler(source integrations.FAQSource, log *zap.Logger) *FAQHandler {
	return &FAQHandler{
		source: source,
		log:    log,
	}
}

// HandleListFAQ handles GET /v1/faq.
func (h *FAQHandler) HandleListFAQ(w http.ResponseWriter, r *http.Request) {
	items, err := h.source.ListFAQ(r.Context())
	if err != nil {
		h.log.Error("failed to list FAQ entries", zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, "Could not load FAQ entries")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.FAQResponse{Items: items})
}
