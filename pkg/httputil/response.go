package httputil

import (
	"encoding/json"
	"log"
	"net/http"

	"aldercrest-web/internal/models"
)

// RespondJSON writes payload as a JSON body with the given status code.
// A nil payload writes the header only, so callers can send bodyless
// statuses without producing a literal "null".
func RespondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// The header is already on the wire; all we can do is record it.
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// RespondError writes a JSON error body with the given status code.
func RespondError(w http.ResponseWriter, statusCode int, message string) {
	RespondJSON(w, statusCode, models.ErrorResponse{Error: message})
}
