package assistance

import (
	"fmt"
	"strings"

	"aldercrest-web/internal/models"
)

// FlattenTranscript renders the history into the remote's transcript format:
// one "Name: message" paragraph per entry, oldest first, separated by blank
// lines. Originators with no display name fall back to their raw role so a
// misconfigured session still produces a readable transcript. Returns nil
// for an empty history, which the wire format expects over an empty string.
func FlattenTranscript(history []models.MessageHistoryItem, names map[models.Originator]string) *string {
	if len(history) == 0 {
		return nil
	}

	lines := make([]string, 0, len(history))
	for _, item := range history {
		name, ok := names[item.Originator]
		if !ok || name == "" {
			name = string(item.Originator)
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, item.Message))
	}

	out := strings.Join(lines, "\n\n")
	return &out
}
