package integrations

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aldercrest-web/internal/models"
)

type stubTransport struct {
	fn func(*http.Request) (*http.Response, error)
}

func (s stubTransport) RoundTrip(r *http.Request) (*http.Response, error) { return s.fn(r) }

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

const faqQueryResponse = `{
	"object": "list",
	"results": [
		{
			"object": "page",
			"id": "11111111-1111-1111-1111-111111111111",
			"properties": {
				"Question": {
					"id": "title", "type": "title",
					"title": [{"type": "text", "plain_text": "How do I apply?"}]
				},
				"Answer": {
					"id": "ans", "type": "rich_text",
					"rich_text": [{"type": "text", "plain_text": "Through the applications portal."}]
				}
			}
		},
		{
			"object": "page",
			"id": "22222222-2222-2222-2222-222222222222",
			"properties": {
				"Question": {
					"id": "title", "type": "title",
					"title": [{"type": "text", "plain_text": "Row without an answer"}]
				},
				"Answer": {"id": "ans", "type": "rich_text", "rich_text": []}
			}
		}
	],
	"has_more": false,
	"next_cursor": null
}`

func notionClientWith(fn func(*http.Request) (*http.Response, error)) *notionapi.Client {
	return notionapi.NewClient("secret-token",
		notionapi.WithHTTPClient(&http.Client{Transport: stubTransport{fn: fn}}))
}

func fallbackSource() *StaticFAQSource {
	return NewStaticFAQSource([]models.FAQItem{
		{Question: "Static question?", Answer: "Static answer."},
	})
}

func TestStaticFAQSourceReturnsCopy(t *testing.T) {
	src := fallbackSource()

	items, err := src.ListFAQ(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	items[0].Question = "mutated"
	again, err := src.ListFAQ(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Static question?", again[0].Question)
}

func TestNotionFAQSourceParsesRows(t *testing.T) {
	var calls int
	client := notionClientWith(func(r *http.Request) (*http.Response, error) {
		calls++
		require.Contains(t, r.URL.Path, "databases")
		return jsonResponse(faqQueryResponse), nil
	})

	src := NewNotionFAQSource(client, "db-id", time.Minute, fallbackSource(), zap.NewNop())

	items, err := src.ListFAQ(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1, "rows with an empty answer are skipped")
	require.Equal(t, "How do I apply?", items[0].Question)
	require.Equal(t, "Through the applications portal.", items[0].Answer)

	// Second read is served from the cache.
	_, err = src.ListFAQ(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestNotionFAQSourceFallsBackOnError(t *testing.T) {
	client := notionClientWith(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	src := NewNotionFAQSource(client, "db-id", time.Minute, fallbackSource(), zap.NewNop())

	items, err := src.ListFAQ(context.Background())
	require.NoError(t, err, "a notion outage must not break the FAQ page")
	require.Len(t, items, 1)
	require.Equal(t, "Static question?", items[0].Question)
}
