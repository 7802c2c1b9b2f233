package site_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"aldercrest-web/internal/integrations"
	"aldercrest-web/internal/models"
	"aldercrest-web/internal/site"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingFAQ struct{}

func (failingFAQ) ListFAQ(context.Context) ([]models.FAQItem, error) {
	return nil, errors.New("faq source down")
}

func newTestHandler(t *testing.T, faq integrations.FAQSource) *site.Handler {
	t.Helper()
	h, err := site.NewHandler(site.DefaultContent(), faq, "Avery", zap.NewNop())
	require.NoError(t, err)
	return h
}

func TestIndexRendersContentRegistry(t *testing.T) {
	faq := integrations.NewStaticFAQSource([]models.FAQItem{
		{Question: "Do you offer scholarships?", Answer: "Yes, merit and hardship awards every year."},
	})
	h := newTestHandler(t, faq)

	rec := httptest.NewRecorder()
	h.HandleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	require.Contains(t, body, "Aldercrest College")
	require.Contains(t, body, "Computer Science")
	require.Contains(t, body, "Do you offer scholarships?")
	require.Contains(t, body, `id="aldercrest-chat"`)
	require.Contains(t, body, "/v1/widget/config")
}

func TestIndexRendersWhenFAQSourceFails(t *testing.T) {
	h := newTestHandler(t, failingFAQ{})

	rec := httptest.NewRecorder()
	h.HandleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "Frequently asked questions")
}

func TestIndexUnknownPathNotFound(t *testing.T) {
	h := newTestHandler(t, failingFAQ{})

	rec := httptest.NewRecorder()
	h.HandleIndex(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaticHandlerServesStylesheet(t *testing.T) {
	rec := httptest.NewRecorder()
	site.StaticHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/site.css", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), ".masthead")
}
