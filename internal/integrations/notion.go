package integrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jomei/notionapi"
	"go.uber.org/zap"

	"aldercrest-web/internal/models"
)

// FAQSource lists the question/answer entries shown on the FAQ page and
// offered as suggested questions in the chat widget.
type FAQSource interface {
	ListFAQ(ctx context.Context) ([]models.FAQItem, error)
}

// StaticFAQSource serves a fixed set of entries. It backs the site when no
// Notion database is configured and is the fallback when Notion is down.
type StaticFAQSource struct {
	items []models.FAQItem
}

var _ FAQSource = (*StaticFAQSource)(nil)

func NewStaticFAQSource(items []models.FAQItem) *StaticFAQSource {
	return &StaticFAQSource{items: items}
}

func (s *StaticFAQSource) ListFAQ(context.Context) ([]models.FAQItem, error) {
	out := make([]models.FAQItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

// Notion FAQ rows live in a database with these two properties.
const (
	notionQuestionProperty = "Question"
	notionAnswerProperty   = "Answer"
)

const faqCacheKey = "faq"

// NotionFAQSource reads FAQ rows from a Notion database so the admissions
// team edits answers in Notion, not in a deploy. Results are cached; a
// failed refresh falls back to the static entries rather than erroring the
// page.
type NotionFAQSource struct {
	client     *notionapi.Client
	databaseID notionapi.DatabaseID
	fallback   FAQSource
	cache      *expirable.LRU[string, []models.FAQItem]
	log        *zap.Logger
}

var _ FAQSource = (*NotionFAQSource)(nil)

// NewNotionFAQSource creates a source reading from the given database.
// cacheTTL bounds how stale the served entries may be.
func NewNotionFAQSource(client *notionapi.Client, databaseID string, cacheTTL time.Duration, fallback FAQSource, log *zap.Logger) *NotionFAQSource {
	return &NotionFAQSource{
		client:     client,
		databaseID: notionapi.DatabaseID(databaseID),
		fallback:   fallback,
		cache:      expirable.NewLRU[string, []models.FAQItem](1, nil, cacheTTL),
		log:        log,
	}
}

// VerifyConnection makes a low-impact read to check the integration secret.
// Called once at startup so a bad token shows up in the logs immediately
// rather than on the first visitor request.
func (n *NotionFAQSource) VerifyConnection(ctx context.Context) error {
	botUser, err := n.client.User.Me(ctx)
	if err != nil {
		var notionErr *notionapi.Error
		if errors.As(err, &notionErr) {
			return fmt.Errorf("notion API error (%s): %s", notionErr.Code, notionErr.Message)
		}
		return fmt.Errorf("failed during notion connection test: %w", err)
	}

	if botUser != nil {
		n.log.Info("notion FAQ source connected", zap.String("bot_name", botUser.Name))
	}
	return nil
}

// ListFAQ returns the cached entries, refreshing from Notion when the cache
// has expired. Refresh failures are logged and answered from the fallback.
func (n *NotionFAQSource) ListFAQ(ctx context.Context) ([]models.FAQItem, error) {
	if items, ok := n.cache.Get(faqCacheKey); ok {
		return items, nil
	}

	items, err := n.fetch(ctx)
	if err != nil {
		n.log.Warn("notion FAQ refresh failed, serving fallback", zap.Error(err))
		return n.fallback.ListFAQ(ctx)
	}

	n.cache.Add(faqCacheKey, items)
	return items, nil
}

// fetch pages through the database and extracts one FAQItem per row that has
// both properties filled in.
func (n *NotionFAQSource) fetch(ctx context.Context) ([]models.FAQItem, error) {
	var items []models.FAQItem

	req := &notionapi.DatabaseQueryRequest{PageSize: 100}
	for {
		resp, err := n.client.Database.Query(ctx, n.databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("querying notion FAQ database: %w", err)
		}

		for _, page := range resp.Results {
			question := titleText(page.Properties[notionQuestionProperty])
			answer := richText(page.Properties[notionAnswerProperty])
			if question == "" || answer == "" {
				continue
			}
			items = append(items, models.FAQItem{Question: question, Answer: answer})
		}

		if !resp.HasMore {
			break
		}
		req.StartCursor = resp.NextCursor
	}

	return items, nil
}

func titleText(prop notionapi.Property) string {
	title, ok := prop.(*notionapi.TitleProperty)
	if !ok {
		return ""
	}
	return plainText(title.Title)
}

func richText(prop notionapi.Property) string {
	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok {
		return ""
	}
	return plainText(rt.RichText)
}

func plainText(parts []notionapi.RichText) string {
	var out string
	for _, part := range parts {
		out += part.PlainText
	}
	return out
}
