package integrations

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"aldercrest-web/internal/services"
)

// SlackNotifier posts each new enquiry into the admissions team's channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
	log     *zap.Logger
}

var _ services.EnquiryNotifier = (*SlackNotifier)(nil)

// NewSlackNotifier creates a notifier posting to channelID with the given
// bot token.
func NewSlackNotifier(botToken, channelID string, log *zap.Logger) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(botToken),
		channel: channelID,
		log:     log,
	}
}

// VerifyConnection checks the bot token with auth.test. Called once at
// startup so a revoked token is visible in the logs before the first
// enquiry arrives.
func (s *SlackNotifier) VerifyConnection(ctx context.Context) error {
	resp, err := s.client.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth test failed: %w", err)
	}
	s.log.Info("slack notifier connected",
		zap.String("team", resp.Team),
		zap.String("bot_user", resp.User),
	)
	return nil
}

// NotifyEnquiry posts the enquiry as a single message.
func (s *SlackNotifier) NotifyEnquiry(ctx context.Context, notice services.EnquiryNotice) error {
	var b strings.Builder
	fmt.Fprintf(&b, "New enquiry from %s <%s>\n", notice.Name, notice.Email)
	if notice.Programme != nil && *notice.Programme != "" {
		fmt.Fprintf(&b, "Programme: %s\n", *notice.Programme)
	}
	if notice.Page != nil && *notice.Page != "" {
		fmt.Fprintf(&b, "Submitted from: %s\n", *notice.Page)
	}
	fmt.Fprintf(&b, "\n%s", notice.Message)

	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(b.String(), false),
	)
	if err != nil {
		return fmt.Errorf("failed to post enquiry to slack channel %s: %w", s.channel, err)
	}
	return nil
}
