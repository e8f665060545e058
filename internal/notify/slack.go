package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackNotifier posts readiness alerts to a Slack channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
	logger  *zap.Logger
}

// NewSlackNotifier creates a Slack notifier. token is the Bot User OAuth
// Token (xoxb-...); channel is the channel ID or name to post into.
func NewSlackNotifier(token, channel string, logger *zap.Logger) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
		logger:  logger,
	}
}

func (n *SlackNotifier) Platform() string { return "slack" }

// Notify posts the alert as a single message.
func (n *SlackNotifier) Notify(ctx context.Context, alert *Alert) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(alert.Text(), false),
	)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	n.logger.Debug("slack alert sent",
		zap.String("channel", n.channel),
		zap.String("workflow", alert.WorkflowName))
	return nil
}

// Close is a no-op; the Slack client holds no persistent connection.
func (n *SlackNotifier) Close() error { return nil }
