package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordNotifier posts readiness alerts to a Discord channel.
type DiscordNotifier struct {
	token     string
	channelID string
	session   *discordgo.Session
	logger    *zap.Logger
}

// NewDiscordNotifier creates a Discord notifier and opens the bot session.
func NewDiscordNotifier(token, channelID string, logger *zap.Logger) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord open: %w", err)
	}
	logger.Info("discord notifier connected",
		zap.String("user", session.State.User.Username))
	return &DiscordNotifier{
		token:     token,
		channelID: channelID,
		session:   session,
		logger:    logger,
	}, nil
}

func (n *DiscordNotifier) Platform() string { return "discord" }

// Notify posts the alert as a single message.
func (n *DiscordNotifier) Notify(_ context.Context, alert *Alert) error {
	if _, err := n.session.ChannelMessageSend(n.channelID, alert.Text()); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

// Close shuts down the Discord session.
func (n *DiscordNotifier) Close() error {
	if n.session != nil {
		return n.session.Close()
	}
	return nil
}
