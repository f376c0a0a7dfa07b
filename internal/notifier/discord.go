package notifier

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/model"
)

type Notifier interface {
	NotifyRegistration(event model.Event, registration model.Registration) error
}

// messageSender is the part of *discordgo.Session the notifier needs.
type messageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordNotifier struct {
	session   messageSender
	channelID string
}

// NewDiscordNotifier opens a bot session. The websocket gateway is not
// needed for posting messages, so the session is never opened.
func NewDiscordNotifier(botToken, channelID string) (*DiscordNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("discord bot token is empty")
	}
	if channelID == "" {
		return nil, fmt.Errorf("discord channel ID is empty")
	}
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordNotifier{session: session, channelID: channelID}, nil
}

func (n *DiscordNotifier) NotifyRegistration(event model.Event, registration model.Registration) error {
	if _, err := n.session.ChannelMessageSend(n.channelID, FormatRegistration(event, registration)); err != nil {
		slog.Error("send discord message", "channel_id", n.channelID, "error", err)
		return err
	}
	return nil
}

// FormatRegistration renders the channel message for a registration change.
func FormatRegistration(event model.Event, registration model.Registration) string {
	var status string
	switch registration.Status {
	case model.StatusConfirmed:
		status = "registered 🎉"
	case model.StatusCancelled:
		status = "cancelled registration 😢"
	case model.StatusPending:
		status = "registration pending"
	}

	noteStr := ""
	if registration.Notes != "" {
		noteStr = fmt.Sprintf("\n**Notes:** %s", registration.Notes)
	}

	return fmt.Sprintf("**Registration Update**\n**Event:** %s (%s)\n**Participant:** %s\n**Status:** %s\n**Places:** %d/%d%s",
		event.Name,
		event.EventDate.Format("2006-01-02"),
		registration.ParticipantName,
		status,
		event.CurrentParticipants,
		event.MaxParticipants,
		noteStr,
	)
}
