package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/coopco/dodgem/internal/bus"
)

func init() {
	Register("slack", newSlackChannel)
}

type slackConfig struct {
	BotToken     string   `json:"botToken"`
	AppToken     string   `json:"appToken"` // optional; enables status replies over socket mode
	ChannelID    string   `json:"channelId"`
	AllowedUsers []string `json:"allowedUsers"`
}

// SlackChannel posts notifications with the Web API and, when an app token
// is configured, listens for status requests via socket mode.
type SlackChannel struct {
	client       *slack.Client
	socketClient *socketmode.Client
	bus          *bus.MessageBus
	channelID    string
	allowedUsers map[string]bool
}

func newSlackChannel(cfg json.RawMessage, msgBus *bus.MessageBus) (Channel, error) {
	var c slackConfig
	if err := json.Unmarshal(cfg, &c); err != nil {
		return nil, fmt.Errorf("failed to parse slack config: %w", err)
	}
	if c.BotToken == "" || c.ChannelID == "" {
		return nil, fmt.Errorf("slack: botToken and channelId are required")
	}

	sc := &SlackChannel{
		bus:          msgBus,
		channelID:    c.ChannelID,
		allowedUsers: allowList(c.AllowedUsers),
	}
	if c.AppToken != "" {
		sc.client = slack.New(c.BotToken, slack.OptionAppLevelToken(c.AppToken))
		sc.socketClient = socketmode.New(sc.client)
	} else {
		sc.client = slack.New(c.BotToken)
	}
	return sc, nil
}

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) Start(ctx context.Context) error {
	if c.socketClient == nil {
		return nil
	}
	go c.readEvents()
	go func() {
		if err := c.socketClient.RunContext(ctx); err != nil && ctx.Err() == nil {
			slog.Error("slack: socket mode stopped", "error", err)
		}
	}()
	return nil
}

func (c *SlackChannel) readEvents() {
	for evt := range c.socketClient.Events {
		if evt.Request != nil {
			c.socketClient.Ack(*evt.Request)
		}
		if evt.Type != socketmode.EventTypeEventsAPI {
			continue
		}
		eventsAPI, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok || eventsAPI.Type != slackevents.CallbackEvent {
			continue
		}
		inner, ok := eventsAPI.InnerEvent.Data.(*slackevents.MessageEvent)
		if !ok || inner.BotID != "" {
			continue
		}
		if !c.IsAllowed(inner.User) {
			slog.Warn("slack: message from disallowed user", "user", inner.User)
			continue
		}
		c.bus.PublishInbound(bus.InboundMessage{
			Channel:  "slack",
			SenderID: inner.User,
			ChatID:   inner.Channel,
			Content:  inner.Text,
		})
	}
}

func (c *SlackChannel) Stop() error { return nil }

func (c *SlackChannel) Send(msg bus.OutboundMessage) error {
	target := msg.ChatID
	if target == "" {
		target = c.channelID
	}
	if _, _, err := c.client.PostMessage(target, slack.MsgOptionText(msg.Content, false)); err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

func (c *SlackChannel) IsAllowed(senderID string) bool {
	return isAllowed(c.allowedUsers, senderID)
}
