package platform

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"podcast-content-pipeline/internal/config"
	"podcast-content-pipeline/internal/domain/model"
	"podcast-content-pipeline/internal/domain/ports/adapter"
)

var _ adapter.PublishAdapter = (*TelegramAdapter)(nil)

// TelegramAdapter posts announcements to a channel. The bot client is built
// on first publish because construction needs the resolved token.
type TelegramAdapter struct {
	capability model.PlatformCapability
	channel    string

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

func NewTelegramAdapter(cfg config.PlatformConfig) (*TelegramAdapter, error) {
	if cfg.Channel == "" {
		return nil, errors.New("telegram: channel is required")
	}
	capability := capabilityFromConfig(cfg)
	if capability.MaxContentLength == 0 {
		capability.MaxContentLength = 4096
	}
	channel := cfg.Channel
	if !strings.HasPrefix(channel, "@") {
		channel = "@" + channel
	}
	return &TelegramAdapter{capability: capability, channel: channel}, nil
}

func (t *TelegramAdapter) Platform() string { return t.capability.Name }

func (t *TelegramAdapter) Capability() model.PlatformCapability { return t.capability }

func (t *TelegramAdapter) Validate(content string, mediaRefs []string) []adapter.ValidationError {
	return validateAgainst(t.capability, content, mediaRefs)
}

func (t *TelegramAdapter) client(token string) (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	t.bot = bot
	return bot, nil
}

func (t *TelegramAdapter) Publish(ctx context.Context, post *model.MarketingPost, authToken string) (*adapter.PublishResult, error) {
	bot, err := t.client(authToken)
	if err != nil {
		// NewBotAPI calls getMe; a bad token never recovers on its own.
		return nil, classifyTelegram(err)
	}

	msg := tgbotapi.NewMessageToChannel(t.channel, post.Content)
	sent, err := bot.Send(msg)
	if err != nil {
		return nil, classifyTelegram(err)
	}
	return &adapter.PublishResult{ExternalPostID: strconv.Itoa(sent.MessageID)}, nil
}

func classifyTelegram(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code >= 500 {
			return adapter.NewTransientPublish(err)
		}
		return adapter.NewPermanentPublish(err)
	}
	// Transport-level failures retry.
	return adapter.NewTransientPublish(err)
}
