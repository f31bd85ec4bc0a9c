package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bisky/internal/log"
)

// API is the part of *tgbotapi.BotAPI the update loop uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewAPI logs in with token.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return api, nil
}

// Run long-polls api and answers messages one at a time until ctx is done.
func (b *Bot) Run(ctx context.Context, api API) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	b.logger.InfoContext(ctx, "Bot polling started")
	for {
		select {
		case <-ctx.Done():
			b.logger.InfoContext(ctx, "Bot polling stopped", "reason", ctx.Err())
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			chatID := update.Message.Chat.ID
			reply, ok := b.Handle(ctx, chatID, update.Message.Text)
			if !ok {
				continue
			}
			if _, err := api.Send(Chattable(chatID, reply)); err != nil {
				b.logger.ErrorContext(ctx, "Failed to send reply",
					log.FieldChatID, chatID,
					log.FieldError, err)
			}
		}
	}
}

// Chattable converts a Reply into the Telegram request that delivers it.
func Chattable(chatID int64, r Reply) tgbotapi.Chattable {
	if r.Photo != nil {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "plot.png", Bytes: r.Photo})
		photo.Caption = r.Text
		return photo
	}
	msg := tgbotapi.NewMessage(chatID, r.Text)
	msg.ParseMode = r.ParseMode
	return msg
}
