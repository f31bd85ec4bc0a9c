package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeAPI struct {
	updates chan tgbotapi.Update
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	stopped bool
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.updates }

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	f.sent = append(f.sent, c)
	f.mu.Unlock()
	return tgbotapi.Message{}, nil
}

func message(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}}
}

func TestRunAnswersUpdates(t *testing.T) {
	b, _, _ := newBot(t)
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 3)}
	api.updates <- message(chat, "/start")
	api.updates <- tgbotapi.Update{}
	api.updates <- message(chat, "/balance")
	close(api.updates)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.Run(ctx, api); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(api.sent) != 2 || !api.stopped {
		t.Fatalf("sent=%d stopped=%v", len(api.sent), api.stopped)
	}
	first := api.sent[0].(tgbotapi.MessageConfig)
	if first.Text != Greeting || first.ChatID != chat {
		t.Errorf("first reply = %+v", first)
	}
	second := api.sent[1].(tgbotapi.MessageConfig)
	if second.ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Errorf("balance parse mode = %q", second.ParseMode)
	}
}

func TestChattablePhoto(t *testing.T) {
	c := Chattable(chat, Reply{Text: "November 2020", Photo: []byte("png")})
	photo, ok := c.(tgbotapi.PhotoConfig)
	if !ok {
		t.Fatalf("got %T, want PhotoConfig", c)
	}
	if photo.Caption != "November 2020" {
		t.Errorf("caption = %q", photo.Caption)
	}
}
