// Copyright 2026 Sievework
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sievework/prospector/core"
)

// messageSender is the slice of the bot API the notifier uses; the real
// *tgbotapi.BotAPI satisfies it.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier pushes accepted records and failed runs to a Telegram
// chat. Healthy runs with nothing accepted stay silent.
type TelegramNotifier struct {
	api    messageSender
	chatID int64
	logger *slog.Logger
}

var _ Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return newTelegramNotifier(api, chatID), nil
}

func newTelegramNotifier(api messageSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{
		api:    api,
		chatID: chatID,
		logger: slog.Default().With("component", "telegram-notifier"),
	}
}

func (t *TelegramNotifier) PipelineCompleted(_ context.Context, event *core.PipelineEvent) {
	if event.Status == core.EventSuccess && len(event.Errors) == 0 {
		return
	}
	t.send(formatEvent(event))
}

func (t *TelegramNotifier) RecordAccepted(_ context.Context, record *core.EnrichedRecord) {
	t.send(formatRecord(record))
}

func (t *TelegramNotifier) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true

	if _, err := t.api.Send(msg); err != nil {
		t.logger.Warn("telegram delivery failed", "err", err)
	}
}

func formatEvent(event *core.PipelineEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source %s: %s\n", event.SourceID, event.Status)
	fmt.Fprintf(&b, "Found %d, accepted %d\n", event.ItemsFound, event.ItemsAccepted)
	for reason, count := range event.Dropped {
		fmt.Fprintf(&b, "  %s: %d\n", reason, count)
	}
	for _, e := range event.Errors {
		fmt.Fprintf(&b, "error: %s\n", e)
	}
	return b.String()
}

func formatRecord(record *core.EnrichedRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New opportunity: %s\n", record.Title)
	if amount, ok := record.Field(core.FieldAmount); ok {
		fmt.Fprintf(&b, "Amount: %s\n", amount.Value)
	}
	if deadline, ok := record.Field(core.FieldDeadline); ok {
		fmt.Fprintf(&b, "Deadline: %s\n", deadline.Value)
	}
	fmt.Fprintf(&b, "%s", record.Link)
	return b.String()
}
