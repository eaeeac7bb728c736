package tg

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kinobot/internal/chat"
)

// EventFromUpdate converts an update into a chat event. Updates the bot does
// not act on (group messages, stickers, edits) report false.
func EventFromUpdate(u tgbotapi.Update) (chat.Event, bool) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.From == nil {
			return chat.Event{}, false
		}
		ev := chat.Event{
			Kind:       chat.KindCallback,
			SenderID:   cq.From.ID,
			ChatID:     cq.From.ID,
			CallbackID: cq.ID,
			Data:       cq.Data,
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			ev.ChatID = cq.Message.Chat.ID
			ev.MessageID = cq.Message.MessageID
		}
		return ev, true
	}

	m := u.Message
	if m == nil || m.From == nil || m.Chat == nil || !m.Chat.IsPrivate() {
		return chat.Event{}, false
	}
	ev := chat.Event{SenderID: m.From.ID, ChatID: m.Chat.ID, MessageID: m.MessageID}
	switch {
	case m.Video != nil:
		ev.Kind, ev.Asset = chat.KindVideo, m.Video.FileID
	case m.Document != nil && strings.HasPrefix(m.Document.MimeType, "video/"):
		ev.Kind, ev.Asset = chat.KindVideo, m.Document.FileID
	case m.Text != "":
		ev.Kind, ev.Text = chat.KindText, m.Text
	default:
		return chat.Event{}, false
	}
	return ev, true
}

// ReplyMarkup converts markup for sendMessage. It returns nil when there is
// nothing to attach.
func ReplyMarkup(m *chat.Markup) any {
	switch {
	case m.Empty():
		return nil
	case len(m.Inline) > 0:
		return *InlineMarkup(m)
	case len(m.Reply) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(m.Reply))
		for _, row := range m.Reply {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
		}
		return tgbotapi.NewReplyKeyboard(rows...)
	default:
		return tgbotapi.NewRemoveKeyboard(false)
	}
}

// InlineMarkup returns the inline keyboard of m, or nil when m has none.
func InlineMarkup(m *chat.Markup) *tgbotapi.InlineKeyboardMarkup {
	if m == nil || len(m.Inline) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(m.Inline))
	for _, row := range m.Inline {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}
