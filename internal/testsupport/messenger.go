package testsupport

import (
	"context"
	"sync"

	"kinobot/internal/chat"
)

// Sent is one outbound call recorded by Messenger.
type Sent struct {
	Method     string
	ChatID     int64
	MessageID  int
	Text       string
	Asset      string
	Markup     *chat.Markup
	CallbackID string
	Alert      bool
}

// Messenger records outbound calls instead of talking to Telegram.
type Messenger struct {
	mu     sync.Mutex
	sent   []Sent
	nextID int
	// Err is returned by every call when set.
	Err error
}

func (m *Messenger) SendText(_ context.Context, chatID int64, text string, markup *chat.Markup) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.sent = append(m.sent, Sent{Method: "sendMessage", ChatID: chatID, MessageID: m.nextID, Text: text, Markup: markup})
	return m.nextID, m.Err
}

func (m *Messenger) SendVideo(_ context.Context, chatID int64, asset, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Sent{Method: "sendVideo", ChatID: chatID, Asset: asset, Text: caption})
	return m.Err
}

func (m *Messenger) EditText(_ context.Context, chatID int64, messageID int, text string, markup *chat.Markup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Sent{Method: "editMessageText", ChatID: chatID, MessageID: messageID, Text: text, Markup: markup})
	return m.Err
}

func (m *Messenger) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Sent{Method: "answerCallbackQuery", CallbackID: callbackID, Text: text, Alert: alert})
	return m.Err
}

// Take returns the calls recorded so far and clears the log.
func (m *Messenger) Take() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sent
	m.sent = nil
	return out
}
