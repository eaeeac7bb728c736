// Package tg adapts the Telegram Bot API to the bot's transport-neutral
// events and markup.
package tg

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"kinobot/internal/chat"
)

type Client struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

func NewClient(token string, log *zap.Logger) (*Client, error) {
	return NewClientWithEndpoint(token, tgbotapi.APIEndpoint, &http.Client{Timeout: 70 * time.Second}, log)
}

// NewClientWithEndpoint talks to a custom Bot API server. endpoint is a format
// string taking the token and the method name.
func NewClientWithEndpoint(token, endpoint string, hc *http.Client, log *zap.Logger) (*Client, error) {
	if token == "" {
		return nil, errors.New("BOT_TOKEN is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, hc)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	log.Info("telegram bot authorized", zap.String("username", api.Self.UserName))
	return &Client{api: api, log: log}, nil
}

func (c *Client) Username() string { return c.api.Self.UserName }

func (c *Client) SendText(_ context.Context, chatID int64, text string, markup *chat.Markup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if rm := ReplyMarkup(markup); rm != nil {
		msg.ReplyMarkup = rm
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("sendMessage: %w", err)
	}
	return sent.MessageID, nil
}

func (c *Client) SendVideo(_ context.Context, chatID int64, asset, caption string) error {
	v := tgbotapi.NewVideo(chatID, tgbotapi.FileID(asset))
	v.Caption = caption
	if _, err := c.api.Send(v); err != nil {
		return fmt.Errorf("sendVideo: %w", err)
	}
	return nil
}

// EditText replaces the text of a sent message. Only inline markup survives an
// edit; other markup kinds are dropped.
func (c *Client) EditText(_ context.Context, chatID int64, messageID int, text string, markup *chat.Markup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = InlineMarkup(markup)
	if _, err := c.api.Request(edit); err != nil {
		if isNotModified(err) {
			return nil
		}
		return fmt.Errorf("editMessageText: %w", err)
	}
	return nil
}

func (c *Client) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	cfg := tgbotapi.NewCallback(callbackID, text)
	cfg.ShowAlert = alert
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("answerCallbackQuery: %w", err)
	}
	return nil
}

// MemberStatus asks getChatMember for the user's status in channel, given as
// "@username" or a numeric chat id.
func (c *Client) MemberStatus(_ context.Context, channel string, userID int64) (chat.MemberStatus, error) {
	cfg := tgbotapi.GetChatMemberConfig{ChatConfigWithUser: chatWithUser(channel, userID)}
	m, err := c.api.GetChatMember(cfg)
	if err != nil {
		return "", fmt.Errorf("getChatMember %s: %w", channel, err)
	}
	return chat.MemberStatus(m.Status), nil
}

// SetWebhook registers url with Telegram for webhook delivery.
func (c *Client) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("webhook url: %w", err)
	}
	if _, err := c.api.Request(wh); err != nil {
		return fmt.Errorf("setWebhook: %w", err)
	}
	c.log.Info("webhook registered", zap.String("url", redactSecret(url)))
	return nil
}

func (c *Client) DeleteWebhook() error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("deleteWebhook: %w", err)
	}
	return nil
}

func chatWithUser(channel string, userID int64) tgbotapi.ChatConfigWithUser {
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return tgbotapi.ChatConfigWithUser{ChatID: id, UserID: userID}
	}
	return tgbotapi.ChatConfigWithUser{SuperGroupUsername: channel, UserID: userID}
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

// redactSecret hides the last path segment, which carries the webhook secret.
func redactSecret(url string) string {
	i := strings.LastIndex(url, "/")
	if i < 0 || i == len(url)-1 {
		return url
	}
	return url[:i+1] + "***"
}
