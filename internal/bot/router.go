// Package bot routes inbound chat events to the admin dialog, the subscription
// gate and the catalog lookup, and turns the outcome into Messenger calls.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kinobot/internal/catalog"
	"kinobot/internal/chat"
	"kinobot/internal/dialog"
	"kinobot/internal/errs"
	"kinobot/internal/gate"
	"kinobot/internal/keyed"
)

// Callback tokens owned by the router. Delete tokens belong to dialog.
const (
	PartPrefix   = "part:"
	CheckSubData = "check_sub"
)

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, markup *chat.Markup) (int, error)
	SendVideo(ctx context.Context, chatID int64, asset, caption string) error
	EditText(ctx context.Context, chatID int64, messageID int, text string, markup *chat.Markup) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// UserRecorder keeps the set of users who passed the gate.
type UserRecorder interface {
	AddUser(ctx context.Context, userID int64) error
	CountUsers(ctx context.Context) (int, error)
}

type Catalog interface {
	Get(code string) (catalog.Entry, error)
	Part(code, label string) (catalog.Part, error)
	Stats() (titles, parts int)
}

type Gate interface {
	Check(ctx context.Context, userID int64) gate.Result
}

type ChannelLister interface {
	List() []string
}

type Deps struct {
	Messenger Messenger
	Catalog   Catalog
	Channels  ChannelLister
	Gate      Gate
	Dialog    *dialog.Engine
	Users     UserRecorder
	Log       *zap.Logger
}

type Router struct {
	msg      Messenger
	catalog  Catalog
	channels ChannelLister
	gate     Gate
	dialog   *dialog.Engine
	users    UserRecorder
	log      *zap.Logger

	locks keyed.Mutex
}

func New(d Deps) *Router {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		msg:      d.Messenger,
		catalog:  d.Catalog,
		channels: d.Channels,
		gate:     d.Gate,
		dialog:   d.Dialog,
		users:    d.Users,
		log:      log,
	}
}

// Handle processes one event. Events from the same sender are applied one at a
// time; different senders run concurrently.
func (r *Router) Handle(ctx context.Context, ev chat.Event) {
	unlock := r.locks.Lock(ev.SenderID)
	defer unlock()

	switch ev.Kind {
	case chat.KindCallback:
		r.handleCallback(ctx, ev)
	case chat.KindVideo:
		r.handleVideo(ctx, ev)
	case chat.KindText:
		r.handleText(ctx, ev)
	default:
		r.log.Debug("event ignored", zap.Stringer("kind", ev.Kind), zap.Int64("sender_id", ev.SenderID))
	}
}

func (r *Router) handleCallback(ctx context.Context, ev chat.Event) {
	data := strings.TrimSpace(ev.Data)
	switch {
	case strings.HasPrefix(data, PartPrefix):
		r.sendPart(ctx, ev, strings.TrimPrefix(data, PartPrefix))
		return
	case data == CheckSubData:
		r.recheck(ctx, ev)
		return
	}

	reply, handled, err := r.dialog.HandleCallback(ctx, ev.SenderID, data)
	switch {
	case !handled:
		r.answer(ctx, ev.CallbackID, "", false)
	case errors.Is(err, dialog.ErrNotAdmin):
		r.log.Warn("admin callback from non-admin", zap.Int64("sender_id", ev.SenderID), zap.String("data", data))
		r.answer(ctx, ev.CallbackID, msgNotAllowed, true)
	case err != nil:
		r.log.Error("admin callback failed", zap.Int64("sender_id", ev.SenderID), zap.Error(err))
		r.answer(ctx, ev.CallbackID, "", false)
	default:
		r.edit(ctx, ev.ChatID, ev.MessageID, reply.Text, nil)
		r.answer(ctx, ev.CallbackID, "", false)
	}
}

func (r *Router) sendPart(ctx context.Context, ev chat.Event, token string) {
	code, label, ok := strings.Cut(token, ":")
	if !ok {
		r.answer(ctx, ev.CallbackID, "", false)
		return
	}
	part, err := r.catalog.Part(code, label)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			r.log.Error("part lookup failed", zap.String("code", code), zap.String("label", label), zap.Error(err))
		}
		r.answer(ctx, ev.CallbackID, msgPartGone, true)
		return
	}
	if err := r.msg.SendVideo(ctx, ev.ChatID, part.Asset, fmt.Sprintf(msgPartCaption, code, label)); err != nil {
		r.log.Error("send part video failed", zap.Int64("chat_id", ev.ChatID), zap.String("code", code), zap.Error(err))
	}
	r.answer(ctx, ev.CallbackID, "", false)
}

func (r *Router) recheck(ctx context.Context, ev chat.Event) {
	res := r.gate.Check(ctx, ev.SenderID)
	if !res.Satisfied {
		r.edit(ctx, ev.ChatID, ev.MessageID, msgJoinFirst, JoinMarkup(res.Missing))
		r.answer(ctx, ev.CallbackID, msgStillMissing, true)
		return
	}
	r.record(ctx, ev.SenderID)
	r.edit(ctx, ev.ChatID, ev.MessageID, msgSubConfirmed, nil)
	r.answer(ctx, ev.CallbackID, "", false)
}

func (r *Router) handleText(ctx context.Context, ev chat.Event) {
	text := strings.TrimSpace(ev.Text)
	admin := r.dialog.IsAdmin(ev.SenderID)

	if isCommand(text, "start") {
		if admin {
			r.send(ctx, ev.ChatID, msgAdminWelcome, dialog.AdminKeyboard())
			return
		}
		if r.passGate(ctx, ev) {
			r.send(ctx, ev.ChatID, msgWelcome, chat.RemoveKeyboard())
		}
		return
	}

	if admin {
		if r.handleAdminText(ctx, ev, text) {
			return
		}
	} else if !r.passGate(ctx, ev) {
		return
	}
	r.lookup(ctx, ev.ChatID, text)
}

// handleAdminText reports whether the text was consumed by the admin surface.
func (r *Router) handleAdminText(ctx context.Context, ev chat.Event, text string) bool {
	if isCommand(text, "cancel") || text == dialog.LabelCancel {
		reply, err := r.dialog.Cancel(ev.SenderID)
		if err != nil {
			r.log.Error("cancel failed", zap.Int64("admin_id", ev.SenderID), zap.Error(err))
			return true
		}
		r.send(ctx, ev.ChatID, reply.Text, reply.Markup)
		return true
	}
	if text == dialog.LabelStats {
		r.send(ctx, ev.ChatID, r.stats(ctx), dialog.AdminKeyboard())
		return true
	}
	if mode, ok := dialog.ModeForLabel(text); ok {
		reply, err := r.dialog.Start(ctx, ev.SenderID, mode)
		if err != nil {
			r.log.Error("start admin flow failed", zap.Int64("admin_id", ev.SenderID), zap.Stringer("mode", mode), zap.Error(err))
			return true
		}
		r.send(ctx, ev.ChatID, reply.Text, reply.Markup)
		return true
	}
	if !r.dialog.Active(ev.SenderID) {
		return false
	}
	reply, err := r.dialog.HandleText(ctx, ev.SenderID, ev.Text)
	if errors.Is(err, dialog.ErrNoSession) {
		return false
	}
	if err != nil {
		r.log.Error("admin dialog failed", zap.Int64("admin_id", ev.SenderID), zap.Error(err))
		return true
	}
	r.send(ctx, ev.ChatID, reply.Text, reply.Markup)
	return true
}

func (r *Router) handleVideo(ctx context.Context, ev chat.Event) {
	if !r.dialog.IsAdmin(ev.SenderID) {
		if r.passGate(ctx, ev) {
			r.send(ctx, ev.ChatID, msgSendCode, nil)
		}
		return
	}
	reply, err := r.dialog.HandleVideo(ctx, ev.SenderID, ev.Asset)
	switch {
	case errors.Is(err, dialog.ErrNoSession):
		r.send(ctx, ev.ChatID, msgAdminIdle, dialog.AdminKeyboard())
	case err != nil:
		r.log.Error("admin dialog failed", zap.Int64("admin_id", ev.SenderID), zap.Error(err))
	default:
		r.send(ctx, ev.ChatID, reply.Text, reply.Markup)
	}
}

// passGate checks the sender against every required channel and sends the
// join prompt when something is missing.
func (r *Router) passGate(ctx context.Context, ev chat.Event) bool {
	res := r.gate.Check(ctx, ev.SenderID)
	if !res.Satisfied {
		r.log.Debug("gate blocked user", zap.Int64("user_id", ev.SenderID), zap.Strings("missing", res.Missing))
		r.send(ctx, ev.ChatID, msgJoinFirst, JoinMarkup(res.Missing))
		return false
	}
	r.record(ctx, ev.SenderID)
	return true
}

func (r *Router) lookup(ctx context.Context, chatID int64, code string) {
	entry, err := r.catalog.Get(code)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			r.log.Error("catalog lookup failed", zap.String("code", code), zap.Error(err))
		}
		r.send(ctx, chatID, msgNotFound, nil)
		return
	}
	if len(entry.Parts) == 1 {
		if err := r.msg.SendVideo(ctx, chatID, entry.Parts[0].Asset, fmt.Sprintf(msgCaption, entry.Code)); err != nil {
			r.log.Error("send video failed", zap.Int64("chat_id", chatID), zap.String("code", entry.Code), zap.Error(err))
		}
		return
	}
	r.send(ctx, chatID, fmt.Sprintf(msgChoosePart, entry.Code), PartMenu(entry))
}

func (r *Router) stats(ctx context.Context) string {
	titles, parts := r.catalog.Stats()
	users := "?"
	if n, err := r.users.CountUsers(ctx); err != nil {
		r.log.Warn("count users failed", zap.Error(err))
	} else {
		users = fmt.Sprint(n)
	}
	return fmt.Sprintf(msgStats, titles, parts, users, len(r.channels.List()))
}

func (r *Router) record(ctx context.Context, userID int64) {
	if err := r.users.AddUser(ctx, userID); err != nil {
		r.log.Warn("record user failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (r *Router) send(ctx context.Context, chatID int64, text string, markup *chat.Markup) {
	if text == "" {
		return
	}
	if _, err := r.msg.SendText(ctx, chatID, text, markup); err != nil {
		r.log.Error("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) edit(ctx context.Context, chatID int64, messageID int, text string, markup *chat.Markup) {
	if text == "" {
		return
	}
	if err := r.msg.EditText(ctx, chatID, messageID, text, markup); err != nil {
		r.log.Warn("edit message failed", zap.Int64("chat_id", chatID), zap.Int("message_id", messageID), zap.Error(err))
	}
}

func (r *Router) answer(ctx context.Context, callbackID, text string, alert bool) {
	if callbackID == "" {
		return
	}
	if err := r.msg.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		r.log.Warn("answer callback failed", zap.Error(err))
	}
}

// isCommand matches "/name", "/name@bot" and "/name payload".
func isCommand(text, name string) bool {
	if !strings.HasPrefix(text, "/") {
		return false
	}
	cmd, _, _ := strings.Cut(text[1:], " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd == name
}
