// Package dialog runs the admin conversations that edit the catalog and the
// required-channel set. Each admin has at most one Session; events are applied
// through a single dispatch on the session state.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kinobot/internal/catalog"
	"kinobot/internal/chat"
	"kinobot/internal/errs"
	"kinobot/internal/keyed"
)

var (
	ErrNotAdmin  = errors.New("sender is not an admin")
	ErrNoSession = errors.New("no active session")
)

const (
	DeletePartPrefix = "delp:"
	DeleteAllPrefix  = "dela:"
)

type Catalog interface {
	Get(code string) (catalog.Entry, error)
	Put(ctx context.Context, code, asset string) error
	AppendPart(ctx context.Context, code, label, asset string) error
	Delete(ctx context.Context, code string) error
	DeletePart(ctx context.Context, code, label string) error
}

type ChannelSet interface {
	Add(ctx context.Context, raw string) (string, error)
	Remove(ctx context.Context, raw string) (string, error)
}

// Reply is what the engine wants sent back to the admin.
type Reply struct {
	Text   string
	Markup *chat.Markup
}

type Options struct {
	Admins []int64
	// IdleTTL expires sessions with no activity. Zero disables expiry.
	IdleTTL time.Duration
	// RejectRestart refuses to start a new flow while one is in progress instead
	// of discarding the old one.
	RejectRestart bool
}

type Engine struct {
	catalog  Catalog
	channels ChannelSet
	admins   map[int64]struct{}
	opts     Options
	log      *zap.Logger
	now      func() time.Time

	locks keyed.Mutex

	mu       sync.Mutex
	sessions map[int64]*Session
}

func New(cat Catalog, channels ChannelSet, opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	admins := make(map[int64]struct{}, len(opts.Admins))
	for _, id := range opts.Admins {
		admins[id] = struct{}{}
	}
	return &Engine{
		catalog:  cat,
		channels: channels,
		admins:   admins,
		opts:     opts,
		log:      log,
		now:      time.Now,
		sessions: map[int64]*Session{},
	}
}

func (e *Engine) IsAdmin(id int64) bool {
	_, ok := e.admins[id]
	return ok
}

// Active reports whether the admin has a live, unexpired session.
func (e *Engine) Active(adminID int64) bool {
	if !e.IsAdmin(adminID) {
		return false
	}
	_, ok := e.session(adminID)
	return ok
}

// Session returns a copy of the admin's live session.
func (e *Engine) Session(adminID int64) (Session, bool) {
	s, ok := e.session(adminID)
	if !ok {
		return Session{}, false
	}
	return *s, true
}

func (e *Engine) Start(ctx context.Context, adminID int64, mode Mode) (Reply, error) {
	if !e.IsAdmin(adminID) {
		return Reply{}, ErrNotAdmin
	}
	unlock := e.locks.Lock(adminID)
	defer unlock()

	if prev, ok := e.session(adminID); ok {
		if e.opts.RejectRestart {
			return Reply{Text: msgFinishFirst}, nil
		}
		e.log.Info("admin session discarded by new flow",
			zap.String("session_id", prev.ID), zap.Int64("admin_id", adminID),
			zap.Stringer("old_mode", prev.Mode), zap.Stringer("new_mode", mode))
	}

	s := &Session{ID: uuid.NewString(), AdminID: adminID, Mode: mode}
	var prompt string
	switch mode {
	case ModeAddMovie:
		s.State, prompt = StateAwaitingAsset, msgSendMovieVideo
	case ModeAddPart:
		s.State, prompt = StateAwaitingCode, msgAskPartCode
	case ModeDelete:
		s.State, prompt = StateAwaitingDeleteCode, msgAskDeleteCode
	case ModeDeletePart:
		s.State, prompt = StateAwaitingDeletePartCode, msgAskDeletePartCode
	case ModeAddChannel:
		s.State, prompt = StateAwaitingChannel, msgAskAddChannel
	case ModeRemoveChannel:
		s.State, prompt = StateAwaitingChannel, msgAskRemoveChannel
	default:
		return Reply{}, fmt.Errorf("mode %d: %w", mode, errs.ErrInvalidInput)
	}
	e.store(s)
	e.log.Debug("admin session started", zap.String("session_id", s.ID),
		zap.Int64("admin_id", adminID), zap.Stringer("mode", mode))
	return Reply{Text: prompt}, nil
}

func (e *Engine) Cancel(adminID int64) (Reply, error) {
	if !e.IsAdmin(adminID) {
		return Reply{}, ErrNotAdmin
	}
	unlock := e.locks.Lock(adminID)
	defer unlock()
	if _, ok := e.session(adminID); !ok {
		return Reply{Text: msgNothingToCancel, Markup: AdminKeyboard()}, nil
	}
	e.finish(adminID)
	return Reply{Text: msgCancelled, Markup: AdminKeyboard()}, nil
}

func (e *Engine) HandleVideo(ctx context.Context, adminID int64, asset string) (Reply, error) {
	if !e.IsAdmin(adminID) {
		return Reply{}, ErrNotAdmin
	}
	unlock := e.locks.Lock(adminID)
	defer unlock()

	s, ok := e.session(adminID)
	if !ok {
		return Reply{}, ErrNoSession
	}
	if s.State != StateAwaitingAsset {
		return Reply{Text: e.reprompt(s)}, nil
	}
	if strings.TrimSpace(asset) == "" {
		return Reply{Text: msgSendVideoOnly}, nil
	}

	s.Asset = asset
	switch s.Mode {
	case ModeAddMovie:
		s.State = StateAwaitingCode
		e.store(s)
		return Reply{Text: msgAskMovieCode}, nil
	case ModeAddPart:
		s.State = StateAwaitingPartLabel
		e.store(s)
		return Reply{Text: fmt.Sprintf(msgAskPartLabel, s.Code)}, nil
	}
	e.finish(adminID)
	return Reply{Text: msgCancelled, Markup: AdminKeyboard()}, nil
}

func (e *Engine) HandleText(ctx context.Context, adminID int64, text string) (Reply, error) {
	if !e.IsAdmin(adminID) {
		return Reply{}, ErrNotAdmin
	}
	unlock := e.locks.Lock(adminID)
	defer unlock()

	s, ok := e.session(adminID)
	if !ok {
		return Reply{}, ErrNoSession
	}

	switch s.State {
	case StateAwaitingAsset:
		return Reply{Text: msgSendVideoOnly}, nil

	case StateAwaitingCode:
		code, err := catalog.NormalizeCode(text)
		if err != nil {
			return Reply{Text: msgBadCode}, nil
		}
		if s.Mode == ModeAddPart {
			if _, err := e.catalog.Get(code); err != nil {
				e.finish(adminID)
				return e.failure(err, code), nil
			}
			s.Code = code
			s.State = StateAwaitingAsset
			e.store(s)
			return Reply{Text: fmt.Sprintf(msgSendPartVideo, code)}, nil
		}
		if err := e.catalog.Put(ctx, code, s.Asset); err != nil {
			e.finish(adminID)
			return e.failure(err, code), nil
		}
		e.finish(adminID)
		return Reply{Text: fmt.Sprintf(msgMovieSaved, code), Markup: AdminKeyboard()}, nil

	case StateAwaitingPartLabel:
		label, err := catalog.NormalizeLabel(text)
		if err != nil {
			return Reply{Text: msgBadLabel}, nil
		}
		err = e.catalog.AppendPart(ctx, s.Code, label, s.Asset)
		switch {
		case errors.Is(err, errs.ErrDuplicateLabel):
			e.store(s)
			return Reply{Text: fmt.Sprintf(msgDuplicateLabel, label)}, nil
		case err != nil:
			e.finish(adminID)
			return e.failure(err, s.Code), nil
		}
		e.finish(adminID)
		return Reply{Text: fmt.Sprintf(msgPartSaved, s.Code, label), Markup: AdminKeyboard()}, nil

	case StateAwaitingDeleteCode:
		code := strings.TrimSpace(text)
		if err := e.catalog.Delete(ctx, code); err != nil {
			e.finish(adminID)
			return e.failure(err, code), nil
		}
		e.finish(adminID)
		return Reply{Text: fmt.Sprintf(msgDeleted, code), Markup: AdminKeyboard()}, nil

	case StateAwaitingDeletePartCode:
		code := strings.TrimSpace(text)
		entry, err := e.catalog.Get(code)
		e.finish(adminID)
		if err != nil {
			return e.failure(err, code), nil
		}
		return Reply{Text: fmt.Sprintf(msgChoosePartToDelete, code), Markup: DeleteMenu(entry)}, nil

	case StateAwaitingChannel:
		var (
			ch  string
			err error
		)
		if s.Mode == ModeAddChannel {
			ch, err = e.channels.Add(ctx, text)
		} else {
			ch, err = e.channels.Remove(ctx, text)
		}
		if errors.Is(err, errs.ErrInvalidInput) {
			return Reply{Text: msgBadChannel}, nil
		}
		e.finish(adminID)
		if err != nil {
			return e.failure(err, ch), nil
		}
		if s.Mode == ModeAddChannel {
			return Reply{Text: fmt.Sprintf(msgChannelAdded, ch), Markup: AdminKeyboard()}, nil
		}
		return Reply{Text: fmt.Sprintf(msgChannelRemoved, ch), Markup: AdminKeyboard()}, nil
	}

	e.finish(adminID)
	return Reply{}, ErrNoSession
}

// HandleCallback applies the delete buttons produced by DeleteMenu. The second
// return value is false when data is not a delete token.
func (e *Engine) HandleCallback(ctx context.Context, adminID int64, data string) (Reply, bool, error) {
	var (
		code, label string
		all         bool
	)
	switch {
	case strings.HasPrefix(data, DeleteAllPrefix):
		code, all = strings.TrimPrefix(data, DeleteAllPrefix), true
	case strings.HasPrefix(data, DeletePartPrefix):
		var ok bool
		code, label, ok = strings.Cut(strings.TrimPrefix(data, DeletePartPrefix), ":")
		if !ok {
			return Reply{}, false, nil
		}
	default:
		return Reply{}, false, nil
	}
	if !e.IsAdmin(adminID) {
		return Reply{}, true, ErrNotAdmin
	}
	unlock := e.locks.Lock(adminID)
	defer unlock()

	if all {
		if err := e.catalog.Delete(ctx, code); err != nil {
			return e.failure(err, code), true, nil
		}
		return Reply{Text: fmt.Sprintf(msgDeleted, code)}, true, nil
	}
	if err := e.catalog.DeletePart(ctx, code, label); err != nil {
		return e.failure(err, code), true, nil
	}
	if _, err := e.catalog.Get(code); errors.Is(err, errs.ErrNotFound) {
		return Reply{Text: fmt.Sprintf(msgLastPartDeleted, label, code)}, true, nil
	}
	return Reply{Text: fmt.Sprintf(msgPartDeleted, label, code)}, true, nil
}

// Sweep drops every expired session and returns how many were removed.
func (e *Engine) Sweep() int {
	if e.opts.IdleTTL <= 0 {
		return 0
	}
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for id, s := range e.sessions {
		if now.Sub(s.UpdatedAt) > e.opts.IdleTTL {
			delete(e.sessions, id)
			n++
		}
	}
	if n > 0 {
		e.log.Info("expired admin sessions removed", zap.Int("count", n))
	}
	return n
}

func DeleteMenu(entry catalog.Entry) *chat.Markup {
	rows := make([][]chat.Button, 0, len(entry.Parts)+1)
	for _, p := range entry.Parts {
		rows = append(rows, []chat.Button{{
			Text: fmt.Sprintf(btnDeletePart, p.Label),
			Data: DeletePartPrefix + entry.Code + ":" + p.Label,
		}})
	}
	rows = append(rows, []chat.Button{{Text: btnDeleteAll, Data: DeleteAllPrefix + entry.Code}})
	return chat.InlineMenu(rows...)
}

func (e *Engine) session(adminID int64) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[adminID]
	if !ok {
		return nil, false
	}
	if e.opts.IdleTTL > 0 && e.now().Sub(s.UpdatedAt) > e.opts.IdleTTL {
		delete(e.sessions, adminID)
		e.log.Info("admin session expired", zap.String("session_id", s.ID), zap.Int64("admin_id", adminID))
		return nil, false
	}
	cp := *s
	return &cp, true
}

func (e *Engine) store(s *Session) {
	s.UpdatedAt = e.now()
	e.mu.Lock()
	e.sessions[s.AdminID] = s
	e.mu.Unlock()
}

func (e *Engine) finish(adminID int64) {
	e.mu.Lock()
	delete(e.sessions, adminID)
	e.mu.Unlock()
}

func (e *Engine) reprompt(s *Session) string {
	switch s.State {
	case StateAwaitingCode:
		if s.Mode == ModeAddPart {
			return msgAskPartCode
		}
		return msgAskMovieCode
	case StateAwaitingPartLabel:
		return fmt.Sprintf(msgAskPartLabel, s.Code)
	case StateAwaitingDeleteCode:
		return msgAskDeleteCode
	case StateAwaitingDeletePartCode:
		return msgAskDeletePartCode
	case StateAwaitingChannel:
		if s.Mode == ModeAddChannel {
			return msgAskAddChannel
		}
		return msgAskRemoveChannel
	}
	return msgSendVideoOnly
}

func (e *Engine) failure(err error, subject string) Reply {
	var text string
	switch {
	case errors.Is(err, errs.ErrNotFound):
		text = fmt.Sprintf(msgNotFound, subject)
	case errors.Is(err, errs.ErrAlreadyExists):
		text = fmt.Sprintf(msgAlreadyExists, subject)
	case errors.Is(err, errs.ErrDuplicateLabel):
		text = fmt.Sprintf(msgDuplicateLabel, subject)
	case errors.Is(err, errs.ErrInvalidInput):
		text = msgBadCode
	default:
		e.log.Error("admin operation failed", zap.String("subject", subject), zap.Error(err))
		text = msgInternal
	}
	return Reply{Text: text, Markup: AdminKeyboard()}
}
