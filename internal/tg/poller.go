package tg

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kinobot/internal/chat"
)

// Handler consumes one converted event.
type Handler func(ctx context.Context, ev chat.Event)

// HandleTimeout bounds a single event, including the Telegram calls it makes.
const HandleTimeout = 30 * time.Second

// Poll long-polls getUpdates and hands events to a Sequencer with the given
// worker limit. It returns after ctx is cancelled and queued events are handled.
func (c *Client) Poll(ctx context.Context, workers int, handle Handler) error {
	if err := c.DeleteWebhook(); err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.api.GetUpdatesChan(u)
	seq := NewSequencer(ctx, workers, handle)
	c.log.Info("polling for updates", zap.Int("workers", workers))

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			c.log.Info("polling stopped, waiting for handlers")
			return seq.Wait()
		case upd, ok := <-updates:
			if !ok {
				return seq.Wait()
			}
			if ev, ok := EventFromUpdate(upd); ok {
				seq.Push(ev)
			}
		}
	}
}

// Sequencer handles events from one sender strictly in arrival order while
// different senders run concurrently, at most workers at a time.
type Sequencer struct {
	ctx    context.Context
	handle Handler
	g      errgroup.Group

	mu     sync.Mutex
	queues map[int64][]chat.Event // present while a drain goroutine owns the sender
}

func NewSequencer(ctx context.Context, workers int, handle Handler) *Sequencer {
	if workers <= 0 {
		workers = 1
	}
	s := &Sequencer{ctx: ctx, handle: handle, queues: map[int64][]chat.Event{}}
	s.g.SetLimit(workers)
	return s
}

// Push queues ev behind the sender's earlier events. When the sender has
// nothing in flight and every worker is busy, Push blocks until one frees up.
// Push must not be called concurrently.
func (s *Sequencer) Push(ev chat.Event) {
	s.mu.Lock()
	q, active := s.queues[ev.SenderID]
	s.queues[ev.SenderID] = append(q, ev)
	s.mu.Unlock()
	if active {
		return
	}
	s.g.Go(func() error {
		s.drain(ev.SenderID)
		return nil
	})
}

// Wait blocks until every queued event has been handled.
func (s *Sequencer) Wait() error {
	return s.g.Wait()
}

func (s *Sequencer) drain(sender int64) {
	for {
		s.mu.Lock()
		q := s.queues[sender]
		if len(q) == 0 {
			delete(s.queues, sender)
			s.mu.Unlock()
			return
		}
		ev := q[0]
		s.queues[sender] = q[1:]
		s.mu.Unlock()
		Dispatch(s.ctx, s.handle, ev)
	}
}

// Dispatch runs handle detached from parent's cancellation, bounded by
// HandleTimeout.
func Dispatch(parent context.Context, handle Handler, ev chat.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), HandleTimeout)
	defer cancel()
	handle(ctx, ev)
}
