// Package gate decides whether a user has joined every required channel.
package gate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"kinobot/internal/chat"
	"kinobot/internal/errs"
)

type Prober interface {
	MemberStatus(ctx context.Context, channel string, userID int64) (chat.MemberStatus, error)
}

type Result struct {
	Satisfied bool
	// Missing lists the channels the user still has to join, in display order.
	Missing []string
}

type Gate struct {
	channels *Channels
	prober   Prober
	failOpen bool
	log      *zap.Logger
}

func New(channels *Channels, prober Prober, failOpen bool, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{channels: channels, prober: prober, failOpen: failOpen, log: log}
}

// Check queries every required channel. Nothing is cached; a user who leaves a
// channel is blocked again on the next call.
func (g *Gate) Check(ctx context.Context, userID int64) Result {
	required := g.channels.List()
	res := Result{Satisfied: true}
	for _, ch := range required {
		status, err := g.prober.MemberStatus(ctx, ch, userID)
		if err != nil {
			err = fmt.Errorf("%w: %v", errs.ErrExternalQuery, err)
			if g.failOpen {
				g.log.Warn("membership check failed, letting user through",
					zap.String("channel", ch), zap.Int64("user_id", userID), zap.Error(err))
				continue
			}
			g.log.Warn("membership check failed, treating as not joined",
				zap.String("channel", ch), zap.Int64("user_id", userID), zap.Error(err))
			res.Missing = append(res.Missing, ch)
			continue
		}
		if !status.Joined() {
			res.Missing = append(res.Missing, ch)
		}
	}
	res.Satisfied = len(res.Missing) == 0
	return res
}
