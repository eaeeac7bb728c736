package testsupport

import (
	"context"
	"errors"
	"sync"

	"kinobot/internal/chat"
)

// Prober is a fake membership source. Unknown pairs report "left".
type Prober struct {
	mu     sync.Mutex
	status map[string]map[int64]chat.MemberStatus
	broken map[string]bool
	calls  int
}

func NewProber() *Prober {
	return &Prober{status: map[string]map[int64]chat.MemberStatus{}, broken: map[string]bool{}}
}

func (p *Prober) Join(channel string, userID int64) {
	p.Set(channel, userID, chat.StatusMember)
}

func (p *Prober) Set(channel string, userID int64, s chat.MemberStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status[channel] == nil {
		p.status[channel] = map[int64]chat.MemberStatus{}
	}
	p.status[channel][userID] = s
}

func (p *Prober) Break(channel string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broken[channel] = true
}

func (p *Prober) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *Prober) MemberStatus(_ context.Context, channel string, userID int64) (chat.MemberStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.broken[channel] {
		return "", errors.New("telegram: Bad Request: chat not found")
	}
	if s, ok := p.status[channel][userID]; ok {
		return s, nil
	}
	return chat.StatusLeft, nil
}
