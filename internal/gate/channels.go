package gate

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"kinobot/internal/errs"
)

type ChannelRepository interface {
	Channels(ctx context.Context) ([]string, error)
	SaveChannels(ctx context.Context, channels []string) error
}

var usernameRe = regexp.MustCompile(`^@[A-Za-z0-9_]{5,32}$`)

var linkPrefixes = []string{"https://", "http://", "www.", "t.me/", "telegram.me/"}

// NormalizeChannel accepts "@name", "name", "t.me/name" links with or without
// a scheme, or a negative numeric chat id. Usernames keep the case they were
// given; ChannelKey folds it.
func NormalizeChannel(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, p := range linkPrefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			s = s[len(p):]
		}
	}
	s = strings.TrimRight(s, "/")
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		if id >= 0 {
			return "", fmt.Errorf("channel id %d: %w", id, errs.ErrInvalidInput)
		}
		return s, nil
	}
	if !strings.HasPrefix(s, "@") {
		s = "@" + s
	}
	if !usernameRe.MatchString(s) {
		return "", fmt.Errorf("channel %q: %w", s, errs.ErrInvalidInput)
	}
	return s, nil
}

// ChannelKey identifies a normalized channel. Telegram usernames are
// case-insensitive.
func ChannelKey(ch string) string { return strings.ToLower(ch) }

// Channels is the required-channel set.
type Channels struct {
	repo ChannelRepository
	log  *zap.Logger

	writeMu sync.Mutex
	mu      sync.RWMutex
	set     map[string]string // ChannelKey -> display form
}

func LoadChannels(ctx context.Context, repo ChannelRepository, seed []string, log *zap.Logger) (*Channels, error) {
	if log == nil {
		log = zap.NewNop()
	}
	stored, err := repo.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load channels: %w", err)
	}
	c := &Channels{repo: repo, log: log, set: map[string]string{}}
	for _, ch := range stored {
		c.insert(ch)
	}
	if len(c.set) == 0 && len(seed) > 0 {
		for _, raw := range seed {
			ch, err := NormalizeChannel(raw)
			if err != nil {
				return nil, fmt.Errorf("seed channel: %w", err)
			}
			c.insert(ch)
		}
		if err := repo.SaveChannels(ctx, c.sorted()); err != nil {
			return nil, fmt.Errorf("save seed channels: %w", err)
		}
		log.Info("required channels seeded from config", zap.Strings("channels", c.sorted()))
	}
	return c, nil
}

func (c *Channels) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sorted()
}

func (c *Channels) Add(ctx context.Context, raw string) (string, error) {
	ch, err := NormalizeChannel(raw)
	if err != nil {
		return "", err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if have, ok := c.lookup(ch); ok {
		return have, fmt.Errorf("channel %s: %w", have, errs.ErrAlreadyExists)
	}
	next := append(c.List(), ch)
	if err := c.replace(ctx, next); err != nil {
		return ch, err
	}
	c.log.Info("required channel added", zap.String("channel", ch))
	return ch, nil
}

func (c *Channels) Remove(ctx context.Context, raw string) (string, error) {
	ch, err := NormalizeChannel(raw)
	if err != nil {
		return "", err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	have, ok := c.lookup(ch)
	if !ok {
		return ch, fmt.Errorf("channel %s: %w", ch, errs.ErrNotFound)
	}
	ch = have
	next := make([]string, 0, len(c.set))
	for _, v := range c.List() {
		if ChannelKey(v) != ChannelKey(ch) {
			next = append(next, v)
		}
	}
	if err := c.replace(ctx, next); err != nil {
		return ch, err
	}
	c.log.Info("required channel removed", zap.String("channel", ch))
	return ch, nil
}

// lookup returns the stored form of ch, whatever case ch was given in.
func (c *Channels) lookup(ch string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	have, ok := c.set[ChannelKey(ch)]
	return have, ok
}

// insert keeps the first form seen for a key.
func (c *Channels) insert(ch string) {
	if _, ok := c.set[ChannelKey(ch)]; !ok {
		c.set[ChannelKey(ch)] = ch
	}
}

func (c *Channels) replace(ctx context.Context, list []string) error {
	sort.Strings(list)
	if err := c.repo.SaveChannels(ctx, list); err != nil {
		return fmt.Errorf("save channels: %w", err)
	}
	set := make(map[string]string, len(list))
	for _, ch := range list {
		set[ChannelKey(ch)] = ch
	}
	c.mu.Lock()
	c.set = set
	c.mu.Unlock()
	return nil
}

func (c *Channels) sorted() []string {
	out := make([]string, 0, len(c.set))
	for _, ch := range c.set {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}
