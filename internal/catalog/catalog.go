package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"kinobot/internal/errs"
)

const (
	FirstPartLabel = "1-qism"

	MaxCodeLen  = 32
	MaxLabelLen = 24
)

type Part struct {
	Label string `json:"label" bson:"label"`
	Asset string `json:"asset" bson:"asset"`
}

type Entry struct {
	Code  string `json:"code" bson:"_id"`
	Parts []Part `json:"parts" bson:"parts"`
}

func (e Entry) clone() Entry {
	parts := make([]Part, len(e.Parts))
	copy(parts, e.Parts)
	return Entry{Code: e.Code, Parts: parts}
}

func (e Entry) index(label string) int {
	for i, p := range e.Parts {
		if p.Label == label {
			return i
		}
	}
	return -1
}

// Repository is the durable medium behind the catalog. SaveEntry replaces the
// whole entry; implementations must make that replacement atomic.
type Repository interface {
	Entries(ctx context.Context) ([]Entry, error)
	SaveEntry(ctx context.Context, e Entry) error
	DeleteEntry(ctx context.Context, code string) error
}

// Catalog maps codes to ordered parts. Writers are serialized and persist before the
// new state is installed, so readers only ever see complete entries.
type Catalog struct {
	repo Repository
	log  *zap.Logger

	writeMu sync.Mutex

	mu      sync.RWMutex
	entries map[string]Entry
}

func Open(ctx context.Context, repo Repository, log *zap.Logger) (*Catalog, error) {
	if log == nil {
		log = zap.NewNop()
	}
	list, err := repo.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	entries := make(map[string]Entry, len(list))
	for _, e := range list {
		if len(e.Parts) == 0 {
			log.Warn("skipping stored entry without parts", zap.String("code", e.Code))
			continue
		}
		entries[e.Code] = e.clone()
	}
	log.Info("catalog loaded", zap.Int("titles", len(entries)))
	return &Catalog{repo: repo, log: log, entries: entries}, nil
}

func NormalizeCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" || len(code) > MaxCodeLen {
		return "", fmt.Errorf("code %q: %w", code, errs.ErrInvalidInput)
	}
	for _, r := range code {
		if r == ':' || unicode.IsSpace(r) {
			return "", fmt.Errorf("code %q: %w", code, errs.ErrInvalidInput)
		}
	}
	return code, nil
}

func NormalizeLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" || len(label) > MaxLabelLen {
		return "", fmt.Errorf("label %q: %w", label, errs.ErrInvalidInput)
	}
	return label, nil
}

func (c *Catalog) Get(code string) (Entry, error) {
	c.mu.RLock()
	e, ok := c.entries[strings.TrimSpace(code)]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, fmt.Errorf("code %q: %w", code, errs.ErrNotFound)
	}
	return e.clone(), nil
}

func (c *Catalog) Part(code, label string) (Part, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[code]
	if !ok {
		return Part{}, fmt.Errorf("code %q: %w", code, errs.ErrNotFound)
	}
	i := e.index(label)
	if i < 0 {
		return Part{}, fmt.Errorf("part %q of %q: %w", label, code, errs.ErrNotFound)
	}
	return e.Parts[i], nil
}

func (c *Catalog) List() []Entry {
	c.mu.RLock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.clone())
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (c *Catalog) Stats() (titles, parts int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		parts += len(e.Parts)
	}
	return len(c.entries), parts
}

func (c *Catalog) Put(ctx context.Context, code, asset string) error {
	code, err := NormalizeCode(code)
	if err != nil {
		return err
	}
	if strings.TrimSpace(asset) == "" {
		return fmt.Errorf("empty asset: %w", errs.ErrInvalidInput)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, ok := c.lookup(code); ok {
		return fmt.Errorf("code %q: %w", code, errs.ErrAlreadyExists)
	}
	e := Entry{Code: code, Parts: []Part{{Label: FirstPartLabel, Asset: asset}}}
	if err := c.commit(ctx, e); err != nil {
		return err
	}
	c.log.Info("title added", zap.String("code", code))
	return nil
}

func (c *Catalog) AppendPart(ctx context.Context, code, label, asset string) error {
	label, err := NormalizeLabel(label)
	if err != nil {
		return err
	}
	if strings.TrimSpace(asset) == "" {
		return fmt.Errorf("empty asset: %w", errs.ErrInvalidInput)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	cur, ok := c.lookup(code)
	if !ok {
		return fmt.Errorf("code %q: %w", code, errs.ErrNotFound)
	}
	if cur.index(label) >= 0 {
		return fmt.Errorf("part %q of %q: %w", label, code, errs.ErrDuplicateLabel)
	}
	next := cur.clone()
	next.Parts = append(next.Parts, Part{Label: label, Asset: asset})
	if err := c.commit(ctx, next); err != nil {
		return err
	}
	c.log.Info("part added", zap.String("code", code), zap.String("label", label), zap.Int("parts", len(next.Parts)))
	return nil
}

func (c *Catalog) Delete(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, ok := c.lookup(code); !ok {
		return fmt.Errorf("code %q: %w", code, errs.ErrNotFound)
	}
	if err := c.remove(ctx, code); err != nil {
		return err
	}
	c.log.Info("title deleted", zap.String("code", code))
	return nil
}

// DeletePart removes one part. Removing the last part removes the whole entry.
func (c *Catalog) DeletePart(ctx context.Context, code, label string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	cur, ok := c.lookup(code)
	if !ok {
		return fmt.Errorf("code %q: %w", code, errs.ErrNotFound)
	}
	i := cur.index(label)
	if i < 0 {
		return fmt.Errorf("part %q of %q: %w", label, code, errs.ErrNotFound)
	}
	if len(cur.Parts) == 1 {
		if err := c.remove(ctx, code); err != nil {
			return err
		}
		c.log.Info("last part deleted, title removed", zap.String("code", code))
		return nil
	}
	next := Entry{Code: code, Parts: make([]Part, 0, len(cur.Parts)-1)}
	next.Parts = append(next.Parts, cur.Parts[:i]...)
	next.Parts = append(next.Parts, cur.Parts[i+1:]...)
	if err := c.commit(ctx, next); err != nil {
		return err
	}
	c.log.Info("part deleted", zap.String("code", code), zap.String("label", label))
	return nil
}

func (c *Catalog) lookup(code string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[code]
	return e, ok
}

// commit and remove must be called with writeMu held.
func (c *Catalog) commit(ctx context.Context, e Entry) error {
	if err := c.repo.SaveEntry(ctx, e); err != nil {
		return fmt.Errorf("save %q: %w", e.Code, err)
	}
	c.mu.Lock()
	c.entries[e.Code] = e
	c.mu.Unlock()
	return nil
}

func (c *Catalog) remove(ctx context.Context, code string) error {
	if err := c.repo.DeleteEntry(ctx, code); err != nil {
		return fmt.Errorf("delete %q: %w", code, err)
	}
	c.mu.Lock()
	delete(c.entries, code)
	c.mu.Unlock()
	return nil
}
