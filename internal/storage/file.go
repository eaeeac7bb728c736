package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"

	"kinobot/internal/catalog"
)

const (
	catalogFile  = "catalog.json"
	channelsFile = "channels.json"
	usersFile    = "users.json"
	lockFile     = "kinobot.lock"
)

// File keeps everything in JSON documents under one directory. Every write
// replaces a whole document through a temp file and rename, under an flock so a
// second process cannot interleave.
type File struct {
	dir  string
	lock *flock.Flock

	mu       sync.Mutex
	entries  map[string]catalog.Entry
	channels []string
	users    map[int64]struct{}
}

func OpenFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("DATA_DIR is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	f := &File{
		dir:     dir,
		lock:    flock.New(filepath.Join(dir, lockFile)),
		entries: map[string]catalog.Entry{},
		users:   map[int64]struct{}{},
	}

	var entries []catalog.Entry
	if err := f.read(catalogFile, &entries); err != nil {
		return nil, err
	}
	for _, e := range entries {
		f.entries[e.Code] = e
	}
	if err := f.read(channelsFile, &f.channels); err != nil {
		return nil, err
	}
	var users []int64
	if err := f.read(usersFile, &users); err != nil {
		return nil, err
	}
	for _, id := range users {
		f.users[id] = struct{}{}
	}
	return f, nil
}

func (f *File) Entries(context.Context) ([]catalog.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedEntries(), nil
}

func (f *File) SaveEntry(_ context.Context, e catalog.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.entries[e.Code]
	f.entries[e.Code] = e
	if err := f.write(catalogFile, f.sortedEntries()); err != nil {
		if had {
			f.entries[e.Code] = prev
		} else {
			delete(f.entries, e.Code)
		}
		return err
	}
	return nil
}

func (f *File) DeleteEntry(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.entries[code]
	if !had {
		return nil
	}
	delete(f.entries, code)
	if err := f.write(catalogFile, f.sortedEntries()); err != nil {
		f.entries[code] = prev
		return err
	}
	return nil
}

func (f *File) Channels(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.channels...), nil
}

func (f *File) SaveChannels(_ context.Context, channels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := append([]string{}, channels...)
	if err := f.write(channelsFile, list); err != nil {
		return err
	}
	f.channels = list
	return nil
}

func (f *File) AddUser(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; ok {
		return nil
	}
	f.users[userID] = struct{}{}
	ids := make([]int64, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if err := f.write(usersFile, ids); err != nil {
		delete(f.users, userID)
		return err
	}
	return nil
}

func (f *File) CountUsers(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

func (f *File) Close(context.Context) error { return nil }

func (f *File) sortedEntries() []catalog.Entry {
	out := make([]catalog.Entry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (f *File) read(name string, v any) error {
	b, err := os.ReadFile(filepath.Join(f.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (f *File) write(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock data dir: %w", err)
	}
	defer func() { _ = f.lock.Unlock() }()

	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(f.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
