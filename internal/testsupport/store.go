package testsupport

import (
	"context"
	"testing"

	"kinobot/internal/catalog"
	"kinobot/internal/gate"
	"kinobot/internal/storage"
)

// Env wires a file-backed catalog and channel set in a temp directory.
type Env struct {
	Store    *storage.File
	Catalog  *catalog.Catalog
	Channels *gate.Channels
}

func NewEnv(t testing.TB, channels ...string) *Env {
	t.Helper()
	ctx := context.Background()
	store, err := storage.OpenFile(t.TempDir())
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	cat, err := catalog.Open(ctx, store, nil)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	set, err := gate.LoadChannels(ctx, store, channels, nil)
	if err != nil {
		t.Fatalf("load channels: %v", err)
	}
	return &Env{Store: store, Catalog: cat, Channels: set}
}

// MustPut creates code with the given assets as parts labelled by labels.
func (e *Env) MustPut(t testing.TB, code string, labels []string, assets []string) {
	t.Helper()
	ctx := context.Background()
	if err := e.Catalog.Put(ctx, code, assets[0]); err != nil {
		t.Fatalf("put %s: %v", code, err)
	}
	if len(labels) > 0 && labels[0] != catalog.FirstPartLabel {
		t.Fatalf("first label must be %q", catalog.FirstPartLabel)
	}
	for i := 1; i < len(assets); i++ {
		if err := e.Catalog.AppendPart(ctx, code, labels[i], assets[i]); err != nil {
			t.Fatalf("append %s/%s: %v", code, labels[i], err)
		}
	}
}
