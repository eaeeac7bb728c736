package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"kinobot/internal/errs"
)

type memRepo struct {
	mu      sync.Mutex
	entries map[string]Entry
	failing bool
}

func newMemRepo() *memRepo { return &memRepo{entries: map[string]Entry{}} }

func (r *memRepo) Entries(context.Context) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.clone())
	}
	return out, nil
}

func (r *memRepo) SaveEntry(_ context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("disk full")
	}
	r.entries[e.Code] = e.clone()
	return nil
}

func (r *memRepo) DeleteEntry(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("disk full")
	}
	delete(r.entries, code)
	return nil
}

func openCatalog(t *testing.T, repo Repository) *Catalog {
	t.Helper()
	c, err := Open(context.Background(), repo, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return c
}

func TestPutCreatesSinglePart(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t, newMemRepo())

	if err := c.Put(ctx, "x1", "vid-a"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	e, err := c.Get("x1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(e.Parts) != 1 || e.Parts[0].Asset != "vid-a" || e.Parts[0].Label != FirstPartLabel {
		t.Fatalf("unexpected entry: %+v", e)
	}

	err = c.Put(ctx, "x1", "vid-b")
	if !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("second Put error = %v, want ErrAlreadyExists", err)
	}
	e, _ = c.Get("x1")
	if len(e.Parts) != 1 || e.Parts[0].Asset != "vid-a" {
		t.Fatalf("entry changed after rejected Put: %+v", e)
	}
}

func TestCodesAreCaseSensitive(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t, newMemRepo())
	if err := c.Put(ctx, "Movie", "a"); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, "movie", "b"); err != nil {
		t.Fatalf("Put lower-case: %v", err)
	}
	if _, err := c.Get("MOVIE"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Get MOVIE = %v, want ErrNotFound", err)
	}
}

func TestAppendPartKeepsOrder(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t, newMemRepo())
	if err := c.Put(ctx, "serial", "a1"); err != nil {
		t.Fatal(err)
	}
	for i := 2; i <= 5; i++ {
		if err := c.AppendPart(ctx, "serial", fmt.Sprintf("%d-qism", i), fmt.Sprintf("a%d", i)); err != nil {
			t.Fatalf("AppendPart %d: %v", i, err)
		}
	}
	e, _ := c.Get("serial")
	if len(e.Parts) != 5 {
		t.Fatalf("parts = %d, want 5", len(e.Parts))
	}
	for i, p := range e.Parts {
		if want := fmt.Sprintf("a%d", i+1); p.Asset != want {
			t.Fatalf("part %d asset = %q, want %q", i, p.Asset, want)
		}
	}
}

func TestAppendPartErrors(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t, newMemRepo())
	if err := c.Put(ctx, "m", "a"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		code  string
		label string
		want  error
	}{
		{"unknown code", "nope", "2-qism", errs.ErrNotFound},
		{"duplicate label", "m", FirstPartLabel, errs.ErrDuplicateLabel},
		{"empty label", "m", "  ", errs.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.AppendPart(ctx, tt.code, tt.label, "b")
			if !errors.Is(err, tt.want) {
				t.Fatalf("AppendPart = %v, want %v", err, tt.want)
			}
		})
	}
	e, _ := c.Get("m")
	if len(e.Parts) != 1 {
		t.Fatalf("failed appends changed entry: %+v", e)
	}
}

func TestDeletePartRemovesEntryOnLastPart(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t, newMemRepo())
	if err := c.Put(ctx, "m", "a"); err != nil {
		t.Fatal(err)
	}
	if err := c.AppendPart(ctx, "m", "2-qism", "b"); err != nil {
		t.Fatal(err)
	}

	if err := c.DeletePart(ctx, "m", FirstPartLabel); err != nil {
		t.Fatalf("DeletePart: %v", err)
	}
	e, err := c.Get("m")
	if err != nil || len(e.Parts) != 1 || e.Parts[0].Label != "2-qism" {
		t.Fatalf("after first delete: %+v, %v", e, err)
	}
	if err := c.DeletePart(ctx, "m", "2-qism"); err != nil {
		t.Fatalf("DeletePart last: %v", err)
	}
	if _, err := c.Get("m"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Get after last part removed = %v, want ErrNotFound", err)
	}
	if err := c.DeletePart(ctx, "m", "2-qism"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("DeletePart on missing = %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	c := openCatalog(t, repo)
	if err := c.Delete(ctx, "ghost"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Delete missing = %v", err)
	}
	_ = c.Put(ctx, "m", "a")
	if err := c.Delete(ctx, "m"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("repo still holds %d entries", len(repo.entries))
	}
}

func TestFailedPersistLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	c := openCatalog(t, repo)
	_ = c.Put(ctx, "m", "a")

	repo.failing = true
	if err := c.AppendPart(ctx, "m", "2-qism", "b"); err == nil {
		t.Fatal("expected error from failing repository")
	}
	if err := c.Put(ctx, "n", "a"); err == nil {
		t.Fatal("expected error from failing repository")
	}
	e, _ := c.Get("m")
	if len(e.Parts) != 1 {
		t.Fatalf("entry mutated despite failed save: %+v", e)
	}
	if _, err := c.Get("n"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("entry n visible despite failed save")
	}
}

func TestOpenLoadsRepository(t *testing.T) {
	repo := newMemRepo()
	repo.entries["a"] = Entry{Code: "a", Parts: []Part{{Label: "1-qism", Asset: "x"}}}
	repo.entries["empty"] = Entry{Code: "empty"}

	c := openCatalog(t, repo)
	if titles, parts := c.Stats(); titles != 1 || parts != 1 {
		t.Fatalf("Stats = %d, %d", titles, parts)
	}
	if _, err := c.Get("empty"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatal("zero-part entry must not be visible")
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{" x1 ", "x1", true},
		{"", "", false},
		{"a b", "", false},
		{"a:b", "", false},
		{"abcdefghijklmnopqrstuvwxyz0123456789", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizeCode(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t, newMemRepo())
	_ = c.Put(ctx, "m", "a")
	e, _ := c.Get("m")
	e.Parts[0].Asset = "tampered"
	again, _ := c.Get("m")
	if again.Parts[0].Asset != "a" {
		t.Fatal("Get leaked internal slice")
	}
}

func TestConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t, newMemRepo())
	_ = c.Put(ctx, "m", "a")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.AppendPart(ctx, "m", fmt.Sprintf("p%d", i), "x")
		}(i)
	}
	wg.Wait()
	e, _ := c.Get("m")
	if len(e.Parts) != 21 {
		t.Fatalf("parts = %d, want 21", len(e.Parts))
	}
}
