package dialog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"kinobot/internal/catalog"
	"kinobot/internal/errs"
	"kinobot/internal/testsupport"
)

const (
	admin    int64 = 100
	admin2   int64 = 200
	stranger int64 = 300
)

func newEngine(t *testing.T, opts Options) (*Engine, *testsupport.Env) {
	t.Helper()
	env := testsupport.NewEnv(t)
	if opts.Admins == nil {
		opts.Admins = []int64{admin, admin2}
	}
	return New(env.Catalog, env.Channels, opts, nil), env
}

func mustText(t *testing.T, e *Engine, id int64, text string) Reply {
	t.Helper()
	r, err := e.HandleText(context.Background(), id, text)
	if err != nil {
		t.Fatalf("HandleText(%q): %v", text, err)
	}
	return r
}

func mustVideo(t *testing.T, e *Engine, id int64, asset string) Reply {
	t.Helper()
	r, err := e.HandleVideo(context.Background(), id, asset)
	if err != nil {
		t.Fatalf("HandleVideo(%q): %v", asset, err)
	}
	return r
}

func mustStart(t *testing.T, e *Engine, id int64, m Mode) Reply {
	t.Helper()
	r, err := e.Start(context.Background(), id, m)
	if err != nil {
		t.Fatalf("Start(%v): %v", m, err)
	}
	return r
}

func TestAddMovieFlow(t *testing.T) {
	e, env := newEngine(t, Options{})

	mustStart(t, e, admin, ModeAddMovie)
	if s, _ := e.Session(admin); s.State != StateAwaitingAsset {
		t.Fatalf("state = %v", s.State)
	}
	mustVideo(t, e, admin, "file-1")
	if s, _ := e.Session(admin); s.State != StateAwaitingCode || s.Asset != "file-1" {
		t.Fatalf("session = %+v", s)
	}
	r := mustText(t, e, admin, "x1")
	if !strings.Contains(r.Text, "x1") || r.Markup.Empty() {
		t.Fatalf("reply = %+v", r)
	}
	if e.Active(admin) {
		t.Fatal("session left after completion")
	}
	entry, err := env.Catalog.Get("x1")
	if err != nil || len(entry.Parts) != 1 || entry.Parts[0].Asset != "file-1" {
		t.Fatalf("entry = %+v, %v", entry, err)
	}

	mustStart(t, e, admin, ModeAddMovie)
	mustVideo(t, e, admin, "file-2")
	r = mustText(t, e, admin, "x1")
	if !strings.Contains(r.Text, "allaqachon") {
		t.Fatalf("duplicate code reply = %q", r.Text)
	}
	entry, _ = env.Catalog.Get("x1")
	if len(entry.Parts) != 1 || entry.Parts[0].Asset != "file-1" {
		t.Fatalf("catalog changed: %+v", entry)
	}
	if e.Active(admin) {
		t.Fatal("session left after AlreadyExists")
	}
}

func TestWrongInputKindReprompts(t *testing.T) {
	e, _ := newEngine(t, Options{})
	mustStart(t, e, admin, ModeAddMovie)

	r := mustText(t, e, admin, "hello")
	if r.Text != msgSendVideoOnly {
		t.Fatalf("reply = %q", r.Text)
	}
	if s, _ := e.Session(admin); s.State != StateAwaitingAsset {
		t.Fatalf("state moved to %v", s.State)
	}

	mustVideo(t, e, admin, "file-1")
	r = mustVideo(t, e, admin, "file-2")
	if r.Text != msgAskMovieCode {
		t.Fatalf("reply = %q", r.Text)
	}
	if s, _ := e.Session(admin); s.State != StateAwaitingCode || s.Asset != "file-1" {
		t.Fatalf("second video changed session: %+v", s)
	}

	r = mustText(t, e, admin, "bad code")
	if r.Text != msgBadCode || !e.Active(admin) {
		t.Fatalf("invalid code should re-prompt, got %q", r.Text)
	}
}

func TestAddPartFlow(t *testing.T) {
	e, env := newEngine(t, Options{})
	env.MustPut(t, "movie1", []string{catalog.FirstPartLabel}, []string{"a1"})

	mustStart(t, e, admin, ModeAddPart)
	mustText(t, e, admin, "movie1")
	if s, _ := e.Session(admin); s.State != StateAwaitingAsset || s.Code != "movie1" {
		t.Fatalf("session = %+v", s)
	}
	mustVideo(t, e, admin, "a2")
	if s, _ := e.Session(admin); s.State != StateAwaitingPartLabel {
		t.Fatalf("state = %v", s.State)
	}

	r := mustText(t, e, admin, catalog.FirstPartLabel)
	if !strings.Contains(r.Text, catalog.FirstPartLabel) || !e.Active(admin) {
		t.Fatalf("duplicate label should keep session, reply %q", r.Text)
	}
	mustText(t, e, admin, "2-qism")
	if e.Active(admin) {
		t.Fatal("session left after append")
	}
	entry, _ := env.Catalog.Get("movie1")
	if len(entry.Parts) != 2 || entry.Parts[1].Label != "2-qism" || entry.Parts[1].Asset != "a2" {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestAddPartUnknownCodeAbortsBeforeVideo(t *testing.T) {
	e, _ := newEngine(t, Options{})
	mustStart(t, e, admin, ModeAddPart)
	r := mustText(t, e, admin, "ghost")
	if !strings.Contains(r.Text, "topilmadi") {
		t.Fatalf("reply = %q", r.Text)
	}
	if e.Active(admin) {
		t.Fatal("residual session after NotFound")
	}
	if _, err := e.HandleVideo(context.Background(), admin, "late"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("video after abort = %v", err)
	}
}

func TestDeleteFlow(t *testing.T) {
	e, env := newEngine(t, Options{})
	env.MustPut(t, "m", []string{catalog.FirstPartLabel}, []string{"a"})

	mustStart(t, e, admin, ModeDelete)
	mustText(t, e, admin, "m")
	if _, err := env.Catalog.Get("m"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("entry still present: %v", err)
	}

	mustStart(t, e, admin, ModeDelete)
	r := mustText(t, e, admin, "m")
	if !strings.Contains(r.Text, "topilmadi") || e.Active(admin) {
		t.Fatalf("delete missing reply = %q", r.Text)
	}
}

func TestDeletePartFlow(t *testing.T) {
	ctx := context.Background()
	e, env := newEngine(t, Options{})
	env.MustPut(t, "s", []string{catalog.FirstPartLabel, "2-qism"}, []string{"a", "b"})

	mustStart(t, e, admin, ModeDeletePart)
	r := mustText(t, e, admin, "s")
	if r.Markup == nil || len(r.Markup.Inline) != 3 {
		t.Fatalf("menu = %+v", r.Markup)
	}
	if got := r.Markup.Inline[1][0].Data; got != "delp:s:2-qism" {
		t.Fatalf("button data = %q", got)
	}

	if _, handled, err := e.HandleCallback(ctx, stranger, "delp:s:2-qism"); !handled || !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("stranger callback handled=%v err=%v", handled, err)
	}
	if _, handled, _ := e.HandleCallback(ctx, admin, "part:s:1-qism"); handled {
		t.Fatal("foreign callback claimed")
	}

	if _, _, err := e.HandleCallback(ctx, admin, "delp:s:2-qism"); err != nil {
		t.Fatal(err)
	}
	entry, _ := env.Catalog.Get("s")
	if len(entry.Parts) != 1 {
		t.Fatalf("entry = %+v", entry)
	}
	r, _, _ = e.HandleCallback(ctx, admin, "delp:s:"+catalog.FirstPartLabel)
	if !strings.Contains(r.Text, "butunlay") {
		t.Fatalf("last part reply = %q", r.Text)
	}
	if _, err := env.Catalog.Get("s"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatal("entry survived removal of last part")
	}

	env.MustPut(t, "t", []string{catalog.FirstPartLabel}, []string{"a"})
	if _, _, err := e.HandleCallback(ctx, admin, "dela:t"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Catalog.Get("t"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatal("delete-all left entry")
	}
}

func TestChannelFlows(t *testing.T) {
	e, env := newEngine(t, Options{})

	mustStart(t, e, admin, ModeAddChannel)
	r := mustText(t, e, admin, "@x")
	if r.Text != msgBadChannel || !e.Active(admin) {
		t.Fatalf("invalid channel reply = %q", r.Text)
	}
	mustText(t, e, admin, "@kino_uz")
	if got := env.Channels.List(); len(got) != 1 || got[0] != "@kino_uz" {
		t.Fatalf("channels = %v", got)
	}

	mustStart(t, e, admin, ModeRemoveChannel)
	r = mustText(t, e, admin, "@other_chan")
	if !strings.Contains(r.Text, "topilmadi") || e.Active(admin) {
		t.Fatalf("remove unknown reply = %q", r.Text)
	}
	mustStart(t, e, admin, ModeRemoveChannel)
	mustText(t, e, admin, "kino_uz")
	if got := env.Channels.List(); len(got) != 0 {
		t.Fatalf("channels = %v", got)
	}
}

func TestNonAdminRejected(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, Options{})
	if _, err := e.Start(ctx, stranger, ModeAddMovie); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("Start = %v", err)
	}
	if _, err := e.HandleText(ctx, stranger, "x"); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("HandleText = %v", err)
	}
	if _, err := e.HandleVideo(ctx, stranger, "x"); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("HandleVideo = %v", err)
	}
	if _, err := e.Cancel(stranger); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("Cancel = %v", err)
	}
	if e.Active(stranger) {
		t.Fatal("stranger has a session")
	}
}

func TestSessionsAreIsolatedPerAdmin(t *testing.T) {
	e, env := newEngine(t, Options{})
	mustStart(t, e, admin, ModeAddMovie)
	mustVideo(t, e, admin, "mine")

	if _, err := e.HandleText(context.Background(), admin2, "x1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("second admin drove first session: %v", err)
	}
	mustStart(t, e, admin2, ModeDelete)
	mustText(t, e, admin, "x1")
	entry, err := env.Catalog.Get("x1")
	if err != nil || entry.Parts[0].Asset != "mine" {
		t.Fatalf("entry = %+v, %v", entry, err)
	}
	if s, ok := e.Session(admin2); !ok || s.Mode != ModeDelete {
		t.Fatalf("admin2 session = %+v", s)
	}
}

func TestRestartPolicy(t *testing.T) {
	e, _ := newEngine(t, Options{})
	mustStart(t, e, admin, ModeAddMovie)
	mustVideo(t, e, admin, "a")
	mustStart(t, e, admin, ModeDelete)
	if s, _ := e.Session(admin); s.Mode != ModeDelete || s.Asset != "" {
		t.Fatalf("restart did not overwrite: %+v", s)
	}

	strict, _ := newEngine(t, Options{RejectRestart: true})
	mustStart(t, strict, admin, ModeAddMovie)
	r := mustStart(t, strict, admin, ModeDelete)
	if r.Text != msgFinishFirst {
		t.Fatalf("reply = %q", r.Text)
	}
	if s, _ := strict.Session(admin); s.Mode != ModeAddMovie {
		t.Fatalf("session replaced: %+v", s)
	}
}

func TestCancel(t *testing.T) {
	e, _ := newEngine(t, Options{})
	r, err := e.Cancel(admin)
	if err != nil || r.Text != msgNothingToCancel {
		t.Fatalf("cancel idle = %q, %v", r.Text, err)
	}
	mustStart(t, e, admin, ModeAddMovie)
	r, _ = e.Cancel(admin)
	if r.Text != msgCancelled || e.Active(admin) {
		t.Fatalf("cancel = %q", r.Text)
	}
}

func TestIdleExpiry(t *testing.T) {
	e, _ := newEngine(t, Options{IdleTTL: time.Minute})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }

	mustStart(t, e, admin, ModeAddMovie)
	mustStart(t, e, admin2, ModeDelete)

	now = now.Add(30 * time.Second)
	mustVideo(t, e, admin, "a")

	now = now.Add(45 * time.Second)
	if !e.Active(admin) {
		t.Fatal("activity did not refresh admin session")
	}
	if n := e.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if e.Active(admin2) {
		t.Fatal("idle session survived sweep")
	}

	now = now.Add(2 * time.Minute)
	if _, err := e.HandleText(context.Background(), admin, "x1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expired session accepted input: %v", err)
	}
}

func TestModeForLabel(t *testing.T) {
	if m, ok := ModeForLabel(LabelAddPart); !ok || m != ModeAddPart {
		t.Fatalf("ModeForLabel(add part) = %v, %v", m, ok)
	}
	if _, ok := ModeForLabel(LabelStats); ok {
		t.Fatal("stats is not a dialog")
	}
	if _, ok := ModeForLabel("kino qo‘shish"); ok {
		t.Fatal("labels must match exactly")
	}
}
