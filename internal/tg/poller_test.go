package tg

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kinobot/internal/chat"
)

func privateMessage(updateID int, from int64, body string) string {
	return fmt.Sprintf(`{"update_id":%d,"message":{"message_id":%d,"date":0,`+
		`"from":{"id":%d,"is_bot":false,"first_name":"U"},"chat":{"id":%d,"type":"private"},%s}}`,
		updateID, updateID, from, from, body)
}

func TestPollKeepsSenderOrderWithinBatch(t *testing.T) {
	batch := "[" +
		privateMessage(1, 1, `"video":{"file_id":"VID","file_unique_id":"u","width":1,"height":1,"duration":1}`) + "," +
		privateMessage(2, 1, `"text":"x1"`) + "," +
		privateMessage(3, 2, `"text":"x2"`) + "]"

	for run := 0; run < 20; run++ {
		c, api := newTestClient(t)
		api.mu.Lock()
		api.updates = []string{batch}
		api.mu.Unlock()

		ctx, cancel := context.WithCancel(context.Background())
		var (
			mu  sync.Mutex
			got = map[int64][]string{}
			n   int
		)
		handle := func(_ context.Context, ev chat.Event) {
			if ev.Kind == chat.KindVideo {
				time.Sleep(5 * time.Millisecond)
			}
			mu.Lock()
			defer mu.Unlock()
			got[ev.SenderID] = append(got[ev.SenderID], ev.Asset+ev.Text)
			if n++; n == 3 {
				cancel()
			}
		}

		done := make(chan error, 1)
		go func() { done <- c.Poll(ctx, 16, handle) }()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Poll: %v", err)
			}
		case <-time.After(5 * time.Second):
			cancel()
			t.Fatal("Poll did not return")
		}

		if !reflect.DeepEqual(got[1], []string{"VID", "x1"}) {
			t.Fatalf("run %d: sender 1 handled %v", run, got[1])
		}
		if !reflect.DeepEqual(got[2], []string{"x2"}) {
			t.Fatalf("run %d: sender 2 handled %v", run, got[2])
		}
		if api.last("deleteWebhook") == nil {
			t.Fatal("webhook not deleted before polling")
		}
	}
}

func TestSequencerSerializesOneSender(t *testing.T) {
	var (
		inFlight atomic.Int32
		mu       sync.Mutex
		order    []int
	)
	seq := NewSequencer(context.Background(), 8, func(_ context.Context, ev chat.Event) {
		if inFlight.Add(1) > 1 {
			t.Error("two events of one sender handled at once")
		}
		time.Sleep(time.Millisecond)
		mu.Lock()
		order = append(order, ev.MessageID)
		mu.Unlock()
		inFlight.Add(-1)
	})
	want := make([]int, 0, 30)
	for i := 0; i < 30; i++ {
		seq.Push(chat.Event{SenderID: 7, MessageID: i})
		want = append(want, i)
	}
	if err := seq.Wait(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v", order)
	}
}

func TestSequencerRunsSendersConcurrently(t *testing.T) {
	release := make(chan struct{})
	seq := NewSequencer(context.Background(), 2, func(_ context.Context, ev chat.Event) {
		switch ev.SenderID {
		case 1:
			select {
			case <-release:
			case <-time.After(5 * time.Second):
				t.Error("sender 2 never ran while sender 1 was busy")
			}
		case 2:
			close(release)
		}
	})
	seq.Push(chat.Event{SenderID: 1})
	seq.Push(chat.Event{SenderID: 2})
	if err := seq.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestSequencerAcceptsSenderAgainAfterDrain(t *testing.T) {
	var n atomic.Int32
	seq := NewSequencer(context.Background(), 1, func(context.Context, chat.Event) { n.Add(1) })
	seq.Push(chat.Event{SenderID: 3})
	if err := seq.Wait(); err != nil {
		t.Fatal(err)
	}
	seq.Push(chat.Event{SenderID: 3})
	if err := seq.Wait(); err != nil {
		t.Fatal(err)
	}
	if n.Load() != 2 {
		t.Fatalf("handled %d events", n.Load())
	}
}
