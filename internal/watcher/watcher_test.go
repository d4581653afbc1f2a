package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"modgraph/internal/config"
	"modgraph/internal/slogutil"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventRename, "rename"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.eventType.String(); got != tt.expected {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.eventType, got, tt.expected)
		}
	}
}

func newTestWatcher(t *testing.T, root string, handler ChangeHandler) *Watcher {
	t.Helper()
	cfg := ConfigFrom(config.DefaultConfig().Watch)
	cfg.DebounceMs = 50
	w, err := New(root, cfg, slogutil.NewDiscardLogger(), handler)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return w
}

func TestWatcher_Patterns(t *testing.T) {
	w := newTestWatcher(t, t.TempDir(), nil)
	defer w.fsw.Close()

	tests := []struct {
		path    string
		matches bool
		ignored bool
	}{
		{"settings.gradle.kts", true, false},
		{"core/build.gradle.kts", true, false},
		{"core/src/main/java/org/demo/Core.java", true, false},
		{"core/src/main/kotlin/org/demo/Util.kt", true, false},
		{"README.md", false, false},
		{"core/build/classes/Core.class", false, true},
		{"core/build", false, true},
		{".git/HEAD", false, true},
		{".modgraph/modgraph.db", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := w.Matches(tt.path); got != tt.matches {
				t.Errorf("Matches(%q) = %v, want %v", tt.path, got, tt.matches)
			}
			if got := w.IsIgnored(tt.path); got != tt.ignored {
				t.Errorf("IsIgnored(%q) = %v, want %v", tt.path, got, tt.ignored)
			}
		})
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	cfg := Config{Patterns: []string{"src/[a"}}
	if _, err := New(t.TempDir(), cfg, slogutil.NewDiscardLogger(), nil); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestWatcher_Run(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "core"), 0o755); err != nil {
		t.Fatal(err)
	}

	batches := make(chan []Event, 4)
	w := newTestWatcher(t, root, func(ctx context.Context, events []Event) {
		batches <- events
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the event loop a moment to start
	time.Sleep(50 * time.Millisecond)
	for _, f := range []string{"core/build.gradle.kts", "core/notes.txt"} {
		if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(f)), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case events := <-batches:
		var got []string
		for _, e := range events {
			got = append(got, e.Path)
		}
		if diff := cmp.Diff([]string{"core/build.gradle.kts"}, got); diff != "" {
			t.Errorf("changed paths mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch received")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestBatchDebouncer(t *testing.T) {
	var mu sync.Mutex
	var batches [][]Event

	b := NewBatchDebouncer(50*time.Millisecond, func(events []Event) {
		mu.Lock()
		batches = append(batches, events)
		mu.Unlock()
	})

	b.Add(Event{Type: EventCreate, Path: "b.java"})
	b.Add(Event{Type: EventCreate, Path: "a.java"})
	b.Add(Event{Type: EventModify, Path: "b.java"})

	if got := b.EventCount(); got != 2 {
		t.Errorf("EventCount() = %d, want 2", got)
	}

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	want := [][]Event{{
		{Type: EventCreate, Path: "a.java"},
		{Type: EventModify, Path: "b.java"},
	}}
	if diff := cmp.Diff(want, batches); diff != "" {
		t.Errorf("batches mismatch (-want +got):\n%s", diff)
	}
}

func TestBatchDebouncer_FlushAndCancel(t *testing.T) {
	var count int
	b := NewBatchDebouncer(time.Hour, func(events []Event) {
		count += len(events)
	})

	b.Add(Event{Path: "a.kt"})
	b.Flush()
	if count != 1 {
		t.Errorf("count after Flush = %d, want 1", count)
	}

	b.Add(Event{Path: "b.kt"})
	b.Cancel()
	b.Flush()
	if count != 1 {
		t.Errorf("count after Cancel = %d, want 1", count)
	}
	if b.EventCount() != 0 {
		t.Errorf("EventCount() = %d, want 0", b.EventCount())
	}
}

func TestSerialRunner_QueuesChangesDuringRun(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	var mu sync.Mutex
	var runs [][]string
	r := &serialRunner{run: func(events []Event) {
		mu.Lock()
		batch := make([]string, len(events))
		for i, e := range events {
			batch[i] = e.Path
		}
		runs = append(runs, batch)
		first := len(runs) == 1
		mu.Unlock()

		if first {
			close(started)
			<-release
		}
	}}

	done := make(chan bool)
	go func() { done <- r.submit([]Event{{Path: "core/build.gradle.kts"}}) }()
	<-started

	if !r.submit([]Event{{Path: "core/src/main/java/org/demo/Core.java"}}) {
		t.Error("batch during a run should be queued")
	}
	if !r.submit([]Event{{Path: "core/build.gradle.kts"}, {Path: "MODULES.toml"}}) {
		t.Error("batch during a run should be queued")
	}
	close(release)
	if queued := <-done; queued {
		t.Error("first batch should run immediately")
	}

	want := [][]string{
		{"core/build.gradle.kts"},
		{"MODULES.toml", "core/build.gradle.kts", "core/src/main/java/org/demo/Core.java"},
	}
	mu.Lock()
	if diff := cmp.Diff(want, runs); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
	mu.Unlock()

	if r.submit([]Event{{Path: "MODULES.toml"}}) {
		t.Error("idle runner should run the batch immediately")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(runs) != 3 {
		t.Errorf("got %d runs, want 3", len(runs))
	}
}
