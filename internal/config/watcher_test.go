package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"
)

const watchedManifest = `routes:
  - method: GET
    pattern: /users/:id
`

// replaceFile swaps in new content with a rename, the way editors save.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	path := writeFile(t, t.TempDir(), ManifestFileName, watchedManifest)

	reloaded := make(chan *Manifest, 4)
	w, err := NewWatcher(path, func(m *Manifest) { reloaded <- m },
		WithDebounce(20*time.Millisecond),
		WithWatchLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("NewWatcher error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer w.Stop()

	if got := len(w.Last().Routes); got != 1 {
		t.Fatalf("initial Routes = %d, want 1", got)
	}

	updated := watchedManifest + "  - method: POST\n    pattern: /users\n"
	replaceFile(t, path, updated)

	select {
	case m := <-reloaded:
		if len(m.Routes) != 2 {
			t.Errorf("reloaded Routes = %d, want 2", len(m.Routes))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if got := len(w.Last().Routes); got != 2 {
		t.Errorf("Last().Routes = %d, want 2", got)
	}
}

func TestWatcherKeepsLastGoodManifest(t *testing.T) {
	path := writeFile(t, t.TempDir(), ManifestFileName, watchedManifest)

	errs := make(chan error, 4)
	w, err := NewWatcher(path, nil,
		WithDebounce(20*time.Millisecond),
		WithErrorFunc(func(err error) { errs <- err }),
		WithWatchLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	broken := "routes:\n  - method: GET\n    pattern: /a/*rest/b\n"
	replaceFile(t, path, broken)

	select {
	case err := <-errs:
		if err == nil {
			t.Error("error callback got nil")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}

	last := w.Last()
	if len(last.Routes) != 1 || last.Routes[0].Pattern != "/users/:id" {
		t.Errorf("Last() = %+v, want previous manifest", last.Routes)
	}
}

func TestWatcherStartFailsOnInvalidManifest(t *testing.T) {
	path := writeFile(t, t.TempDir(), ManifestFileName, "routes:\n  - pattern: /a\n")

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.Start(context.Background()); err == nil {
		t.Error("Start should fail for a manifest with a route without methods")
	}
}

func TestWatcherReload(t *testing.T) {
	path := writeFile(t, t.TempDir(), ManifestFileName, watchedManifest)

	var got *Manifest
	w, err := NewWatcher(path, func(m *Manifest) { got = m })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if got == nil || w.Last() != got {
		t.Error("Reload should call the callback and update Last")
	}
}
