package router

import (
	"fmt"
	"sync"
	"testing"
)

func TestToChiPattern(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"/", "/"},
		{"/users", "/users"},
		{"/users/:id", "/users/{id}"},
		{"/files/*path", "/files/*"},
		{"/*", "/*"},
		{"/a:b/:c/*", "/a:b/{c}/*"},
	}

	for _, tt := range tests {
		p, err := parsePattern(tt.pattern)
		if err != nil {
			t.Fatalf("parsePattern(%q) error: %v", tt.pattern, err)
		}
		if got := toChiPattern(p.segments); got != tt.want {
			t.Errorf("toChiPattern(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestChiBackendSnapshotLifecycle(t *testing.T) {
	b := newChiBackend()
	if err := b.Add("GET", "/a", "a"); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if b.snapshot.Load() != nil {
		t.Fatal("snapshot compiled eagerly on Add")
	}

	b.Find("GET", "/a")
	first := b.snapshot.Load()
	if first == nil {
		t.Fatal("snapshot not compiled by Find")
	}
	b.Find("GET", "/a")
	if b.snapshot.Load() != first {
		t.Error("snapshot recompiled without a mutation")
	}

	if b.Remove("GET", "/missing") {
		t.Error("Remove(/missing) = true")
	}
	if b.snapshot.Load() != first {
		t.Error("failed Remove dropped the snapshot")
	}

	if err := b.Add("GET", "/b", "b"); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if b.snapshot.Load() != nil {
		t.Error("Add did not drop the snapshot")
	}
	if m := b.Find("GET", "/b"); !m.Found || m.Handler != "b" {
		t.Errorf("Find(/b) = %+v", m)
	}

	// The old snapshot keeps serving what it was compiled from.
	if _, ok := first.methods["GET"].routes["/b"]; ok {
		t.Error("old snapshot sees a route added later")
	}
}

func TestChiBackendUnknownMethod(t *testing.T) {
	b := newChiBackend()
	if err := b.Add("PURGE", "/cache/*key", "purge"); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	m := b.Find("PURGE", "/cache/a/b")
	if !m.Found || m.Params["key"] != "a/b" {
		t.Errorf("Find(PURGE) = %+v", m)
	}
	if m := b.Find("GET", "/cache/a/b"); m.Found {
		t.Errorf("Find(GET) = %+v, want not found", m)
	}
}

func TestChiRouteBind(t *testing.T) {
	p, _ := parsePattern("/a/:b/*c")
	r := chiRoute{segments: p.segments, handler: "h"}

	tests := []struct {
		path  string
		found bool
		rest  string
	}{
		{"/a/x/y", true, "y"},
		{"/a/x/y/z", true, "y/z"},
		{"/a/x/y/", true, "y/"},
		{"/a/x//y//z", true, "y//z"},
		{"/a/x", false, ""}, // catch-all needs a segment
		{"/z/x/y", false, ""},
	}
	for _, tt := range tests {
		segs, starts := splitOffsets(tt.path, nil, nil)
		got := r.bind(tt.path, segs, starts)
		if got.Found != tt.found {
			t.Errorf("bind(%q).Found = %v, want %v", tt.path, got.Found, tt.found)
			continue
		}
		if tt.found && got.Params["c"] != tt.rest {
			t.Errorf("bind(%q) c = %q, want %q", tt.path, got.Params["c"], tt.rest)
		}
	}

	p, _ = parsePattern("/a/:b")
	r = chiRoute{segments: p.segments, handler: "h"}
	segs, starts := splitOffsets("/a/x/y", nil, nil)
	if r.bind("/a/x/y", segs, starts).Found {
		t.Error("bind matched extra segments without a catch-all")
	}
}

func TestChiRouterMutateWhileServing(t *testing.T) {
	r := New(WithBackend(BackendChi))
	r.MustAdd("GET", "/stable/:id", "stable")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				m := r.Find("GET", fmt.Sprintf("/stable/%d", i%16))
				if !m.Found || m.Handler != "stable" {
					t.Errorf("Find(/stable) = %+v during mutation", m)
					return
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		p := fmt.Sprintf("/dyn%d/:id", i)
		r.MustAdd("GET", p, i)
		if i%2 == 0 {
			r.Remove("GET", p)
		}
	}
	close(stop)
	wg.Wait()

	if got := r.Len(); got != 51 {
		t.Errorf("Len() = %d, want 51", got)
	}
	if m := r.Find("GET", "/dyn99/x"); !m.Found || m.Handler != 99 {
		t.Errorf("Find(/dyn99/x) = %+v", m)
	}
}
