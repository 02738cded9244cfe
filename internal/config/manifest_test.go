package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/pkg/router"
)

const sampleManifest = `router:
  backend: chi
  maxCacheSize: 64
server:
  addr: "127.0.0.1:9000"
  reloadDebounce: 250ms
routes:
  - method: get
    pattern: /users/:id
    handler: users.show
  - methods: [GET, HEAD]
    pattern: /static/*filepath
  - method: POST
    methods: [post, PUT]
    pattern: /users
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	m := New()

	if m.Router.Backend != "tree" {
		t.Errorf("Router.Backend = %q, want %q", m.Router.Backend, "tree")
	}
	if m.Router.MaxCacheSize != nil {
		t.Errorf("Router.MaxCacheSize = %v, want nil", *m.Router.MaxCacheSize)
	}
	if m.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", m.Server.Addr, DefaultAddr)
	}
	if m.Server.ReloadDebounce != DefaultReloadDebounce {
		t.Errorf("Server.ReloadDebounce = %v, want %v", m.Server.ReloadDebounce, DefaultReloadDebounce)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := Load(tmpDir); err == nil {
		t.Error("Expected error for missing manifest")
	}

	writeFile(t, tmpDir, ManifestFileName, sampleManifest)

	m, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if m.Router.Backend != "chi" {
		t.Errorf("Router.Backend = %q, want %q", m.Router.Backend, "chi")
	}
	if m.Router.MaxCacheSize == nil || *m.Router.MaxCacheSize != 64 {
		t.Errorf("Router.MaxCacheSize = %v, want 64", m.Router.MaxCacheSize)
	}
	if m.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q", m.Server.Addr)
	}
	if m.Server.ReloadDebounce.Duration() != 250*time.Millisecond {
		t.Errorf("Server.ReloadDebounce = %v, want 250ms", m.Server.ReloadDebounce.Duration())
	}
	if len(m.Routes) != 3 {
		t.Fatalf("len(Routes) = %d, want 3", len(m.Routes))
	}
	if m.Path() != filepath.Join(tmpDir, ManifestFileName) {
		t.Errorf("Path() = %q", m.Path())
	}

	first := m.Routes[0]
	if first.Line != 8 || first.Column != 5 {
		t.Errorf("Routes[0] at %d:%d, want 8:5", first.Line, first.Column)
	}
	if first.HandlerName() != "users.show" {
		t.Errorf("HandlerName() = %q, want users.show", first.HandlerName())
	}
	if m.Routes[1].HandlerName() != "/static/*filepath" {
		t.Errorf("HandlerName() default = %q", m.Routes[1].HandlerName())
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "routes.json", `{
  "router": {"maxCacheSize": 0},
  "routes": [{"method": "GET", "pattern": "/health"}]
}`)

	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if m.Router.MaxCacheSize == nil || *m.Router.MaxCacheSize != 0 {
		t.Errorf("Router.MaxCacheSize = %v, want 0", m.Router.MaxCacheSize)
	}
	if len(m.Routes) != 1 || m.Routes[0].Pattern != "/health" {
		t.Errorf("Routes = %+v", m.Routes)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	var re *errors.RouteError
	if !stderrors.As(err, &re) || re.Code != errors.CodeManifestRead {
		t.Errorf("missing file error = %v, want %s", err, errors.CodeManifestRead)
	}

	path := writeFile(t, dir, "bad.yaml", "routes:\n  - method: GET\n    pattern: [oops\n")
	_, err = LoadFile(path)
	if !stderrors.As(err, &re) || re.Code != errors.CodeManifestParse {
		t.Fatalf("parse error = %v, want %s", err, errors.CodeManifestParse)
	}
	if re.Location == nil || re.Location.File != path {
		t.Errorf("Location = %v, want in %s", re.Location, path)
	}

	path = writeFile(t, dir, "type.yaml", "router:\n  maxCacheSize: lots\n")
	_, err = LoadFile(path)
	if !stderrors.As(err, &re) || re.Code != errors.CodeManifestParse {
		t.Fatalf("type error = %v, want %s", err, errors.CodeManifestParse)
	}
	if re.Location == nil || re.Location.Line != 2 {
		t.Errorf("Location = %v, want line 2", re.Location)
	}
}

func TestYAMLErrorLine(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{stderrors.New("yaml: line 3: did not find expected key"), 3},
		{stderrors.New("yaml: unmarshal errors:\n  line 12: cannot unmarshal"), 12},
		{stderrors.New("something else"), 0},
	}
	for _, tt := range tests {
		if got := yamlErrorLine(tt.err); got != tt.want {
			t.Errorf("yamlErrorLine(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestMethodList(t *testing.T) {
	tests := []struct {
		spec RouteEntry
		want []string
	}{
		{RouteEntry{Method: "get"}, []string{"GET"}},
		{RouteEntry{Methods: []string{"GET", "head"}}, []string{"GET", "HEAD"}},
		{RouteEntry{Method: "POST", Methods: []string{"post", " PUT "}}, []string{"POST", "PUT"}},
		{RouteEntry{}, nil},
	}
	for _, tt := range tests {
		got := tt.spec.MethodList()
		if len(got) != len(tt.want) {
			t.Errorf("MethodList(%+v) = %v, want %v", tt.spec, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("MethodList(%+v) = %v, want %v", tt.spec, got, tt.want)
				break
			}
		}
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ROUTEKIT_ROUTER_BACKEND", "tree")
	t.Setenv("ROUTEKIT_ROUTER_MAX_CACHE_SIZE", "5")
	t.Setenv("ROUTEKIT_SERVER_ADDR", ":7070")
	t.Setenv("ROUTEKIT_SERVER_RELOAD_DEBOUNCE", "2s")

	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv error: %v", err)
	}

	if m.Router.Backend != "tree" {
		t.Errorf("Router.Backend = %q, want tree", m.Router.Backend)
	}
	if m.Router.MaxCacheSize == nil || *m.Router.MaxCacheSize != 5 {
		t.Errorf("Router.MaxCacheSize = %v, want 5", m.Router.MaxCacheSize)
	}
	if m.Server.Addr != ":7070" {
		t.Errorf("Server.Addr = %q, want :7070", m.Server.Addr)
	}
	if m.Server.ReloadDebounce.Duration() != 2*time.Second {
		t.Errorf("Server.ReloadDebounce = %v, want 2s", m.Server.ReloadDebounce.Duration())
	}
	if len(m.Routes) != 3 {
		t.Errorf("ApplyEnv touched Routes: %d entries", len(m.Routes))
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	t.Setenv("ROUTEKIT_ROUTER_MAX_CACHE_SIZE", "many")

	err := New().ApplyEnv()
	var re *errors.RouteError
	if !stderrors.As(err, &re) || re.Code != errors.CodeInvalidSetting {
		t.Errorf("ApplyEnv error = %v, want %s", err, errors.CodeInvalidSetting)
	}
}

func TestValidate(t *testing.T) {
	neg := -1
	tests := []struct {
		name     string
		manifest string
		mutate   func(*Manifest)
		wantCode string
		wantLine int
	}{
		{name: "valid", manifest: sampleManifest},
		{name: "unknown backend", manifest: "router:\n  backend: btree\n", wantCode: errors.CodeInvalidSetting},
		{name: "negative cache", manifest: sampleManifest, mutate: func(m *Manifest) { m.Router.MaxCacheSize = &neg }, wantCode: errors.CodeInvalidSetting},
		{name: "negative debounce", manifest: sampleManifest, mutate: func(m *Manifest) { m.Server.ReloadDebounce = -1 }, wantCode: errors.CodeInvalidSetting},
		{name: "missing pattern", manifest: "routes:\n  - method: GET\n", wantCode: errors.CodeInvalidRoute, wantLine: 2},
		{name: "missing method", manifest: "routes:\n  - pattern: /a\n  - handler: x\n", wantCode: errors.CodeInvalidRoute, wantLine: 2},
		{name: "bad pattern", manifest: "routes:\n  - method: GET\n    pattern: /a\n  - method: GET\n    pattern: /files/*rest/edit\n", wantCode: errors.CodeInvalidPattern, wantLine: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), ManifestFileName, tt.manifest)
			m, err := LoadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if tt.mutate != nil {
				tt.mutate(m)
			}

			err = m.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}

			var re *errors.RouteError
			if !stderrors.As(err, &re) {
				t.Fatalf("Validate() = %v, want RouteError", err)
			}
			if re.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", re.Code, tt.wantCode)
			}
			if tt.wantLine > 0 && (re.Location == nil || re.Location.Line != tt.wantLine) {
				t.Errorf("Location = %v, want line %d", re.Location, tt.wantLine)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatal(err)
	}

	r, err := m.Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	if r.Backend() != router.BackendChi {
		t.Errorf("Backend() = %v, want chi", r.Backend())
	}
	if got := r.CacheStats().Capacity; got != 64 {
		t.Errorf("CacheStats().Capacity = %d, want 64", got)
	}
	// GET /users/:id, GET+HEAD /static/*filepath, POST+PUT /users.
	if r.Len() != 5 {
		t.Errorf("Len() = %d, want 5", r.Len())
	}

	match := r.Find("GET", "/users/42")
	if !match.Found || match.Handler != "users.show" || match.Param("id") != "42" {
		t.Errorf("Find(GET /users/42) = %+v", match)
	}
	match = r.Find("HEAD", "/static/css/site.css")
	if !match.Found || match.Handler != "/static/*filepath" || match.Param("filepath") != "css/site.css" {
		t.Errorf("Find(HEAD /static/css/site.css) = %+v", match)
	}
	if !r.Find("PUT", "/users").Found {
		t.Error("Find(PUT /users) not found")
	}
}

func TestBuildOptionsOverrideManifest(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatal(err)
	}

	r, err := m.Build(router.WithBackend(router.BackendTree), router.WithMaxCacheSize(0))
	if err != nil {
		t.Fatal(err)
	}
	if r.Backend() != router.BackendTree {
		t.Errorf("Backend() = %v, want tree", r.Backend())
	}
	if r.CacheStats().Capacity != 0 {
		t.Errorf("CacheStats().Capacity = %d, want 0", r.CacheStats().Capacity)
	}
}

func TestBuildConflictLocation(t *testing.T) {
	path := writeFile(t, t.TempDir(), ManifestFileName, `routes:
  - method: GET
    pattern: /users/:id
  - method: GET
    pattern: /users/:name/posts
`)
	m, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Build()
	var re *errors.RouteError
	if !stderrors.As(err, &re) {
		t.Fatalf("Build() = %v, want RouteError", err)
	}
	if re.Code != errors.CodeRouteConflict {
		t.Errorf("Code = %s, want %s", re.Code, errors.CodeRouteConflict)
	}
	if !stderrors.Is(err, router.ErrRouteConflict) {
		t.Error("Build error should wrap router.ErrRouteConflict")
	}
	if re.Location == nil || re.Location.Line != 4 {
		t.Errorf("Location = %v, want line 4", re.Location)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ManifestFileName, sampleManifest)

	t.Setenv("ROUTEKIT_ROUTER_BACKEND", "tree")
	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if m.Router.Backend != "tree" {
		t.Errorf("Router.Backend = %q, want tree (env override)", m.Router.Backend)
	}

	t.Setenv("ROUTEKIT_ROUTER_BACKEND", "radix")
	if _, err := Open(path); err == nil {
		t.Error("Open should reject an unknown backend from the environment")
	}
}

func TestFindManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ManifestFileName, sampleManifest)

	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindManifest(nested)
	if err != nil {
		t.Fatalf("FindManifest error: %v", err)
	}
	if got != filepath.Join(root, ManifestFileName) {
		t.Errorf("FindManifest() = %q", got)
	}

	if !Exists(root) {
		t.Error("Exists(root) = false")
	}
	if Exists(nested) {
		t.Error("Exists(nested) = true")
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"150ms", 150 * time.Millisecond, false},
		{"1m30s", 90 * time.Second, false},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		var d Duration
		err := d.UnmarshalText([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("UnmarshalText(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if d.Duration() != tt.want {
			t.Errorf("UnmarshalText(%q) = %v, want %v", tt.in, d.Duration(), tt.want)
		}
	}

	text, _ := Duration(2 * time.Second).MarshalText()
	if string(text) != "2s" {
		t.Errorf("MarshalText() = %q, want 2s", text)
	}
}
