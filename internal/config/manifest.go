package config

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/pkg/router"
)

const (
	// ManifestFileName is the name of the route manifest.
	ManifestFileName = "routes.yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "ROUTEKIT_"

	// DefaultAddr is the default explain server address.
	DefaultAddr = ":8080"
)

// Manifest is a route table plus the settings used to build a router from it.
type Manifest struct {
	// Router configures the router built from the manifest.
	Router RouterConfig `yaml:"router" envPrefix:"ROUTER_"`

	// Server configures the explain server.
	Server ServerConfig `yaml:"server" envPrefix:"SERVER_"`

	// Routes is the route table, in registration order.
	Routes []RouteEntry `yaml:"routes" env:"-"`

	// path stores the file the manifest was loaded from.
	path string
}

// RouterConfig holds router settings.
type RouterConfig struct {
	// Backend is "tree" (default) or "chi".
	Backend string `yaml:"backend" env:"BACKEND"`

	// MaxCacheSize is the match cache capacity. Nil keeps the router
	// default; 0 disables the cache.
	MaxCacheSize *int `yaml:"maxCacheSize" env:"MAX_CACHE_SIZE"`
}

// ServerConfig holds explain server settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr" env:"ADDR"`

	// ReloadDebounce delays a reload after the manifest changes.
	ReloadDebounce Duration `yaml:"reloadDebounce" env:"RELOAD_DEBOUNCE"`
}

// RouteEntry is one manifest entry. Method and Methods are merged.
type RouteEntry struct {
	Method  string   `yaml:"method"`
	Methods []string `yaml:"methods"`
	Pattern string   `yaml:"pattern"`

	// Handler labels the route in match output. Defaults to Pattern.
	Handler string `yaml:"handler"`

	// Line and Column locate the entry in the manifest.
	Line   int `yaml:"-"`
	Column int `yaml:"-"`
}

// UnmarshalYAML implements yaml.Unmarshaler, recording the entry position.
func (r *RouteEntry) UnmarshalYAML(value *yaml.Node) error {
	type plain RouteEntry
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = RouteEntry(p)
	r.Line = value.Line
	r.Column = value.Column
	return nil
}

// MethodList returns the upper-cased, de-duplicated methods of the entry.
func (r RouteEntry) MethodList() []string {
	var out []string
	for _, m := range append([]string{r.Method}, r.Methods...) {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m != "" && !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}

// HandlerName returns the handler label.
func (r RouteEntry) HandlerName() string {
	if r.Handler != "" {
		return r.Handler
	}
	return r.Pattern
}

// New creates an empty Manifest with default settings.
func New() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// Load reads routes.yaml from dir.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, ManifestFileName))
}

// LoadFile reads a manifest from path. JSON manifests parse as well.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeManifestRead).
				WithDetail("No route manifest at " + path).
				WithSuggestion("Pass the manifest with -f or create " + ManifestFileName)
		}
		return nil, errors.New(errors.CodeManifestRead).Wrap(err)
	}

	m, err := Parse(data)
	if err != nil {
		if re, ok := err.(*errors.RouteError); ok {
			if line := yamlErrorLine(re.Wrapped); line > 0 {
				re.WithLocation(path, line, 0)
			}
		}
		return nil, err
	}
	m.path = path
	return m, nil
}

// Parse decodes a manifest and applies defaults. It does not validate.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, errors.New(errors.CodeManifestParse).Wrap(err)
	}
	m.applyDefaults()
	return m, nil
}

// yamlErrorLine extracts N from yaml errors of the form "yaml: line N: ...".
func yamlErrorLine(err error) int {
	if err == nil {
		return 0
	}
	msg := err.Error()
	_, rest, ok := strings.Cut(msg, "line ")
	if !ok {
		return 0
	}
	end := strings.IndexByte(rest, ':')
	if end < 0 {
		return 0
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0
	}
	return n
}

// ApplyEnv overrides settings from ROUTEKIT_* environment variables,
// for example ROUTEKIT_ROUTER_BACKEND or ROUTEKIT_SERVER_ADDR.
func (m *Manifest) ApplyEnv() error {
	if err := env.ParseWithOptions(m, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.New(errors.CodeInvalidSetting).
			Wrap(err).
			WithSuggestion("Check the " + EnvPrefix + "* environment variables")
	}
	m.applyDefaults()
	return nil
}

// applyDefaults fills in default values for empty fields.
func (m *Manifest) applyDefaults() {
	if m.Router.Backend == "" {
		m.Router.Backend = router.BackendTree.String()
	}
	if m.Server.Addr == "" {
		m.Server.Addr = DefaultAddr
	}
	if m.Server.ReloadDebounce == 0 {
		m.Server.ReloadDebounce = DefaultReloadDebounce
	}
}

// Validate checks settings and every route entry. It reports the first
// problem found.
func (m *Manifest) Validate() error {
	if _, err := router.ParseBackendKind(m.Router.Backend); err != nil {
		return errors.New(errors.CodeInvalidSetting).
			Wrap(err).
			WithSuggestion(`Set router.backend to "tree" or "chi"`)
	}
	if n := m.Router.MaxCacheSize; n != nil && *n < 0 {
		return errors.New(errors.CodeInvalidSetting).
			WithDetail("router.maxCacheSize must be 0 or more, got " + strconv.Itoa(*n)).
			WithSuggestion("Use 0 to disable the match cache")
	}
	if m.Server.ReloadDebounce < 0 {
		return errors.New(errors.CodeInvalidSetting).
			WithDetail("server.reloadDebounce must not be negative")
	}

	for _, rs := range m.Routes {
		if strings.TrimSpace(rs.Pattern) == "" {
			return m.locate(errors.New(errors.CodeInvalidRoute).
				WithDetail("Route entry has no pattern"), rs)
		}
		if len(rs.MethodList()) == 0 {
			return m.locate(errors.New(errors.CodeInvalidRoute).
				WithDetail("Route "+rs.Pattern+" has no method").
				WithSuggestion("Add method: GET or methods: [GET, HEAD]"), rs)
		}
		if _, err := router.CanonicalPattern(rs.Pattern); err != nil {
			return m.locate(errors.FromError(err, errors.CodeInvalidRoute), rs)
		}
	}
	return nil
}

// Build creates a router from the manifest. Settings from the manifest are
// applied first so opts can override them. Conflicts between entries are
// reported at the entry that was rejected.
func (m *Manifest) Build(opts ...router.Option) (*router.Router, error) {
	kind, err := router.ParseBackendKind(m.Router.Backend)
	if err != nil {
		return nil, errors.FromError(err, errors.CodeInvalidSetting)
	}

	base := []router.Option{router.WithBackend(kind)}
	if m.Router.MaxCacheSize != nil {
		base = append(base, router.WithMaxCacheSize(*m.Router.MaxCacheSize))
	}
	r := router.New(append(base, opts...)...)

	for _, rs := range m.Routes {
		for _, method := range rs.MethodList() {
			if err := r.Add(method, rs.Pattern, rs.HandlerName()); err != nil {
				return nil, m.locate(errors.FromError(err, errors.CodeInvalidRoute), rs)
			}
		}
	}
	return r, nil
}

// locate attaches the manifest position of rs to err when known.
func (m *Manifest) locate(err *errors.RouteError, rs RouteEntry) *errors.RouteError {
	if m.path != "" && rs.Line > 0 {
		err.WithLocation(m.path, rs.Line, rs.Column)
	}
	return err
}

// Path returns the path the manifest was loaded from.
func (m *Manifest) Path() string {
	return m.path
}

// Open loads the manifest at path, applies environment overrides and
// validates it.
func Open(path string) (*Manifest, error) {
	m, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := m.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Exists reports whether dir holds a route manifest.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ManifestFileName))
	return err == nil
}

// FindManifest walks up from startDir and returns the path of the first
// routes.yaml found.
func FindManifest(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return filepath.Join(dir, ManifestFileName), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeManifestRead).
				WithDetail("No " + ManifestFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Pass the manifest with -f")
		}
		dir = parent
	}
}
