package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/routekit/pkg/router"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"invalid pattern", CodeInvalidPattern, "Invalid route pattern", CategoryPattern},
		{"conflict", CodeRouteConflict, "Route conflict", CategoryPattern},
		{"manifest parse", CodeManifestParse, "Invalid route manifest", CategoryManifest},
		{"setting", CodeInvalidSetting, "Invalid setting", CategoryConfig},
		{"unknown", "R999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "unknown method %q", "FETCH")
	if err.Error() != `unknown method "FETCH"` {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestRouteErrorError(t *testing.T) {
	cause := stderrors.New("boom")
	tests := []struct {
		err  *RouteError
		want string
	}{
		{&RouteError{Message: "plain"}, "plain"},
		{&RouteError{Code: "R001", Message: "coded"}, "R001: coded"},
		{New(CodeManifestRead).Wrap(cause), "R003: Cannot read route manifest: boom"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestFromErrorMapsRouterErrors(t *testing.T) {
	r := router.New()
	r.MustAdd("GET", "/users/:id", "h")

	tests := []struct {
		name     string
		err      error
		wantCode string
		is       error
	}{
		{"invalid pattern", r.Add("GET", "/a/*b/c", "h"), CodeInvalidPattern, router.ErrInvalidPattern},
		{"conflict", r.Add("GET", "/users/:name", "h"), CodeRouteConflict, router.ErrRouteConflict},
		{"backend", func() error { _, err := router.ParseBackendKind("x"); return err }(), CodeInvalidSetting, router.ErrUnknownBackend},
		{"other", stderrors.New("disk"), CodeManifestRead, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := FromError(tt.err, CodeManifestRead)
			if re.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", re.Code, tt.wantCode)
			}
			if tt.is != nil && !stderrors.Is(re, tt.is) {
				t.Errorf("errors.Is(%v, %v) = false", re, tt.is)
			}
		})
	}

	if FromError(nil, CodeServe) != nil {
		t.Error("FromError(nil) should be nil")
	}

	orig := New(CodeInvalidRoute)
	if FromError(orig, CodeServe) != orig {
		t.Error("FromError should return an existing RouteError unchanged")
	}
}

func TestLocationString(t *testing.T) {
	tests := []struct {
		loc  *Location
		want string
	}{
		{nil, ""},
		{&Location{File: "routes.yaml", Line: 3}, "routes.yaml:3"},
		{&Location{File: "routes.yaml", Line: 3, Column: 7}, "routes.yaml:3:7"},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func writeManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.yaml")
	content := `routes:
  - method: GET
    pattern: /users/:id
  - method: GET
    pattern: /files/*path/edit
    handler: files.edit
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWithLocationReadsContext(t *testing.T) {
	path := writeManifest(t)
	err := New(CodeInvalidPattern).WithLocation(path, 5, 14)

	want := []string{
		"    pattern: /users/:id",
		"  - method: GET",
		"    pattern: /files/*path/edit",
		"    handler: files.edit",
	}
	if len(err.Context) != len(want) {
		t.Fatalf("Context = %q, want %q", err.Context, want)
	}
	for i := range want {
		if err.Context[i] != want[i] {
			t.Errorf("Context[%d] = %q, want %q", i, err.Context[i], want[i])
		}
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	path := writeManifest(t)
	err := New(CodeInvalidPattern).
		Wrap(stderrors.New(`router: invalid pattern "/files/*path/edit"`)).
		WithLocation(path, 5, 14)

	formatted := err.Format()
	for _, want := range []string{
		"ERROR R001: Invalid route pattern",
		path + ":5:14",
		"→    5 │     pattern: /files/*path/edit",
		"Hint:",
		`router: invalid pattern "/files/*path/edit"`,
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() missing %q:\n%s", want, formatted)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New(CodeRouteConflict)
	err.Location = &Location{File: "routes.yaml", Line: 10, Column: 5}

	want := "routes.yaml:10:5: R002: Route conflict"
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New(CodeManifestParse).Wrap(stderrors.New("yaml: line 2"))
	err.Location = &Location{File: "routes.yaml", Line: 2}

	var got map[string]any
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &got); jerr != nil {
		t.Fatalf("FormatJSON is not valid JSON: %v", jerr)
	}
	if got["code"] != "R004" {
		t.Errorf("code = %v, want R004", got["code"])
	}
	if got["category"] != "manifest" {
		t.Errorf("category = %v, want manifest", got["category"])
	}
	if got["cause"] != "yaml: line 2" {
		t.Errorf("cause = %v", got["cause"])
	}
	loc, _ := got["location"].(map[string]any)
	if loc["line"] != float64(2) {
		t.Errorf("location.line = %v, want 2", loc["line"])
	}
}

func TestPrintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	PrintError(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("PrintError(plain) = %q", buf.String())
	}

	buf.Reset()
	PrintError(&buf, New(CodeServe))
	if !strings.Contains(buf.String(), "R007") {
		t.Errorf("PrintError(RouteError) = %q", buf.String())
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	for _, code := range []string{CodeInvalidPattern, CodeRouteConflict, CodeManifestRead, CodeManifestParse, CodeInvalidSetting, CodeInvalidRoute, CodeServe} {
		found := false
		for _, c := range codes {
			if c == code {
				found = true
			}
		}
		if !found {
			t.Errorf("GetAllCodes() missing %s", code)
		}
		if _, ok := GetTemplate(code); !ok {
			t.Errorf("GetTemplate(%s) not found", code)
		}
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 30), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q longer than 20", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(empty) should be nil")
	}
}
