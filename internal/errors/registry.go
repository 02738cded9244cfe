package errors

// Registered error codes.
const (
	CodeInvalidPattern = "R001"
	CodeRouteConflict  = "R002"
	CodeManifestRead   = "R003"
	CodeManifestParse  = "R004"
	CodeInvalidSetting = "R005"
	CodeInvalidRoute   = "R006"
	CodeServe          = "R007"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	CodeInvalidPattern: {
		Category:   CategoryPattern,
		Message:    "Invalid route pattern",
		Detail:     "Patterns are /-separated segments. A segment starting with ':' binds one path segment, '*' or '*name' binds the rest of the path and must be last.",
		Suggestion: "Check for an empty parameter name, a catch-all that is not the last segment, a repeated parameter name or a '{', '}' or '*' inside a literal.",
	},
	CodeRouteConflict: {
		Category:   CategoryPattern,
		Message:    "Route conflict",
		Detail:     "Every position in the route table holds at most one parameter and one catch-all, and a position cannot hold both.",
		Suggestion: "Use the same parameter name as the existing route at this position.",
	},
	CodeManifestRead: {
		Category: CategoryManifest,
		Message:  "Cannot read route manifest",
		Detail:   "The route manifest file could not be opened.",
	},
	CodeManifestParse: {
		Category:   CategoryManifest,
		Message:    "Invalid route manifest",
		Detail:     "The route manifest is not valid YAML or JSON, or has fields of the wrong type.",
		Suggestion: "Run the manifest through a YAML linter.",
	},
	CodeInvalidSetting: {
		Category: CategoryConfig,
		Message:  "Invalid setting",
		Detail:   "A router setting in the manifest or environment is out of range.",
	},
	CodeInvalidRoute: {
		Category: CategoryManifest,
		Message:  "Invalid route entry",
		Detail:   "Each route needs a pattern and at least one method.",
	},
	CodeServe: {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The explain server stopped with an error.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
