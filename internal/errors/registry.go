package errors

import (
	"maps"
	"slices"
)

// ErrorTemplate is the registered shape of a coded error: its category,
// the one-line message, the longer explanation, and the docs link.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Resolution Errors (E001-E019)
	// ============================================

	"E001": {
		Category: CategoryResolve,
		Message:  "No route matches location",
		Detail:   "The location does not match any route template in the tree, and no redirect rule sent it somewhere that does.",
		DocURL:   "https://wayfinder.dev/docs/errors/E001",
	},
	"E002": {
		Category: CategoryResolve,
		Message:  "Redirect limit exceeded",
		Detail:   "The resolution pass followed more redirects than the configured limit allows. A chain of distinct redirects this long usually means two rules are deferring to each other.",
		DocURL:   "https://wayfinder.dev/docs/errors/E002",
	},
	"E003": {
		Category: CategoryResolve,
		Message:  "Redirect loop detected",
		Detail:   "A redirect rule sent the pass back to a location it already visited. The trace shows the cycle.",
		DocURL:   "https://wayfinder.dev/docs/errors/E003",
	},
	"E004": {
		Category: CategoryResolve,
		Message:  "Redirect rule failed",
		Detail:   "A redirect rule returned a target that could not be canonicalized.",
		DocURL:   "https://wayfinder.dev/docs/errors/E004",
	},
	"E005": {
		Category: CategoryResolve,
		Message:  "Resolution canceled",
		Detail:   "The context was canceled before the pass reached a stable location.",
		DocURL:   "https://wayfinder.dev/docs/errors/E005",
	},

	// ============================================
	// Manifest Errors (E020-E039)
	// ============================================

	"E020": {
		Category: CategoryManifest,
		Message:  "Manifest parse failed",
		Detail:   "The manifest is not valid JSON, or it contains fields the schema does not define.",
		DocURL:   "https://wayfinder.dev/docs/errors/E020",
	},
	"E021": {
		Category: CategoryManifest,
		Message:  "Route has no path",
		Detail:   "Every route entry in a manifest needs a path template.",
		DocURL:   "https://wayfinder.dev/docs/errors/E021",
	},
	"E022": {
		Category: CategoryManifest,
		Message:  "Bad redirect target",
		Detail:   "A redirect_to value must be a rooted location like \"/login\". Absolute URLs and relative paths are not navigable.",
		DocURL:   "https://wayfinder.dev/docs/errors/E022",
	},
	"E023": {
		Category: CategoryManifest,
		Message:  "Manifest file not found",
		Detail:   "The configured manifest path does not exist.",
		DocURL:   "https://wayfinder.dev/docs/errors/E023",
	},
	"E024": {
		Category: CategoryManifest,
		Message:  "Invalid route template",
		Detail:   "A route template failed to compile. Templates are literal segments, :name parameters, and a trailing *splat.",
		DocURL:   "https://wayfinder.dev/docs/errors/E024",
	},

	// ============================================
	// Protocol Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryProtocol,
		Message:  "WebSocket upgrade failed",
		Detail:   "The HTTP connection could not be upgraded to a WebSocket.",
		DocURL:   "https://wayfinder.dev/docs/errors/E060",
	},
	"E061": {
		Category: CategoryProtocol,
		Message:  "Unknown message type",
		Detail:   "The client sent a message type the protocol does not define. Clients send \"navigate\" and \"refresh\".",
		DocURL:   "https://wayfinder.dev/docs/errors/E061",
	},
	"E062": {
		Category: CategoryProtocol,
		Message:  "Navigate without location",
		Detail:   "A navigate message must carry the location to resolve.",
		DocURL:   "https://wayfinder.dev/docs/errors/E062",
	},
	"E063": {
		Category: CategoryProtocol,
		Message:  "Origin rejected",
		Detail:   "The WebSocket handshake came from an origin the server does not accept.",
		DocURL:   "https://wayfinder.dev/docs/errors/E063",
	},

	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Config parse failed",
		Detail:   "wayfinder.json is not valid JSON, or it contains fields the schema does not define.",
		DocURL:   "https://wayfinder.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "The server port must be between 0 and 65535.",
		DocURL:   "https://wayfinder.dev/docs/errors/E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid redirect limit",
		Detail:   "The redirect limit cannot be negative. Omit it to use the default of 5.",
		DocURL:   "https://wayfinder.dev/docs/errors/E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Unknown log level",
		Detail:   "Log level must be one of: debug, info, warn, error.",
		DocURL:   "https://wayfinder.dev/docs/errors/E123",
	},
	"E124": {
		Category: CategoryConfig,
		Message:  "Unknown log format",
		Detail:   "Log format must be \"text\" or \"json\".",
		DocURL:   "https://wayfinder.dev/docs/errors/E124",
	},
	"E125": {
		Category: CategoryConfig,
		Message:  "Invalid duration",
		Detail:   "Durations are Go duration strings like \"30s\" or \"1m30s\".",
		DocURL:   "https://wayfinder.dev/docs/errors/E125",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Project already configured",
		Detail:   "A wayfinder.json already exists here.",
		DocURL:   "https://wayfinder.dev/docs/errors/E140",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "No wayfinder.json found",
		Detail:   "The command needs a project configuration and none was found in this directory or any parent.",
		DocURL:   "https://wayfinder.dev/docs/errors/E141",
	},
	"E142": {
		Category: CategoryCLI,
		Message:  "Bad location argument",
		Detail:   "Locations are rooted paths with an optional query, like \"/family/1?tab=people\".",
		DocURL:   "https://wayfinder.dev/docs/errors/E142",
	},
	"E143": {
		Category: CategoryCLI,
		Message:  "Route name not found",
		Detail:   "No route in the tree carries this name.",
		DocURL:   "https://wayfinder.dev/docs/errors/E143",
	},
}

// GetAllCodes returns every registered error code in sorted order.
func GetAllCodes() []string {
	return slices.Sorted(maps.Keys(registry))
}

// GetTemplate returns the template registered for code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds an error template under code, replacing any existing
// registration.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
