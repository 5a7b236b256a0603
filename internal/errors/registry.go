package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Config (P100-P199)
	"P101": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No pulse.json, pulse.yaml or pulse.yml was found.",
	},
	"P102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed.",
	},
	"P103": {
		Category: CategoryConfig,
		Message:  "Unsupported configuration format",
		Detail:   "Configuration files must end in .json, .yaml or .yml.",
	},
	"P104": {
		Category: CategoryConfig,
		Message:  "Invalid log setting",
		Detail:   "log.level must be debug, info, warn or error and log.format must be text or json.",
	},
	"P105": {
		Category: CategoryConfig,
		Message:  "Invalid overlap policy",
		Detail:   "effects.overlap must be independent, latest, drop or queue.",
	},
	"P106": {
		Category: CategoryConfig,
		Message:  "Invalid queue limit",
		Detail:   "effects.queueLimit must not be negative.",
	},

	// CLI (P200-P299)
	"P201": {
		Category: CategoryCLI,
		Message:  "Demo failed",
		Detail:   "The scripted demo did not reach the expected state.",
	},

	// Inspector (P300-P399)
	"P301": {
		Category: CategoryInspector,
		Message:  "Inspector server failed",
		Detail:   "The inspector HTTP server stopped with an error.",
	},
}

// GetAllCodes returns all registered codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template registered for code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
