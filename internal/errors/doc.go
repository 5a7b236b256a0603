// Package errors provides coded, actionable errors for the pulse CLI and
// its configuration loader.
//
// Each error has a code (e.g. "P101") registered with a category, a short
// message and a longer detail:
//
//	err := errors.New("P101").
//	    WithDetail("No pulse.json or pulse.yaml found in /srv/app").
//	    WithSuggestion("Pass --config or create pulse.yaml")
//
//	errors.PrintError(err)
//	// ERROR P101: Configuration file not found
//	//
//	//   No pulse.json or pulse.yaml found in /srv/app
//	//
//	//   Hint: Pass --config or create pulse.yaml
//
// Codes are grouped by category: P1xx config, P2xx cli, P3xx inspector.
package errors
