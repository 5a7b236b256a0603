package pulse

import "sync/atomic"

// idCounter hands out identifiers for signals and subscriptions.
// IDs are never reused.
var idCounter atomic.Uint64

func nextID() uint64 {
	return idCounter.Add(1)
}
