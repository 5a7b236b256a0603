package pulse

// Conventional Store keys read by async effects.
const (
	StoreLoading = "loading"
	StoreError   = "error"
)

// Store is an application-defined collection of named signals. Async effects
// write true/false to the "loading" entry and the failure to the "error"
// entry when they are present; other entries are left to the application.
type Store map[string]AnySignal

// NewStore returns a store holding a "loading" *Signal[bool] set to false
// and an "error" *Signal[error] set to nil.
func NewStore() Store {
	return Store{
		StoreLoading: NewSignal(false),
		StoreError:   NewSignal[error](nil),
	}
}

// Loading returns the "loading" entry when it is a *Signal[bool].
func (s Store) Loading() *Signal[bool] {
	sig, _ := s[StoreLoading].(*Signal[bool])
	return sig
}

// Err returns the "error" entry when it is a *Signal[error].
func (s Store) Err() *Signal[error] {
	sig, _ := s[StoreError].(*Signal[error])
	return sig
}

// Has reports whether the store holds a signal under key.
func (s Store) Has(key string) bool {
	sig, ok := s[key]
	return ok && sig != nil
}

// set writes value to the entry under key. A missing entry is not an error.
func (s Store) set(key string, value any) error {
	sig, ok := s[key]
	if !ok || sig == nil {
		return nil
	}
	return sig.SetAny(value)
}
