package ports

// DenialHandler is called when a policy check denies a request.
// Implementations can log, collect metrics, or take other actions.
type DenialHandler interface {
	// OnDenial is called when an event is denied.
	// kind: "fs", "env", "exec", "network", "http", "malformed"
	// request: the denied entities.Event
	// reason: human-readable denial reason
	OnDenial(kind string, request interface{}, reason string)
}
