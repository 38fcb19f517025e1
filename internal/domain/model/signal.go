package model

// Scope identifies the subject of a change signal.
type Scope string

// Signal scopes. Observers subscribe by (scope, scopeId) pairs.
const (
	ScopeBidding Scope = "bidding"
	ScopeProject Scope = "project"
	ScopeUser    Scope = "user"
)

// SignalKind distinguishes plain refresh pings from payload-carrying signals.
type SignalKind string

// Signal kinds. Delivery is fire-and-forget and at-least-once; observers must
// treat refresh as idempotent full-snapshot replacement.
const (
	KindRefresh SignalKind = "refresh"
	KindPayload SignalKind = "payload"
)

// Signal is the logical change notification emitted after every successful
// mutation. Data is only set for KindPayload and is applied verbatim by
// observers that opt in.
type Signal struct {
	Scope   Scope      `json:"scope"`
	ScopeID string     `json:"scopeId"`
	Kind    SignalKind `json:"kind"`
	Data    []byte     `json:"data,omitempty"`
}

// Refresh builds a plain refresh signal for a scope.
func Refresh(scope Scope, scopeID string) Signal {
	return Signal{Scope: scope, ScopeID: scopeID, Kind: KindRefresh}
}
