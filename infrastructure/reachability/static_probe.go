package reachability

import (
	"context"

	"neuralmesh/application/ports"
)

// StaticProbe reports fixed reachability. Offline stations pin both
// endpoints false so the replication driver always queues; tests use it
// to force a specific mode.
type StaticProbe struct {
	store bool
	relay bool
}

// NewStaticProbe creates a probe with fixed answers
func NewStaticProbe(store, relay bool) ports.ReachabilityProbe {
	return &StaticProbe{store: store, relay: relay}
}

// IsPrimaryStoreReachable returns the fixed store answer
func (p *StaticProbe) IsPrimaryStoreReachable(ctx context.Context) bool {
	return p.store
}

// IsRelayReachable returns the fixed relay answer
func (p *StaticProbe) IsRelayReachable(ctx context.Context) bool {
	return p.relay
}
