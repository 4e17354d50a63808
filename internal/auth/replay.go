// Package auth contains session issuance, verification, and the OAuth
// callback flow coordination.
package auth

import "sync"

// ReplayGuard tracks authorization codes currently being redeemed and admits
// at most one concurrent redemption per code. Codes are provider-side
// single-use, so the guard only prevents concurrent double-spend within this
// process; a completed code may be submitted again and will fail upstream.
type ReplayGuard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewReplayGuard creates an empty guard. One instance is created at service
// startup and injected into the flow coordinator.
func NewReplayGuard() *ReplayGuard {
	return &ReplayGuard{inflight: make(map[string]struct{})}
}

// Begin attempts to admit a redemption for code. The membership check and
// insert happen under one lock acquisition; two concurrent calls for the
// same code see exactly one true result.
func (g *ReplayGuard) Begin(code string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, inFlight := g.inflight[code]; inFlight {
		return false
	}
	g.inflight[code] = struct{}{}
	return true
}

// End releases the marker for code. Callers must invoke it on every exit
// path of an admitted redemption, typically via defer.
func (g *ReplayGuard) End(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, code)
}

// InFlight reports whether a redemption for code is currently admitted.
func (g *ReplayGuard) InFlight(code string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, inFlight := g.inflight[code]
	return inFlight
}
