// Package beacon folds an organization and a session token into the two
// 16-bit fields of a BLE beacon advertisement (major/minor). The encoding is
// a discovery hint only: the token hash is lossy and one-way, so scanners
// must still present the full token to check in.
package beacon

import "sync"

// ReservedOrgCode is returned for organizations with no assigned code.
// Clients treat a zero major field as an invalid advertisement.
const ReservedOrgCode uint16 = 0

// TokenHash folds a token into a 16-bit integer with a rolling hash:
// h = (h*31 + c) mod 65536 over every character.
func TokenHash(token string) uint16 {
	var h uint32
	for i := 0; i < len(token); i++ {
		h = (h*31 + uint32(token[i])) % 65536
	}
	return uint16(h)
}

// Registry maps organization slugs to their beacon major codes. Codes are
// assigned once at onboarding; lookups are concurrent-read safe.
type Registry struct {
	mu    sync.RWMutex
	codes map[string]uint16
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codes: make(map[string]uint16)}
}

// Register assigns a code to a slug, replacing any previous assignment.
func (r *Registry) Register(slug string, code uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[slug] = code
}

// OrgCode returns the code assigned to slug, or ReservedOrgCode when the
// slug is unknown.
func (r *Registry) OrgCode(slug string) uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.codes[slug]
	if !ok {
		return ReservedOrgCode
	}
	return code
}

// Snapshot returns a copy of all assignments, for diagnostics.
func (r *Registry) Snapshot() map[string]uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]uint16, len(r.codes))
	for slug, code := range r.codes {
		out[slug] = code
	}
	return out
}
