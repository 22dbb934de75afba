// Package wellknown holds the public configuration advertised by the
// platform: issuer, health and endpoint details that clients discover
// before authenticating.
package wellknown

import (
	"encoding/hex"
	"fmt"
	"maps"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wellknown: CBOR encoder initialization failed: " + err.Error())
	}
}

// Registry is safe for concurrent use. Entries are registered once at
// startup by the components that own them.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]any
}

func NewRegistry() *Registry {
	return &Registry{entries: map[string]any{}}
}

// Register adds the configuration of one component. Registering the same
// namespace twice is an error.
func (r *Registry) Register(namespace string, config any) error {
	if namespace == "" {
		return fmt.Errorf("wellknown: empty namespace")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[namespace]; exists {
		return fmt.Errorf("wellknown: namespace %q already registered", namespace)
	}
	r.entries[namespace] = config
	return nil
}

func (r *Registry) Configuration() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.entries)
}

// Fingerprint is a BLAKE3 digest over the deterministic CBOR encoding of
// the configuration. It changes whenever any entry changes and is used as
// the HTTP entity tag.
func (r *Registry) Fingerprint() (string, error) {
	b, err := encMode.Marshal(r.Configuration())
	if err != nil {
		return "", fmt.Errorf("wellknown: encode configuration: %w", err)
	}
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
