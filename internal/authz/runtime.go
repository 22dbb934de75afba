package authz

import (
	"fmt"
	"sync"

	"github.com/timgst1/policyd/internal/authn"
	"github.com/timgst1/policyd/internal/rbac"
)

type DocumentSource interface {
	Current() (*rbac.Document, bool)
}

// RuntimeAuthorizer recompiles only when the source hands out a new document.
type RuntimeAuthorizer struct {
	src DocumentSource

	mu       sync.RWMutex
	lastDoc  *rbac.Document
	compiled *CompiledPolicy
}

func NewRuntimeAuthorizer(src DocumentSource) *RuntimeAuthorizer {
	return &RuntimeAuthorizer{src: src}
}

func (a *RuntimeAuthorizer) Evaluate(subject authn.Subject, action, key string) Decision {
	doc, ok := a.src.Current()
	if !ok || doc == nil {
		return Deny("no rbac policy available")
	}

	a.mu.RLock()
	if doc == a.lastDoc && a.compiled != nil {
		cp := a.compiled
		a.mu.RUnlock()
		return cp.Evaluate(subject, action, key)
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// another caller may have compiled it meanwhile
	if doc != a.lastDoc || a.compiled == nil {
		cp, err := Compile(doc)
		if err != nil {
			return Deny(fmt.Sprintf("rbac compile error: %v", err))
		}
		a.lastDoc = doc
		a.compiled = cp
	}

	return a.compiled.Evaluate(subject, action, key)
}
