package authn

import "context"

// Noop accepts every caller as the anonymous subject. Used when no token
// file is configured.
type Noop struct{}

func (Noop) Authenticate(context.Context, string) (Subject, error) {
	return Subject{Kind: "none", Name: "anonymous"}, nil
}
