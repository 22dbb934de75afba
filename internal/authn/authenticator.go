// Package authn identifies the caller of an RPC or HTTP request.
package authn

import (
	"context"
	"errors"
)

type Subject struct {
	Kind string
	Name string
}

func (s Subject) String() string {
	return s.Kind + ":" + s.Name
}

// Authenticator resolves the value of an Authorization header (or the
// "authorization" gRPC metadata entry) into a Subject.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (Subject, error)
}

var ErrUnauthenticated = errors.New("unauthenticated")

type ctxKey int

const subjectKey ctxKey = iota

func WithSubject(ctx context.Context, sub Subject) context.Context {
	return context.WithValue(ctx, subjectKey, sub)
}

func SubjectFromContext(ctx context.Context) (Subject, bool) {
	v := ctx.Value(subjectKey)
	if v == nil {
		return Subject{}, false
	}
	sub, ok := v.(Subject)
	return sub, ok
}

// ActorFromContext names the caller for audit fields and change events.
func ActorFromContext(ctx context.Context) string {
	if sub, ok := SubjectFromContext(ctx); ok {
		return sub.String()
	}
	return "system"
}
