package authn

import (
	"context"
	"crypto/subtle"
	"errors"
	"os"
	"strings"
)

// DefaultTokenSubject names the caller of a token file that holds a single
// bare token.
const DefaultTokenSubject = "default"

type Bearer struct {
	tokenToSubject map[string]string
}

// NewBearerFromFile reads either a single token, or one "subject=token" (or
// "subject:token") pair per line. Lines starting with # are ignored.
func NewBearerFromFile(path string) (*Bearer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(string(b))
	if raw == "" {
		return nil, errors.New("bearer token file is empty")
	}

	m := parseTokenFile(raw)
	if len(m) == 0 {
		return nil, errors.New("no tokens found in token file")
	}

	return &Bearer{tokenToSubject: m}, nil
}

func (a *Bearer) Authenticate(_ context.Context, authorization string) (Subject, error) {
	if authorization == "" {
		return Subject{}, ErrUnauthenticated
	}

	const prefix = "Bearer "
	if len(authorization) < len(prefix) || !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return Subject{}, ErrUnauthenticated
	}

	got := strings.TrimSpace(authorization[len(prefix):])
	if got == "" {
		return Subject{}, ErrUnauthenticated
	}

	for tok, subName := range a.tokenToSubject {
		if subtle.ConstantTimeCompare([]byte(got), []byte(tok)) == 1 {
			return Subject{Kind: "bearer", Name: subName}, nil
		}
	}

	return Subject{}, ErrUnauthenticated
}

func parseTokenFile(raw string) map[string]string {
	out := map[string]string{}

	lines := strings.Split(raw, "\n")
	if len(lines) == 1 && !strings.ContainsAny(lines[0], "=:") {
		out[strings.TrimSpace(lines[0])] = DefaultTokenSubject
		return out
	}

	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "#") {
			continue
		}

		subject, token, ok := strings.Cut(ln, "=")
		if !ok {
			subject, token, ok = strings.Cut(ln, ":")
		}
		if !ok {
			continue
		}
		subject, token = strings.TrimSpace(subject), strings.TrimSpace(token)
		if subject == "" || token == "" {
			continue
		}

		out[token] = subject
	}

	return out
}
