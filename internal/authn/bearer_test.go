package authn_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/timgst1/policyd/internal/authn"
)

func writeTempTokenFile(t *testing.T, token string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "token")
	if err := os.WriteFile(p, []byte(token), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}
	return p
}

func TestBearer_AuthenticateSuccess(t *testing.T) {
	path := writeTempTokenFile(t, "secret-token\n")
	a, err := authn.NewBearerFromFile(path)
	if err != nil {
		t.Fatalf("NewBearerFromFile: %v", err)
	}

	sub, err := a.Authenticate(context.Background(), "Bearer secret-token")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if sub.Kind != "bearer" || sub.Name != authn.DefaultTokenSubject {
		t.Fatalf("expected bearer/%s, got %q/%q", authn.DefaultTokenSubject, sub.Kind, sub.Name)
	}
}

func TestBearer_SchemeIsCaseInsensitive(t *testing.T) {
	path := writeTempTokenFile(t, "secret-token")
	a, err := authn.NewBearerFromFile(path)
	if err != nil {
		t.Fatalf("NewBearerFromFile: %v", err)
	}

	if _, err := a.Authenticate(context.Background(), "bearer secret-token"); err != nil {
		t.Fatalf("expected lowercase scheme to be accepted, got: %v", err)
	}
}

func TestBearer_AuthenticateMissingHeader(t *testing.T) {
	path := writeTempTokenFile(t, "secret-token")
	a, err := authn.NewBearerFromFile(path)
	if err != nil {
		t.Fatalf("NewBearerFromFile: %v", err)
	}

	if _, err = a.Authenticate(context.Background(), ""); err == nil {
		t.Fatalf("expected error, got nil")
	}
	if _, err = a.Authenticate(context.Background(), "Basic c2VjcmV0"); err == nil {
		t.Fatalf("expected error for non-bearer scheme, got nil")
	}
}

func TestBearer_AuthenticateWrongToken(t *testing.T) {
	path := writeTempTokenFile(t, "secret-token")
	a, err := authn.NewBearerFromFile(path)
	if err != nil {
		t.Fatalf("NewBearerFromFile: %v", err)
	}

	if _, err = a.Authenticate(context.Background(), "Bearer wrong-token"); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestBearer_MultiTokenMapsToSubject(t *testing.T) {
	content := "# platform callers\nadmin=aaa\nauditor:bbb\n"
	path := writeTempTokenFile(t, content)

	a, err := authn.NewBearerFromFile(path)
	if err != nil {
		t.Fatalf("NewBearerFromFile: %v", err)
	}

	sub, err := a.Authenticate(context.Background(), "Bearer bbb")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if sub.Kind != "bearer" || sub.Name != "auditor" {
		t.Fatalf("expected bearer/auditor, got %q/%q", sub.Kind, sub.Name)
	}
}

func TestBearer_EmptyFile(t *testing.T) {
	path := writeTempTokenFile(t, "  \n")
	if _, err := authn.NewBearerFromFile(path); err == nil {
		t.Fatalf("expected error for empty token file")
	}
}

func TestActorFromContext(t *testing.T) {
	if got := authn.ActorFromContext(context.Background()); got != "system" {
		t.Fatalf("expected system, got %q", got)
	}
	ctx := authn.WithSubject(context.Background(), authn.Subject{Kind: "bearer", Name: "admin"})
	if got := authn.ActorFromContext(ctx); got != "bearer:admin" {
		t.Fatalf("expected bearer:admin, got %q", got)
	}
}
