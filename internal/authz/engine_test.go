package authz_test

import (
	"testing"

	"github.com/timgst1/policyd/internal/authn"
	"github.com/timgst1/policyd/internal/authz"
	"github.com/timgst1/policyd/internal/rbac"
)

func baseDoc() *rbac.Document {
	return &rbac.Document{
		APIVersion: rbac.APIVersion,
		Kind:       rbac.Kind,
		Subjects: []rbac.Subject{
			{Name: "auditor", Match: rbac.Match{Kind: "bearer", Name: "audit"}},
			{Name: "admin", Match: rbac.Match{Kind: "bearer", Name: "root"}},
		},
		Roles: []rbac.Role{
			{
				Name: "reader",
				Permissions: []rbac.Permission{
					{Action: "read", KeyPrefix: "policy/attributes/"},
					{Action: "list", KeyExact: "policy/namespaces"},
				},
			},
			{
				Name:        "everything",
				Permissions: []rbac.Permission{{Action: "*", KeyPrefix: "policy/"}},
			},
		},
		Bindings: []rbac.Binding{
			{Subject: "auditor", Roles: []string{"reader"}},
			{Subject: "admin", Roles: []string{"everything"}},
		},
	}
}

var auditor = authn.Subject{Kind: "bearer", Name: "audit"}

func TestAllowByPrefix(t *testing.T) {
	cp, err := authz.Compile(baseDoc())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	dec := cp.Evaluate(auditor, authz.ActionRead, authz.ResourceAttributeValues)
	if !dec.Allowed {
		t.Fatalf("expected allowed, got deny: %s", dec.Reason)
	}
}

func TestPrefixCoversItsOwnRoot(t *testing.T) {
	cp, _ := authz.Compile(baseDoc())

	dec := cp.Evaluate(auditor, authz.ActionRead, authz.ResourceAttributes)
	if !dec.Allowed {
		t.Fatalf("expected allowed, got deny: %s", dec.Reason)
	}
}

func TestPrefixDoesNotCoverSiblings(t *testing.T) {
	cp, _ := authz.Compile(baseDoc())

	dec := cp.Evaluate(auditor, authz.ActionRead, "policy/attributes-archive")
	if dec.Allowed {
		t.Fatalf("expected deny, got allow: %s", dec.Reason)
	}
}

func TestAllowByExact(t *testing.T) {
	cp, _ := authz.Compile(baseDoc())

	dec := cp.Evaluate(auditor, authz.ActionList, "/"+authz.ResourceNamespaces)
	if !dec.Allowed {
		t.Fatalf("expected allowed, got deny: %s", dec.Reason)
	}
}

func TestWildcardAction(t *testing.T) {
	cp, _ := authz.Compile(baseDoc())

	admin := authn.Subject{Kind: "bearer", Name: "root"}
	dec := cp.Evaluate(admin, authz.ActionWrite, authz.ResourceSubjectMappings)
	if !dec.Allowed {
		t.Fatalf("expected allowed, got deny: %s", dec.Reason)
	}
}

func TestDenyWrongSubject(t *testing.T) {
	cp, _ := authz.Compile(baseDoc())

	sub := authn.Subject{Kind: "bearer", Name: "someone-else"}
	dec := cp.Evaluate(sub, authz.ActionRead, authz.ResourceAttributes)
	if dec.Allowed {
		t.Fatalf("expected deny, got allow")
	}
}

func TestDenyWrongAction(t *testing.T) {
	cp, _ := authz.Compile(baseDoc())

	dec := cp.Evaluate(auditor, authz.ActionWrite, authz.ResourceAttributes)
	if dec.Allowed {
		t.Fatalf("expected deny, got allow")
	}
}

func TestCompileDuplicateSubjectMatch(t *testing.T) {
	doc := baseDoc()

	// same match twice is ambiguous
	doc.Subjects = append(doc.Subjects, rbac.Subject{Name: "auditor-2", Match: rbac.Match{Kind: "bearer", Name: "audit"}})

	if _, err := authz.Compile(doc); err == nil {
		t.Fatalf("expected compile error for duplicate subject match, got nil")
	}
}

type staticSource struct{ doc *rbac.Document }

func (s *staticSource) Current() (*rbac.Document, bool) { return s.doc, s.doc != nil }

func TestRuntimeAuthorizerFollowsSource(t *testing.T) {
	src := &staticSource{}
	a := authz.NewRuntimeAuthorizer(src)

	if dec := a.Evaluate(auditor, authz.ActionRead, authz.ResourceAttributes); dec.Allowed {
		t.Fatalf("expected deny without document")
	}

	src.doc = baseDoc()
	if dec := a.Evaluate(auditor, authz.ActionRead, authz.ResourceAttributes); !dec.Allowed {
		t.Fatalf("expected allowed, got deny: %s", dec.Reason)
	}

	next := baseDoc()
	next.Bindings = nil
	src.doc = next
	if dec := a.Evaluate(auditor, authz.ActionRead, authz.ResourceAttributes); dec.Allowed {
		t.Fatalf("expected deny after bindings were removed")
	}
}

func TestCheck(t *testing.T) {
	cp, _ := authz.Compile(baseDoc())

	if dec := authz.Check(cp, auditor, nil); dec.Allowed {
		t.Fatalf("expected deny for missing rule")
	}
	if dec := authz.Check(cp, authn.Subject{}, &authz.Rule{Public: true}); !dec.Allowed {
		t.Fatalf("expected public rule to allow")
	}
	rule := &authz.Rule{Action: authz.ActionList, Resource: authz.ResourceNamespaces}
	if dec := authz.Check(cp, auditor, rule); !dec.Allowed {
		t.Fatalf("expected allowed, got deny: %s", dec.Reason)
	}
	if dec := authz.Check(authz.AllowAll{}, authn.Subject{}, rule); !dec.Allowed {
		t.Fatalf("expected AllowAll to allow")
	}
}
