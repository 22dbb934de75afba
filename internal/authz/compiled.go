package authz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/timgst1/policyd/internal/authn"
	"github.com/timgst1/policyd/internal/rbac"
)

type CompiledPolicy struct {
	// kind:name -> subject alias from the document
	subjectAliasByMatch map[string]string

	// subject alias -> role names
	rolesBySubject map[string][]string

	// role name -> permissions
	permsByRole map[string][]permission
}

type permission struct {
	Action    string
	KeyPrefix string
	KeyExact  string
}

func (p permission) allows(action, key string) bool {
	if p.Action != actionAny && p.Action != action {
		return false
	}
	if p.KeyExact != "" && key == normalizeKey(p.KeyExact) {
		return true
	}
	// "policy/attributes/" covers "policy/attributes" itself too.
	return p.KeyPrefix != "" && strings.HasPrefix(key+"/", normalizeKey(p.KeyPrefix))
}

func Compile(doc *rbac.Document) (*CompiledPolicy, error) {
	if doc == nil {
		return nil, errors.New("rbac document is nil")
	}

	cp := &CompiledPolicy{
		subjectAliasByMatch: map[string]string{},
		rolesBySubject:      map[string][]string{},
		permsByRole:         map[string][]permission{},
	}

	for _, s := range doc.Subjects {
		mk := matchKey(s.Match.Kind, s.Match.Name)
		if mk == ":" {
			return nil, fmt.Errorf("rbac: subject match kind/name missing for subject %q", s.Name)
		}
		if _, exists := cp.subjectAliasByMatch[mk]; exists {
			return nil, fmt.Errorf("rbac: duplicate subject match %q", mk)
		}
		cp.subjectAliasByMatch[mk] = s.Name
	}

	for _, r := range doc.Roles {
		var perms []permission
		for _, p := range r.Permissions {
			perms = append(perms, permission{
				Action:    strings.ToLower(strings.TrimSpace(p.Action)),
				KeyPrefix: p.KeyPrefix,
				KeyExact:  p.KeyExact,
			})
		}
		cp.permsByRole[r.Name] = perms
	}

	for _, b := range doc.Bindings {
		cp.rolesBySubject[b.Subject] = append(cp.rolesBySubject[b.Subject], b.Roles...)
	}

	return cp, nil
}

func (cp *CompiledPolicy) Evaluate(subject authn.Subject, action, key string) Decision {
	if cp == nil {
		return Deny("no rbac policy loaded")
	}

	action = strings.ToLower(strings.TrimSpace(action))
	key = normalizeKey(key)
	if key == "" {
		return Deny("empty resource")
	}

	alias, ok := cp.subjectAliasByMatch[matchKey(subject.Kind, subject.Name)]
	if !ok {
		return Deny("unknown subject")
	}

	for _, rn := range cp.rolesBySubject[alias] {
		for _, p := range cp.permsByRole[rn] {
			if !p.allows(action, key) {
				continue
			}
			if p.KeyExact != "" {
				return Allow(fmt.Sprintf("role=%s exact=%s", rn, p.KeyExact))
			}
			return Allow(fmt.Sprintf("role=%s prefix=%s", rn, p.KeyPrefix))
		}
	}

	return Deny("no matching permission")
}

func matchKey(kind, name string) string {
	return strings.TrimSpace(kind) + ":" + strings.TrimSpace(name)
}

func normalizeKey(k string) string {
	k = strings.TrimSpace(k)
	k = strings.TrimPrefix(k, "/")
	return k
}
