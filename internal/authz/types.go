package authz

import "github.com/timgst1/policyd/internal/authn"

const (
	ActionRead  = "read"
	ActionWrite = "write"
	ActionList  = "list"

	actionAny = "*"
)

// Resource keys checked against RBAC permissions.
const (
	ResourceNamespaces           = "policy/namespaces"
	ResourceAttributes           = "policy/attributes"
	ResourceAttributeValues      = "policy/attributes/values"
	ResourceAttributeGrants      = "policy/attributes/grants"
	ResourceKeyAccessServers     = "policy/kas-registry"
	ResourceSubjectMappings      = "policy/subject-mappings"
	ResourceSubjectConditionSets = "policy/subject-condition-sets"
	ResourceEntitlements         = "policy/entitlements"
)

type Decision struct {
	Allowed bool
	Reason  string
}

func Allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func Deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

type Authorizer interface {
	Evaluate(subject authn.Subject, action, key string) Decision
}

// AllowAll is used when no RBAC policy file is configured.
type AllowAll struct{}

func (AllowAll) Evaluate(authn.Subject, string, string) Decision {
	return Allow("no rbac policy configured")
}

// Rule is the access requirement of one RPC method or HTTP route.
// Public rules skip authentication and authorization entirely.
type Rule struct {
	Action   string
	Resource string
	Public   bool
}

// Check evaluates rule for subject. A nil rule is denied so that methods
// without an entry in a rules table are never reachable by accident.
func Check(a Authorizer, subject authn.Subject, rule *Rule) Decision {
	if rule == nil {
		return Deny("no access rule for operation")
	}
	if rule.Public {
		return Allow("public")
	}
	return a.Evaluate(subject, rule.Action, rule.Resource)
}
