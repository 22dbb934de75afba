package rbac

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// knownActions mirrors the actions the authorizer checks; "*" matches all.
var knownActions = map[string]struct{}{
	"read":  {},
	"list":  {},
	"write": {},
	"*":     {},
}

func LoadFromFile(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(b []byte) (*Document, error) {
	var d Document
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("rbac: decode: %w", err)
	}
	if err := Validate(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

func Validate(d *Document) error {
	if strings.TrimSpace(d.APIVersion) == "" {
		return fmt.Errorf("rbac: apiVersion missing")
	}
	if strings.TrimSpace(d.Kind) == "" {
		return fmt.Errorf("rbac: kind missing")
	}

	subjectNames := map[string]struct{}{}
	for _, s := range d.Subjects {
		if s.Name == "" || s.Match.Kind == "" || s.Match.Name == "" {
			return fmt.Errorf("rbac: subject missing fields")
		}
		if _, ok := subjectNames[s.Name]; ok {
			return fmt.Errorf("rbac: duplicate subject name %q", s.Name)
		}
		subjectNames[s.Name] = struct{}{}
	}

	roleNames := map[string]struct{}{}
	for _, r := range d.Roles {
		if r.Name == "" {
			return fmt.Errorf("rbac: role name missing")
		}
		if _, ok := roleNames[r.Name]; ok {
			return fmt.Errorf("rbac: duplicate role name %q", r.Name)
		}
		roleNames[r.Name] = struct{}{}

		for _, p := range r.Permissions {
			action := strings.ToLower(strings.TrimSpace(p.Action))
			if action == "" {
				return fmt.Errorf("rbac: permission action missing in role %q", r.Name)
			}
			if _, ok := knownActions[action]; !ok {
				return fmt.Errorf("rbac: unknown action %q in role %q", p.Action, r.Name)
			}
			if p.KeyPrefix == "" && p.KeyExact == "" {
				return fmt.Errorf("rbac: permission needs keyPrefix or keyExact in role %q", r.Name)
			}
			if p.KeyPrefix != "" && !strings.HasSuffix(p.KeyPrefix, "/") {
				return fmt.Errorf("rbac: keyPrefix %q in role %q must end with '/'", p.KeyPrefix, r.Name)
			}
		}
	}

	for _, b := range d.Bindings {
		if _, ok := subjectNames[b.Subject]; !ok {
			return fmt.Errorf("rbac: binding references unknown subject %q", b.Subject)
		}
		for _, rn := range b.Roles {
			if _, ok := roleNames[rn]; !ok {
				return fmt.Errorf("rbac: binding references unknown role %q", rn)
			}
		}
	}

	return nil
}
