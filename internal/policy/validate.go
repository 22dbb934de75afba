package policy

import (
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalid marks a request that can never succeed as sent.
var ErrInvalid = errors.New("invalid argument")

const maxNameLength = 253

var (
	namePattern      = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9_-]*[a-zA-Z0-9])?$`)
	hostLabelPattern = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)
	tldPattern       = regexp.MustCompile(`^[a-zA-Z]{2,}$`)
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// ErrRequired reports a missing request field.
func ErrRequired(field string) error {
	return invalidf("%s is required", field)
}

// ValidateNamespaceName accepts hostnames with at least two labels.
func ValidateNamespaceName(name string) error {
	if name == "" {
		return invalidf("namespace name is required")
	}
	if len(name) > maxNameLength {
		return invalidf("namespace name exceeds %d characters", maxNameLength)
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return invalidf("namespace %q must be a hostname like example.com", name)
	}
	for _, l := range labels[:len(labels)-1] {
		if !hostLabelPattern.MatchString(l) {
			return invalidf("namespace %q has invalid label %q", name, l)
		}
	}
	if !tldPattern.MatchString(labels[len(labels)-1]) {
		return invalidf("namespace %q has invalid top level domain", name)
	}
	return nil
}

// ValidateName checks attribute names and attribute values.
func ValidateName(what, name string) error {
	if name == "" {
		return invalidf("%s is required", what)
	}
	if len(name) > maxNameLength {
		return invalidf("%s exceeds %d characters", what, maxNameLength)
	}
	if !namePattern.MatchString(name) {
		return invalidf("%s %q may only contain letters, digits, '_' and '-' and must start and end alphanumeric", what, name)
	}
	return nil
}

// ValidateValues checks a list of new values and rejects duplicates, which
// would otherwise surface as a constraint violation halfway through a write.
func ValidateValues(values []string) error {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if err := ValidateName("attribute value", v); err != nil {
			return err
		}
		k := strings.ToLower(v)
		if _, dup := seen[k]; dup {
			return invalidf("duplicate attribute value %q", v)
		}
		seen[k] = struct{}{}
	}
	return nil
}

func ValidateActions(actions []Action) error {
	if len(actions) == 0 {
		return invalidf("at least one action is required")
	}
	for i, a := range actions {
		hasStd := a.Standard != StandardActionUnspecified
		hasCustom := strings.TrimSpace(a.Custom) != ""
		switch {
		case hasStd && hasCustom:
			return invalidf("action %d sets both standard and custom", i)
		case !hasStd && !hasCustom:
			return invalidf("action %d sets neither standard nor custom", i)
		case hasStd && !a.Standard.Valid():
			return invalidf("action %d has unknown standard action %q", i, a.Standard)
		}
	}
	return nil
}

func ValidateSubjectSets(sets []SubjectSet) error {
	if len(sets) == 0 {
		return invalidf("at least one subject set is required")
	}
	for i, ss := range sets {
		if len(ss.ConditionGroups) == 0 {
			return invalidf("subject set %d has no condition groups", i)
		}
		for j, cg := range ss.ConditionGroups {
			if !cg.BooleanOperator.Valid() {
				return invalidf("subject set %d group %d: boolean operator must be AND or OR", i, j)
			}
			if len(cg.Conditions) == 0 {
				return invalidf("subject set %d group %d has no conditions", i, j)
			}
			for k, c := range cg.Conditions {
				if strings.TrimSpace(c.SubjectExternalSelectorValue) == "" {
					return invalidf("condition %d.%d.%d: selector is required", i, j, k)
				}
				if !c.Operator.Valid() {
					return invalidf("condition %d.%d.%d: operator must be IN, NOT_IN or IN_CONTAINS", i, j, k)
				}
				if len(c.SubjectExternalValues) == 0 {
					return invalidf("condition %d.%d.%d: at least one value is required", i, j, k)
				}
			}
		}
	}
	return nil
}

func ValidateKeyAccessServer(uri string, pk PublicKey) error {
	if err := validateHTTPURL("key access server uri", uri); err != nil {
		return err
	}
	return ValidatePublicKey(pk)
}

// ValidatePublicKey requires exactly one of a remote key location or a
// local PEM encoded key.
func ValidatePublicKey(pk PublicKey) error {
	remote, local := strings.TrimSpace(pk.Remote), strings.TrimSpace(pk.Local)
	switch {
	case remote != "" && local != "":
		return invalidf("public key must be either remote or local, not both")
	case remote != "":
		return validateHTTPURL("remote public key", remote)
	case local != "":
		block, _ := pem.Decode([]byte(local))
		if block == nil {
			return invalidf("local public key is not PEM encoded")
		}
		if block.Type != "PUBLIC KEY" && block.Type != "CERTIFICATE" {
			return invalidf("local public key has unexpected PEM type %q", block.Type)
		}
		return nil
	default:
		return invalidf("public key is required")
	}
}

func validateHTTPURL(what, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return invalidf("%s %q is not an absolute url", what, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalidf("%s %q must use http or https", what, raw)
	}
	return nil
}
