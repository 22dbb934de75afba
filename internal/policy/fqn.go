package policy

import (
	"fmt"
	"strings"
)

const fqnScheme = "https://"

// FQN is a parsed fully qualified name. Attribute and Value are empty for
// names that stop at the namespace or attribute level.
type FQN struct {
	Namespace string
	Attribute string
	Value     string
}

func NamespaceFQN(namespace string) string {
	return fqnScheme + strings.ToLower(namespace)
}

func AttributeFQN(namespace, attribute string) string {
	return NamespaceFQN(namespace) + "/attr/" + strings.ToLower(attribute)
}

func ValueFQN(namespace, attribute, value string) string {
	return AttributeFQN(namespace, attribute) + "/value/" + strings.ToLower(value)
}

func (f FQN) String() string {
	switch {
	case f.Value != "":
		return ValueFQN(f.Namespace, f.Attribute, f.Value)
	case f.Attribute != "":
		return AttributeFQN(f.Namespace, f.Attribute)
	default:
		return NamespaceFQN(f.Namespace)
	}
}

// ParseFQN splits https://<ns>[/attr/<name>[/value/<value>]] into its parts.
// Parsing is case-insensitive; the returned parts are lowercase.
func ParseFQN(s string) (FQN, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(raw, fqnScheme) {
		return FQN{}, fmt.Errorf("%w: fqn %q must start with %s", ErrInvalid, s, fqnScheme)
	}
	parts := strings.Split(strings.TrimPrefix(raw, fqnScheme), "/")

	var f FQN
	switch len(parts) {
	case 1:
		f.Namespace = parts[0]
	case 3:
		if parts[1] != "attr" {
			return FQN{}, fmt.Errorf("%w: fqn %q: expected /attr/", ErrInvalid, s)
		}
		f.Namespace, f.Attribute = parts[0], parts[2]
	case 5:
		if parts[1] != "attr" || parts[3] != "value" {
			return FQN{}, fmt.Errorf("%w: fqn %q: expected /attr/<name>/value/<value>", ErrInvalid, s)
		}
		f.Namespace, f.Attribute, f.Value = parts[0], parts[2], parts[4]
	default:
		return FQN{}, fmt.Errorf("%w: malformed fqn %q", ErrInvalid, s)
	}

	if err := ValidateNamespaceName(f.Namespace); err != nil {
		return FQN{}, err
	}
	if len(parts) >= 3 {
		if err := ValidateName("attribute name", f.Attribute); err != nil {
			return FQN{}, err
		}
	}
	if len(parts) == 5 {
		if err := ValidateName("attribute value", f.Value); err != nil {
			return FQN{}, err
		}
	}
	return f, nil
}
