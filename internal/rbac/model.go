// Package rbac models the YAML document that grants API callers access to
// policy resources: named subjects, roles made of permissions on resource
// keys, and bindings between them.
package rbac

const (
	APIVersion = "policyd.rbac/v1"
	Kind       = "AccessPolicy"
)

type Document struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
	Metadata   struct {
		Name string `yaml:"name"`
	} `yaml:"metadata"`

	Subjects []Subject `yaml:"subjects"`
	Roles    []Role    `yaml:"roles"`
	Bindings []Binding `yaml:"bindings"`
}

type Match struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
}

type Subject struct {
	Name  string `yaml:"name"`
	Match Match  `yaml:"match"`
}

type Role struct {
	Name        string       `yaml:"name"`
	Permissions []Permission `yaml:"permissions"`
}

// Permission grants one action on a resource key. KeyPrefix covers every
// key below it and the key it names without the trailing slash.
type Permission struct {
	Action    string `yaml:"action"`
	KeyPrefix string `yaml:"keyPrefix"`
	KeyExact  string `yaml:"keyExact"`
}

type Binding struct {
	Subject string   `yaml:"subject"`
	Roles   []string `yaml:"roles"`
}
