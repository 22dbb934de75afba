// Package admin holds operator tasks that run against the policy database
// directly rather than through the API.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/timgst1/policyd/internal/db"
	"github.com/timgst1/policyd/internal/policy"
)

// ProvisionedAsLabel marks condition sets created from a fixture with the
// name they have there, so a second run finds them again.
const ProvisionedAsLabel = "provisioned_as"

type Fixtures struct {
	Namespaces           []NamespaceFixture           `yaml:"namespaces"`
	KeyAccessServers     []KeyAccessServerFixture     `yaml:"key_access_servers"`
	SubjectConditionSets []SubjectConditionSetFixture `yaml:"subject_condition_sets"`
	SubjectMappings      []SubjectMappingFixture      `yaml:"subject_mappings"`
}

type NamespaceFixture struct {
	Name       string             `yaml:"name"`
	Labels     map[string]string  `yaml:"labels"`
	Attributes []AttributeFixture `yaml:"attributes"`
}

type AttributeFixture struct {
	Name   string               `yaml:"name"`
	Rule   policy.AttributeRule `yaml:"rule"`
	Values []string             `yaml:"values"`
	Labels map[string]string    `yaml:"labels"`
}

type KeyAccessServerFixture struct {
	URI       string           `yaml:"uri"`
	Name      string           `yaml:"name"`
	PublicKey policy.PublicKey `yaml:"public_key"`
	// Grants are attribute or attribute value FQNs.
	Grants []string `yaml:"grants"`
}

type SubjectConditionSetFixture struct {
	Name        string              `yaml:"name"`
	SubjectSets []policy.SubjectSet `yaml:"subject_sets"`
}

type SubjectMappingFixture struct {
	AttributeValue string          `yaml:"attribute_value"`
	ConditionSet   string          `yaml:"condition_set"`
	Actions        []policy.Action `yaml:"actions"`
}

func LoadFixtures(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseFixtures(f)
}

func ParseFixtures(r io.Reader) (*Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &fx, nil
}

type ProvisionOptions struct {
	DryRun bool
	Logger *slog.Logger
}

type ProvisionResult struct {
	Created int
	Reused  int
}

type provisioner struct {
	client *db.Client
	opt    ProvisionOptions
	log    *slog.Logger
	res    ProvisionResult

	// condition set fixture name -> id; empty id for sets only planned in a dry run
	conditionSets map[string]string
}

// Provision creates whatever the fixtures describe and the database lacks.
// Entries that already exist are reused, so running it twice is harmless.
// With DryRun nothing is written and Created counts what would be.
func Provision(ctx context.Context, client *db.Client, fx *Fixtures, opt ProvisionOptions) (ProvisionResult, error) {
	if client == nil {
		return ProvisionResult{}, fmt.Errorf("db client is nil")
	}
	if fx == nil {
		return ProvisionResult{}, fmt.Errorf("fixtures are nil")
	}
	p := &provisioner{client: client, opt: opt, log: opt.Logger, conditionSets: map[string]string{}}
	if p.log == nil {
		p.log = slog.Default()
	}

	for _, ns := range fx.Namespaces {
		if err := p.namespace(ctx, ns); err != nil {
			return p.res, err
		}
	}
	for _, kas := range fx.KeyAccessServers {
		if err := p.keyAccessServer(ctx, kas); err != nil {
			return p.res, err
		}
	}
	for _, scs := range fx.SubjectConditionSets {
		if err := p.conditionSet(ctx, scs); err != nil {
			return p.res, err
		}
	}
	for _, sm := range fx.SubjectMappings {
		if err := p.subjectMapping(ctx, sm); err != nil {
			return p.res, err
		}
	}
	return p.res, nil
}

func (p *provisioner) created(kind, name string) {
	p.res.Created++
	if p.opt.DryRun {
		p.log.Info("would create", "kind", kind, "name", name)
		return
	}
	p.log.Info("created", "kind", kind, "name", name)
}

func (p *provisioner) reused(kind, name string) {
	p.res.Reused++
	p.log.Debug("exists", "kind", kind, "name", name)
}

func labels(m map[string]string) *policy.MetadataMutable {
	if len(m) == 0 {
		return nil
	}
	return &policy.MetadataMutable{Labels: m}
}

func (p *provisioner) namespace(ctx context.Context, fx NamespaceFixture) error {
	ns, err := p.client.GetNamespaceByName(ctx, fx.Name)
	switch {
	case errors.Is(err, db.ErrNotFound):
		if err := policy.ValidateNamespaceName(fx.Name); err != nil {
			return err
		}
		p.created("namespace", fx.Name)
		if p.opt.DryRun {
			for _, a := range fx.Attributes {
				p.created("attribute", a.Name)
			}
			return nil
		}
		if ns, err = p.client.CreateNamespace(ctx, fx.Name, labels(fx.Labels)); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		p.reused("namespace", ns.FQN)
	}

	for _, a := range fx.Attributes {
		if err := p.attribute(ctx, ns, a); err != nil {
			return err
		}
	}
	return nil
}

func (p *provisioner) attribute(ctx context.Context, ns *policy.Namespace, fx AttributeFixture) error {
	fqn := policy.AttributeFQN(ns.Name, fx.Name)
	attr, err := p.client.GetAttributeByFQN(ctx, fqn)
	if errors.Is(err, db.ErrNotFound) {
		p.created("attribute", fqn)
		if p.opt.DryRun {
			return nil
		}
		_, err = p.client.CreateAttribute(ctx, db.CreateAttributeParams{
			NamespaceID: ns.ID,
			Name:        fx.Name,
			Rule:        fx.Rule,
			Values:      fx.Values,
			Metadata:    labels(fx.Labels),
		})
		return err
	}
	if err != nil {
		return err
	}
	p.reused("attribute", fqn)
	if attr.Rule != fx.Rule {
		p.log.Warn("attribute rule differs from fixture; keeping stored rule", "fqn", fqn, "stored", attr.Rule, "fixture", fx.Rule)
	}

	for _, v := range fx.Values {
		exists := slices.ContainsFunc(attr.Values, func(have policy.Value) bool { return have.Value == v })
		vfqn := policy.ValueFQN(ns.Name, fx.Name, v)
		if exists {
			p.reused("attribute value", vfqn)
			continue
		}
		p.created("attribute value", vfqn)
		if p.opt.DryRun {
			continue
		}
		if _, err := p.client.CreateAttributeValue(ctx, db.CreateAttributeValueParams{AttributeID: attr.ID, Value: v}); err != nil {
			return err
		}
	}
	return nil
}

func (p *provisioner) keyAccessServer(ctx context.Context, fx KeyAccessServerFixture) error {
	kas, err := p.client.GetKeyAccessServerByURI(ctx, fx.URI)
	switch {
	case errors.Is(err, db.ErrNotFound):
		p.created("key access server", fx.URI)
		if p.opt.DryRun {
			for _, g := range fx.Grants {
				p.created("grant", g)
			}
			return nil
		}
		kas, err = p.client.CreateKeyAccessServer(ctx, db.CreateKeyAccessServerParams{
			URI:       fx.URI,
			Name:      fx.Name,
			PublicKey: fx.PublicKey,
		})
		if err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		p.reused("key access server", kas.URI)
	}

	for _, g := range fx.Grants {
		if err := p.grant(ctx, kas, g); err != nil {
			return err
		}
	}
	return nil
}

// grant assigns kas to the attribute or value named by fqn.
func (p *provisioner) grant(ctx context.Context, kas *policy.KeyAccessServer, raw string) error {
	f, err := policy.ParseFQN(raw)
	if err != nil {
		return err
	}
	fqn := f.String()

	var (
		targetID string
		existing []policy.KeyAccessServer
		assign   func(context.Context, db.Grant) (db.Grant, error)
	)
	switch {
	case f.Value != "":
		resolved, err := p.client.GetAttributesByValueFqns(ctx, []string{fqn})
		if err != nil {
			return p.plannedTarget(fqn, err)
		}
		v := resolved[fqn].Value
		targetID, existing, assign = v.ID, v.Grants, p.client.AssignKeyAccessServerToValue
	case f.Attribute != "":
		attr, err := p.client.GetAttributeByFQN(ctx, fqn)
		if err != nil {
			return p.plannedTarget(fqn, err)
		}
		targetID, existing, assign = attr.ID, attr.Grants, p.client.AssignKeyAccessServerToAttribute
	default:
		return fmt.Errorf("%w: grant target %q must be an attribute or value fqn", policy.ErrInvalid, raw)
	}

	if slices.ContainsFunc(existing, func(k policy.KeyAccessServer) bool { return k.ID == kas.ID }) {
		p.reused("grant", fqn)
		return nil
	}
	p.created("grant", fqn)
	if p.opt.DryRun {
		return nil
	}
	_, err = assign(ctx, db.Grant{TargetID: targetID, KeyAccessServerID: kas.ID})
	return err
}

// plannedTarget lets a dry run grant on attributes and values it has only
// planned to create.
func (p *provisioner) plannedTarget(fqn string, err error) error {
	if p.opt.DryRun && errors.Is(err, db.ErrNotFound) {
		p.created("grant", fqn)
		return nil
	}
	return fmt.Errorf("grant %s: %w", fqn, err)
}

func (p *provisioner) conditionSet(ctx context.Context, fx SubjectConditionSetFixture) error {
	if fx.Name == "" {
		return policy.ErrRequired("subject condition set name")
	}
	if _, dup := p.conditionSets[fx.Name]; dup {
		return fmt.Errorf("%w: subject condition set %q defined twice", policy.ErrInvalid, fx.Name)
	}

	id, err := p.findConditionSet(ctx, fx.Name)
	if err != nil {
		return err
	}
	if id != "" {
		p.reused("subject condition set", fx.Name)
		p.conditionSets[fx.Name] = id
		return nil
	}

	if err := policy.ValidateSubjectSets(fx.SubjectSets); err != nil {
		return fmt.Errorf("subject condition set %q: %w", fx.Name, err)
	}
	p.created("subject condition set", fx.Name)
	if p.opt.DryRun {
		p.conditionSets[fx.Name] = ""
		return nil
	}
	scs, err := p.client.CreateSubjectConditionSet(ctx, fx.SubjectSets,
		&policy.MetadataMutable{Labels: map[string]string{ProvisionedAsLabel: fx.Name}})
	if err != nil {
		return err
	}
	p.conditionSets[fx.Name] = scs.ID
	return nil
}

// findConditionSet pages through stored sets looking for the provisioning
// label.
func (p *provisioner) findConditionSet(ctx context.Context, name string) (string, error) {
	page := policy.PageRequest{Limit: policy.MaxPageLimit}
	for {
		sets, resp, err := p.client.ListSubjectConditionSets(ctx, page)
		if err != nil {
			return "", err
		}
		for _, s := range sets {
			if s.Metadata != nil && s.Metadata.Labels[ProvisionedAsLabel] == name {
				return s.ID, nil
			}
		}
		if resp.NextOffset == 0 {
			return "", nil
		}
		page.Offset = resp.NextOffset
	}
}

func (p *provisioner) subjectMapping(ctx context.Context, fx SubjectMappingFixture) error {
	scsID, ok := p.conditionSets[fx.ConditionSet]
	if !ok {
		return fmt.Errorf("%w: subject mapping for %s names unknown condition set %q", policy.ErrInvalid, fx.AttributeValue, fx.ConditionSet)
	}
	if err := policy.ValidateActions(fx.Actions); err != nil {
		return err
	}
	f, err := policy.ParseFQN(fx.AttributeValue)
	if err != nil {
		return err
	}
	fqn := f.String()
	name := fqn + " <- " + fx.ConditionSet

	resolved, err := p.client.GetAttributesByValueFqns(ctx, []string{fqn})
	if errors.Is(err, db.ErrNotFound) && p.opt.DryRun {
		// the value is only planned
		p.created("subject mapping", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("subject mapping %s: %w", fqn, err)
	}
	value := resolved[fqn].Value

	if scsID == "" {
		p.created("subject mapping", name)
		return nil
	}
	existing, err := p.client.ListSubjectMappingsByValueIDs(ctx, []string{value.ID})
	if err != nil {
		return err
	}
	for _, sm := range existing {
		if sm.SubjectConditionSet != nil && sm.SubjectConditionSet.ID == scsID {
			p.reused("subject mapping", name)
			return nil
		}
	}

	p.created("subject mapping", name)
	if p.opt.DryRun {
		return nil
	}
	_, err = p.client.CreateSubjectMapping(ctx, db.CreateSubjectMappingParams{
		AttributeValueID:              value.ID,
		Actions:                       fx.Actions,
		ExistingSubjectConditionSetID: scsID,
	})
	return err
}
