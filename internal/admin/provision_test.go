package admin_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timgst1/policyd/internal/admin"
	"github.com/timgst1/policyd/internal/policy"
	"github.com/timgst1/policyd/internal/services/servicetest"
)

const fixtureYAML = `
namespaces:
  - name: example.com
    labels: {owner: platform}
    attributes:
      - name: classification
        rule: HIERARCHY
        values: [top, secret, public]
      - name: department
        rule: ANY_OF
        values: [eng, sales]
key_access_servers:
  - uri: https://kas.example.com
    name: primary
    public_key:
      remote: https://kas.example.com/kas_public_key
    grants:
      - https://example.com/attr/classification
      - https://example.com/attr/department/value/eng
subject_condition_sets:
  - name: engineers
    subject_sets:
      - condition_groups:
          - boolean_operator: AND
            conditions:
              - subject_external_selector_value: .department
                operator: IN
                subject_external_values: [engineering]
subject_mappings:
  - attribute_value: https://example.com/attr/department/value/eng
    condition_set: engineers
    actions:
      - standard: DECRYPT
`

func parse(t *testing.T, raw string) *admin.Fixtures {
	t.Helper()
	fx, err := admin.ParseFixtures(strings.NewReader(raw))
	require.NoError(t, err)
	return fx
}

func TestProvisionCreatesEverything(t *testing.T) {
	client := servicetest.NewClient(t)
	ctx := context.Background()

	res, err := admin.Provision(ctx, client, parse(t, fixtureYAML), admin.ProvisionOptions{Logger: servicetest.Logger()})
	require.NoError(t, err)
	// 1 namespace, 2 attributes, 1 kas, 2 grants, 1 condition set, 1 mapping
	require.Equal(t, 8, res.Created)
	require.Zero(t, res.Reused)

	attr, err := client.GetAttributeByFQN(ctx, "https://example.com/attr/classification")
	require.NoError(t, err)
	require.Equal(t, policy.RuleHierarchy, attr.Rule)
	require.Len(t, attr.Values, 3)
	require.Len(t, attr.Grants, 1)
	require.Equal(t, "https://kas.example.com", attr.Grants[0].URI)

	fqn := "https://example.com/attr/department/value/eng"
	resolved, err := client.GetAttributesByValueFqns(ctx, []string{fqn})
	require.NoError(t, err)
	value := resolved[fqn].Value
	require.Len(t, value.Grants, 1)

	mappings, err := client.ListSubjectMappingsByValueIDs(ctx, []string{value.ID})
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	require.Equal(t, "engineers", mappings[0].SubjectConditionSet.Metadata.Labels[admin.ProvisionedAsLabel])
	require.Equal(t, policy.StandardActionDecrypt, mappings[0].Actions[0].Standard)
}

func TestProvisionIsIdempotent(t *testing.T) {
	client := servicetest.NewClient(t)
	ctx := context.Background()
	opts := admin.ProvisionOptions{Logger: servicetest.Logger()}

	_, err := admin.Provision(ctx, client, parse(t, fixtureYAML), opts)
	require.NoError(t, err)

	res, err := admin.Provision(ctx, client, parse(t, fixtureYAML), opts)
	require.NoError(t, err)
	require.Zero(t, res.Created)
	// namespace, 2 attributes, 5 values, kas, 2 grants, condition set, mapping
	require.Equal(t, 13, res.Reused)

	sets, _, err := client.ListSubjectConditionSets(ctx, policy.PageRequest{})
	require.NoError(t, err)
	require.Len(t, sets, 1)
}

func TestProvisionAddsMissingValues(t *testing.T) {
	client := servicetest.NewClient(t)
	ctx := context.Background()
	opts := admin.ProvisionOptions{Logger: servicetest.Logger()}

	_, err := admin.Provision(ctx, client, parse(t, `
namespaces:
  - name: example.com
    attributes:
      - name: department
        rule: ANY_OF
        values: [eng]
`), opts)
	require.NoError(t, err)

	res, err := admin.Provision(ctx, client, parse(t, `
namespaces:
  - name: example.com
    attributes:
      - name: department
        rule: ANY_OF
        values: [eng, sales]
`), opts)
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)

	attr, err := client.GetAttributeByFQN(ctx, "https://example.com/attr/department")
	require.NoError(t, err)
	require.Len(t, attr.Values, 2)
	require.Equal(t, "sales", attr.Values[1].Value)
}

func TestProvisionDryRunWritesNothing(t *testing.T) {
	client := servicetest.NewClient(t)
	ctx := context.Background()

	res, err := admin.Provision(ctx, client, parse(t, fixtureYAML), admin.ProvisionOptions{DryRun: true, Logger: servicetest.Logger()})
	require.NoError(t, err)
	require.Equal(t, 8, res.Created)

	list, _, err := client.ListNamespaces(ctx, policy.ActiveStateAny, policy.PageRequest{})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestProvisionRejectsUnknownConditionSet(t *testing.T) {
	client := servicetest.NewClient(t)

	_, err := admin.Provision(context.Background(), client, parse(t, `
namespaces:
  - name: example.com
    attributes:
      - name: department
        rule: ANY_OF
        values: [eng]
subject_mappings:
  - attribute_value: https://example.com/attr/department/value/eng
    condition_set: nobody
    actions: [{standard: DECRYPT}]
`), admin.ProvisionOptions{Logger: servicetest.Logger()})
	require.ErrorIs(t, err, policy.ErrInvalid)
}

func TestParseFixturesRejectsUnknownFields(t *testing.T) {
	_, err := admin.ParseFixtures(strings.NewReader("namespaces:\n  - nme: typo\n"))
	require.Error(t, err)
}
