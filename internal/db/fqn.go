package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/timgst1/policyd/internal/policy"
)

// AttributeAndValue is the resolution of one value FQN.
type AttributeAndValue struct {
	Attribute *policy.Attribute `json:"attribute"`
	Value     *policy.Value     `json:"value"`
}

// GetAttributesByValueFqns resolves each value FQN to its attribute and
// value; the value carries its subject mappings. A FQN whose namespace,
// attribute or value is missing or inactive fails the whole call with
// ErrNotFound.
func (c *Client) GetAttributesByValueFqns(ctx context.Context, fqns []string) (map[string]AttributeAndValue, error) {
	out := make(map[string]AttributeAndValue, len(fqns))
	attrs := map[string]*policy.Attribute{}

	for _, raw := range fqns {
		f, err := policy.ParseFQN(raw)
		if err != nil {
			return nil, err
		}
		if f.Value == "" {
			return nil, fmt.Errorf("%w: %q is not an attribute value fqn", policy.ErrInvalid, raw)
		}
		key := f.String()
		if _, done := out[key]; done {
			continue
		}

		var attrID, valueID string
		err = c.db.QueryRowContext(ctx,
			`SELECT a.id, v.id FROM attribute_values v
			 JOIN attribute_definitions a ON a.id = v.attribute_definition_id
			 JOIN namespaces n ON n.id = a.namespace_id
			 WHERE n.name = ? AND a.name = ? AND v.value = ?
			   AND n.active = 1 AND a.active = 1 AND v.active = 1`,
			f.Namespace, f.Attribute, f.Value).Scan(&attrID, &valueID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fqn %s: %w", key, ErrNotFound)
		}
		if err != nil {
			return nil, wrapErr(err, "resolve fqn "+key)
		}

		attr, ok := attrs[attrID]
		if !ok {
			if attr, err = c.GetAttribute(ctx, attrID); err != nil {
				return nil, err
			}
			attrs[attrID] = attr
		}

		var value *policy.Value
		for i := range attr.Values {
			if attr.Values[i].ID == valueID {
				v := attr.Values[i]
				value = &v
				break
			}
		}
		if value == nil {
			return nil, fmt.Errorf("fqn %s: %w", key, ErrNotFound)
		}
		if value.SubjectMappings, err = c.ListSubjectMappingsByValueIDs(ctx, []string{valueID}); err != nil {
			return nil, err
		}
		out[key] = AttributeAndValue{Attribute: attr, Value: value}
	}
	return out, nil
}
