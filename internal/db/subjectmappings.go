package db

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/timgst1/policyd/internal/flattening"
	"github.com/timgst1/policyd/internal/policy"
)

const subjectMappingSelect = `SELECT sm.id, sm.actions, sm.labels, sm.created_at, sm.updated_at,
	` + valueColumns + `,
	` + attributeColumns + `,
	` + scsColumns + `
FROM subject_mappings sm
JOIN attribute_values v ON v.id = sm.attribute_value_id
JOIN attribute_definitions a ON a.id = v.attribute_definition_id
JOIN namespaces n ON n.id = a.namespace_id
JOIN subject_condition_sets s ON s.id = sm.subject_condition_set_id`

// rowScanner feeds a fixed slice of scanned columns to the per-entity scan
// functions, which each consume their share in order.
type rowScanner struct {
	dest []any
	pos  int
}

func (r *rowScanner) Scan(dest ...any) error {
	for _, d := range dest {
		src := r.dest[r.pos]
		r.pos++
		switch d := d.(type) {
		case *string:
			*d = *(src.(*string))
		case *int:
			*d = *(src.(*int))
		case *[]byte:
			*d = *(src.(*[]byte))
		default:
			return fmt.Errorf("rowScanner: unsupported destination %T", d)
		}
	}
	return nil
}

func scanSubjectMapping(rows *sql.Rows) (policy.SubjectMapping, error) {
	var (
		sm      policy.SubjectMapping
		actions []byte
		m       metaRow
	)
	// s=string, i=int, b=bytes; value, attribute, namespace, condition set
	const kinds = "ssisss" + "sssisss" + "ssisss" + "sbsss"
	cols := make([]any, len(kinds))
	for i, k := range []byte(kinds) {
		switch k {
		case 's':
			cols[i] = new(string)
		case 'i':
			cols[i] = new(int)
		case 'b':
			cols[i] = new([]byte)
		}
	}
	dest := append([]any{&sm.ID, &actions, &m.labels, &m.createdAt, &m.updatedAt}, cols...)
	if err := rows.Scan(dest...); err != nil {
		return policy.SubjectMapping{}, err
	}

	rs := &rowScanner{dest: cols}
	v, err := scanValue(rs)
	if err != nil {
		return policy.SubjectMapping{}, err
	}
	attr, err := scanAttribute(rs)
	if err != nil {
		return policy.SubjectMapping{}, err
	}
	scs, err := scanSubjectConditionSet(rs)
	if err != nil {
		return policy.SubjectMapping{}, err
	}

	v.FQN = policy.ValueFQN(attr.Namespace.Name, attr.Name, v.Value)
	v.Attribute = &attr
	sm.AttributeValue = &v
	sm.SubjectConditionSet = &scs
	sm.Metadata = m.metadata()
	if sm.Actions, err = decodeActions(actions); err != nil {
		return policy.SubjectMapping{}, fmt.Errorf("subject mapping %s: %w", sm.ID, err)
	}
	return sm, nil
}

func querySubjectMappings(ctx context.Context, q querier, cond string, args ...any) ([]policy.SubjectMapping, error) {
	query := subjectMappingSelect
	if cond != "" {
		query += ` WHERE ` + cond
	}
	query += ` ORDER BY sm.rowid`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "query subject mappings")
	}
	defer rows.Close()

	var out []policy.SubjectMapping
	for rows.Next() {
		sm, err := scanSubjectMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (c *Client) ListSubjectMappings(ctx context.Context, page policy.PageRequest) ([]policy.SubjectMapping, policy.PageResponse, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, policy.PageResponse{}, err
	}
	total, err := countRows(ctx, c.db, `SELECT COUNT(*) FROM subject_mappings`)
	if err != nil {
		return nil, policy.PageResponse{}, wrapErr(err, "count subject mappings")
	}
	out, err := querySubjectMappings(ctx, c.db,
		`sm.id IN (SELECT id FROM subject_mappings ORDER BY rowid LIMIT ? OFFSET ?)`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, policy.PageResponse{}, err
	}
	return out, policy.NewPageResponse(page, len(out), total), nil
}

func getSubjectMapping(ctx context.Context, q querier, id string) (*policy.SubjectMapping, error) {
	out, err := querySubjectMappings(ctx, q, `sm.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("subject mapping %s: %w", id, ErrNotFound)
	}
	return &out[0], nil
}

func (c *Client) GetSubjectMapping(ctx context.Context, id string) (*policy.SubjectMapping, error) {
	return getSubjectMapping(ctx, c.db, id)
}

// NewSubjectConditionSet is created alongside a subject mapping.
type NewSubjectConditionSet struct {
	SubjectSets []policy.SubjectSet      `json:"subject_sets" yaml:"subject_sets"`
	Metadata    *policy.MetadataMutable `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

type CreateSubjectMappingParams struct {
	AttributeValueID string
	Actions          []policy.Action
	// Exactly one of ExistingSubjectConditionSetID and NewSubjectConditionSet.
	ExistingSubjectConditionSetID string
	NewSubjectConditionSet        *NewSubjectConditionSet
	Metadata                      *policy.MetadataMutable
}

func (c *Client) CreateSubjectMapping(ctx context.Context, p CreateSubjectMappingParams) (*policy.SubjectMapping, error) {
	if err := policy.ValidateActions(p.Actions); err != nil {
		return nil, err
	}
	hasExisting, hasNew := p.ExistingSubjectConditionSetID != "", p.NewSubjectConditionSet != nil
	if hasExisting == hasNew {
		return nil, fmt.Errorf("%w: exactly one of an existing subject condition set id or a new subject condition set is required", policy.ErrInvalid)
	}
	actions, err := encodeActions(p.Actions)
	if err != nil {
		return nil, err
	}
	labels, err := encodeLabels(labelsOf(p.Metadata))
	if err != nil {
		return nil, err
	}

	id := c.newID()
	err = c.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, "attribute_values", p.AttributeValueID); err != nil {
			return err
		}
		scsID := p.ExistingSubjectConditionSetID
		if hasNew {
			if scsID, err = c.createSubjectConditionSet(ctx, tx, p.NewSubjectConditionSet.SubjectSets, p.NewSubjectConditionSet.Metadata); err != nil {
				return err
			}
		} else if err := requireRow(ctx, tx, "subject_condition_sets", scsID); err != nil {
			return err
		}

		now := c.timestamp()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO subject_mappings(id, attribute_value_id, subject_condition_set_id, actions, labels, created_at, updated_at)
			 VALUES(?, ?, ?, ?, ?, ?, ?)`,
			id, p.AttributeValueID, scsID, actions, labels, now, now)
		return wrapErr(err, "create subject mapping")
	})
	if err != nil {
		return nil, err
	}
	return c.GetSubjectMapping(ctx, id)
}

type UpdateSubjectMappingParams struct {
	ID string
	// Empty SubjectConditionSetID and nil Actions leave those unchanged.
	SubjectConditionSetID string
	Actions               []policy.Action
	Metadata              *policy.MetadataMutable
	MetadataBehavior      policy.MetadataUpdateBehavior
}

func (c *Client) UpdateSubjectMapping(ctx context.Context, p UpdateSubjectMappingParams) (*policy.SubjectMapping, error) {
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getSubjectMapping(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		now := c.timestamp()
		if p.SubjectConditionSetID != "" {
			if err := requireRow(ctx, tx, "subject_condition_sets", p.SubjectConditionSetID); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE subject_mappings SET subject_condition_set_id = ?, updated_at = ? WHERE id = ?`,
				p.SubjectConditionSetID, now, p.ID); err != nil {
				return wrapErr(err, "update subject mapping")
			}
		}
		if p.Actions != nil {
			if err := policy.ValidateActions(p.Actions); err != nil {
				return err
			}
			blob, err := encodeActions(p.Actions)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE subject_mappings SET actions = ?, updated_at = ? WHERE id = ?`, blob, now, p.ID); err != nil {
				return wrapErr(err, "update subject mapping")
			}
		}
		return c.updateLabels(ctx, tx, "subject_mappings", p.ID, cur.Metadata.Labels, p.Metadata, p.MetadataBehavior)
	})
	if err != nil {
		return nil, err
	}
	return c.GetSubjectMapping(ctx, p.ID)
}

func (c *Client) DeleteSubjectMapping(ctx context.Context, id string) (*policy.SubjectMapping, error) {
	var deleted *policy.SubjectMapping
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		sm, err := getSubjectMapping(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM subject_mappings WHERE id = ?`, id); err != nil {
			return wrapErr(err, "delete subject mapping")
		}
		deleted = sm
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (c *Client) ListSubjectMappingsByValueIDs(ctx context.Context, valueIDs []string) ([]policy.SubjectMapping, error) {
	if len(valueIDs) == 0 {
		return nil, nil
	}
	return querySubjectMappings(ctx, c.db, `sm.attribute_value_id IN (`+placeholders(len(valueIDs))+`)`, stringArgs(valueIDs)...)
}

// MatchSubjectMappings returns the mappings on active values whose condition
// set mentions any of the properties: some condition uses the same selector
// and lists the property's value.
func (c *Client) MatchSubjectMappings(ctx context.Context, props []policy.SubjectProperty) ([]policy.SubjectMapping, error) {
	if len(props) == 0 {
		return nil, nil
	}
	all, err := querySubjectMappings(ctx, c.db, `v.active = 1 AND a.active = 1 AND n.active = 1`)
	if err != nil {
		return nil, err
	}
	var out []policy.SubjectMapping
	for _, sm := range all {
		if mentionsAny(sm.SubjectConditionSet, props) {
			out = append(out, sm)
		}
	}
	return out, nil
}

func mentionsAny(scs *policy.SubjectConditionSet, props []policy.SubjectProperty) bool {
	for _, ss := range scs.SubjectSets {
		for _, cg := range ss.ConditionGroups {
			for _, cond := range cg.Conditions {
				selector := flattening.NormalizeSelector(cond.SubjectExternalSelectorValue)
				for _, p := range props {
					if flattening.NormalizeSelector(p.ExternalSelectorValue) == selector &&
						slices.Contains(cond.SubjectExternalValues, p.ExternalValue) {
						return true
					}
				}
			}
		}
	}
	return false
}

// SubjectMappingsForEntitlements returns every mapping on an active value.
// Each mapping's value carries its attribute with the full ordered value
// list so hierarchy ranks can be resolved.
func (c *Client) SubjectMappingsForEntitlements(ctx context.Context) ([]policy.SubjectMapping, error) {
	mappings, err := querySubjectMappings(ctx, c.db, `v.active = 1 AND a.active = 1 AND n.active = 1`)
	if err != nil {
		return nil, err
	}
	attrs := map[string]*policy.Attribute{}
	for i := range mappings {
		attr := mappings[i].AttributeValue.Attribute
		full, ok := attrs[attr.ID]
		if !ok {
			values, err := loadValueRows(ctx, c.db, attr, `v.attribute_definition_id = ? AND v.active = 1`, attr.ID)
			if err != nil {
				return nil, err
			}
			cp := *attr
			cp.Values = values
			full = &cp
			attrs[attr.ID] = full
		}
		mappings[i].AttributeValue.Attribute = full
	}
	return mappings, nil
}
