package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/timgst1/policyd/internal/policy"
)

const valueColumns = `v.id, v.value, v.active, v.labels, v.created_at, v.updated_at`

func scanValue(sc interface{ Scan(...any) error }) (policy.Value, error) {
	var (
		v      policy.Value
		active int
		m      metaRow
	)
	if err := sc.Scan(&v.ID, &v.Value, &active, &m.labels, &m.createdAt, &m.updatedAt); err != nil {
		return policy.Value{}, err
	}
	v.Active = active == 1
	v.Metadata = m.metadata()
	return v, nil
}

// loadValues reads the values of attr matching cond in definition order and
// attaches members and grants. attr supplies the names for FQNs.
func loadValues(ctx context.Context, q querier, attr *policy.Attribute, cond string, args ...any) ([]policy.Value, error) {
	values, err := loadValueRows(ctx, q, attr, cond, args...)
	if err != nil {
		return nil, err
	}
	for i := range values {
		// members are listed one level deep; member cycles are allowed
		members, err := loadValueRows(ctx, q, attr,
			`v.id IN (SELECT member_id FROM attribute_value_members WHERE value_id = ?)`, values[i].ID)
		if err != nil {
			return nil, err
		}
		values[i].Members = members
		grants, err := loadValueGrants(ctx, q, values[i].ID)
		if err != nil {
			return nil, err
		}
		values[i].Grants = grants
	}
	return values, nil
}

func loadValueRows(ctx context.Context, q querier, attr *policy.Attribute, cond string, args ...any) ([]policy.Value, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+valueColumns+` FROM attribute_values v WHERE `+cond+` ORDER BY v.sort_order, v.value`, args...)
	if err != nil {
		return nil, wrapErr(err, "list values")
	}
	var out []policy.Value
	for rows.Next() {
		v, err := scanValue(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		v.FQN = policy.ValueFQN(attr.Namespace.Name, attr.Name, v.Value)
		out = append(out, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// valueOwner returns the attribute (without values) that owns valueID.
func valueOwner(ctx context.Context, q querier, valueID string) (*policy.Attribute, error) {
	return getAttributeRow(ctx, q, `a.id = (SELECT attribute_definition_id FROM attribute_values WHERE id = ?)`, valueID)
}

func getValue(ctx context.Context, q querier, id string) (*policy.Value, error) {
	attr, err := valueOwner(ctx, q, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("attribute value %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	values, err := loadValues(ctx, q, attr, `v.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("attribute value %s: %w", id, ErrNotFound)
	}
	v := values[0]
	v.Attribute = attr
	return &v, nil
}

func (c *Client) GetAttributeValue(ctx context.Context, id string) (*policy.Value, error) {
	return getValue(ctx, c.db, id)
}

func (c *Client) ListAttributeValues(ctx context.Context, attributeID string, state policy.ActiveState, page policy.PageRequest) ([]policy.Value, policy.PageResponse, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, policy.PageResponse{}, err
	}
	attr, err := getAttributeRow(ctx, c.db, `a.id = ?`, attributeID)
	if err != nil {
		return nil, policy.PageResponse{}, err
	}
	where := `v.attribute_definition_id = ? AND ` + activeClause("v", state)

	total, err := countRows(ctx, c.db, `SELECT COUNT(*) FROM attribute_values v WHERE `+where, attributeID)
	if err != nil {
		return nil, policy.PageResponse{}, wrapErr(err, "count values")
	}
	values, err := loadValues(ctx, c.db, attr,
		`v.id IN (SELECT v.id FROM attribute_values v WHERE `+where+` ORDER BY v.sort_order LIMIT ? OFFSET ?)`,
		attributeID, page.Limit, page.Offset)
	if err != nil {
		return nil, policy.PageResponse{}, err
	}
	return values, policy.NewPageResponse(page, len(values), total), nil
}

func (c *Client) insertValue(ctx context.Context, q querier, attributeID, value string, order int, labels string) error {
	id, now := c.newID(), c.timestamp()
	return c.insertValueWithID(ctx, q, id, attributeID, value, order, labels, now)
}

func (c *Client) insertValueWithID(ctx context.Context, q querier, id, attributeID, value string, order int, labels, now string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO attribute_values(id, attribute_definition_id, value, sort_order, active, labels, created_at, updated_at)
		 VALUES(?, ?, ?, ?, 1, ?, ?, ?)`,
		id, attributeID, strings.ToLower(value), order, labels, now, now)
	return wrapErr(err, fmt.Sprintf("create attribute value %q", value))
}

type CreateAttributeValueParams struct {
	AttributeID string
	Value       string
	// Members are ids of other values of the same attribute.
	Members  []string
	Metadata *policy.MetadataMutable
}

func (c *Client) CreateAttributeValue(ctx context.Context, p CreateAttributeValueParams) (*policy.Value, error) {
	if err := policy.ValidateName("attribute value", p.Value); err != nil {
		return nil, err
	}
	labels, err := encodeLabels(labelsOf(p.Metadata))
	if err != nil {
		return nil, err
	}

	id := c.newID()
	err = c.withTx(ctx, func(tx *sql.Tx) error {
		attr, err := getAttributeRow(ctx, tx, `a.id = ?`, p.AttributeID)
		if err != nil {
			return err
		}
		if !attr.Active {
			return fmt.Errorf("attribute %s: %w", attr.FQN, ErrInactive)
		}

		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(sort_order) + 1, 0) FROM attribute_values WHERE attribute_definition_id = ?`,
			attr.ID).Scan(&next); err != nil {
			return wrapErr(err, "next value order")
		}
		if err := c.insertValueWithID(ctx, tx, id, attr.ID, p.Value, next, labels, c.timestamp()); err != nil {
			return err
		}
		return setMembers(ctx, tx, attr.ID, id, p.Members)
	})
	if err != nil {
		return nil, err
	}
	return c.GetAttributeValue(ctx, id)
}

type UpdateAttributeValueParams struct {
	ID string
	// Members replaces the member list when non-nil. An empty, non-nil
	// slice clears it.
	Members          []string
	Metadata         *policy.MetadataMutable
	MetadataBehavior policy.MetadataUpdateBehavior
}

func (c *Client) UpdateAttributeValue(ctx context.Context, p UpdateAttributeValueParams) (*policy.Value, error) {
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getValue(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if p.Members != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM attribute_value_members WHERE value_id = ?`, p.ID); err != nil {
				return wrapErr(err, "clear members")
			}
			if err := setMembers(ctx, tx, cur.Attribute.ID, p.ID, p.Members); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE attribute_values SET updated_at = ? WHERE id = ?`, c.timestamp(), p.ID); err != nil {
				return wrapErr(err, "touch value")
			}
		}
		return c.updateLabels(ctx, tx, "attribute_values", p.ID, cur.Metadata.Labels, p.Metadata, p.MetadataBehavior)
	})
	if err != nil {
		return nil, err
	}
	return c.GetAttributeValue(ctx, p.ID)
}

// setMembers links valueID to each member. Members must be other values of
// the same attribute.
func setMembers(ctx context.Context, q querier, attributeID, valueID string, members []string) error {
	seen := map[string]struct{}{}
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m == "" {
			return fmt.Errorf("%w: empty member id", policy.ErrInvalid)
		}
		if m == valueID {
			return fmt.Errorf("%w: value %s cannot be a member of itself", policy.ErrInvalid, valueID)
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}

		var owner string
		err := q.QueryRowContext(ctx, `SELECT attribute_definition_id FROM attribute_values WHERE id = ?`, m).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: member %s does not exist", policy.ErrInvalid, m)
		}
		if err != nil {
			return wrapErr(err, "member value "+m)
		}
		if owner != attributeID {
			return fmt.Errorf("%w: member %s belongs to another attribute", policy.ErrInvalid, m)
		}
		if _, err := q.ExecContext(ctx, `INSERT INTO attribute_value_members(value_id, member_id) VALUES(?, ?)`, valueID, m); err != nil {
			return wrapErr(err, "add member "+m)
		}
	}
	return nil
}

func (c *Client) DeactivateAttributeValue(ctx context.Context, id string) (*policy.Value, error) {
	res, err := c.db.ExecContext(ctx, `UPDATE attribute_values SET active = 0, updated_at = ? WHERE id = ?`, c.timestamp(), id)
	if err != nil {
		return nil, wrapErr(err, "deactivate attribute value")
	}
	if err := requireAffected(res, "attribute value "+id); err != nil {
		return nil, err
	}
	return c.GetAttributeValue(ctx, id)
}
