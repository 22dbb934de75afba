package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/timgst1/policyd/internal/policy"
)

const attributeColumns = `a.id, a.name, a.rule, a.active, a.labels, a.created_at, a.updated_at, ` + namespaceColumns

const attributeFrom = ` FROM attribute_definitions a JOIN namespaces n ON n.id = a.namespace_id`

func scanAttribute(sc interface{ Scan(...any) error }) (policy.Attribute, error) {
	var (
		a      policy.Attribute
		rule   string
		active int
		m      metaRow
		ns     policy.Namespace
		nsAct  int
		nsMeta metaRow
	)
	err := sc.Scan(&a.ID, &a.Name, &rule, &active, &m.labels, &m.createdAt, &m.updatedAt,
		&ns.ID, &ns.Name, &nsAct, &nsMeta.labels, &nsMeta.createdAt, &nsMeta.updatedAt)
	if err != nil {
		return policy.Attribute{}, err
	}
	ns.Active = nsAct == 1
	ns.FQN = policy.NamespaceFQN(ns.Name)
	ns.Metadata = nsMeta.metadata()

	a.Rule = policy.AttributeRule(rule)
	a.Active = active == 1
	a.Namespace = &ns
	a.FQN = policy.AttributeFQN(ns.Name, a.Name)
	a.Metadata = m.metadata()
	return a, nil
}

type ListAttributesParams struct {
	State policy.ActiveState
	// Namespace filters by namespace id or name when set.
	Namespace string
	Page      policy.PageRequest
}

func (c *Client) ListAttributes(ctx context.Context, p ListAttributesParams) ([]policy.Attribute, policy.PageResponse, error) {
	page, err := p.Page.Normalize()
	if err != nil {
		return nil, policy.PageResponse{}, err
	}
	where := activeClause("a", p.State)
	var args []any
	if ns := strings.TrimSpace(p.Namespace); ns != "" {
		where += ` AND (n.id = ? OR n.name = ?)`
		args = append(args, ns, strings.ToLower(ns))
	}

	total, err := countRows(ctx, c.db, `SELECT COUNT(*)`+attributeFrom+` WHERE `+where, args...)
	if err != nil {
		return nil, policy.PageResponse{}, wrapErr(err, "count attributes")
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT `+attributeColumns+attributeFrom+` WHERE `+where+` ORDER BY n.name, a.name LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, policy.PageResponse{}, wrapErr(err, "list attributes")
	}
	var out []policy.Attribute
	for rows.Next() {
		a, err := scanAttribute(rows)
		if err != nil {
			rows.Close()
			return nil, policy.PageResponse{}, err
		}
		out = append(out, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, policy.PageResponse{}, err
	}

	for i := range out {
		if err := hydrateAttribute(ctx, c.db, &out[i]); err != nil {
			return nil, policy.PageResponse{}, err
		}
	}
	return out, policy.NewPageResponse(page, len(out), total), nil
}

func (c *Client) GetAttribute(ctx context.Context, id string) (*policy.Attribute, error) {
	return getAttribute(ctx, c.db, `a.id = ?`, id)
}

// GetAttributeByFQN looks up https://<ns>/attr/<name>.
func (c *Client) GetAttributeByFQN(ctx context.Context, fqn string) (*policy.Attribute, error) {
	f, err := policy.ParseFQN(fqn)
	if err != nil {
		return nil, err
	}
	if f.Attribute == "" || f.Value != "" {
		return nil, fmt.Errorf("%w: %q is not an attribute fqn", policy.ErrInvalid, fqn)
	}
	row := c.db.QueryRowContext(ctx, `SELECT `+attributeColumns+attributeFrom+` WHERE n.name = ? AND a.name = ?`, f.Namespace, f.Attribute)
	a, err := scanAttribute(row)
	if err != nil {
		return nil, wrapErr(err, "attribute "+fqn)
	}
	if err := hydrateAttribute(ctx, c.db, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func getAttribute(ctx context.Context, q querier, cond string, arg any) (*policy.Attribute, error) {
	a, err := getAttributeRow(ctx, q, cond, arg)
	if err != nil {
		return nil, err
	}
	if err := hydrateAttribute(ctx, q, a); err != nil {
		return nil, err
	}
	return a, nil
}

// getAttributeRow loads the attribute without values or grants.
func getAttributeRow(ctx context.Context, q querier, cond string, arg any) (*policy.Attribute, error) {
	row := q.QueryRowContext(ctx, `SELECT `+attributeColumns+attributeFrom+` WHERE `+cond, arg)
	a, err := scanAttribute(row)
	if err != nil {
		return nil, wrapErr(err, fmt.Sprintf("attribute %v", arg))
	}
	return &a, nil
}

// hydrateAttribute fills in ordered values (with members and grants) and
// the attribute's own grants.
func hydrateAttribute(ctx context.Context, q querier, a *policy.Attribute) error {
	values, err := loadValues(ctx, q, a, `v.attribute_definition_id = ?`, a.ID)
	if err != nil {
		return err
	}
	a.Values = values
	grants, err := loadAttributeGrants(ctx, q, a.ID)
	if err != nil {
		return err
	}
	a.Grants = grants
	return nil
}

type CreateAttributeParams struct {
	NamespaceID string
	Name        string
	Rule        policy.AttributeRule
	// Values are created in order; for HIERARCHY attributes the first value
	// ranks highest.
	Values   []string
	Metadata *policy.MetadataMutable
}

func (c *Client) CreateAttribute(ctx context.Context, p CreateAttributeParams) (*policy.Attribute, error) {
	if err := policy.ValidateName("attribute name", p.Name); err != nil {
		return nil, err
	}
	if !p.Rule.Valid() {
		return nil, fmt.Errorf("%w: attribute rule must be ALL_OF, ANY_OF or HIERARCHY", policy.ErrInvalid)
	}
	if err := policy.ValidateValues(p.Values); err != nil {
		return nil, err
	}
	labels, err := encodeLabels(labelsOf(p.Metadata))
	if err != nil {
		return nil, err
	}

	id := c.newID()
	err = c.withTx(ctx, func(tx *sql.Tx) error {
		ns, err := getNamespace(ctx, tx, `n.id = ?`, p.NamespaceID)
		if err != nil {
			return err
		}
		if !ns.Active {
			return fmt.Errorf("namespace %s: %w", ns.Name, ErrInactive)
		}

		now := c.timestamp()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO attribute_definitions(id, namespace_id, name, rule, active, labels, created_at, updated_at)
			 VALUES(?, ?, ?, ?, 1, ?, ?, ?)`,
			id, ns.ID, strings.ToLower(p.Name), string(p.Rule), labels, now, now)
		if err != nil {
			return wrapErr(err, fmt.Sprintf("create attribute %q", p.Name))
		}
		for i, v := range p.Values {
			if err := c.insertValue(ctx, tx, id, v, i, "{}"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.GetAttribute(ctx, id)
}

func (c *Client) UpdateAttribute(ctx context.Context, id string, md *policy.MetadataMutable, behavior policy.MetadataUpdateBehavior) (*policy.Attribute, error) {
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getAttributeRow(ctx, tx, `a.id = ?`, id)
		if err != nil {
			return err
		}
		return c.updateLabels(ctx, tx, "attribute_definitions", id, cur.Metadata.Labels, md, behavior)
	})
	if err != nil {
		return nil, err
	}
	return c.GetAttribute(ctx, id)
}

// DeactivateAttribute marks the attribute and all of its values inactive.
func (c *Client) DeactivateAttribute(ctx context.Context, id string) (*policy.Attribute, error) {
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getAttributeRow(ctx, tx, `a.id = ?`, id); err != nil {
			return err
		}
		now := c.timestamp()
		if _, err := tx.ExecContext(ctx, `UPDATE attribute_definitions SET active = 0, updated_at = ? WHERE id = ?`, now, id); err != nil {
			return wrapErr(err, "deactivate attribute")
		}
		if _, err := tx.ExecContext(ctx, `UPDATE attribute_values SET active = 0, updated_at = ? WHERE active = 1 AND attribute_definition_id = ?`, now, id); err != nil {
			return wrapErr(err, "deactivate attribute values")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.GetAttribute(ctx, id)
}
