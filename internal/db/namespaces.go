package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/timgst1/policyd/internal/policy"
)

const namespaceColumns = `n.id, n.name, n.active, n.labels, n.created_at, n.updated_at`

func scanNamespace(sc interface{ Scan(...any) error }) (policy.Namespace, error) {
	var (
		ns     policy.Namespace
		active int
		m      metaRow
	)
	if err := sc.Scan(&ns.ID, &ns.Name, &active, &m.labels, &m.createdAt, &m.updatedAt); err != nil {
		return policy.Namespace{}, err
	}
	ns.Active = active == 1
	ns.FQN = policy.NamespaceFQN(ns.Name)
	ns.Metadata = m.metadata()
	return ns, nil
}

func (c *Client) ListNamespaces(ctx context.Context, state policy.ActiveState, page policy.PageRequest) ([]policy.Namespace, policy.PageResponse, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, policy.PageResponse{}, err
	}
	where := activeClause("n", state)

	total, err := countRows(ctx, c.db, `SELECT COUNT(*) FROM namespaces n WHERE `+where)
	if err != nil {
		return nil, policy.PageResponse{}, wrapErr(err, "count namespaces")
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT `+namespaceColumns+` FROM namespaces n WHERE `+where+` ORDER BY n.name LIMIT ? OFFSET ?`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, policy.PageResponse{}, wrapErr(err, "list namespaces")
	}
	defer rows.Close()

	var out []policy.Namespace
	for rows.Next() {
		ns, err := scanNamespace(rows)
		if err != nil {
			return nil, policy.PageResponse{}, err
		}
		out = append(out, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, policy.PageResponse{}, err
	}
	return out, policy.NewPageResponse(page, len(out), total), nil
}

func (c *Client) GetNamespace(ctx context.Context, id string) (*policy.Namespace, error) {
	return getNamespace(ctx, c.db, `n.id = ?`, id)
}

func (c *Client) GetNamespaceByName(ctx context.Context, name string) (*policy.Namespace, error) {
	return getNamespace(ctx, c.db, `n.name = ?`, strings.ToLower(strings.TrimSpace(name)))
}

func getNamespace(ctx context.Context, q querier, cond string, arg any) (*policy.Namespace, error) {
	row := q.QueryRowContext(ctx, `SELECT `+namespaceColumns+` FROM namespaces n WHERE `+cond, arg)
	ns, err := scanNamespace(row)
	if err != nil {
		return nil, wrapErr(err, fmt.Sprintf("namespace %v", arg))
	}
	return &ns, nil
}

func (c *Client) CreateNamespace(ctx context.Context, name string, md *policy.MetadataMutable) (*policy.Namespace, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if err := policy.ValidateNamespaceName(name); err != nil {
		return nil, err
	}
	labels, err := encodeLabels(labelsOf(md))
	if err != nil {
		return nil, err
	}

	id, now := c.newID(), c.timestamp()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO namespaces(id, name, active, labels, created_at, updated_at) VALUES(?, ?, 1, ?, ?, ?)`,
		id, name, labels, now, now)
	if err != nil {
		return nil, wrapErr(err, fmt.Sprintf("create namespace %q", name))
	}
	return c.GetNamespace(ctx, id)
}

func (c *Client) UpdateNamespace(ctx context.Context, id string, md *policy.MetadataMutable, behavior policy.MetadataUpdateBehavior) (*policy.Namespace, error) {
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getNamespace(ctx, tx, `n.id = ?`, id)
		if err != nil {
			return err
		}
		return c.updateLabels(ctx, tx, "namespaces", id, cur.Metadata.Labels, md, behavior)
	})
	if err != nil {
		return nil, err
	}
	return c.GetNamespace(ctx, id)
}

// DeactivateNamespace marks the namespace inactive together with all of its
// attributes and their values.
func (c *Client) DeactivateNamespace(ctx context.Context, id string) (*policy.Namespace, error) {
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getNamespace(ctx, tx, `n.id = ?`, id); err != nil {
			return err
		}
		now := c.timestamp()
		if _, err := tx.ExecContext(ctx, `UPDATE namespaces SET active = 0, updated_at = ? WHERE id = ?`, now, id); err != nil {
			return wrapErr(err, "deactivate namespace")
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE attribute_values SET active = 0, updated_at = ?
			 WHERE active = 1 AND attribute_definition_id IN (SELECT id FROM attribute_definitions WHERE namespace_id = ?)`,
			now, id); err != nil {
			return wrapErr(err, "deactivate namespace values")
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE attribute_definitions SET active = 0, updated_at = ? WHERE active = 1 AND namespace_id = ?`, now, id); err != nil {
			return wrapErr(err, "deactivate namespace attributes")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.GetNamespace(ctx, id)
}

// updateLabels rewrites the labels column of one row in table.
func (c *Client) updateLabels(ctx context.Context, q querier, table, id string, current map[string]string, md *policy.MetadataMutable, behavior policy.MetadataUpdateBehavior) error {
	if md == nil {
		return nil
	}
	labels, err := encodeLabels(policy.MergeLabels(current, md, behavior))
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `UPDATE `+table+` SET labels = ?, updated_at = ? WHERE id = ?`, labels, c.timestamp(), id)
	if err != nil {
		return wrapErr(err, "update "+table)
	}
	return requireAffected(res, table+" "+id)
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
