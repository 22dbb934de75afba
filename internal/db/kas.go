package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/timgst1/policyd/internal/policy"
)

const kasColumns = `k.id, k.uri, k.name, k.public_key_remote, k.public_key_local, k.labels, k.created_at, k.updated_at`

func scanKAS(sc interface{ Scan(...any) error }) (policy.KeyAccessServer, error) {
	var (
		k policy.KeyAccessServer
		m metaRow
	)
	if err := sc.Scan(&k.ID, &k.URI, &k.Name, &k.PublicKey.Remote, &k.PublicKey.Local, &m.labels, &m.createdAt, &m.updatedAt); err != nil {
		return policy.KeyAccessServer{}, err
	}
	k.Metadata = m.metadata()
	return k, nil
}

func queryKAS(ctx context.Context, q querier, query string, args ...any) ([]policy.KeyAccessServer, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "query key access servers")
	}
	defer rows.Close()

	var out []policy.KeyAccessServer
	for rows.Next() {
		k, err := scanKAS(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (c *Client) ListKeyAccessServers(ctx context.Context, page policy.PageRequest) ([]policy.KeyAccessServer, policy.PageResponse, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, policy.PageResponse{}, err
	}
	total, err := countRows(ctx, c.db, `SELECT COUNT(*) FROM key_access_servers`)
	if err != nil {
		return nil, policy.PageResponse{}, wrapErr(err, "count key access servers")
	}
	out, err := queryKAS(ctx, c.db, `SELECT `+kasColumns+` FROM key_access_servers k ORDER BY k.uri LIMIT ? OFFSET ?`, page.Limit, page.Offset)
	if err != nil {
		return nil, policy.PageResponse{}, err
	}
	return out, policy.NewPageResponse(page, len(out), total), nil
}

func (c *Client) GetKeyAccessServer(ctx context.Context, id string) (*policy.KeyAccessServer, error) {
	return getKAS(ctx, c.db, `k.id = ?`, id)
}

// GetKeyAccessServerByURI is used by provisioning to reuse existing entries.
func (c *Client) GetKeyAccessServerByURI(ctx context.Context, uri string) (*policy.KeyAccessServer, error) {
	return getKAS(ctx, c.db, `k.uri = ?`, strings.TrimSpace(uri))
}

func getKAS(ctx context.Context, q querier, cond string, arg any) (*policy.KeyAccessServer, error) {
	k, err := scanKAS(q.QueryRowContext(ctx, `SELECT `+kasColumns+` FROM key_access_servers k WHERE `+cond, arg))
	if err != nil {
		return nil, wrapErr(err, fmt.Sprintf("key access server %v", arg))
	}
	return &k, nil
}

type CreateKeyAccessServerParams struct {
	URI       string
	Name      string
	PublicKey policy.PublicKey
	Metadata  *policy.MetadataMutable
}

func (c *Client) CreateKeyAccessServer(ctx context.Context, p CreateKeyAccessServerParams) (*policy.KeyAccessServer, error) {
	if err := policy.ValidateKeyAccessServer(p.URI, p.PublicKey); err != nil {
		return nil, err
	}
	if p.Name != "" {
		if err := policy.ValidateName("key access server name", p.Name); err != nil {
			return nil, err
		}
	}
	labels, err := encodeLabels(labelsOf(p.Metadata))
	if err != nil {
		return nil, err
	}

	id, now := c.newID(), c.timestamp()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO key_access_servers(id, uri, name, public_key_remote, public_key_local, labels, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		id, strings.TrimSpace(p.URI), strings.ToLower(p.Name),
		strings.TrimSpace(p.PublicKey.Remote), strings.TrimSpace(p.PublicKey.Local), labels, now, now)
	if err != nil {
		return nil, wrapErr(err, fmt.Sprintf("create key access server %q", p.URI))
	}
	return c.GetKeyAccessServer(ctx, id)
}

type UpdateKeyAccessServerParams struct {
	ID string
	// Empty URI and Name and a nil PublicKey leave those fields unchanged.
	URI              string
	Name             string
	PublicKey        *policy.PublicKey
	Metadata         *policy.MetadataMutable
	MetadataBehavior policy.MetadataUpdateBehavior
}

func (c *Client) UpdateKeyAccessServer(ctx context.Context, p UpdateKeyAccessServerParams) (*policy.KeyAccessServer, error) {
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getKAS(ctx, tx, `k.id = ?`, p.ID)
		if err != nil {
			return err
		}
		next := *cur
		if p.URI != "" {
			next.URI = strings.TrimSpace(p.URI)
		}
		if p.Name != "" {
			if err := policy.ValidateName("key access server name", p.Name); err != nil {
				return err
			}
			next.Name = strings.ToLower(p.Name)
		}
		if p.PublicKey != nil {
			next.PublicKey = *p.PublicKey
		}
		if err := policy.ValidateKeyAccessServer(next.URI, next.PublicKey); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE key_access_servers SET uri = ?, name = ?, public_key_remote = ?, public_key_local = ?, updated_at = ? WHERE id = ?`,
			next.URI, next.Name, strings.TrimSpace(next.PublicKey.Remote), strings.TrimSpace(next.PublicKey.Local), c.timestamp(), p.ID)
		if err != nil {
			return wrapErr(err, "update key access server")
		}
		return c.updateLabels(ctx, tx, "key_access_servers", p.ID, cur.Metadata.Labels, p.Metadata, p.MetadataBehavior)
	})
	if err != nil {
		return nil, err
	}
	return c.GetKeyAccessServer(ctx, p.ID)
}

// DeleteKeyAccessServer fails with ErrRestrictViolation while the server is
// granted to any attribute or value.
func (c *Client) DeleteKeyAccessServer(ctx context.Context, id string) (*policy.KeyAccessServer, error) {
	var deleted *policy.KeyAccessServer
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		k, err := getKAS(ctx, tx, `k.id = ?`, id)
		if err != nil {
			return err
		}
		refs, err := countRows(ctx, tx,
			`SELECT (SELECT COUNT(*) FROM attribute_definition_key_access_grants WHERE key_access_server_id = ?)
			      + (SELECT COUNT(*) FROM attribute_value_key_access_grants WHERE key_access_server_id = ?)`, id, id)
		if err != nil {
			return wrapErr(err, "count grants")
		}
		if refs > 0 {
			return fmt.Errorf("key access server %s has %d grants: %w", k.URI, refs, ErrRestrictViolation)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM key_access_servers WHERE id = ?`, id); err != nil {
			return wrapErr(err, "delete key access server")
		}
		deleted = k
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
