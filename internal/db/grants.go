package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/timgst1/policyd/internal/policy"
)

// Grant links a key access server to an attribute or a value.
type Grant struct {
	TargetID          string `json:"target_id"`
	KeyAccessServerID string `json:"key_access_server_id"`
}

type grantTable struct {
	table  string
	column string
	// parent is the table the target id must exist in.
	parent string
}

var (
	attributeGrants = grantTable{table: "attribute_definition_key_access_grants", column: "attribute_definition_id", parent: "attribute_definitions"}
	valueGrants     = grantTable{table: "attribute_value_key_access_grants", column: "attribute_value_id", parent: "attribute_values"}
)

func loadAttributeGrants(ctx context.Context, q querier, attributeID string) ([]policy.KeyAccessServer, error) {
	return queryKAS(ctx, q, `SELECT `+kasColumns+` FROM key_access_servers k
		JOIN attribute_definition_key_access_grants g ON g.key_access_server_id = k.id
		WHERE g.attribute_definition_id = ? ORDER BY k.uri`, attributeID)
}

func loadValueGrants(ctx context.Context, q querier, valueID string) ([]policy.KeyAccessServer, error) {
	return queryKAS(ctx, q, `SELECT `+kasColumns+` FROM key_access_servers k
		JOIN attribute_value_key_access_grants g ON g.key_access_server_id = k.id
		WHERE g.attribute_value_id = ? ORDER BY k.uri`, valueID)
}

func (c *Client) AssignKeyAccessServerToAttribute(ctx context.Context, g Grant) (Grant, error) {
	return g, c.assignGrant(ctx, attributeGrants, g)
}

func (c *Client) RemoveKeyAccessServerFromAttribute(ctx context.Context, g Grant) (Grant, error) {
	return g, c.removeGrant(ctx, attributeGrants, g)
}

func (c *Client) AssignKeyAccessServerToValue(ctx context.Context, g Grant) (Grant, error) {
	return g, c.assignGrant(ctx, valueGrants, g)
}

func (c *Client) RemoveKeyAccessServerFromValue(ctx context.Context, g Grant) (Grant, error) {
	return g, c.removeGrant(ctx, valueGrants, g)
}

func (c *Client) assignGrant(ctx context.Context, t grantTable, g Grant) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRow(ctx, tx, t.parent, g.TargetID); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, "key_access_servers", g.KeyAccessServerID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO `+t.table+`(`+t.column+`, key_access_server_id) VALUES(?, ?)`,
			g.TargetID, g.KeyAccessServerID)
		return wrapErr(err, fmt.Sprintf("grant key access server %s to %s", g.KeyAccessServerID, g.TargetID))
	})
}

func (c *Client) removeGrant(ctx context.Context, t grantTable, g Grant) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM `+t.table+` WHERE `+t.column+` = ? AND key_access_server_id = ?`,
		g.TargetID, g.KeyAccessServerID)
	if err != nil {
		return wrapErr(err, "remove grant")
	}
	return requireAffected(res, fmt.Sprintf("grant of %s on %s", g.KeyAccessServerID, g.TargetID))
}

func requireRow(ctx context.Context, q querier, table, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	return wrapErr(err, fmt.Sprintf("%s %s", table, id))
}
