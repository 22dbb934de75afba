package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/timgst1/policyd/internal/policy"
)

const scsColumns = `s.id, s.condition, s.labels, s.created_at, s.updated_at`

func scanSubjectConditionSet(sc interface{ Scan(...any) error }) (policy.SubjectConditionSet, error) {
	var (
		s    policy.SubjectConditionSet
		blob []byte
		m    metaRow
	)
	if err := sc.Scan(&s.ID, &blob, &m.labels, &m.createdAt, &m.updatedAt); err != nil {
		return policy.SubjectConditionSet{}, err
	}
	sets, err := decodeSubjectSets(blob)
	if err != nil {
		return policy.SubjectConditionSet{}, fmt.Errorf("subject condition set %s: %w", s.ID, err)
	}
	s.SubjectSets = sets
	s.Metadata = m.metadata()
	return s, nil
}

func (c *Client) ListSubjectConditionSets(ctx context.Context, page policy.PageRequest) ([]policy.SubjectConditionSet, policy.PageResponse, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, policy.PageResponse{}, err
	}
	total, err := countRows(ctx, c.db, `SELECT COUNT(*) FROM subject_condition_sets`)
	if err != nil {
		return nil, policy.PageResponse{}, wrapErr(err, "count subject condition sets")
	}
	rows, err := c.db.QueryContext(ctx, `SELECT `+scsColumns+` FROM subject_condition_sets s ORDER BY s.rowid LIMIT ? OFFSET ?`, page.Limit, page.Offset)
	if err != nil {
		return nil, policy.PageResponse{}, wrapErr(err, "list subject condition sets")
	}
	defer rows.Close()

	var out []policy.SubjectConditionSet
	for rows.Next() {
		s, err := scanSubjectConditionSet(rows)
		if err != nil {
			return nil, policy.PageResponse{}, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, policy.PageResponse{}, err
	}
	return out, policy.NewPageResponse(page, len(out), total), nil
}

func getSubjectConditionSet(ctx context.Context, q querier, id string) (*policy.SubjectConditionSet, error) {
	s, err := scanSubjectConditionSet(q.QueryRowContext(ctx, `SELECT `+scsColumns+` FROM subject_condition_sets s WHERE s.id = ?`, id))
	if err != nil {
		return nil, wrapErr(err, "subject condition set "+id)
	}
	return &s, nil
}

// GetSubjectConditionSet also returns the subject mappings that use the set.
func (c *Client) GetSubjectConditionSet(ctx context.Context, id string) (*policy.SubjectConditionSet, []policy.SubjectMapping, error) {
	s, err := getSubjectConditionSet(ctx, c.db, id)
	if err != nil {
		return nil, nil, err
	}
	mappings, err := querySubjectMappings(ctx, c.db, `sm.subject_condition_set_id = ?`, id)
	if err != nil {
		return nil, nil, err
	}
	return s, mappings, nil
}

func (c *Client) CreateSubjectConditionSet(ctx context.Context, sets []policy.SubjectSet, md *policy.MetadataMutable) (*policy.SubjectConditionSet, error) {
	id, err := c.createSubjectConditionSet(ctx, c.db, sets, md)
	if err != nil {
		return nil, err
	}
	return getSubjectConditionSet(ctx, c.db, id)
}

func (c *Client) createSubjectConditionSet(ctx context.Context, q querier, sets []policy.SubjectSet, md *policy.MetadataMutable) (string, error) {
	if err := policy.ValidateSubjectSets(sets); err != nil {
		return "", err
	}
	blob, err := encodeSubjectSets(sets)
	if err != nil {
		return "", err
	}
	labels, err := encodeLabels(labelsOf(md))
	if err != nil {
		return "", err
	}
	id, now := c.newID(), c.timestamp()
	_, err = q.ExecContext(ctx,
		`INSERT INTO subject_condition_sets(id, condition, labels, created_at, updated_at) VALUES(?, ?, ?, ?, ?)`,
		id, blob, labels, now, now)
	if err != nil {
		return "", wrapErr(err, "create subject condition set")
	}
	return id, nil
}

type UpdateSubjectConditionSetParams struct {
	ID string
	// SubjectSets replaces the stored sets when non-empty.
	SubjectSets      []policy.SubjectSet
	Metadata         *policy.MetadataMutable
	MetadataBehavior policy.MetadataUpdateBehavior
}

func (c *Client) UpdateSubjectConditionSet(ctx context.Context, p UpdateSubjectConditionSetParams) (*policy.SubjectConditionSet, error) {
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getSubjectConditionSet(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if len(p.SubjectSets) > 0 {
			if err := policy.ValidateSubjectSets(p.SubjectSets); err != nil {
				return err
			}
			blob, err := encodeSubjectSets(p.SubjectSets)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE subject_condition_sets SET condition = ?, updated_at = ? WHERE id = ?`,
				blob, c.timestamp(), p.ID); err != nil {
				return wrapErr(err, "update subject condition set")
			}
		}
		return c.updateLabels(ctx, tx, "subject_condition_sets", p.ID, cur.Metadata.Labels, p.Metadata, p.MetadataBehavior)
	})
	if err != nil {
		return nil, err
	}
	return getSubjectConditionSet(ctx, c.db, p.ID)
}

// DeleteSubjectConditionSet fails with ErrRestrictViolation while a subject
// mapping still uses the set.
func (c *Client) DeleteSubjectConditionSet(ctx context.Context, id string) (*policy.SubjectConditionSet, error) {
	var deleted *policy.SubjectConditionSet
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		s, err := getSubjectConditionSet(ctx, tx, id)
		if err != nil {
			return err
		}
		refs, err := countRows(ctx, tx, `SELECT COUNT(*) FROM subject_mappings WHERE subject_condition_set_id = ?`, id)
		if err != nil {
			return wrapErr(err, "count subject mappings")
		}
		if refs > 0 {
			return fmt.Errorf("subject condition set %s is used by %d subject mappings: %w", id, refs, ErrRestrictViolation)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM subject_condition_sets WHERE id = ?`, id); err != nil {
			return wrapErr(err, "delete subject condition set")
		}
		deleted = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
