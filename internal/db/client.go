// Package db is the policy store. It owns referential integrity between
// namespaces, attributes, values, key access servers, subject condition
// sets and subject mappings on top of the SQLite schema.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/timgst1/policyd/internal/policy"
)

var (
	ErrNotFound                  = errors.New("not found")
	ErrUniqueConstraintViolation = errors.New("already exists")
	ErrForeignKeyViolation       = errors.New("referenced resource does not exist")
	ErrRestrictViolation         = errors.New("resource is still referenced")
	ErrInactive                  = errors.New("resource is inactive")
	ErrBusy                      = errors.New("database is busy")
)

const beginAttempts = 3

type Client struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
	log   *slog.Logger
}

type Option func(*Client)

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(sqlDB *sql.DB, opts ...Option) *Client {
	c := &Client{
		db:    sqlDB,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
		log:   slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a write transaction. BEGIN is retried while another
// writer holds the lock past busy_timeout.
func (c *Client) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var (
		tx  *sql.Tx
		err error
	)
	for attempt := 0; attempt < beginAttempts; attempt++ {
		tx, err = c.db.BeginTx(ctx, nil)
		if err == nil || !isBusy(err) {
			break
		}
		c.log.Warn("sqlite busy, retrying begin", "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	if err != nil {
		return wrapErr(err, "begin")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return wrapErr(err, "commit")
	}
	return nil
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// wrapErr maps SQLite constraint failures onto the package sentinels.
func wrapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "PRIMARY KEY constraint failed"):
		return fmt.Errorf("%s: %w", what, ErrUniqueConstraintViolation)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%s: %w", what, ErrForeignKeyViolation)
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%s: %w: %s", what, policy.ErrInvalid, msg)
	case isBusy(err):
		return fmt.Errorf("%s: %w", what, ErrBusy)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (c *Client) timestamp() string {
	return c.now().UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func encodeLabels(labels map[string]string) (string, error) {
	if len(labels) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeLabels(s string) map[string]string {
	if s == "" || s == "{}" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}

func labelsOf(md *policy.MetadataMutable) map[string]string {
	if md == nil {
		return nil
	}
	return md.Labels
}

// metaRow is the metadata columns every table carries.
type metaRow struct {
	labels    string
	createdAt string
	updatedAt string
}

func (m metaRow) metadata() *policy.Metadata {
	return &policy.Metadata{
		CreatedAt: parseTime(m.createdAt),
		UpdatedAt: parseTime(m.updatedAt),
		Labels:    decodeLabels(m.labels),
	}
}

// activeClause filters on the active column of alias for state.
func activeClause(alias string, state policy.ActiveState) string {
	switch state.Resolve() {
	case policy.ActiveStateInactive:
		return alias + ".active = 0"
	case policy.ActiveStateAny:
		return "1 = 1"
	default:
		return alias + ".active = 1"
	}
}

// Condition sets and actions are stored with Core Deterministic Encoding so
// equal values always produce equal blobs.
var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("db: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("db: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeSubjectSets(sets []policy.SubjectSet) ([]byte, error) {
	return cborEnc.Marshal(sets)
}

func decodeSubjectSets(b []byte) ([]policy.SubjectSet, error) {
	var sets []policy.SubjectSet
	if err := cborDec.Unmarshal(b, &sets); err != nil {
		return nil, fmt.Errorf("decode subject sets: %w", err)
	}
	return sets, nil
}

func encodeActions(actions []policy.Action) ([]byte, error) {
	return cborEnc.Marshal(actions)
}

func decodeActions(b []byte) ([]policy.Action, error) {
	var actions []policy.Action
	if err := cborDec.Unmarshal(b, &actions); err != nil {
		return nil, fmt.Errorf("decode actions: %w", err)
	}
	return actions, nil
}

func countRows(ctx context.Context, q querier, query string, args ...any) (int32, error) {
	var n int32
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
