package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"serenyx/pkg/platform/sentinel"
)

// Postgres stores every collection in one JSONB table. Uniqueness keys ride
// on the primary key (collection, id): insert-if-absent is ON CONFLICT DO
// NOTHING, increments are a single jsonb_set UPDATE, and Transact maps to a
// database transaction.
type Postgres struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgres connects and prepares the schema. timeout bounds every store
// call; expiry surfaces as sentinel.ErrUnavailable.
func NewPostgres(ctx context.Context, url string, timeout time.Duration) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Postgres{pool: pool, timeout: timeout}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Postgres) ensureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS documents (
			collection text NOT NULL,
			id         text NOT NULL,
			doc        jsonb NOT NULL,
			PRIMARY KEY (collection, id)
		);
		CREATE INDEX IF NOT EXISTS documents_doc_idx ON documents USING gin (doc);
	`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// Health verifies database connectivity.
func (s *Postgres) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// querier is satisfied by both the pool and pgx transactions so the same
// statements serve Store and Tx paths.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return pgGet(ctx, s.pool, collection, id)
}

func (s *Postgres) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id := uuid.NewString()
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)`,
		collection, id, raw)
	if err != nil {
		return "", mapPgError(err)
	}
	return id, nil
}

func (s *Postgres) Put(ctx context.Context, collection, id string, doc Document) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return pgPut(ctx, s.pool, collection, id, doc)
}

func (s *Postgres) InsertIfAbsent(ctx context.Context, collection, id string, doc Document) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return pgInsertIfAbsent(ctx, s.pool, collection, id, doc)
}

func (s *Postgres) Update(ctx context.Context, collection, id string, fields Document) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET doc = doc || $3::jsonb WHERE collection = $1 AND id = $2`,
		collection, id, raw)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, collection, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return pgIncrement(ctx, s.pool, collection, id, field, delta)
}

func (s *Postgres) Query(ctx context.Context, collection string, q Query) ([]Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sql, args, err := buildQuery(collection, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
		records = append(records, Record{ID: id, Doc: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return records, nil
}

// transactAttempts bounds the serialization-failure retry loop.
const transactAttempts = 5

// Transact runs fn in a serializable transaction. Serialization failures
// (40001) and deadlocks (40P01) are ordinary contention under this isolation
// level, so they are retried up to transactAttempts times before surfacing.
func (s *Postgres) Transact(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var err error
	for attempt := 0; attempt < transactAttempts; attempt++ {
		err = s.transactOnce(ctx, fn)
		if !isSerializationFailure(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
}

func (s *Postgres) transactOnce(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return mapPgError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Get(ctx context.Context, collection, id string) (Document, error) {
	return pgGet(ctx, t.tx, collection, id)
}

func (t *pgTx) Put(ctx context.Context, collection, id string, doc Document) error {
	return pgPut(ctx, t.tx, collection, id, doc)
}

func (t *pgTx) InsertIfAbsent(ctx context.Context, collection, id string, doc Document) error {
	return pgInsertIfAbsent(ctx, t.tx, collection, id, doc)
}

func (t *pgTx) Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	return pgIncrement(ctx, t.tx, collection, id, field, delta)
}

func pgGet(ctx context.Context, q querier, collection, id string) (Document, error) {
	var raw []byte
	err := q.QueryRow(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND id = $2`,
		collection, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

func pgPut(ctx context.Context, q querier, collection, id string, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	_, err = q.Exec(ctx,
		`INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc`,
		collection, id, raw)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func pgInsertIfAbsent(ctx context.Context, q querier, collection, id string, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	tag, err := q.Exec(ctx,
		`INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO NOTHING`,
		collection, id, raw)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func pgIncrement(ctx context.Context, q querier, collection, id, field string, delta int64) (int64, error) {
	var next int64
	err := q.QueryRow(ctx,
		`UPDATE documents
		 SET doc = jsonb_set(doc, ARRAY[$3], to_jsonb(COALESCE((doc->>$3)::bigint, 0) + $4))
		 WHERE collection = $1 AND id = $2
		 RETURNING (doc->>$3)::bigint`,
		collection, id, field, delta).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, mapPgError(err)
	}
	return next, nil
}

// buildQuery assembles the filtered scan. Field names are code-controlled;
// values are marshaled to JSON and compared as jsonb, which orders numbers
// numerically and strings lexicographically.
func buildQuery(collection string, q Query) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, doc FROM documents WHERE collection = $1`)
	args := []any{collection}

	for _, f := range q.Filters {
		op, ok := sqlOp(f.Op)
		if !ok {
			return "", nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("marshal filter value: %w", err)
		}
		args = append(args, f.Field, string(value))
		fmt.Fprintf(&sb, " AND doc->$%d %s $%d::jsonb", len(args)-1, op, len(args))
	}

	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		fmt.Fprintf(&sb, " ORDER BY doc->$%d", len(args))
		if q.Desc {
			sb.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args, nil
}

func sqlOp(op FilterOp) (string, bool) {
	switch op {
	case OpEq:
		return "=", true
	case OpGte:
		return ">=", true
	case OpLte:
		return "<=", true
	}
	return "", false
}

// mapPgError folds transport-level failures into sentinel.ErrUnavailable so
// callers see one transient-failure kind; constraint hits become ErrConflict.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 unique_violation
		if pgErr.Code == "23505" {
			return fmt.Errorf("%w: %v", sentinel.ErrConflict, err)
		}
		// Class 08: connection exceptions
		if strings.HasPrefix(pgErr.Code, "08") {
			return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
		}
		return err
	}
	if pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return err
}
