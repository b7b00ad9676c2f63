package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// MySQL server error numbers the adapter maps onto the domain taxonomy.
const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
	errDuplicateEntry  = 1062
	errRowIsReferenced = 1451
	errNoReferencedRow = 1452
	errOutOfRange      = 1264
	errValueOutOfRange = 1690
)

// uniqueKeyFields names the request field behind each unique key.
var uniqueKeyFields = map[string]string{
	"uq_categories_name": "name",
}

const defaultLockWaitTimeout = 5 * time.Second

// MySQLAdapter implements the unit of work and every accessor port on top
// of a single connection pool. Accessors run on the transaction of the
// scope they are given.
type MySQLAdapter struct {
	db       *sql.DB
	lockWait time.Duration
	logger   *slog.Logger
}

type MySQLOption func(*MySQLAdapter)

// WithLockWaitTimeout sets innodb_lock_wait_timeout for every writing scope.
// MySQL accepts whole seconds only, so d is rounded up.
func WithLockWaitTimeout(d time.Duration) MySQLOption {
	return func(m *MySQLAdapter) { m.lockWait = d }
}

func NewMySQLAdapter(db *sql.DB, logger *slog.Logger, opts ...MySQLOption) *MySQLAdapter {
	m := &MySQLAdapter{db: db, lockWait: defaultLockWaitTimeout, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OpenMySQL opens a pool for dsn with the driver settings the adapter relies
// on: parsed DATETIME columns in UTC and found-rows semantics, so that an
// UPDATE writing unchanged values still reports its row as affected.
func OpenMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

type mysqlScope struct {
	ctx context.Context
	tx  *sql.Tx
}

func (s *mysqlScope) Commit() error {
	if err := s.tx.Commit(); err != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return classify("commit", err)
	}
	return nil
}

func (s *mysqlScope) Rollback() error {
	err := s.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return classify("rollback", err)
}

func (m *MySQLAdapter) Begin(ctx context.Context, opts port.ScopeOptions) (port.Scope, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, classify("begin", err)
	}

	if !opts.ReadOnly && m.lockWait > 0 {
		seconds := int((m.lockWait + time.Second - 1) / time.Second)
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", seconds)); err != nil {
			tx.Rollback()
			return nil, classify("set lock wait timeout", err)
		}
	}

	return &mysqlScope{ctx: ctx, tx: tx}, nil
}

func txFrom(scope port.Scope) (*sql.Tx, error) {
	s, ok := scope.(*mysqlScope)
	if !ok || s == nil {
		return nil, &domain.StorageError{Op: "scope", Err: fmt.Errorf("scope %T was not opened by this adapter", scope)}
	}
	return s.tx, nil
}

// classify maps driver errors onto the domain taxonomy. Context errors pass
// through untouched so callers can tell cancellation from store failures.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errLockWaitTimeout, errDeadlock:
			return &domain.ContentionError{Op: op, Err: err}
		case errDuplicateEntry:
			return &domain.InvalidInputError{Field: duplicateField(myErr.Message), Reason: "already exists", Err: err}
		case errRowIsReferenced:
			return &domain.InvalidInputError{Field: "id", Reason: "is referenced by existing orders", Err: err}
		case errNoReferencedRow:
			return &domain.InvalidInputError{Field: "category_id", Reason: "does not exist", Err: err}
		case errOutOfRange, errValueOutOfRange:
			return &domain.InvalidInputError{Field: outOfRangeField(myErr.Message), Reason: "out of range", Err: err}
		}
	}
	return &domain.StorageError{Op: op, Err: err}
}

// duplicateField reads the key from "Duplicate entry 'x' for key 'table.key'".
func duplicateField(msg string) string {
	_, key, ok := strings.Cut(msg, "for key '")
	if !ok {
		return "key"
	}
	key = strings.TrimSuffix(key, "'")
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	if field, ok := uniqueKeyFields[key]; ok {
		return field
	}
	return key
}

// outOfRangeField reads the column from "Out of range value for column 'c'".
// Expression overflows (1690) name no column and report the stock quantity,
// the only arithmetic the adapter does.
func outOfRangeField(msg string) string {
	_, col, ok := strings.Cut(msg, "for column '")
	if !ok {
		return "quantity"
	}
	col, _, _ = strings.Cut(col, "'")
	return col
}

func affected(op string, result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, classify(op, err)
	}
	return rows > 0, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func idFromNull(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	id := n.Int64
	return &id
}
