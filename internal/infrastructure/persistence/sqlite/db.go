package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/travel-report/internal/application/port"
	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const txKey contextKey = "tx"

// Layouts used for DATE and DATETIME columns. Both sort lexically in
// chronological order and parse back through the driver.
const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05.000000000"
)

// DB wraps sql.DB and implements TransactionManager
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database wrapper
func NewDB(sqlDB *sql.DB, logger *zap.Logger) *DB {
	return &DB{
		DB:     sqlDB,
		logger: logger,
	}
}

// WithTransaction implements port.TransactionManager.
// Nested calls join the transaction already carried by ctx.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := extractTx(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			db.logger.Error("Transaction panicked, rolled back", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		db.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// extractTx retrieves transaction from context if present
func extractTx(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// Executor covers both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Conn returns the transaction carried by ctx, or db when there is none
func Conn(ctx context.Context, db *sql.DB) Executor {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return db
}

// MapError translates driver constraint failures into port errors
func MapError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %v", port.ErrUniqueViolation, err)
	}
	return err
}

// Date formats a calendar date column value
func Date(t time.Time) string {
	return t.Format(dateLayout)
}

// Timestamp formats a DATETIME column value in UTC
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// NullTimestamp formats an optional DATETIME column value
func NullTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: Timestamp(*t), Valid: true}
}

// NullString stores empty strings as NULL
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullInt64 stores a nil pointer as NULL
func NullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// Int64Ptr converts a nullable column back into a pointer
func Int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// ParseTime reads a DATE or DATETIME column scanned as text
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02 15:04:05", dateLayout} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time value %q", s)
}

// ScanTime adapts dst for rows.Scan. The driver hands back time.Time for
// declared DATE/DATETIME columns and text for computed ones.
func ScanTime(dst *time.Time) sql.Scanner {
	return &timeScanner{dst: dst}
}

// ScanNullTime is ScanTime for nullable columns
func ScanNullTime(dst **time.Time) sql.Scanner {
	return &timeScanner{nullable: dst}
}

type timeScanner struct {
	dst      *time.Time
	nullable **time.Time
}

func (s *timeScanner) Scan(src interface{}) error {
	var t time.Time
	switch v := src.(type) {
	case nil:
		if s.nullable != nil {
			*s.nullable = nil
			return nil
		}
		return errors.New("unexpected NULL time value")
	case time.Time:
		t = v.UTC()
	case string:
		parsed, err := ParseTime(v)
		if err != nil {
			return err
		}
		t = parsed
	case []byte:
		parsed, err := ParseTime(string(v))
		if err != nil {
			return err
		}
		t = parsed
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
	if s.nullable != nil {
		*s.nullable = &t
		return nil
	}
	*s.dst = t
	return nil
}

// Placeholders returns "?, ?, ..." with n markers
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}

// Int64Args converts ids into query arguments
func Int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// Verify interface compliance
var _ port.TransactionManager = (*DB)(nil)
