package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"sprintboard/internal/apperr"
	"sprintboard/internal/storage"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// sqliteDriver is go-sqlite3 with a fold(text) function that lower-cases
// with Go's Unicode rules; SQLite's own lower() only folds ASCII.
const sqliteDriver = "sqlite3_fold"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
	sqlx.BindDriver(sqliteDriver, sqlx.QUESTION)
}

// Store wraps access to the SQL database and implements storage.Repository.
type Store struct {
	db     *sqlx.DB
	q      sqlx.ExtContext
	tx     *sqlx.Tx
	driver string
	logger *slog.Logger
}

var _ storage.Repository = (*Store)(nil)

// Open connects to the database and runs the required migrations.
// For sqlite3 the dsn is a file path; for pgx it is a connection string.
func Open(driver, dsn string, logger *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty database dsn")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var (
		conn *sqlx.DB
		err  error
	)
	switch driver {
	case DriverSQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		conn, err = sqlx.Open(sqliteDriver, fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dsn))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		conn.SetMaxOpenConns(1)
		conn.SetConnMaxLifetime(0)
	case DriverPostgres:
		conn, err = sqlx.Connect(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	s := &Store{db: conn, q: conn, driver: driver, logger: logger}
	if err := s.Migrate(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Debug("database ready", slog.String("driver", driver))
	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if s.driver == DriverPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// InTx runs fn inside a database transaction.
func (s *Store) InTx(ctx context.Context, fn func(storage.Repository) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	scoped := &Store{db: s.db, q: tx, tx: tx, driver: s.driver, logger: s.logger}
	if err := fn(scoped); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func ensureDir(dbPath string) error {
	if dbPath == ":memory:" || strings.HasPrefix(dbPath, "file:") {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// insert runs an INSERT and returns the generated id.
func (s *Store) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := sqlx.GetContext(ctx, s.q, &id, s.q.Rebind(query+" RETURNING id"), args...); err != nil {
		return 0, err
	}
	return id, nil
}

// execOne runs a statement that must touch exactly one row; zero rows means
// the entity is missing.
func (s *Store) execOne(ctx context.Context, op, entity string, id int64, query string, args ...any) error {
	res, err := s.q.ExecContext(ctx, s.q.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}

func (s *Store) get(ctx context.Context, dest any, entity string, id int64, query string, args ...any) error {
	err := sqlx.GetContext(ctx, s.q, dest, s.q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", entity, err)
	}
	return nil
}

func (s *Store) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, s.q, dest, s.q.Rebind(query), args...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
