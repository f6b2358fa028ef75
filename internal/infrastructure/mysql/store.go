// Package mysql is the relational Store. Row locks come from
// SELECT ... FOR UPDATE inside the transaction opened by WithinTx.
package mysql

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"github.com/candleshop/shop/internal/application"
	"github.com/candleshop/shop/internal/domain/cart"
	"github.com/candleshop/shop/internal/domain/catalog"
	"github.com/candleshop/shop/internal/domain/order"
)

//go:embed schema.sql
var schema string

const (
	errDuplicateEntry  = 1062
	errRowIsReferenced = 1451
	errNoReferencedRow = 1452
)

// Open parses dsn, forces UTC time parsing and pings the server.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	// Report matched rows so an UPDATE writing unchanged values is not
	// mistaken for a missing row.
	cfg.ClientFoundRows = true

	connector, err := driver.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return db, nil
}

type Store struct {
	db *sql.DB
}

var _ application.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the tables that do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range statements(schema) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql: migrate: %w", err)
		}
	}
	return nil
}

func statements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos application.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mysql: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &scope{q: tx, locking: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mysql: commit: %w", err)
	}
	return nil
}

func (s *Store) Products() catalog.ProductRepository   { return s.autocommit().Products() }
func (s *Store) Categories() catalog.CategoryRepository { return s.autocommit().Categories() }
func (s *Store) Carts() cart.Repository                 { return s.autocommit().Carts() }
func (s *Store) Orders() order.Repository               { return s.autocommit().Orders() }

func (s *Store) autocommit() *scope { return &scope{q: s.db} }

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scope binds repositories to a connection. Lock clauses are only emitted
// inside a transaction.
type scope struct {
	q       querier
	locking bool
}

func (sc *scope) Products() catalog.ProductRepository   { return productRepository{sc} }
func (sc *scope) Categories() catalog.CategoryRepository { return categoryRepository{sc} }
func (sc *scope) Carts() cart.Repository                 { return cartRepository{sc} }
func (sc *scope) Orders() order.Repository               { return orderRepository{sc} }

func (sc *scope) forUpdate() string {
	if sc.locking {
		return " FOR UPDATE"
	}
	return ""
}

func isMySQLError(err error, number uint16) bool {
	var me *driver.MySQLError
	return errors.As(err, &me) && me.Number == number
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

type rowScanner interface {
	Scan(dest ...any) error
}
