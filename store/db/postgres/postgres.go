// Package postgres implements the read-only repository over PostgreSQL.
//
// PostgreSQL is the reference backend: the same database hosts the pgvector
// collections the vector-store client searches, so the fallback tiers read
// from tables that are always reachable when the relational store is up.
package postgres

import (
	"database/sql"
	"fmt"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/curio/store"
)

// DB implements store.Repository over PostgreSQL. The engine only reads from
// these tables; writes happen in the upstream application.
type DB struct {
	db *sql.DB
}

// NewDB opens a read-only repository connection.
func NewDB(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("dsn is empty")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// The engine issues short read queries only; keep the footprint small.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{db: db}, nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

var _ store.Repository = (*DB)(nil)
