package db

import (
	"context"
	"database/sql"
)

// Database is the connection lifecycle shared by the ledger backends.
type Database interface {
	Connect(ctx context.Context) error
	Close() error
	DB() *sql.DB
}
