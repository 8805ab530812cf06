package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"inkpad/config"
	"inkpad/db"

	"github.com/lib/pq"
)

// Sentinel errors surfaced to the handler layer.
var (
	ErrUnknownUser   = errors.New("unknown user")
	ErrDuplicateUser = errors.New("duplicate user")
	ErrNotFound      = errors.New("not found")
)

// DatabaseService handles PostgreSQL connections and operations.
type DatabaseService struct {
	db *sql.DB

	lockWriteTTL time.Duration
	lockStealTTL time.Duration
}

// NewDatabaseService opens the database connection and ensures the
// schema exists.
func NewDatabaseService(cfg *config.Config) (*DatabaseService, error) {
	conn, err := sql.Open("postgres", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		return nil, err
	}

	log.Println("Successfully connected to PostgreSQL database")

	return &DatabaseService{
		db:           conn,
		lockWriteTTL: cfg.LockWriteTTL,
		lockStealTTL: cfg.LockStealTTL,
	}, nil
}

// Close closes the connection.
func (ds *DatabaseService) Close() error {
	if ds.db != nil {
		return ds.db.Close()
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique
// constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
