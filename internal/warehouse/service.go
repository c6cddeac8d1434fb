package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dwhpipe/pkg/errors"
	"dwhpipe/pkg/models"
)

// Service provides warehouse database operations. Redshift speaks the
// Postgres wire protocol, so the connection runs over the pgx stdlib driver.
type Service struct {
	db        *sql.DB
	config    models.Warehouse
	connected bool
}

// NewService creates a new warehouse service from the connection settings.
func NewService(config models.Warehouse) *Service {
	return &Service{config: config}
}

// NewServiceWithDB wraps an existing database handle. Used by callers that
// already hold a connection, and by tests injecting a mock.
func NewServiceWithDB(db *sql.DB, config models.Warehouse) *Service {
	return &Service{db: db, config: config, connected: true}
}

// DSN returns the Postgres-protocol connection string for the endpoint.
func (s *Service) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.config.Username, s.config.Password),
		Host:     fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Path:     "/" + s.config.Database,
		RawQuery: "sslmode=require",
	}
	return u.String()
}

// Connect establishes a connection to the warehouse endpoint.
func (s *Service) Connect() error {
	if s.connected {
		return nil
	}

	db, err := sql.Open("pgx", s.DSN())
	if err != nil {
		return errors.ConnectionError("Failed to open warehouse connection", err).
			WithContext("host", s.config.Host)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	ctx, cancel := s.statementContext(context.Background())
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errors.ConnectionError("Failed to connect to warehouse", err).
			WithContext("host", s.config.Host).
			WithContext("database", s.config.Database).
			AsRecoverable()
	}

	s.db = db
	s.connected = true
	return nil
}

// Close closes the database connection.
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	s.connected = false
	return nil
}

// Exec runs a single statement under the configured statement timeout.
func (s *Service) Exec(ctx context.Context, query string) error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to database").
			WithSuggestions("Call Connect() before executing SQL")
	}

	ctx, cancel := s.statementContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, query)
	return err
}

// QueryRow runs a single-row query under the configured statement timeout.
func (s *Service) QueryRow(ctx context.Context, query string, dest ...interface{}) error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to database")
	}

	ctx, cancel := s.statementContext(ctx)
	defer cancel()

	return s.db.QueryRowContext(ctx, query).Scan(dest...)
}

func (s *Service) statementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.TimeoutDuration())
}
