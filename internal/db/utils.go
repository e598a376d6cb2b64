package db

import (
	"context"
	"embed"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var sqlFiles embed.FS // Variable to hold embedded SQL files

// ConnConfig describes how to reach the Postgres instance holding the songs table.
type ConnConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
}

// ConnString renders the config as a postgres:// URL.
func (c ConnConfig) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Name,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{c.SSLMode}}.Encode()
	}
	return u.String()
}

// Store owns the connection pool to the track database. It is opened once at
// process start and closed at shutdown.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open creates the pool and verifies connectivity.
func Open(ctx context.Context, cfg ConnConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Tell the pool to use the simple protocol by default for Exec/Query calls
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database pool: %w", err)
	}

	logger.Info("Connected to database",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int32("maxConns", poolConfig.MaxConns))

	return &Store{pool: pool}, nil
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Stats reports pool usage for the metrics collector.
func (s *Store) Stats() *pgxpool.Stat {
	return s.pool.Stat()
}

func (s *Store) executeSelect(ctx context.Context, queryFilename string, args ...any) (pgx.Rows, error) {
	sqlQuery, err := getQueryString(queryFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL query string: %w", err)
	}

	rows, err := s.pool.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query %s: %w", queryFilename, err)
	}
	return rows, nil
}

func (s *Store) executeSelectOne(ctx context.Context, queryFilename string, args ...any) (pgx.Row, error) {
	sqlQuery, err := getQueryString(queryFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL query string: %w", err)
	}
	return s.pool.QueryRow(ctx, sqlQuery, args...), nil
}

func getQueryString(queryFilename string) (string, error) {
	sqlFilePathInEmbedFS := path.Join("sql", queryFilename+".sql") // Path *inside* the embed FS
	sqlBytes, err := sqlFiles.ReadFile(sqlFilePathInEmbedFS)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded SQL file %q: %w", sqlFilePathInEmbedFS, err)
	}
	return string(sqlBytes), nil
}
