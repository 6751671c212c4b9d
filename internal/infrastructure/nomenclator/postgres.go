package nomenclator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/importlens/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultTable = "ncm_entries"

// querier is the subset of pgxpool.Pool the loader uses
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource loads the catalog from a table with code, description and
// position columns.
type PostgresSource struct {
	db    querier
	table string
	close func()
}

// NewPostgresSource connects to databaseURL and verifies the connection
func NewPostgresSource(ctx context.Context, databaseURL, table string) (*PostgresSource, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", domain.ErrNomenclatorUnavailable, err)
	}
	poolConfig.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create pool: %v", domain.ErrNomenclatorUnavailable, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %v", domain.ErrNomenclatorUnavailable, err)
	}

	return newPostgresSource(pool, table, pool.Close), nil
}

func newPostgresSource(db querier, table string, closeFn func()) *PostgresSource {
	if strings.TrimSpace(table) == "" {
		table = defaultTable
	}
	return &PostgresSource{db: db, table: table, close: closeFn}
}

// query builds the catalog select with the table name quoted as an identifier
func (s *PostgresSource) query() string {
	table := pgx.Identifier(strings.Split(s.table, ".")).Sanitize()
	return fmt.Sprintf("SELECT code, description FROM %s ORDER BY position, code", table)
}

// Load reads every row in catalog order
func (s *PostgresSource) Load(ctx context.Context) ([]domain.NCMEntry, error) {
	rows, err := s.db.Query(ctx, s.query())
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", domain.ErrNomenclatorUnavailable, s.table, err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.NCMEntry, error) {
		var entry domain.NCMEntry
		err := row.Scan(&entry.Code, &entry.Description)
		return entry, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s: %v", domain.ErrNomenclatorUnavailable, s.table, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: table %s is empty", domain.ErrNomenclatorUnavailable, s.table)
	}

	log.Printf("[NCM] Loaded %d entries from postgres table %s", len(entries), s.table)
	return entries, nil
}

// Close releases the connection pool
func (s *PostgresSource) Close() {
	if s.close != nil {
		s.close()
	}
}
