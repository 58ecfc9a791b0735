// Package store loads account credentials from a Postgres database so a
// restarted daemon can seed its registry without waiting for a caller to
// push accounts over the API.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gaeaops/fleetkeeper/database"
	"github.com/gaeaops/fleetkeeper/internal/fleet"
)

// DefaultTable is the table accounts are read from unless configured
const DefaultTable = "accounts"

// AccountSource reads account records from Postgres.
type AccountSource struct {
	pool  *pgxpool.Pool
	table string
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn, table string) (*AccountSource, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &AccountSource{pool: pool, table: table}, nil
}

// EnsureSchema applies the accounts schema migration. Custom tables are
// operator-managed, so only the default table is migrated.
func (s *AccountSource) EnsureSchema(ctx context.Context) error {
	if s.table != DefaultTable {
		return nil
	}
	if err := database.MigrateUp(ctx, s.pool); err != nil {
		return fmt.Errorf("failed to migrate accounts schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *AccountSource) Close() {
	s.pool.Close()
}

// ListAccounts returns every stored account credential record.
func (s *AccountSource) ListAccounts(ctx context.Context) ([]*fleet.Account, error) {
	query := fmt.Sprintf(
		`SELECT id, name, uid, COALESCE(browser_id, ''), token, COALESCE(proxy, '') FROM %s`,
		s.table,
	)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accts []*fleet.Account
	for rows.Next() {
		acct := &fleet.Account{}
		if err := rows.Scan(
			&acct.ID, &acct.Name, &acct.UID, &acct.BrowserID, &acct.Token, &acct.Proxy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accts = append(accts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read account rows: %w", err)
	}

	return accts, nil
}
