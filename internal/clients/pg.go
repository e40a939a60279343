package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgDirectory resuelve clientes desde Postgres. Read-only: el registro de
// clientes lo administra otro módulo.
type pgDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgres abre el pool y verifica la conexión.
func NewPostgres(ctx context.Context, dsn string) (*pgDirectory, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("clients: pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("clients: ping: %w", err)
	}
	return &pgDirectory{pool: pool}, nil
}

func (d *pgDirectory) GetClient(ctx context.Context, clientID string) (*Client, error) {
	const q = `
		SELECT client_id, COALESCE(secret_hash, ''), redirect_uris, COALESCE(scope, ''), rfc_bypass
		  FROM oauth_client
		 WHERE client_id = $1`

	var c Client
	err := d.pool.QueryRow(ctx, q, clientID).Scan(
		&c.ClientID, &c.SecretHash, &c.RedirectURIs, &c.Scope, &c.RFCBypass,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("clients: query: %w", err)
	}
	return &c, nil
}

func (d *pgDirectory) Close() error {
	d.pool.Close()
	return nil
}
