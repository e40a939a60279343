// Package clients expone el directorio de clientes registrados (store
// durable, read-only para el core).
package clients

import (
	"context"
	"errors"
)

// Client es la identidad registrada de un cliente OAuth. Inmutable después
// del registro; el core copia sus campos por valor en cada credencial.
type Client struct {
	ClientID     string   `yaml:"client_id"`
	SecretHash   string   `yaml:"secret_hash"` // PHC argon2id; vacío = cliente público
	RedirectURIs []string `yaml:"redirect_uris"`
	Scope        string   `yaml:"scope"` // scope registrado, space separated
	RFCBypass    bool     `yaml:"rfc_bypass"`
}

// Confidential indica si el cliente tiene secreto registrado.
func (c *Client) Confidential() bool { return c.SecretHash != "" }

// AllowsRedirect chequea el redirect_uri contra los registrados (exacto).
func (c *Client) AllowsRedirect(uri string) bool {
	for _, allowed := range c.RedirectURIs {
		if allowed == uri {
			return true
		}
	}
	return false
}

// Directory resuelve clientes por client_id.
type Directory interface {
	GetClient(ctx context.Context, clientID string) (*Client, error)
	Close() error
}

// ErrNotFound indica client_id desconocido.
var ErrNotFound = errors.New("clients: not found")

// Config para construir un Directory.
type Config struct {
	Driver string // "file" | "postgres" | "static"
	Path   string // driver file
	DSN    string // driver postgres
}

// New crea un Directory según la configuración.
func New(ctx context.Context, cfg Config) (Directory, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DSN)
	case "file", "":
		return NewFile(cfg.Path)
	default:
		return NewFile(cfg.Path)
	}
}
