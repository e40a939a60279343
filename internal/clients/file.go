package clients

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileDirectory carga el directorio desde un YAML al construirse.
// Pensado para dev y deployments chicos; el formato es el mismo que usa el
// seed de la base.
type fileDirectory struct {
	byID map[string]*Client
}

type clientsFile struct {
	Clients []*Client `yaml:"clients"`
}

// NewFile lee y valida el archivo de clientes.
func NewFile(path string) (*fileDirectory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("clients: read %s: %w", path, err)
	}
	var f clientsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("clients: parse %s: %w", path, err)
	}

	byID := make(map[string]*Client, len(f.Clients))
	for _, c := range f.Clients {
		if c.ClientID == "" {
			return nil, fmt.Errorf("clients: entry without client_id in %s", path)
		}
		if _, dup := byID[c.ClientID]; dup {
			return nil, fmt.Errorf("clients: duplicate client_id %q in %s", c.ClientID, path)
		}
		byID[c.ClientID] = c
	}
	return &fileDirectory{byID: byID}, nil
}

// NewStatic arma un Directory en memoria. Para tests.
func NewStatic(cs ...*Client) *fileDirectory {
	byID := make(map[string]*Client, len(cs))
	for _, c := range cs {
		byID[c.ClientID] = c
	}
	return &fileDirectory{byID: byID}
}

func (d *fileDirectory) GetClient(_ context.Context, clientID string) (*Client, error) {
	c, ok := d.byID[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	// Copia: el caller no debe poder mutar el registro.
	cp := *c
	return &cp, nil
}

func (d *fileDirectory) Close() error { return nil }
