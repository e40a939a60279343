// Package backend abstrae el store efímero donde viven las credenciales.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para producción)
//
// Los invariantes cross-request (código de un solo uso, rotación de refresh)
// se apoyan en Take: lectura-y-borrado atómico a nivel de clave. Nunca hay
// locks in-process que crucen requests.
package backend

import (
	"context"
	"fmt"
	"time"
)

// Store define las operaciones contra el backend efímero.
type Store interface {
	// Put guarda un valor con TTL. Si ttl es 0, no expira.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Get obtiene un valor sin consumirlo. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)

	// Take obtiene y borra atómicamente. A lo sumo un caller concurrente
	// recibe el valor; el resto recibe ErrNotFound.
	Take(ctx context.Context, key string) (string, error)

	// Delete borra una key. Retorna si existía.
	Delete(ctx context.Context, key string) (bool, error)

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// Config configuración para crear un Store.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string // prefijo para todas las keys
}

// Errores del backend.
var (
	ErrNotFound    = errNotFound{}
	ErrUnavailable = errUnavailable{}
)

type errNotFound struct{}

func (errNotFound) Error() string { return "backend: key not found" }

type errUnavailable struct{}

func (errUnavailable) Error() string { return "backend: store unavailable" }

// New crea un Store según la configuración. Un driver desconocido es error:
// un typo no debe degradar silenciosamente a un store in-process.
func New(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("backend: unknown driver %q", cfg.Driver)
	}
}
