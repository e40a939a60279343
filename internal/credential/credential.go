// Package credential implementa el modelo de credenciales de tokengate:
// authorization codes, access tokens y refresh tokens sobre un keyspace
// físico compartido, separados por prefijo de hash.
//
// Una Credential no se persiste: es el wrapper de política (identidad del
// cliente, modo RFC, TTL, clase) alrededor del cálculo de key y de las tasks
// contra el backend. Vive lo que vive el request que la creó.
package credential

import (
	"context"
	"time"

	"github.com/dropDatabas3/tokengate/internal/backend"
	"github.com/dropDatabas3/tokengate/internal/security/secret"
	"github.com/dropDatabas3/tokengate/internal/validation"
)

// Params son los campos copiados por valor desde la identidad del cliente
// registrado para el request en curso.
type Params struct {
	ServiceID    string
	ClientID     string
	RedirectURI  string // redirect_uri presentado en este paso
	RFCBypass    bool
	AllowedScope string // scope registrado del cliente (space separated)
	TTL          time.Duration
}

// Credential ata una clase de credencial a la política del cliente y al
// esquema key/hash. Los tres tipos concretos difieren solo en Kind: la
// semántica de canje (destructivo, rotativo, read-only) la fija el caller
// eligiendo Redeem o Validate.
type Credential struct {
	Kind  Kind
	P     Params
	store backend.Store
}

// New crea el wrapper para una clase dada.
func New(kind Kind, store backend.Store, p Params) *Credential {
	return &Credential{Kind: kind, P: p, store: store}
}

// clientKey delimita el keyspace del cliente dentro del servicio.
func (c *Credential) clientKey() string {
	return c.P.ServiceID + "/" + c.P.ClientID
}

// Key deriva la clave de storage para un secreto de esta credencial.
func (c *Credential) Key(sec string) string {
	return DeriveKey(c.Kind, c.clientKey(), sec)
}

// Issue genera un secreto fresco, arma el record y agenda la escritura.
// Retorna el secreto en claro (solo viaja al caller, nunca al store) y la
// task ya en vuelo. Falla con ErrInvalidScope si el scope pedido no es
// subconjunto del registrado.
func (c *Credential) Issue(ctx context.Context, rec Record) (string, *backend.Task, error) {
	if !validation.ScopeSubset(rec.Scope, c.P.AllowedScope) {
		return "", nil, ErrInvalidScope
	}
	sec, err := secret.GenerateOpaque(secretBytes)
	if err != nil {
		return "", nil, err
	}

	rec.ClientID = c.P.ClientID
	if rec.IssuedAt.IsZero() {
		rec.IssuedAt = time.Now().UTC()
	}
	rec.TTL = int64(c.P.TTL / time.Second)

	raw, err := rec.encode()
	if err != nil {
		return "", nil, err
	}

	key := c.Key(sec)
	task := backend.NewTask("put", func(ctx context.Context) (string, error) {
		return "", c.store.Put(ctx, key, raw, c.P.TTL)
	}).Start(ctx)
	return sec, task, nil
}

// Redeem deriva la key del secreto presentado y agenda un take atómico
// (leer-y-borrar). Para authorization codes el canje es destructivo siempre;
// para refresh tokens el take es la mitad "invalida el anterior" de la
// rotación. Un segundo canje del mismo secreto ve ErrNotFound.
func (c *Credential) Redeem(ctx context.Context, sec string) *backend.Task {
	key := c.Key(sec)
	return backend.NewTask("take", func(ctx context.Context) (string, error) {
		return c.store.Take(ctx, key)
	}).Start(ctx)
}

// Validate agenda un lookup read-only (access tokens: no se consumen al usarse).
func (c *Credential) Validate(ctx context.Context, sec string) *backend.Task {
	key := c.Key(sec)
	return backend.NewTask("get", func(ctx context.Context) (string, error) {
		return c.store.Get(ctx, key)
	}).Start(ctx)
}

// Revoke agenda el borrado de una key ya derivada. Lo usa el controller para
// deshacer emisiones huérfanas cuando la segunda mitad de un intercambio falla.
func (c *Credential) Revoke(ctx context.Context, key string) *backend.Task {
	return backend.NewTask("delete", func(ctx context.Context) (string, error) {
		_, err := c.store.Delete(ctx, key)
		return "", err
	}).Start(ctx)
}

// Open decodifica y valida un record canjeado/consultado: integridad,
// expiración (por si el driver no expiró nativamente) y que el cliente que
// canjea sea el dueño.
func (c *Credential) Open(raw string, now time.Time) (Record, error) {
	rec, err := decodeRecord(raw)
	if err != nil {
		return Record{}, ErrCorrupted
	}
	if rec.ExpiredAt(now) {
		return Record{}, ErrExpired
	}
	if rec.ClientID != c.P.ClientID {
		return Record{}, ErrClientMismatch
	}
	return rec, nil
}

// CheckRedirect aplica la política de redirect_uri del modo RFC contra el
// redirect presentado en este paso (P.RedirectURI): estricto exige igualdad
// byte a byte contra lo registrado en la emisión; bypass tolera omisión o
// mismatch (compatibilidad con clientes legacy).
// Retorna (mismatch tolerado, error). El caller loguea el caso tolerado.
func (c *Credential) CheckRedirect(rec Record) (bool, error) {
	if rec.RedirectURI == c.P.RedirectURI {
		return false, nil
	}
	if c.P.RFCBypass {
		return true, nil
	}
	return false, ErrRedirectMismatch
}
