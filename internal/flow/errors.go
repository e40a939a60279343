// Package flow orquesta el intercambio OAuth2 multi-paso: emisión de
// authorization code, canje de código por par access/refresh y rotación de
// refresh tokens.
package flow

import "errors"

// Taxonomía de errores del token endpoint (nombres de wire OAuth2).
// La capa HTTP los mapea a status codes y mensajes; el core nunca distingue
// hacia afuera entre "not found", "expirado" y "ya usado" (todos son
// ErrInvalidGrant) para no dar un oráculo de códigos válidos.
var (
	ErrInvalidRequest       = errors.New("invalid_request")
	ErrInvalidClient        = errors.New("invalid_client")
	ErrInvalidGrant         = errors.New("invalid_grant")
	ErrInvalidScope         = errors.New("invalid_scope")
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")
	ErrServerError          = errors.New("server_error")
)

// Retryable indica si el caller puede reintentar el intercambio completo.
// Solo server_error (backend no disponible) lo es: la emisión usa secretos
// frescos, reintentar es seguro. invalid_grant nunca es reintentable.
func Retryable(err error) bool {
	return errors.Is(err, ErrServerError)
}
