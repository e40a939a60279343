package credential

import "errors"

// Errores del dominio de credenciales. El flow controller los mapea 1:1 a la
// taxonomía OAuth; hacia afuera "not found", "expirado" y "ya usado" son
// indistinguibles a propósito.
var (
	ErrInvalidScope     = errors.New("credential: scope not allowed for client")
	ErrClientMismatch   = errors.New("credential: client_id mismatch")
	ErrRedirectMismatch = errors.New("credential: redirect_uri mismatch")
	ErrExpired          = errors.New("credential: expired")
	ErrCorrupted        = errors.New("credential: stored record corrupted")
)
