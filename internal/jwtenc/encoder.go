// Package jwtenc es el camino de firma independiente: produce JWTs RS256 con
// issuer y duración fijados por el operador, nunca por el caller.
package jwtenc

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Errores de configuración del encoder. Son fatales a nivel de deployment,
// no errores por-request.
var (
	ErrInvalidKey    = errors.New("jwtenc: invalid RSA private key")
	ErrClaimsMissing = errors.New("jwtenc: required claims missing")
)

// Encoder firma JWTs. Stateless salvo su configuración; seguro para uso
// concurrente.
type Encoder struct {
	issuer   string
	duration time.Duration
	key      *rsa.PrivateKey
}

// New construye el encoder desde la clave privada en PEM.
func New(issuer string, duration time.Duration, privatePEM []byte) (*Encoder, error) {
	if issuer == "" || duration <= 0 {
		return nil, ErrClaimsMissing
	}
	key, err := jwtv5.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return &Encoder{issuer: issuer, duration: duration, key: key}, nil
}

// Duration expone la duración configurada (para expires_in en respuestas).
func (e *Encoder) Duration() time.Duration { return e.duration }

// Encode firma un JWT para el subject dado. extra se mezcla en los claims sin
// poder pisar los reservados (iss/sub/iat/nbf/exp/jti).
func (e *Encoder) Encode(subject string, extra map[string]any) (string, error) {
	if subject == "" {
		return "", ErrClaimsMissing
	}
	now := time.Now().UTC()

	claims := jwtv5.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	claims["iss"] = e.issuer
	claims["sub"] = subject
	claims["iat"] = now.Unix()
	claims["nbf"] = now.Unix()
	claims["exp"] = now.Add(e.duration).Unix()
	claims["jti"] = uuid.NewString()

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(e.key)
	if err != nil {
		return "", fmt.Errorf("jwtenc: sign: %w", err)
	}
	return signed, nil
}
