// Package secret genera los secretos opacos que forman el núcleo de cada
// credencial emitida (authorization codes, access y refresh tokens).
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// GenerateOpaque genera un secreto opaco aleatorio (base64url sin padding)
// a partir de nBytes de entropía de crypto/rand. Rechaza nBytes <= 0.
func GenerateOpaque(nBytes int) (string, error) {
	if nBytes <= 0 {
		return "", fmt.Errorf("secret: invalid length %d", nBytes)
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("secret: rand: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Base64URL devuelve sha256(input) en base64url sin padding.
// Es lo que se guarda como clave en el backend; el secreto en claro nunca se persiste.
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
