// Package validation reúne las reglas de validación de scopes.
package validation

import (
	"regexp"
	"strings"
)

// Scope name rules:
// - Lowercase only.
// - Start and end with [a-z0-9].
// - Middle chars may include [a-z0-9:_.-].
// - Length 1..64.
// - Excludes semicolon and whitespace explicitly.
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// ValidScopeName returns true if the provided scope name matches the allowed pattern.
func ValidScopeName(name string) bool {
	return scopeNameRe.MatchString(name)
}

// ScopeSubset reporta si cada scope pedido está dentro del scope registrado.
// Ambos son listas separadas por espacios; el pedido vacío siempre es válido
// (hereda el registrado). Nombres malformados cuentan como no permitidos.
func ScopeSubset(requested, allowed string) bool {
	if strings.TrimSpace(requested) == "" {
		return true
	}
	allowedSet := make(map[string]struct{})
	for _, s := range strings.Fields(allowed) {
		allowedSet[s] = struct{}{}
	}
	for _, s := range strings.Fields(requested) {
		if !ValidScopeName(s) {
			return false
		}
		if _, ok := allowedSet[s]; !ok {
			return false
		}
	}
	return true
}
