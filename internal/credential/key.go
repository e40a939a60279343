package credential

import (
	"github.com/dropDatabas3/tokengate/internal/security/secret"
)

// secretBytes de entropía por secreto emitido.
const secretBytes = 32

// DeriveKey deriva la clave de storage de un secreto. Determinística (mismo
// input, misma key: los lookups son idempotentes) y namespaced por clase via
// el prefijo, que queda fuera del hash Y delante de él: la key resultante es
// legible por clase y disjunta entre clases aunque secret coincida.
func DeriveKey(kind Kind, clientKey, sec string) string {
	return kind.Prefix() + ":" + secret.SHA256Base64URL(kind.Prefix()+"|"+clientKey+"|"+sec)
}
