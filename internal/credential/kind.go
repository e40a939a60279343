package credential

import "fmt"

// Kind es la clase de credencial. Sustituye la jerarquía código/access/refresh
// por un variant con política (prefijo de hash, semántica de canje) por clase.
type Kind int

const (
	KindAuthCode Kind = iota + 1
	KindAccessToken
	KindRefreshToken
)

// Prefix es el namespace de la clase dentro del keyspace físico. Los tres
// prefijos son constantes: una key guardada revela su clase sin leer el record,
// y dos secretos iguales de clases distintas nunca colisionan.
func (k Kind) Prefix() string {
	switch k {
	case KindAuthCode:
		return "ac"
	case KindAccessToken:
		return "at"
	case KindRefreshToken:
		return "rt"
	default:
		panic(fmt.Sprintf("credential: unknown kind %d", int(k)))
	}
}

func (k Kind) String() string {
	switch k {
	case KindAuthCode:
		return "auth_code"
	case KindAccessToken:
		return "access"
	case KindRefreshToken:
		return "refresh"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}
