package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar para mantener nombres consistentes entre capas.

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// ClientID crea un campo para el ID del cliente OAuth.
func ClientID(v string) zap.Field {
	return zap.String("client_id", v)
}

// Kind crea un campo para la clase de credencial (auth_code, access, refresh).
func Kind(v string) zap.Field {
	return zap.String("kind", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Layer crea un campo para la capa (controller, service, backend).
func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

// Key crea un campo para una clave de storage (ya hasheada, nunca el secreto).
func Key(v string) zap.Field {
	return zap.String("key", v)
}

// Duration crea un campo para una duración.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
