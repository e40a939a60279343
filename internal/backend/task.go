package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dropDatabas3/tokengate/internal/metrics"
)

// DefaultTaskTimeout acota cada round-trip al backend.
const DefaultTaskTimeout = 5 * time.Second

// Task representa una única operación asíncrona contra el backend, con
// semántica de future: Start la agenda, Await la espera. Cada Task pertenece
// exclusivamente al request que la creó.
//
// La operación corre sobre un contexto desacoplado de la cancelación del
// caller: si el request HTTP se aborta, el side effect igual se completa
// (evita escrituras parciales); el resultado simplemente se descarta.
type Task struct {
	name    string
	op      func(ctx context.Context) (string, error)
	timeout time.Duration

	once sync.Once
	done chan struct{}
	val  string
	err  error
}

// NewTask crea una Task sin agendar. name identifica la operación en
// métricas y logs (ej: "put", "take").
func NewTask(name string, op func(ctx context.Context) (string, error)) *Task {
	return &Task{
		name:    name,
		op:      op,
		timeout: DefaultTaskTimeout,
		done:    make(chan struct{}),
	}
}

// WithTimeout reemplaza el timeout por operación.
func (t *Task) WithTimeout(d time.Duration) *Task {
	if d > 0 {
		t.timeout = d
	}
	return t
}

// Start agenda la operación. Idempotente; llamadas posteriores no reejecutan.
// Los values del ctx (logger, request id) se preservan; la cancelación no.
func (t *Task) Start(ctx context.Context) *Task {
	t.once.Do(func() {
		opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
		go func() {
			defer cancel()
			defer close(t.done)
			start := time.Now()
			t.val, t.err = t.op(opCtx)
			if t.err != nil && (errors.Is(t.err, context.DeadlineExceeded) || opCtx.Err() != nil) {
				t.err = fmt.Errorf("%w: %w", ErrUnavailable, t.err)
			}
			metrics.ObserveBackendOp(t.name, time.Since(start), t.err)
		}()
	})
	return t
}

// Await bloquea hasta que la operación complete o el ctx del caller se
// cancele. En el segundo caso la operación sigue corriendo hasta terminar;
// solo se descarta el resultado.
func (t *Task) Await(ctx context.Context) (string, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
}

// Done permite seleccionar sobre la finalización de la Task.
func (t *Task) Done() <-chan struct{} { return t.done }
