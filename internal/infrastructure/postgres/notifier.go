package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ChangesChannel canal NOTIFY usado por los triggers; el payload es el nombre de la tabla modificada.
const ChangesChannel = "collection_changes"

// Notifier mantiene una conexión dedicada en LISTEN y reparte cada notificación a los oyentes
// de la colección. Las notificaciones se agrupan: un oyente lento recibe a lo sumo una pendiente.
type Notifier struct {
	pool  *pgxpool.Pool
	log   zerolog.Logger
	retry time.Duration

	mu        sync.Mutex
	listeners map[string]map[uint64]chan struct{}
	next      uint64
}

// NewNotifier construye el notifier; Run debe ejecutarse en su propia goroutine.
func NewNotifier(pool *pgxpool.Pool, log zerolog.Logger) *Notifier {
	return &Notifier{
		pool:      pool,
		log:       log,
		retry:     2 * time.Second,
		listeners: map[string]map[uint64]chan struct{}{},
	}
}

// WithRetryDelay fija la espera entre reconexiones. Llamar antes de Run.
func (n *Notifier) WithRetryDelay(d time.Duration) *Notifier {
	if d > 0 {
		n.retry = d
	}
	return n
}

// Listen registra un oyente de la colección. cancel es idempotente y cierra el canal.
func (n *Notifier) Listen(collection string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	id := n.next
	n.next++
	if n.listeners[collection] == nil {
		n.listeners[collection] = map[uint64]chan struct{}{}
	}
	n.listeners[collection][id] = ch
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners[collection], id)
			n.mu.Unlock()
			close(ch)
		})
	}
}

// Run escucha hasta que ctx termine. Ante un corte reconecta y avisa a todos los oyentes para que
// recarguen, ya que pudieron perderse notificaciones.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		err := n.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		n.log.Warn().Err(err).Dur("retry", n.retry).Msg("notifier: conexión LISTEN perdida")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(n.retry):
		}
	}
}

func (n *Notifier) listen(ctx context.Context) error {
	conn, err := n.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangesChannel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	n.log.Info().Str("channel", ChangesChannel).Msg("notifier: escuchando cambios")
	n.broadcast()

	for {
		note, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("wait: %w", err)
		}
		n.dispatch(note.Payload)
	}
}

func (n *Notifier) dispatch(collection string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.listeners[collection] {
		notify(ch)
	}
}

func (n *Notifier) broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, set := range n.listeners {
		for _, ch := range set {
			notify(ch)
		}
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
