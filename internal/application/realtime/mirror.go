// Package realtime mantiene espejos locales de una colección remota.
//
// Cada suscripción carga un snapshot completo al arrancar y lo vuelve a cargar en cada notificación
// del canal de cambios de la colección. Los consumidores reciben siempre la lista completa
// (nunca deltas) y ordenan localmente si lo necesitan.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LoadFunc obtiene el snapshot completo de la colección con el filtro ya aplicado.
type LoadFunc[T any] func(ctx context.Context) ([]T, error)

// ChangeFeed entrega notificaciones por colección. cancel debe ser idempotente.
type ChangeFeed interface {
	Listen(collection string) (notes <-chan struct{}, cancel func())
}

// Mirror fábrica de suscripciones sobre una colección.
type Mirror[T any] struct {
	collection  string
	feed        ChangeFeed
	loadTimeout time.Duration
	log         zerolog.Logger
}

// NewMirror construye el espejo. loadTimeout <= 0 deja cada carga sin techo propio.
func NewMirror[T any](collection string, feed ChangeFeed, loadTimeout time.Duration, log zerolog.Logger) *Mirror[T] {
	return &Mirror[T]{
		collection:  collection,
		feed:        feed,
		loadTimeout: loadTimeout,
		log:         log.With().Str("collection", collection).Logger(),
	}
}

// Collection nombre de la colección espejada.
func (m *Mirror[T]) Collection() string { return m.collection }

// Subscribe arranca una suscripción. La primera carga ocurre en segundo plano; termina con ctx o Cancel.
func (m *Mirror[T]) Subscribe(ctx context.Context, load LoadFunc[T]) *Subscription[T] {
	notes, unlisten := m.feed.Listen(m.collection)
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		out:      make(chan []T, 1),
		done:     make(chan struct{}),
		cancel:   cancel,
		unlisten: unlisten,
	}
	go m.run(ctx, s, notes, load)
	return s
}

func (m *Mirror[T]) run(ctx context.Context, s *Subscription[T], notes <-chan struct{}, load LoadFunc[T]) {
	defer close(s.done)
	defer func() {
		// un snapshot pendiente no se entrega tras Cancel
		select {
		case <-s.out:
		default:
		}
		close(s.out)
	}()
	defer s.unlisten()

	m.refresh(ctx, s, load)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-notes:
			if !ok {
				return
			}
			m.refresh(ctx, s, load)
		}
	}
}

func (m *Mirror[T]) refresh(ctx context.Context, s *Subscription[T], load LoadFunc[T]) {
	lctx := ctx
	if m.loadTimeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, m.loadTimeout)
		defer cancel()
	}
	snap, err := load(lctx)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Warn().Err(err).Msg("realtime: carga fallida, se conserva el último snapshot")
		}
		return
	}
	if snap == nil {
		snap = []T{}
	}
	s.publish(snap)
}

// Subscription secuencia de snapshots completos de una colección filtrada.
type Subscription[T any] struct {
	out      chan []T
	done     chan struct{}
	cancel   context.CancelFunc
	unlisten func()
	once     sync.Once

	mu      sync.RWMutex
	current []T
	loaded  bool
}

// C snapshots en orden de llegada. Si el consumidor se atrasa solo se conserva el más reciente.
// Se cierra al terminar la suscripción.
func (s *Subscription[T]) C() <-chan []T { return s.out }

// Current último snapshot válido; loaded es false hasta la primera carga exitosa.
func (s *Subscription[T]) Current() (snapshot []T, loaded bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.loaded
}

// Done se cierra cuando la suscripción terminó.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }

// Cancel detiene la suscripción y espera a que termine. Tras retornar no se entregan más snapshots.
// Llamarlo varias veces es seguro.
func (s *Subscription[T]) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// publish solo se invoca desde la goroutine de la suscripción (único emisor de out).
func (s *Subscription[T]) publish(snap []T) {
	s.mu.Lock()
	s.current = snap
	s.loaded = true
	s.mu.Unlock()

	select {
	case <-s.out:
	default:
	}
	s.out <- snap
}
