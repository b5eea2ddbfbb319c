package realtime_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/mandoubi-api/internal/application/realtime"
)

// fakeFeed canal de cambios en memoria.
type fakeFeed struct {
	mu        sync.Mutex
	listeners map[string][]chan struct{}
	cancels   atomic.Int32
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{listeners: map[string][]chan struct{}{}}
}

func (f *fakeFeed) Listen(collection string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	f.listeners[collection] = append(f.listeners[collection], ch)
	f.mu.Unlock()
	var once sync.Once
	return ch, func() { once.Do(func() { f.cancels.Add(1) }) }
}

func (f *fakeFeed) notify(collection string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.listeners[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// source almacén en memoria con error inyectable.
type source struct {
	mu    sync.Mutex
	data  []string
	err   error
	loads chan struct{}
}

func (s *source) load(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		select {
		case s.loads <- struct{}{}:
		default:
		}
	}()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]string, len(s.data))
	copy(out, s.data)
	return out, nil
}

func (s *source) set(data []string, err error) {
	s.mu.Lock()
	s.data, s.err = data, err
	s.mu.Unlock()
}

func next(t *testing.T, sub *realtime.Subscription[string]) []string {
	t.Helper()
	select {
	case snap := <-sub.C():
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no llegó snapshot")
		return nil
	}
}

func TestSubscribe_SnapshotInicialYCambios(t *testing.T) {
	feed := newFakeFeed()
	src := &source{data: []string{"a"}, loads: make(chan struct{}, 8)}
	m := realtime.NewMirror[string]("sales", feed, time.Second, zerolog.Nop())

	sub := m.Subscribe(context.Background(), src.load)
	defer sub.Cancel()

	assert.Equal(t, []string{"a"}, next(t, sub))
	cur, loaded := sub.Current()
	assert.True(t, loaded)
	assert.Equal(t, []string{"a"}, cur)

	src.set([]string{"a", "b"}, nil)
	feed.notify("sales")
	assert.Equal(t, []string{"a", "b"}, next(t, sub))
}

func TestSubscribe_OtraColeccionNoDisparaRecarga(t *testing.T) {
	feed := newFakeFeed()
	src := &source{data: []string{"a"}, loads: make(chan struct{}, 8)}
	m := realtime.NewMirror[string]("sales", feed, 0, zerolog.Nop())

	sub := m.Subscribe(context.Background(), src.load)
	defer sub.Cancel()
	next(t, sub)

	feed.notify("items")
	select {
	case <-sub.C():
		t.Fatal("snapshot inesperado")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribe_ErrorConservaUltimoSnapshot(t *testing.T) {
	feed := newFakeFeed()
	src := &source{data: []string{"a"}, loads: make(chan struct{}, 8)}
	m := realtime.NewMirror[string]("sales", feed, 0, zerolog.Nop())

	sub := m.Subscribe(context.Background(), src.load)
	defer sub.Cancel()
	next(t, sub)
	<-src.loads

	src.set(nil, errors.New("store caído"))
	feed.notify("sales")
	select {
	case <-src.loads:
	case <-time.After(2 * time.Second):
		t.Fatal("no hubo recarga")
	}

	cur, loaded := sub.Current()
	assert.True(t, loaded)
	assert.Equal(t, []string{"a"}, cur)
	select {
	case <-sub.C():
		t.Fatal("un error no debe publicar snapshot")
	default:
	}
}

func TestSubscribe_VacioEsSliceNoNil(t *testing.T) {
	feed := newFakeFeed()
	src := &source{loads: make(chan struct{}, 8)}
	m := realtime.NewMirror[string]("items", feed, 0, zerolog.Nop())

	sub := m.Subscribe(context.Background(), src.load)
	defer sub.Cancel()

	snap := next(t, sub)
	require.NotNil(t, snap)
	assert.Empty(t, snap)
}

func TestCancel_SincronicoEIdempotente(t *testing.T) {
	feed := newFakeFeed()
	src := &source{data: []string{"a"}, loads: make(chan struct{}, 8)}
	m := realtime.NewMirror[string]("sales", feed, 0, zerolog.Nop())

	sub := m.Subscribe(context.Background(), src.load)
	next(t, sub)

	sub.Cancel()
	sub.Cancel()

	_, open := <-sub.C()
	assert.False(t, open, "C debe cerrarse tras Cancel")
	assert.Equal(t, int32(1), feed.cancels.Load())

	feed.notify("sales")
	_, open = <-sub.C()
	assert.False(t, open)
}

func TestCancel_DescartaSnapshotPendiente(t *testing.T) {
	feed := newFakeFeed()
	src := &source{data: []string{"a"}, loads: make(chan struct{}, 8)}
	m := realtime.NewMirror[string]("sales", feed, 0, zerolog.Nop())

	sub := m.Subscribe(context.Background(), src.load)
	select {
	case <-src.loads:
	case <-time.After(2 * time.Second):
		t.Fatal("no hubo carga inicial")
	}
	sub.Cancel()

	snap, open := <-sub.C()
	assert.False(t, open, "sin lectura previa el snapshot en cola no se entrega")
	assert.Nil(t, snap)
	current, loaded := sub.Current()
	assert.True(t, loaded)
	assert.Equal(t, []string{"a"}, current)
}

func TestSubscribe_TerminaConElContexto(t *testing.T) {
	feed := newFakeFeed()
	src := &source{data: []string{"a"}, loads: make(chan struct{}, 8)}
	m := realtime.NewMirror[string]("sales", feed, 0, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	sub := m.Subscribe(ctx, src.load)
	next(t, sub)
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("la suscripción no terminó")
	}
	sub.Cancel()
}
