package gate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/mandoubi-api/internal/application/gate"
	"github.com/jhoicas/mandoubi-api/internal/domain"
	"github.com/jhoicas/mandoubi-api/internal/domain/sales"
)

// memStore marcas en memoria con reloj controlable.
type memStore struct {
	mu      sync.Mutex
	now     time.Time
	expires map[string]time.Time
	ttls    map[string]time.Duration
	readErr error
}

func newMemStore() *memStore {
	return &memStore{
		now:     time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		expires: map[string]time.Time{},
		ttls:    map[string]time.Duration{},
	}
}

func (m *memStore) Valid(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return false, m.readErr
	}
	exp, ok := m.expires[key]
	return ok && m.now.Before(exp), nil
}

func (m *memStore) Touch(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[key] = m.now.Add(ttl)
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func hash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newGate(t *testing.T, store gate.Store) *gate.Gate {
	return gate.New(gate.Config{
		Enabled:           true,
		EditPasswordHash:  hash(t, "edit-pw"),
		PricePasswordHash: hash(t, "price-pw"),
	}, store, zerolog.Nop())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "u1_priceChange_lastPasswordTime", gate.Key("u1", gate.ActionPriceChange))
}

func TestWindow_PorClase(t *testing.T) {
	cases := map[gate.Action]time.Duration{
		gate.ActionPriceChange:  3 * time.Hour,
		gate.ActionStatusChange: 2 * time.Hour,
		gate.ActionBonusEdit:    2 * time.Hour,
		gate.ActionQuantityEdit: 2 * time.Hour,
		gate.ActionDeleteSale:   2 * time.Hour,
	}
	for a, want := range cases {
		got, ok := gate.Window(a)
		assert.True(t, ok, string(a))
		assert.Equal(t, want, got, string(a))
	}
	_, ok := gate.Window("rename")
	assert.False(t, ok)
}

func TestForField(t *testing.T) {
	assert.Equal(t, gate.ActionPriceChange, gate.ForField(sales.FieldPrice))
	assert.Equal(t, gate.ActionQuantityEdit, gate.ForField(sales.FieldQuantity))
	assert.Equal(t, gate.ActionBonusEdit, gate.ForField(sales.FieldBonus))
}

func TestCheck_ContrasenaCorrectaAbreVentana(t *testing.T) {
	store := newMemStore()
	g := newGate(t, store)
	ctx := context.Background()

	require.NoError(t, g.Check(ctx, "u1", gate.ActionStatusChange, "edit-pw"))
	assert.Equal(t, 2*time.Hour, store.ttls["u1_statusChange_lastPasswordTime"])

	store.advance(time.Hour)
	assert.NoError(t, g.Check(ctx, "u1", gate.ActionStatusChange, ""), "dentro de la ventana no se pide contraseña")

	store.advance(90 * time.Minute)
	assert.ErrorIs(t, g.Check(ctx, "u1", gate.ActionStatusChange, ""), domain.ErrGateDenied)
}

func TestCheck_VentanaPorUsuarioYClase(t *testing.T) {
	store := newMemStore()
	g := newGate(t, store)
	ctx := context.Background()

	require.NoError(t, g.Check(ctx, "u1", gate.ActionBonusEdit, "edit-pw"))

	assert.ErrorIs(t, g.Check(ctx, "u1", gate.ActionQuantityEdit, ""), domain.ErrGateDenied)
	assert.ErrorIs(t, g.Check(ctx, "u2", gate.ActionBonusEdit, ""), domain.ErrGateDenied)
}

func TestCheck_PrecioUsaSegundaContrasena(t *testing.T) {
	store := newMemStore()
	g := newGate(t, store)
	ctx := context.Background()

	assert.ErrorIs(t, g.Check(ctx, "u1", gate.ActionPriceChange, "edit-pw"), domain.ErrGateDenied)
	require.NoError(t, g.Check(ctx, "u1", gate.ActionPriceChange, "price-pw"))
	assert.Equal(t, 3*time.Hour, store.ttls["u1_priceChange_lastPasswordTime"])

	store.advance(150 * time.Minute)
	assert.NoError(t, g.Check(ctx, "u1", gate.ActionPriceChange, ""))
}

func TestCheck_FalloNoGuardaMarca(t *testing.T) {
	store := newMemStore()
	g := newGate(t, store)

	assert.ErrorIs(t, g.Check(context.Background(), "u1", gate.ActionDeleteSale, "mala"), domain.ErrGateDenied)
	assert.Empty(t, store.expires)
}

func TestCheck_ErrorDeLecturaPideContrasena(t *testing.T) {
	store := newMemStore()
	store.readErr = errors.New("redis caído")
	g := newGate(t, store)
	ctx := context.Background()

	assert.ErrorIs(t, g.Check(ctx, "u1", gate.ActionDeleteSale, ""), domain.ErrGateDenied)
	assert.NoError(t, g.Check(ctx, "u1", gate.ActionDeleteSale, "edit-pw"))
}

func TestCheck_Deshabilitado(t *testing.T) {
	g := gate.New(gate.Config{Enabled: false}, newMemStore(), zerolog.Nop())
	assert.NoError(t, g.Check(context.Background(), "u1", gate.ActionPriceChange, ""))
}

func TestCheck_AccionDesconocida(t *testing.T) {
	g := newGate(t, newMemStore())
	assert.ErrorIs(t, g.Check(context.Background(), "u1", "rename", "edit-pw"), domain.ErrInvalidInput)
}
