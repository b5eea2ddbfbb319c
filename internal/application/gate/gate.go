// Package gate implementa la confirmación por contraseña compartida para acciones sensibles sobre ventas.
//
// Es un paso adicional a la verificación de permisos: una entrada correcta se recuerda por usuario y
// clase de acción durante la ventana de la clase, sin bloqueo ni backoff ante fallos.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/mandoubi-api/internal/domain"
	"github.com/jhoicas/mandoubi-api/internal/domain/sales"
)

// Action clase de acción protegida.
type Action string

const (
	ActionStatusChange Action = "statusChange"
	ActionBonusEdit    Action = "bonusEdit"
	ActionQuantityEdit Action = "quantityEdit"
	ActionDeleteSale   Action = "deleteSale"
	ActionPriceChange  Action = "priceChange"
)

const (
	editWindow  = 2 * time.Hour
	priceWindow = 3 * time.Hour
)

// Store guarda las marcas de última contraseña correcta con expiración.
type Store interface {
	Valid(ctx context.Context, key string) (bool, error)
	Touch(ctx context.Context, key string, ttl time.Duration) error
}

// Config hashes bcrypt de las dos contraseñas compartidas.
type Config struct {
	Enabled           bool
	EditPasswordHash  string
	PricePasswordHash string
}

// Gate verificador de contraseñas por clase de acción.
type Gate struct {
	cfg   Config
	store Store
	log   zerolog.Logger
}

// New construye el verificador.
func New(cfg Config, store Store, log zerolog.Logger) *Gate {
	return &Gate{cfg: cfg, store: store, log: log}
}

// Key clave de la marca: {userId}_{action}_lastPasswordTime.
func Key(userID string, a Action) string {
	return fmt.Sprintf("%s_%s_lastPasswordTime", userID, a)
}

// Window duración de la ventana de la clase; false si la acción no existe.
func Window(a Action) (time.Duration, bool) {
	switch a {
	case ActionPriceChange:
		return priceWindow, true
	case ActionStatusChange, ActionBonusEdit, ActionQuantityEdit, ActionDeleteSale:
		return editWindow, true
	}
	return 0, false
}

// ForField clase de acción que protege la edición de un campo de línea.
func ForField(f sales.LineField) Action {
	switch f {
	case sales.FieldPrice:
		return ActionPriceChange
	case sales.FieldQuantity:
		return ActionQuantityEdit
	default:
		return ActionBonusEdit
	}
}

// Check deja pasar si el gate está deshabilitado, si hay una marca vigente o si password coincide.
// Devuelve domain.ErrGateDenied cuando hace falta (otra vez) la contraseña o no coincide.
func (g *Gate) Check(ctx context.Context, userID string, a Action, password string) error {
	window, ok := Window(a)
	if !ok {
		return fmt.Errorf("%w: acción %q desconocida", domain.ErrInvalidInput, a)
	}
	if !g.cfg.Enabled {
		return nil
	}

	key := Key(userID, a)
	valid, err := g.store.Valid(ctx, key)
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("gate: no se pudo leer la marca")
	}
	if valid {
		return nil
	}

	if password == "" {
		return fmt.Errorf("%w: se requiere la contraseña para %s", domain.ErrGateDenied, a)
	}
	hash := g.cfg.EditPasswordHash
	if a == ActionPriceChange {
		hash = g.cfg.PricePasswordHash
	}
	if hash == "" {
		g.log.Error().Str("action", string(a)).Msg("gate: contraseña no configurada")
		return domain.ErrGateDenied
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return domain.ErrGateDenied
	}

	if err := g.store.Touch(ctx, key, window); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("gate: no se pudo guardar la marca")
	}
	return nil
}
