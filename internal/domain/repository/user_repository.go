package repository

import (
	"context"

	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// UserRepository define el puerto de persistencia para perfiles User (DIP).
// GetByID devuelve (nil, nil) si el perfil no existe.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	// Update escribe nombre, rol y permisos (merge: no toca los objetivos mensuales).
	Update(ctx context.Context, user *entity.User) error
	// MergeTargetPrice fija targets[month] = value conservando las demás claves.
	MergeTargetPrice(ctx context.Context, userID, month string, value decimal.Decimal) error
	Delete(ctx context.Context, id string) error
}

// AccountRepository define el puerto de persistencia para credenciales.
type AccountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	Delete(ctx context.Context, id string) error
}
