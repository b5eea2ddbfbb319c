package repository

import (
	"context"

	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
)

// ItemRepository define el puerto de persistencia para el catálogo (DIP).
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	List(ctx context.Context) ([]*entity.Item, error)
	Update(ctx context.Context, item *entity.Item) error
	Delete(ctx context.Context, id string) error
}
