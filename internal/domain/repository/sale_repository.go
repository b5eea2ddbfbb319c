package repository

import (
	"context"

	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// SaleQuery filtro de igualdad soportado por el almacén. Vacío = todas las ventas.
type SaleQuery struct {
	UserID string
}

// SaleRepository define el puerto de persistencia para Sale (DIP).
type SaleRepository interface {
	Create(ctx context.Context, sale *entity.Sale) error
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	// GetByIDForUpdate bloquea la fila (solo tiene efecto dentro de una transacción).
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Sale, error)
	List(ctx context.Context, q SaleQuery) ([]*entity.Sale, error)
	// UpdateItems persiste el arreglo de líneas y el total en una sola escritura.
	UpdateItems(ctx context.Context, id string, items []entity.LineItem, total decimal.Decimal) error
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
}

// SaleTxRunner ejecuta fn con un SaleRepository atado a una transacción.
type SaleTxRunner interface {
	RunSales(ctx context.Context, fn func(saleRepo SaleRepository) error) error
}
