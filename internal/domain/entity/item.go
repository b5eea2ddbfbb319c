package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item producto del catálogo (documento `items`). Las ventas copian nombre y precio, no lo referencian.
type Item struct {
	ID          string
	Name        string
	Price       decimal.Decimal // precio en IQD
	Description string
	ImageURL    string
	Group       string // etiqueta libre, ej. "Syrian", "Indian"
	Verified    bool   // sticker de verificación
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
