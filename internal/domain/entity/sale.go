package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de visita de una venta.
const (
	SaleStatusVisited    = "visited"
	SaleStatusNotVisited = "not-visited"
)

// LineItem copia de un producto al momento de la venta (no referencia al catálogo).
// Se persiste dentro del JSONB `items` de la venta.
type LineItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Bonus    int             `json:"bonus"`
}

// MoneyScale decimales con que se guardan precios y totales (IQD tiene 3 unidades menores).
const MoneyScale int32 = 3

// RoundMoney ajusta un monto a MoneyScale decimales.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Subtotal precio × cantidad. El bonus no entra en el monto.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Sale venta registrada por un representante a un cliente.
type Sale struct {
	ID           string
	UserID       string // dueño (vendedor)
	CustomerName string
	Items        []LineItem
	TotalPrice   decimal.Decimal
	Date         time.Time
	Status       string
	Note         string
}

// RecalculateTotal fija TotalPrice = Σ(price × quantity) sobre Items.
func (s *Sale) RecalculateTotal() {
	total := decimal.Zero
	for _, li := range s.Items {
		total = total.Add(li.Subtotal())
	}
	s.TotalPrice = total
}

// NormalizeSaleStatus cualquier valor distinto de "visited" se guarda como "not-visited".
func NormalizeSaleStatus(status string) string {
	if status == SaleStatusVisited {
		return SaleStatusVisited
	}
	return SaleStatusNotVisited
}
