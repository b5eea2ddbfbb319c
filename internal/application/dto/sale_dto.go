package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItemRequest línea de venta en la entrada.
type LineItemRequest struct {
	Name     string          `json:"name" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Bonus    int             `json:"bonus"`
}

// CreateSaleRequest alta de venta. Con FromSelection las líneas salen de la selección del folleto.
type CreateSaleRequest struct {
	CustomerName  string            `json:"customer_name" validate:"required"`
	Items         []LineItemRequest `json:"items"`
	FromSelection bool              `json:"from_selection"`
	Date          *time.Time        `json:"date"`
	Status        string            `json:"status"`
	Note          string            `json:"note"`
}

// UpdateLineItemRequest cambio de un campo (price, quantity, bonus) de una línea.
type UpdateLineItemRequest struct {
	Field    string          `json:"field" validate:"required,oneof=price quantity bonus"`
	Value    decimal.Decimal `json:"value"`
	Password string          `json:"password"`
}

// UpdateStatusRequest cambio de estado de visita.
type UpdateStatusRequest struct {
	Status   string `json:"status" validate:"required"`
	Password string `json:"password"`
}

// DeleteSaleRequest confirmación de borrado.
type DeleteSaleRequest struct {
	Password string `json:"password"`
}

// LineItemResponse línea proyectada a la moneda de la respuesta.
type LineItemResponse struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Bonus    int             `json:"bonus"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// SaleResponse salida de una venta.
type SaleResponse struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	CustomerName string             `json:"customer_name"`
	Items        []LineItemResponse `json:"items"`
	TotalPrice   decimal.Decimal    `json:"total_price"`
	Currency     string             `json:"currency"`
	Date         time.Time          `json:"date"`
	Status       string             `json:"status"`
	Note         string             `json:"note"`
}

// SaleListResponse listado filtrado, de la más reciente a la más antigua.
type SaleListResponse struct {
	Items    []SaleResponse  `json:"items"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

// ResetSalesResponse resultado del borrado masivo.
type ResetSalesResponse struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}
