package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateItemRequest entrada para crear un ítem del catálogo. Price llega como texto para validar que sea numérico.
type CreateItemRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Price       string `json:"price" validate:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Group       string `json:"group"`
	Verified    bool   `json:"verified"`
}

// UpdateItemRequest edición parcial de un ítem.
type UpdateItemRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Price       *string `json:"price"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	Group       *string `json:"group"`
	Verified    *bool   `json:"verified"`
}

// ItemResponse salida de un ítem; Price proyectado a la moneda pedida.
type ItemResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Group       string          `json:"group"`
	Verified    bool            `json:"verified"`
	Selected    bool            `json:"selected"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ItemListResponse listado de ítems ordenado por nombre.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
}

// ItemGroupResponse ítems de una misma etiqueta.
type ItemGroupResponse struct {
	Group string         `json:"group"`
	Items []ItemResponse `json:"items"`
}

// ItemGroupsResponse catálogo agrupado por etiqueta.
type ItemGroupsResponse struct {
	Groups []ItemGroupResponse `json:"groups"`
}

// SelectionResponse estado de la selección del folleto.
type SelectionResponse struct {
	Selected bool           `json:"selected"`
	Items    []ItemResponse `json:"items"`
}
