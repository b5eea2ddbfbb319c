package sales

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/mandoubi-api/internal/domain"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
)

// LineField campo editable de una línea de venta.
type LineField string

// Campos editables.
const (
	FieldPrice    LineField = "price"
	FieldQuantity LineField = "quantity"
	FieldBonus    LineField = "bonus"
)

var maxUnits = decimal.NewFromInt(math.MaxInt32)

// EditLineItem devuelve una copia de items con el campo de la línea index reemplazado.
// Cantidad cero se guarda como 1. Precio y bonus no pueden ser negativos. Cantidad y bonus son enteros
// hasta math.MaxInt32; el precio se redondea a entity.MoneyScale.
func EditLineItem(items []entity.LineItem, index int, field LineField, value decimal.Decimal) ([]entity.LineItem, error) {
	if index < 0 || index >= len(items) {
		return nil, fmt.Errorf("%w: línea %d fuera de rango", domain.ErrInvalidInput, index)
	}
	if value.IsNegative() {
		return nil, fmt.Errorf("%w: %s no puede ser negativo", domain.ErrInvalidInput, field)
	}
	out := make([]entity.LineItem, len(items))
	copy(out, items)

	switch field {
	case FieldPrice:
		out[index].Price = entity.RoundMoney(value)
	case FieldQuantity:
		if !value.Equal(value.Truncate(0)) {
			return nil, fmt.Errorf("%w: la cantidad debe ser entera", domain.ErrInvalidInput)
		}
		if value.GreaterThan(maxUnits) {
			return nil, fmt.Errorf("%w: cantidad fuera de rango", domain.ErrInvalidInput)
		}
		q := int(value.IntPart())
		if q == 0 {
			q = 1
		}
		out[index].Quantity = q
	case FieldBonus:
		if !value.Equal(value.Truncate(0)) {
			return nil, fmt.Errorf("%w: el bonus debe ser entero", domain.ErrInvalidInput)
		}
		if value.GreaterThan(maxUnits) {
			return nil, fmt.Errorf("%w: bonus fuera de rango", domain.ErrInvalidInput)
		}
		out[index].Bonus = int(value.IntPart())
	default:
		return nil, fmt.Errorf("%w: campo %q no editable", domain.ErrInvalidInput, field)
	}
	return out, nil
}
