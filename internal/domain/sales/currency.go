package sales

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Monedas de visualización.
const (
	CurrencyIQD = "IQD" // moneda base de todos los valores guardados
	CurrencyUSD = "USD"
)

// NormalizeCurrency cualquier valor distinto de USD se muestra en IQD.
func NormalizeCurrency(c string) string {
	if strings.EqualFold(strings.TrimSpace(c), CurrencyUSD) {
		return CurrencyUSD
	}
	return CurrencyIQD
}

// Project convierte un valor base en IQD a la moneda de visualización.
// USD: base / rate redondeado a 2 decimales; IQD: sin cambios.
// Siempre se llama con el valor guardado, nunca con uno ya proyectado.
func Project(base decimal.Decimal, currency string, rate decimal.Decimal) decimal.Decimal {
	if NormalizeCurrency(currency) != CurrencyUSD || !rate.IsPositive() {
		return base
	}
	return base.Div(rate).Round(2)
}

// Projector fija moneda y tasa para una respuesta.
type Projector struct {
	Currency string
	Rate     decimal.Decimal
}

// NewProjector construye el proyector normalizando la moneda.
func NewProjector(currency string, rate decimal.Decimal) Projector {
	return Projector{Currency: NormalizeCurrency(currency), Rate: rate}
}

// Value proyecta un valor base.
func (p Projector) Value(base decimal.Decimal) decimal.Decimal {
	return Project(base, p.Currency, p.Rate)
}
