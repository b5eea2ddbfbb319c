// Package sales contiene la lógica pura sobre colecciones de ventas: filtros,
// proyección de moneda y agregados para resúmenes, reportes y pronósticos.
package sales

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
)

// Filter criterios de búsqueda. Cada criterio vacío (cadena vacía o cero) no restringe.
// Los criterios se combinan con AND.
type Filter struct {
	Name     string         // subcadena del nombre del cliente, sin distinguir mayúsculas
	Day      int            // 1-31
	Month    int            // 1-12
	Year     int            // ej. 2024
	Location *time.Location // zona para extraer día/mes/año; nil = la de cada venta
}

// IsEmpty informa si el filtro no restringe nada.
func (f Filter) IsEmpty() bool {
	return strings.TrimSpace(f.Name) == "" && f.Day == 0 && f.Month == 0 && f.Year == 0
}

// Apply devuelve la subsecuencia (mismo orden) que cumple todos los criterios.
// Sin criterios devuelve la entrada tal cual.
func (f Filter) Apply(list []*entity.Sale) []*entity.Sale {
	if f.IsEmpty() {
		return list
	}
	fold := cases.Fold()
	term := fold.String(strings.TrimSpace(f.Name))

	out := make([]*entity.Sale, 0, len(list))
	for _, s := range list {
		if s == nil {
			continue
		}
		if term != "" && !strings.Contains(fold.String(s.CustomerName), term) {
			continue
		}
		if !f.matchDate(s.Date) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (f Filter) matchDate(d time.Time) bool {
	if f.Location != nil {
		d = d.In(f.Location)
	}
	if f.Day != 0 && d.Day() != f.Day {
		return false
	}
	if f.Month != 0 && int(d.Month()) != f.Month {
		return false
	}
	if f.Year != 0 && d.Year() != f.Year {
		return false
	}
	return true
}
