package sales

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
)

// MonthLayout formato de las claves de mes ("2024-06").
const MonthLayout = "2006-01"

var hundred = decimal.NewFromInt(100)

// MonthKey clave de mes de un instante en la zona dada (nil = la del instante).
func MonthKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(MonthLayout)
}

// ParseMonth valida una clave de mes y devuelve su primer instante en loc.
func ParseMonth(month string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(MonthLayout, month, loc)
}

// ItemSummary agregado por nombre de línea.
type ItemSummary struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Bonus    int             `json:"bonus"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// Summary agregado mensual.
type Summary struct {
	Month        string          `json:"month"`
	SalesCount   int             `json:"sales_count"`
	Visited      int             `json:"visited"`
	NotVisited   int             `json:"not_visited"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	Items        []ItemSummary   `json:"items"`
}

// MonthlySummary agrega las ventas cuyo mes coincide con month.
// Los ítems se ordenan por ingreso descendente y luego por nombre.
func MonthlySummary(list []*entity.Sale, month string, loc *time.Location) Summary {
	sum := Summary{Month: month, TotalRevenue: decimal.Zero, Items: []ItemSummary{}}
	byName := map[string]*ItemSummary{}
	for _, s := range list {
		if s == nil || MonthKey(s.Date, loc) != month {
			continue
		}
		sum.SalesCount++
		if s.Status == entity.SaleStatusVisited {
			sum.Visited++
		} else {
			sum.NotVisited++
		}
		sum.TotalRevenue = sum.TotalRevenue.Add(s.TotalPrice)
		for _, li := range s.Items {
			agg, ok := byName[li.Name]
			if !ok {
				agg = &ItemSummary{Name: li.Name, Revenue: decimal.Zero}
				byName[li.Name] = agg
			}
			agg.Quantity += li.Quantity
			agg.Bonus += li.Bonus
			agg.Revenue = agg.Revenue.Add(li.Subtotal())
		}
	}
	for _, agg := range byName {
		sum.Items = append(sum.Items, *agg)
	}
	sort.Slice(sum.Items, func(i, j int) bool {
		if c := sum.Items[i].Revenue.Cmp(sum.Items[j].Revenue); c != 0 {
			return c > 0
		}
		return sum.Items[i].Name < sum.Items[j].Name
	})
	return sum
}

// SellerSummary agregado por vendedor.
type SellerSummary struct {
	UserID       string          `json:"user_id"`
	SalesCount   int             `json:"sales_count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	LastSaleAt   time.Time       `json:"last_sale_at"`
}

// SummaryBySeller agrupa por dueño de la venta; ordena por ingreso descendente y luego por id.
func SummaryBySeller(list []*entity.Sale) []SellerSummary {
	byUser := map[string]*SellerSummary{}
	for _, s := range list {
		if s == nil {
			continue
		}
		agg, ok := byUser[s.UserID]
		if !ok {
			agg = &SellerSummary{UserID: s.UserID, TotalRevenue: decimal.Zero}
			byUser[s.UserID] = agg
		}
		agg.SalesCount++
		agg.TotalRevenue = agg.TotalRevenue.Add(s.TotalPrice)
		if s.Date.After(agg.LastSaleAt) {
			agg.LastSaleAt = s.Date
		}
	}
	out := make([]SellerSummary, 0, len(byUser))
	for _, agg := range byUser {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalRevenue.Cmp(out[j].TotalRevenue); c != 0 {
			return c > 0
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// ForecastResult avance del mes contra el objetivo.
type ForecastResult struct {
	Month       string          `json:"month"`
	MonthToDate decimal.Decimal `json:"month_to_date"`
	DaysElapsed int             `json:"days_elapsed"`
	DaysInMonth int             `json:"days_in_month"`
	Projected   decimal.Decimal `json:"projected"`    // extrapolación lineal al cierre del mes
	Target      decimal.Decimal `json:"target"`       // cero si no hay objetivo
	ProgressPct decimal.Decimal `json:"progress_pct"` // MonthToDate / Target * 100
	Remaining   decimal.Decimal `json:"remaining"`    // max(Target - MonthToDate, 0)
}

// Forecast calcula el pronóstico lineal del mes `month` visto desde `now`.
// Meses pasados usan todos sus días; meses futuros no tienen días transcurridos.
func Forecast(list []*entity.Sale, month string, target decimal.Decimal, now time.Time, loc *time.Location) (ForecastResult, error) {
	start, err := ParseMonth(month, loc)
	if err != nil {
		return ForecastResult{}, err
	}
	end := start.AddDate(0, 1, 0)
	daysInMonth := int(end.Sub(start).Hours()/24 + 0.5)

	if loc != nil {
		now = now.In(loc)
	}
	var elapsed int
	switch {
	case !now.Before(end):
		elapsed = daysInMonth
	case now.Before(start):
		elapsed = 0
	default:
		elapsed = now.Day()
	}

	mtd := MonthlySummary(list, month, loc).TotalRevenue
	res := ForecastResult{
		Month:       month,
		MonthToDate: mtd,
		DaysElapsed: elapsed,
		DaysInMonth: daysInMonth,
		Projected:   decimal.Zero,
		Target:      target,
		ProgressPct: decimal.Zero,
		Remaining:   decimal.Zero,
	}
	if elapsed > 0 {
		res.Projected = mtd.Div(decimal.NewFromInt(int64(elapsed))).
			Mul(decimal.NewFromInt(int64(daysInMonth))).Round(2)
	}
	if target.IsPositive() {
		res.ProgressPct = mtd.Div(target).Mul(hundred).Round(2)
		if rem := target.Sub(mtd); rem.IsPositive() {
			res.Remaining = rem
		}
	}
	return res, nil
}

// PendingFollowUp ventas aún no visitadas, de la más antigua a la más reciente.
func PendingFollowUp(list []*entity.Sale) []*entity.Sale {
	out := make([]*entity.Sale, 0)
	for _, s := range list {
		if s != nil && s.Status != entity.SaleStatusVisited {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// SortByDateDesc ordena en sitio de la más reciente a la más antigua.
func SortByDateDesc(list []*entity.Sale) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
}
