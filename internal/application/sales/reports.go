package sales

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/mandoubi-api/internal/application/dto"
	"github.com/jhoicas/mandoubi-api/internal/domain"
	"github.com/jhoicas/mandoubi-api/internal/domain/access"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	"github.com/jhoicas/mandoubi-api/internal/domain/repository"
	domainsales "github.com/jhoicas/mandoubi-api/internal/domain/sales"
)

// ReportQuery parámetros comunes de los reportes. Month vacío = mes en curso.
type ReportQuery struct {
	Month    string
	Seller   string
	Currency string
}

func (uc *UseCase) month(m string) (string, error) {
	if m == "" {
		return domainsales.MonthKey(uc.now(), uc.cfg.Location), nil
	}
	if _, err := domainsales.ParseMonth(m, uc.cfg.Location); err != nil {
		return "", fmt.Errorf("%w: mes %q (formato YYYY-MM)", domain.ErrInvalidInput, m)
	}
	return m, nil
}

func (uc *UseCase) scoped(ctx context.Context, actor access.Actor, seller string) ([]*entity.Sale, error) {
	list, err := uc.sales.List(ctx, repository.SaleQuery{UserID: scope(actor, seller)})
	if err != nil {
		return nil, fmt.Errorf("sales: listar para reporte: %w", err)
	}
	return list, nil
}

// Summary resumen mensual del alcance del actor.
func (uc *UseCase) Summary(ctx context.Context, actor access.Actor, q ReportQuery) (*domainsales.Summary, error) {
	if err := actor.Require(access.FeatureSalesSummary); err != nil {
		return nil, err
	}
	month, err := uc.month(q.Month)
	if err != nil {
		return nil, err
	}
	list, err := uc.scoped(ctx, actor, q.Seller)
	if err != nil {
		return nil, err
	}
	sum := domainsales.MonthlySummary(list, month, uc.cfg.Location)
	p := uc.Projector(q.Currency)
	sum.TotalRevenue = p.Value(sum.TotalRevenue)
	for i := range sum.Items {
		sum.Items[i].Revenue = p.Value(sum.Items[i].Revenue)
	}
	return &sum, nil
}

// BySeller totales por vendedor del mes. Un member solo ve su propia fila.
func (uc *UseCase) BySeller(ctx context.Context, actor access.Actor, q ReportQuery) ([]domainsales.SellerSummary, error) {
	if err := actor.Require(access.FeatureSalesReports); err != nil {
		return nil, err
	}
	month, err := uc.month(q.Month)
	if err != nil {
		return nil, err
	}
	list, err := uc.scoped(ctx, actor, q.Seller)
	if err != nil {
		return nil, err
	}
	inMonth := make([]*entity.Sale, 0, len(list))
	for _, s := range list {
		if domainsales.MonthKey(s.Date, uc.cfg.Location) == month {
			inMonth = append(inMonth, s)
		}
	}
	rows := domainsales.SummaryBySeller(inMonth)
	p := uc.Projector(q.Currency)
	for i := range rows {
		rows[i].TotalRevenue = p.Value(rows[i].TotalRevenue)
	}
	return rows, nil
}

// Forecast avance del mes contra el objetivo del vendedor (el propio actor si no es admin).
func (uc *UseCase) Forecast(ctx context.Context, actor access.Actor, q ReportQuery) (*domainsales.ForecastResult, error) {
	if err := actor.Require(access.FeatureSalesForecast); err != nil {
		return nil, err
	}
	month, err := uc.month(q.Month)
	if err != nil {
		return nil, err
	}
	seller := scope(actor, q.Seller)
	if seller == "" {
		seller = actor.UserID
	}
	list, err := uc.scoped(ctx, actor, seller)
	if err != nil {
		return nil, err
	}

	target := decimal.Zero
	u, err := uc.users.GetByID(ctx, seller)
	if err != nil {
		uc.log.Warn().Err(err).Str("user_id", seller).Msg("sales: no se pudo leer el objetivo mensual")
	} else if u != nil {
		if v, ok := u.MonthlyTargetPrices[month]; ok {
			target = v
		}
	}

	res, err := domainsales.Forecast(list, month, target, uc.now(), uc.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	p := uc.Projector(q.Currency)
	res.MonthToDate = p.Value(res.MonthToDate)
	res.Projected = p.Value(res.Projected)
	res.Target = p.Value(res.Target)
	res.Remaining = p.Value(res.Remaining)
	return &res, nil
}

// FollowUp ventas no visitadas del alcance del actor, de la más antigua a la más reciente.
func (uc *UseCase) FollowUp(ctx context.Context, actor access.Actor, q ReportQuery) (*dto.SaleListResponse, error) {
	if err := actor.Require(access.FeatureFollowUp); err != nil {
		return nil, err
	}
	list, err := uc.scoped(ctx, actor, q.Seller)
	if err != nil {
		return nil, err
	}
	pending := domainsales.PendingFollowUp(list)
	p := uc.Projector(q.Currency)
	out := &dto.SaleListResponse{Items: make([]dto.SaleResponse, 0, len(pending)), Currency: p.Currency}
	total := decimal.Zero
	for _, s := range pending {
		out.Items = append(out.Items, toSaleResponse(s, p))
		total = total.Add(s.TotalPrice)
	}
	out.Total = p.Value(total)
	return out, nil
}
