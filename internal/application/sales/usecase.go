// Package sales contiene los casos de uso sobre ventas: alta, listado filtrado, edición de líneas con
// recálculo del total, estado, borrado, reportes, exportación PDF y reinicio masivo.
package sales

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/mandoubi-api/internal/application/dto"
	"github.com/jhoicas/mandoubi-api/internal/application/gate"
	"github.com/jhoicas/mandoubi-api/internal/application/realtime"
	"github.com/jhoicas/mandoubi-api/internal/domain"
	"github.com/jhoicas/mandoubi-api/internal/domain/access"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	"github.com/jhoicas/mandoubi-api/internal/domain/repository"
	domainsales "github.com/jhoicas/mandoubi-api/internal/domain/sales"
)

// Collection nombre del canal de cambios de ventas.
const Collection = "sales"

const defaultFanOut = 8

// Config parámetros del caso de uso.
type Config struct {
	ExchangeRate decimal.Decimal
	Location     *time.Location // zona para día/mes/año; nil = UTC
	FanOut       int            // concurrencia del borrado masivo
}

// UseCase casos de uso de ventas.
type UseCase struct {
	sales  repository.SaleRepository
	tx     repository.SaleTxRunner
	users  repository.UserRepository
	gate   Gatekeeper
	pdf    SalePDFGenerator
	mirror *realtime.Mirror[*entity.Sale]
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time
}

// NewUseCase construye el caso de uso inyectando todas sus dependencias.
func NewUseCase(
	saleRepo repository.SaleRepository,
	tx repository.SaleTxRunner,
	userRepo repository.UserRepository,
	gk Gatekeeper,
	pdf SalePDFGenerator,
	mirror *realtime.Mirror[*entity.Sale],
	cfg Config,
	log zerolog.Logger,
) *UseCase {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.FanOut <= 0 {
		cfg.FanOut = defaultFanOut
	}
	return &UseCase{
		sales:  saleRepo,
		tx:     tx,
		users:  userRepo,
		gate:   gk,
		pdf:    pdf,
		mirror: mirror,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// Projector proyector para la moneda pedida con la tasa configurada.
func (uc *UseCase) Projector(currency string) domainsales.Projector {
	return domainsales.NewProjector(currency, uc.cfg.ExchangeRate)
}

// ListQuery parámetros del listado. Seller solo lo respeta un admin.
type ListQuery struct {
	Seller   string
	Filter   domainsales.Filter
	Currency string
}

// scope vendedor efectivo: un admin puede elegir (vacío = todos), un member solo ve lo suyo.
func scope(actor access.Actor, seller string) string {
	if actor.Access.IsAdmin() {
		return seller
	}
	return actor.UserID
}

func ensureOwner(actor access.Actor, s *entity.Sale) error {
	if actor.Access.IsAdmin() || s.UserID == actor.UserID {
		return nil
	}
	return fmt.Errorf("%w: la venta pertenece a otro vendedor", domain.ErrForbidden)
}

// ── Alta ─────────────────────────────────────────────────────────────────────

// Create registra una venta del actor. Con FromSelection las líneas salen de selected (cantidad 1, sin bonus).
func (uc *UseCase) Create(ctx context.Context, actor access.Actor, in dto.CreateSaleRequest, selected []entity.Item) (*dto.SaleResponse, error) {
	if err := actor.Require(access.FeatureDailySales); err != nil {
		return nil, err
	}
	customer := strings.TrimSpace(in.CustomerName)
	if customer == "" {
		return nil, fmt.Errorf("%w: el nombre del cliente es obligatorio", domain.ErrInvalidInput)
	}

	var items []entity.LineItem
	if in.FromSelection {
		for _, it := range selected {
			items = append(items, entity.LineItem{Name: it.Name, Price: entity.RoundMoney(it.Price), Quantity: 1})
		}
	} else {
		for _, li := range in.Items {
			if strings.TrimSpace(li.Name) == "" || li.Price.IsNegative() || li.Quantity < 0 || li.Bonus < 0 ||
				li.Quantity > math.MaxInt32 || li.Bonus > math.MaxInt32 {
				return nil, fmt.Errorf("%w: línea inválida %q", domain.ErrInvalidInput, li.Name)
			}
			q := li.Quantity
			if q == 0 {
				q = 1
			}
			items = append(items, entity.LineItem{Name: li.Name, Price: entity.RoundMoney(li.Price), Quantity: q, Bonus: li.Bonus})
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: la venta no tiene líneas", domain.ErrInvalidInput)
	}

	date := uc.now()
	if in.Date != nil && !in.Date.IsZero() {
		date = *in.Date
	}
	sale := &entity.Sale{
		ID:           uuid.New().String(),
		UserID:       actor.UserID,
		CustomerName: customer,
		Items:        items,
		Date:         date,
		Status:       entity.NormalizeSaleStatus(in.Status),
		Note:         in.Note,
	}
	sale.RecalculateTotal()
	if err := uc.sales.Create(ctx, sale); err != nil {
		return nil, fmt.Errorf("sales: crear venta: %w", err)
	}
	resp := toSaleResponse(sale, uc.Projector(domainsales.CurrencyIQD))
	return &resp, nil
}

// ── Lectura ──────────────────────────────────────────────────────────────────

// List ventas del alcance del actor que cumplen el filtro, de la más reciente a la más antigua.
func (uc *UseCase) List(ctx context.Context, actor access.Actor, q ListQuery) (*dto.SaleListResponse, error) {
	if err := actor.Require(access.FeatureSalesData); err != nil {
		return nil, err
	}
	list, err := uc.sales.List(ctx, repository.SaleQuery{UserID: scope(actor, q.Seller)})
	if err != nil {
		return nil, fmt.Errorf("sales: listar: %w", err)
	}
	return uc.ToListResponse(list, q.Filter, q.Currency), nil
}

// ToListResponse filtra, ordena y proyecta un snapshot. No modifica list.
func (uc *UseCase) ToListResponse(list []*entity.Sale, f domainsales.Filter, currency string) *dto.SaleListResponse {
	if f.Location == nil {
		f.Location = uc.cfg.Location
	}
	matched := f.Apply(list)
	sorted := make([]*entity.Sale, len(matched))
	copy(sorted, matched)
	domainsales.SortByDateDesc(sorted)

	p := uc.Projector(currency)
	out := &dto.SaleListResponse{Items: make([]dto.SaleResponse, 0, len(sorted)), Currency: p.Currency}
	total := decimal.Zero
	for _, s := range sorted {
		out.Items = append(out.Items, toSaleResponse(s, p))
		total = total.Add(s.TotalPrice)
	}
	out.Total = p.Value(total)
	return out
}

// Get una venta visible para el actor.
func (uc *UseCase) Get(ctx context.Context, actor access.Actor, id, currency string) (*dto.SaleResponse, error) {
	s, err := uc.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	resp := toSaleResponse(s, uc.Projector(currency))
	return &resp, nil
}

func (uc *UseCase) load(ctx context.Context, actor access.Actor, id string) (*entity.Sale, error) {
	if err := actor.Require(access.FeatureSalesData); err != nil {
		return nil, err
	}
	s, err := uc.sales.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("sales: obtener venta: %w", err)
	}
	if s == nil {
		return nil, domain.ErrNotFound
	}
	if err := ensureOwner(actor, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Subscribe espejo en vivo de las ventas del alcance del actor.
func (uc *UseCase) Subscribe(ctx context.Context, actor access.Actor, seller string) (*realtime.Subscription[*entity.Sale], error) {
	if err := actor.Require(access.FeatureSalesData); err != nil {
		return nil, err
	}
	q := repository.SaleQuery{UserID: scope(actor, seller)}
	return uc.mirror.Subscribe(ctx, func(ctx context.Context) ([]*entity.Sale, error) {
		return uc.sales.List(ctx, q)
	}), nil
}

// ── Edición ──────────────────────────────────────────────────────────────────

// UpdateLineItem cambia precio, cantidad o bonus de una línea y persiste líneas + total en una transacción.
// Orden: permiso, dueño, contraseña de la clase de acción, escritura.
func (uc *UseCase) UpdateLineItem(ctx context.Context, actor access.Actor, id string, index int, in dto.UpdateLineItemRequest) (*dto.SaleResponse, error) {
	field := domainsales.LineField(in.Field)
	if field != domainsales.FieldPrice && field != domainsales.FieldQuantity && field != domainsales.FieldBonus {
		return nil, fmt.Errorf("%w: campo %q no editable", domain.ErrInvalidInput, in.Field)
	}
	if _, err := uc.load(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := uc.gate.Check(ctx, actor.UserID, gate.ForField(field), in.Password); err != nil {
		return nil, err
	}

	var updated *entity.Sale
	err := uc.tx.RunSales(ctx, func(repo repository.SaleRepository) error {
		s, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if s == nil {
			return domain.ErrNotFound
		}
		items, err := domainsales.EditLineItem(s.Items, index, field, in.Value)
		if err != nil {
			return err
		}
		s.Items = items
		s.RecalculateTotal()
		if err := repo.UpdateItems(ctx, s.ID, s.Items, s.TotalPrice); err != nil {
			return err
		}
		updated = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toSaleResponse(updated, uc.Projector(domainsales.CurrencyIQD))
	return &resp, nil
}

// UpdateStatus fija el estado de visita (cualquier valor distinto de visited queda como not-visited).
func (uc *UseCase) UpdateStatus(ctx context.Context, actor access.Actor, id string, in dto.UpdateStatusRequest) (*dto.SaleResponse, error) {
	s, err := uc.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := uc.gate.Check(ctx, actor.UserID, gate.ActionStatusChange, in.Password); err != nil {
		return nil, err
	}
	s.Status = entity.NormalizeSaleStatus(in.Status)
	if err := uc.sales.UpdateStatus(ctx, s.ID, s.Status); err != nil {
		return nil, fmt.Errorf("sales: actualizar estado: %w", err)
	}
	resp := toSaleResponse(s, uc.Projector(domainsales.CurrencyIQD))
	return &resp, nil
}

// Delete borra una venta del actor (o cualquiera si es admin).
func (uc *UseCase) Delete(ctx context.Context, actor access.Actor, id, password string) error {
	if _, err := uc.load(ctx, actor, id); err != nil {
		return err
	}
	if err := uc.gate.Check(ctx, actor.UserID, gate.ActionDeleteSale, password); err != nil {
		return err
	}
	return uc.sales.Delete(ctx, id)
}

// ResetAll borra todas las ventas en paralelo, sin orden ni rollback.
// Si alguna falla devuelve domain.ErrPartialFailure junto con los conteos.
func (uc *UseCase) ResetAll(ctx context.Context, actor access.Actor) (*dto.ResetSalesResponse, error) {
	if !actor.Access.IsAdmin() {
		return nil, fmt.Errorf("%w: solo un admin puede reiniciar las ventas", domain.ErrForbidden)
	}
	if err := actor.Require(access.FeatureSettings); err != nil {
		return nil, err
	}
	list, err := uc.sales.List(ctx, repository.SaleQuery{})
	if err != nil {
		return nil, fmt.Errorf("sales: listar para reinicio: %w", err)
	}

	var deleted, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(uc.cfg.FanOut)
	for _, s := range list {
		id := s.ID
		g.Go(func() error {
			if err := uc.sales.Delete(ctx, id); err != nil {
				failed.Add(1)
				uc.log.Warn().Err(err).Str("sale_id", id).Msg("sales: no se pudo borrar en el reinicio")
				return nil
			}
			deleted.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := &dto.ResetSalesResponse{Deleted: int(deleted.Load()), Failed: int(failed.Load())}
	uc.log.Info().Int("deleted", res.Deleted).Int("failed", res.Failed).Msg("sales: reinicio completado")
	if res.Failed > 0 {
		return res, fmt.Errorf("%w: %d de %d ventas sin borrar", domain.ErrPartialFailure, res.Failed, len(list))
	}
	return res, nil
}

// ── Exportación ──────────────────────────────────────────────────────────────

// ExportPDF genera el PDF de la venta. Nombre: sale_{cliente}_{YYYY-MM-DD}.pdf.
func (uc *UseCase) ExportPDF(ctx context.Context, actor access.Actor, id, currency string) ([]byte, string, error) {
	s, err := uc.load(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	seller := s.UserID
	if u, err := uc.users.GetByID(ctx, s.UserID); err == nil && u != nil && u.Name != "" {
		seller = u.Name
	}
	data, err := uc.pdf.GenerateSalePDF(s, seller, uc.Projector(currency))
	if err != nil {
		return nil, "", fmt.Errorf("sales: generar pdf: %w", err)
	}
	return data, PDFFilename(s), nil
}

// PDFFilename sale_{cliente}_{YYYY-MM-DD}.pdf con la fecha ISO (UTC) de la venta.
func PDFFilename(s *entity.Sale) string {
	d := s.Date.UTC()
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', '\n', '\r':
			return '_'
		}
		return r
	}, s.CustomerName)
	return fmt.Sprintf("sale_%s_%s.pdf", name, d.Format("2006-01-02"))
}

func toSaleResponse(s *entity.Sale, p domainsales.Projector) dto.SaleResponse {
	items := make([]dto.LineItemResponse, 0, len(s.Items))
	for _, li := range s.Items {
		items = append(items, dto.LineItemResponse{
			Name:     li.Name,
			Price:    p.Value(li.Price),
			Quantity: li.Quantity,
			Bonus:    li.Bonus,
			Subtotal: p.Value(li.Subtotal()),
		})
	}
	return dto.SaleResponse{
		ID:           s.ID,
		UserID:       s.UserID,
		CustomerName: s.CustomerName,
		Items:        items,
		TotalPrice:   p.Value(s.TotalPrice),
		Currency:     p.Currency,
		Date:         s.Date,
		Status:       s.Status,
		Note:         s.Note,
	}
}
