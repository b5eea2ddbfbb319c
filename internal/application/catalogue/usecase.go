// Package catalogue casos de uso del catálogo de ítems y de la selección del folleto.
package catalogue

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/mandoubi-api/internal/application/dto"
	"github.com/jhoicas/mandoubi-api/internal/application/realtime"
	"github.com/jhoicas/mandoubi-api/internal/application/session"
	"github.com/jhoicas/mandoubi-api/internal/domain"
	"github.com/jhoicas/mandoubi-api/internal/domain/access"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	"github.com/jhoicas/mandoubi-api/internal/domain/repository"
	domainsales "github.com/jhoicas/mandoubi-api/internal/domain/sales"
)

// Collection nombre del canal de cambios del catálogo.
const Collection = "items"

// NoGroup etiqueta de los ítems sin grupo.
const NoGroup = "No Group"

// UseCase CRUD del catálogo. Las escrituras requieren el permiso items; un rechazo no toca el repositorio.
type UseCase struct {
	repo   repository.ItemRepository
	mirror *realtime.Mirror[*entity.Item]
	rate   decimal.Decimal
}

// NewUseCase construye el caso de uso.
func NewUseCase(repo repository.ItemRepository, mirror *realtime.Mirror[*entity.Item], rate decimal.Decimal) *UseCase {
	return &UseCase{repo: repo, mirror: mirror, rate: rate}
}

// parsePrice precio obligatorio, numérico y no negativo.
func parsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: el precio es obligatorio", domain.ErrInvalidInput)
	}
	p, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: el precio debe ser numérico", domain.ErrInvalidInput)
	}
	if p.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: el precio no puede ser negativo", domain.ErrInvalidInput)
	}
	return entity.RoundMoney(p), nil
}

// Create crea un ítem.
func (uc *UseCase) Create(ctx context.Context, actor access.Actor, in dto.CreateItemRequest) (*dto.ItemResponse, error) {
	if err := actor.Require(access.FeatureItems); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: el nombre es obligatorio", domain.ErrInvalidInput)
	}
	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	item := &entity.Item{
		ID:          uuid.New().String(),
		Name:        name,
		Price:       price,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Group:       strings.TrimSpace(in.Group),
		Verified:    in.Verified,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	resp := uc.toResponse(item, domainsales.CurrencyIQD, nil)
	return &resp, nil
}

// Update actualiza los campos presentes. Devuelve (nil, nil) si el ítem no existe.
func (uc *UseCase) Update(ctx context.Context, actor access.Actor, id string, in dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	if err := actor.Require(access.FeatureItems); err != nil {
		return nil, err
	}
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: el nombre es obligatorio", domain.ErrInvalidInput)
		}
		item.Name = name
	}
	if in.Price != nil {
		p, err := parsePrice(*in.Price)
		if err != nil {
			return nil, err
		}
		item.Price = p
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.ImageURL != nil {
		item.ImageURL = *in.ImageURL
	}
	if in.Group != nil {
		item.Group = strings.TrimSpace(*in.Group)
	}
	if in.Verified != nil {
		item.Verified = *in.Verified
	}
	item.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	resp := uc.toResponse(item, domainsales.CurrencyIQD, nil)
	return &resp, nil
}

// Delete borra un ítem.
func (uc *UseCase) Delete(ctx context.Context, actor access.Actor, id string) error {
	if err := actor.Require(access.FeatureItems); err != nil {
		return err
	}
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}
	return uc.repo.Delete(ctx, id)
}

// GetByID obtiene un ítem. Devuelve (nil, nil) si no existe.
func (uc *UseCase) GetByID(ctx context.Context, id, currency string) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	resp := uc.toResponse(item, currency, nil)
	return &resp, nil
}

// List catálogo ordenado por nombre; sess marca los ítems seleccionados (puede ser nil).
func (uc *UseCase) List(ctx context.Context, currency string, sess *session.Session) (*dto.ItemListResponse, error) {
	items, err := uc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return uc.ToListResponse(items, currency, sess), nil
}

// ToListResponse ordena por nombre y proyecta un snapshot.
func (uc *UseCase) ToListResponse(items []*entity.Item, currency string, sess *session.Session) *dto.ItemListResponse {
	sorted := make([]*entity.Item, len(items))
	copy(sorted, items)
	sortByName(sorted)
	out := &dto.ItemListResponse{Items: make([]dto.ItemResponse, 0, len(sorted))}
	for _, it := range sorted {
		out.Items = append(out.Items, uc.toResponse(it, currency, sess))
	}
	return out
}

// Groups catálogo agrupado por etiqueta.
func (uc *UseCase) Groups(ctx context.Context, currency string, sess *session.Session) (*dto.ItemGroupsResponse, error) {
	items, err := uc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := &dto.ItemGroupsResponse{Groups: []dto.ItemGroupResponse{}}
	for _, g := range GroupByLabel(items) {
		grp := dto.ItemGroupResponse{Group: g.Label, Items: make([]dto.ItemResponse, 0, len(g.Items))}
		for _, it := range g.Items {
			grp.Items = append(grp.Items, uc.toResponse(it, currency, sess))
		}
		out.Groups = append(out.Groups, grp)
	}
	return out, nil
}

// Subscribe espejo en vivo del catálogo.
func (uc *UseCase) Subscribe(ctx context.Context) *realtime.Subscription[*entity.Item] {
	return uc.mirror.Subscribe(ctx, uc.repo.List)
}

// ── Selección del folleto ────────────────────────────────────────────────────

// ToggleSelection agrega o quita el ítem de la selección de la sesión.
func (uc *UseCase) ToggleSelection(ctx context.Context, actor access.Actor, sess *session.Session, itemID, currency string) (*dto.SelectionResponse, error) {
	if err := actor.Require(access.FeatureBrochure); err != nil {
		return nil, err
	}
	item, err := uc.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	selected := sess.Toggle(*item)
	resp := uc.Selection(sess, currency)
	resp.Selected = selected
	return resp, nil
}

// Selection ítems seleccionados en orden de inserción.
func (uc *UseCase) Selection(sess *session.Session, currency string) *dto.SelectionResponse {
	sel := sess.Selected()
	out := &dto.SelectionResponse{Items: make([]dto.ItemResponse, 0, len(sel))}
	for i := range sel {
		r := uc.toResponse(&sel[i], currency, nil)
		r.Selected = true
		out.Items = append(out.Items, r)
	}
	return out
}

// ── Agrupación ───────────────────────────────────────────────────────────────

// Group ítems con la misma etiqueta.
type Group struct {
	Label string
	Items []*entity.Item
}

// GroupByLabel agrupa por etiqueta (vacía = "No Group"); grupos e ítems ordenados por nombre.
func GroupByLabel(items []*entity.Item) []Group {
	byLabel := map[string][]*entity.Item{}
	for _, it := range items {
		if it == nil {
			continue
		}
		label := strings.TrimSpace(it.Group)
		if label == "" {
			label = NoGroup
		}
		byLabel[label] = append(byLabel[label], it)
	}
	out := make([]Group, 0, len(byLabel))
	for label, list := range byLabel {
		sortByName(list)
		out = append(out, Group{Label: label, Items: list})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func sortByName(items []*entity.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
}

func (uc *UseCase) toResponse(it *entity.Item, currency string, sess *session.Session) dto.ItemResponse {
	p := domainsales.NewProjector(currency, uc.rate)
	return dto.ItemResponse{
		ID:          it.ID,
		Name:        it.Name,
		Price:       p.Value(it.Price),
		Currency:    p.Currency,
		Description: it.Description,
		ImageURL:    it.ImageURL,
		Group:       it.Group,
		Verified:    it.Verified,
		Selected:    sess != nil && sess.IsSelected(it.ID),
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}
