package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/mandoubi-api/internal/domain"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	"github.com/jhoicas/mandoubi-api/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo implementación del puerto SaleRepository sobre PostgreSQL (usable con pool o tx).
// Las líneas se guardan como arreglo JSONB en items.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

const saleColumns = `id, user_id, customer_name, items, total_price, date, status, note`

// Create persiste una venta.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	items, err := json.Marshal(lineItemsOrEmpty(s.Items))
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO sales (`+saleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.UserID, s.CustomerName, items, s.TotalPrice, s.Date, s.Status, s.Note,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// GetByID obtiene una venta. (nil, nil) si no existe.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	return r.get(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
}

// GetByIDForUpdate igual que GetByID con SELECT … FOR UPDATE.
func (r *SaleRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	return r.get(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id)
}

func (r *SaleRepo) get(ctx context.Context, query, id string) (*entity.Sale, error) {
	s, err := scanSale(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return s, nil
}

// List ventas que cumplen el filtro de igualdad. Sin orden garantizado: el consumidor ordena.
func (r *SaleRepo) List(ctx context.Context, q repository.SaleQuery) ([]*entity.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales`
	var args []any
	if q.UserID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, q.UserID)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()
	list := []*entity.Sale{}
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// UpdateItems escribe líneas y total en una sola sentencia.
func (r *SaleRepo) UpdateItems(ctx context.Context, id string, items []entity.LineItem, total decimal.Decimal) error {
	raw, err := json.Marshal(lineItemsOrEmpty(items))
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	cmd, err := r.q.Exec(ctx, `UPDATE sales SET items = $2, total_price = $3 WHERE id = $1`, id, raw, total)
	if err != nil {
		return fmt.Errorf("update sale items: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStatus fija el estado de visita.
func (r *SaleRepo) UpdateStatus(ctx context.Context, id, status string) error {
	cmd, err := r.q.Exec(ctx, `UPDATE sales SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update sale status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina una venta.
func (r *SaleRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	return nil
}

func scanSale(row rowScanner) (*entity.Sale, error) {
	var s entity.Sale
	var items []byte
	if err := row.Scan(&s.ID, &s.UserID, &s.CustomerName, &items, &s.TotalPrice, &s.Date, &s.Status, &s.Note); err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &s.Items); err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
	}
	return &s, nil
}

func lineItemsOrEmpty(items []entity.LineItem) []entity.LineItem {
	if items == nil {
		return []entity.LineItem{}
	}
	return items
}
