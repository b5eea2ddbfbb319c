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

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo implementación del puerto UserRepository sobre PostgreSQL.
// permissions y monthly_target_prices son columnas JSONB; NULL significa "sin valor guardado".
type UserRepo struct {
	q Querier
}

// NewUserRepository construye el adaptador de persistencia para perfiles.
func NewUserRepository(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

const userColumns = `id, email, name, role, permissions, monthly_target_prices, created_at, updated_at`

// Create persiste un nuevo perfil. Un id existente devuelve domain.ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	perms, err := marshalNullable(user.Permissions)
	if err != nil {
		return err
	}
	targets, err := marshalNullable(user.MonthlyTargetPrices)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.q.Exec(ctx, query,
		user.ID, user.Email, user.Name, user.Role, perms, targets, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID obtiene un perfil por ID. (nil, nil) si no existe.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	row := r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// List todos los perfiles ordenados por nombre.
func (r *UserRepo) List(ctx context.Context) ([]*entity.User, error) {
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var list []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Update escribe nombre, rol y permisos sin tocar los objetivos mensuales.
func (r *UserRepo) Update(ctx context.Context, user *entity.User) error {
	perms, err := marshalNullable(user.Permissions)
	if err != nil {
		return err
	}
	cmd, err := r.q.Exec(ctx,
		`UPDATE users SET name = $2, role = $3, permissions = $4, updated_at = $5 WHERE id = $1`,
		user.ID, user.Name, user.Role, perms, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// MergeTargetPrice fija targets[month] = value conservando las demás claves (merge JSONB en una sola sentencia).
func (r *UserRepo) MergeTargetPrice(ctx context.Context, userID, month string, value decimal.Decimal) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE users
		SET monthly_target_prices = COALESCE(monthly_target_prices, '{}'::jsonb) || jsonb_build_object($2::text, $3::numeric),
		    updated_at = now()
		WHERE id = $1`,
		userID, month, value,
	)
	if err != nil {
		return fmt.Errorf("merge target price: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete elimina un perfil por ID.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*entity.User, error) {
	var u entity.User
	var perms, targets []byte
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &perms, &targets, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &u.Permissions); err != nil {
			return nil, fmt.Errorf("permissions: %w", err)
		}
	}
	if len(targets) > 0 {
		if err := json.Unmarshal(targets, &u.MonthlyTargetPrices); err != nil {
			return nil, fmt.Errorf("monthly_target_prices: %w", err)
		}
	}
	return &u, nil
}

// marshalNullable serializa a JSON; un mapa nil se guarda como NULL.
func marshalNullable[M ~map[K]V, K comparable, V any](m M) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return b, nil
}
