// Package members administra miembros (credencial + perfil), sus permisos y los objetivos mensuales.
package members

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/mandoubi-api/internal/application/dto"
	"github.com/jhoicas/mandoubi-api/internal/domain"
	"github.com/jhoicas/mandoubi-api/internal/domain/access"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	"github.com/jhoicas/mandoubi-api/internal/domain/repository"
	domainsales "github.com/jhoicas/mandoubi-api/internal/domain/sales"
)

const defaultFanOut = 8

// UseCase casos de uso de miembros.
type UseCase struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	fanOut   int
	log      zerolog.Logger
}

// NewUseCase construye el caso de uso. fanOut <= 0 usa el valor por defecto.
func NewUseCase(users repository.UserRepository, accounts repository.AccountRepository, fanOut int, log zerolog.Logger) *UseCase {
	if fanOut <= 0 {
		fanOut = defaultFanOut
	}
	return &UseCase{users: users, accounts: accounts, fanOut: fanOut, log: log}
}

// List todos los perfiles.
func (uc *UseCase) List(ctx context.Context, actor access.Actor) (*dto.MemberListResponse, error) {
	if err := actor.Require(access.FeatureAdminMembers); err != nil {
		return nil, err
	}
	list, err := uc.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := &dto.MemberListResponse{Items: make([]dto.MemberResponse, 0, len(list))}
	for _, u := range list {
		out.Items = append(out.Items, ToMemberResponse(u))
	}
	return out, nil
}

// Add crea la credencial y el perfil con los permisos por defecto del rol.
// Si falla el perfil se intenta borrar la credencial recién creada.
func (uc *UseCase) Add(ctx context.Context, actor access.Actor, in dto.CreateMemberRequest) (*dto.MemberResponse, error) {
	if err := actor.Require(access.FeatureAdminMembers); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || len(in.Password) < 6 {
		return nil, fmt.Errorf("%w: email y contraseña (mínimo 6) son obligatorios", domain.ErrInvalidInput)
	}
	existing, err := uc.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	account := &entity.Account{ID: uuid.New().String(), Email: email, PasswordHash: string(hash), CreatedAt: now}
	if err := uc.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	role := access.NormalizeRole(in.Role)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email
	}
	user := &entity.User{
		ID:          account.ID,
		Email:       email,
		Name:        name,
		Role:        role,
		Permissions: access.DefaultsForRole(role),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		if derr := uc.accounts.Delete(ctx, account.ID); derr != nil {
			uc.log.Error().Err(derr).Str("account_id", account.ID).Msg("members: credencial huérfana")
		}
		return nil, fmt.Errorf("members: crear perfil: %w", err)
	}
	resp := ToMemberResponse(user)
	return &resp, nil
}

// Update cambia nombre, rol y permisos. Un admin queda siempre con la tabla completa.
func (uc *UseCase) Update(ctx context.Context, actor access.Actor, id string, in dto.UpdateMemberRequest) (*dto.MemberResponse, error) {
	if err := actor.Require(access.FeatureAdminMembers); err != nil {
		return nil, err
	}
	user, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Role != nil {
		user.Role = access.NormalizeRole(*in.Role)
	}
	requested := access.Permissions(user.Permissions)
	if in.Permissions != nil {
		requested = in.Permissions
	}
	user.Permissions = access.EffectivePermissions(user.Role, requested)
	user.UpdatedAt = time.Now()
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, err
	}
	resp := ToMemberResponse(user)
	return &resp, nil
}

// Delete borra perfil y credencial. Un admin no puede borrarse a sí mismo.
func (uc *UseCase) Delete(ctx context.Context, actor access.Actor, id string) error {
	if err := actor.Require(access.FeatureAdminMembers); err != nil {
		return err
	}
	if id == actor.UserID {
		return fmt.Errorf("%w: no se puede borrar la propia cuenta", domain.ErrConflict)
	}
	user, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if err := uc.users.Delete(ctx, id); err != nil {
		return err
	}
	if err := uc.accounts.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		uc.log.Warn().Err(err).Str("account_id", id).Msg("members: no se pudo borrar la credencial")
	}
	return nil
}

// UpdateTargetPrice fija el objetivo del mes para el actor. Si el actor es admin con permiso settings,
// propaga {month: value} a todos los demás usuarios en paralelo, sin orden ni rollback; cada escritura
// conserva las demás claves del mapa.
func (uc *UseCase) UpdateTargetPrice(ctx context.Context, actor access.Actor, month string, value decimal.Decimal) (*dto.TargetResponse, error) {
	if _, err := domainsales.ParseMonth(month, time.UTC); err != nil {
		return nil, fmt.Errorf("%w: mes %q (formato YYYY-MM)", domain.ErrInvalidInput, month)
	}
	if value.IsNegative() {
		return nil, fmt.Errorf("%w: el objetivo no puede ser negativo", domain.ErrInvalidInput)
	}
	if err := uc.users.MergeTargetPrice(ctx, actor.UserID, month, value); err != nil {
		return nil, fmt.Errorf("members: objetivo propio: %w", err)
	}
	res := &dto.TargetResponse{Month: month, Value: value}
	if !actor.Access.IsAdmin() || !actor.Access.Can(access.FeatureSettings) {
		return res, nil
	}

	users, err := uc.users.List(ctx)
	if err != nil {
		return res, fmt.Errorf("members: listar para propagar: %w", err)
	}
	var ok, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(uc.fanOut)
	for _, u := range users {
		if u.ID == actor.UserID {
			continue
		}
		id := u.ID
		g.Go(func() error {
			if err := uc.users.MergeTargetPrice(ctx, id, month, value); err != nil {
				failed.Add(1)
				uc.log.Warn().Err(err).Str("user_id", id).Str("month", month).Msg("members: propagación fallida")
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res.Propagated = int(ok.Load())
	res.Failed = int(failed.Load())
	if res.Failed > 0 {
		return res, fmt.Errorf("%w: %d usuarios sin objetivo actualizado", domain.ErrPartialFailure, res.Failed)
	}
	return res, nil
}

// ToMemberResponse mapea el perfil a su salida.
func ToMemberResponse(u *entity.User) dto.MemberResponse {
	perms := map[string]bool{}
	for k, v := range u.Permissions {
		perms[k] = v
	}
	targets := map[string]decimal.Decimal{}
	for k, v := range u.MonthlyTargetPrices {
		targets[k] = v
	}
	return dto.MemberResponse{
		ID:                  u.ID,
		Email:               u.Email,
		Name:                u.Name,
		Role:                access.NormalizeRole(u.Role),
		Permissions:         perms,
		MonthlyTargetPrices: targets,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}
