package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/mandoubi-api/internal/domain"
	"github.com/jhoicas/mandoubi-api/internal/domain/access"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	"github.com/jhoicas/mandoubi-api/internal/domain/repository"
)

// UseCase resuelve el acceso de cada identidad y mantiene el registro de sesiones.
type UseCase struct {
	users    repository.UserRepository
	registry *Registry
	adminID  string
	timeout  time.Duration
	log      zerolog.Logger
}

// NewUseCase construye el caso de uso. timeout <= 0 desactiva el techo de carga.
func NewUseCase(users repository.UserRepository, registry *Registry, adminID string, timeout time.Duration, log zerolog.Logger) *UseCase {
	return &UseCase{users: users, registry: registry, adminID: adminID, timeout: timeout, log: log}
}

// Registry registro de sesiones compartido con los handlers.
func (uc *UseCase) Registry() *Registry { return uc.registry }

// Resolve lee el perfil y calcula rol y permisos.
// Perfil ausente: se aprovisiona con los valores por defecto (una sola vez; un conflicto concurrente se ignora).
// Error de lectura o techo de tiempo agotado: acceso sin permisos.
func (uc *UseCase) Resolve(ctx context.Context, userID, email string) access.Access {
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	rec, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		uc.log.Error().Err(err).Str("user_id", userID).Msg("session: no se pudo leer el perfil")
		return access.FailClosed(entity.RoleMember)
	}

	a := access.Resolve(userID, rec, uc.adminID)
	if rec == nil {
		profile := access.NewProfile(userID, email, uc.adminID)
		now := time.Now()
		profile.CreatedAt, profile.UpdatedAt = now, now
		if err := uc.users.Create(ctx, profile); err != nil && !errors.Is(err, domain.ErrDuplicate) {
			uc.log.Warn().Err(err).Str("user_id", userID).Msg("session: no se pudo aprovisionar el perfil")
		}
	}
	return a
}

// Attach resuelve el acceso y lo deja en la sesión del usuario (creándola si hace falta).
func (uc *UseCase) Attach(ctx context.Context, userID, email string) *Session {
	a := uc.Resolve(ctx, userID, email)
	s := uc.registry.Open(userID, email)
	s.setAccess(a)
	return s
}

// Begin inicia sesión: adjunta el acceso y consulta el latch. redirect vacío si ya se redirigió
// para esta identidad.
func (uc *UseCase) Begin(ctx context.Context, userID, email string) (*Session, string) {
	s := uc.Attach(ctx, userID, email)
	to, fire := s.latch.Observe(userID)
	if !fire {
		return s, ""
	}
	return s, to
}

// End cierra la sesión. Devuelve la redirección a login solo la primera vez.
func (uc *UseCase) End(userID string) string {
	s := uc.registry.Close(userID)
	if s == nil {
		return ""
	}
	to, fire := s.latch.Observe("")
	if !fire {
		return ""
	}
	return to
}
