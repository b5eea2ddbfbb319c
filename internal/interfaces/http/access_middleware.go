package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/mandoubi-api/internal/application/dto"
	"github.com/jhoicas/mandoubi-api/internal/application/session"
	"github.com/jhoicas/mandoubi-api/internal/domain/access"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
)

// Locals keys del acceso resuelto.
const (
	LocalActor   = "actor"
	LocalSession = "session"
)

// sessionAttacher contrato mínimo para resolver el acceso de la petición.
// Lo implementa *session.UseCase.
type sessionAttacher interface {
	Attach(ctx context.Context, userID, email string) *session.Session
}

// AccessMiddleware resuelve rol y permisos contra el perfil guardado en cada petición.
// Debe usarse DESPUÉS de AuthMiddleware. Un fallo de lectura deja la sesión sin permisos.
func AccessMiddleware(sessions sessionAttacher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "user_id no encontrado en el token",
			})
		}
		sess := sessions.Attach(c.UserContext(), userID, GetEmail(c))
		c.Locals(LocalSession, sess)
		c.Locals(LocalActor, access.Actor{UserID: userID, Access: sess.Access()})
		return c.Next()
	}
}

// RequirePermission corta con 403 si el acceso resuelto no habilita la funcionalidad.
// Debe usarse DESPUÉS de AccessMiddleware.
func RequirePermission(feature string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !GetActor(c).Access.Can(feature) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "PERMISSION_DENIED",
				Message: "sin permiso para '" + feature + "'",
			})
		}
		return c.Next()
	}
}

// GetActor devuelve el actor de la petición. Sin AccessMiddleware el actor no tiene permisos.
func GetActor(c *fiber.Ctx) access.Actor {
	if a, ok := c.Locals(LocalActor).(access.Actor); ok {
		return a
	}
	return access.Actor{UserID: GetUserID(c), Access: access.FailClosed(entity.RoleMember)}
}

// GetSession devuelve la sesión de la petición (nil sin AccessMiddleware).
func GetSession(c *fiber.Ctx) *session.Session {
	s, _ := c.Locals(LocalSession).(*session.Session)
	return s
}
