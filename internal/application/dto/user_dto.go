package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/mandoubi-api/internal/domain/navigation"
)

// RegisterRequest alta de credenciales; el perfil se crea en el primer login.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// AccountResponse credencial creada (sin hash).
type AccountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginRequest entrada para login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AccessResponse rol y permisos resueltos para la sesión.
type AccessResponse struct {
	Role        string          `json:"role"`
	Permissions map[string]bool `json:"permissions"`
}

// LoginResponse token, acceso resuelto, rutas permitidas y redirección (una vez por transición).
type LoginResponse struct {
	Token    string             `json:"token"`
	UserID   string             `json:"user_id"`
	Email    string             `json:"email"`
	Access   AccessResponse     `json:"access"`
	Routes   []navigation.Route `json:"routes"`
	Redirect string             `json:"redirect,omitempty"`
}

// NavigationResponse rutas permitidas para la sesión actual.
type NavigationResponse struct {
	Access AccessResponse     `json:"access"`
	Routes []navigation.Route `json:"routes"`
}

// CreateMemberRequest alta de miembro por un admin: credencial + perfil con permisos por defecto del rol.
type CreateMemberRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"`
	Role     string `json:"role" validate:"omitempty,oneof=admin member"`
}

// UpdateMemberRequest edición parcial de un miembro. Permissions se ignora para admin.
type UpdateMemberRequest struct {
	Name        *string         `json:"name"`
	Role        *string         `json:"role" validate:"omitempty,oneof=admin member"`
	Permissions map[string]bool `json:"permissions"`
}

// MemberResponse perfil de un miembro.
type MemberResponse struct {
	ID                  string                     `json:"id"`
	Email               string                     `json:"email"`
	Name                string                     `json:"name"`
	Role                string                     `json:"role"`
	Permissions         map[string]bool            `json:"permissions"`
	MonthlyTargetPrices map[string]decimal.Decimal `json:"monthly_target_prices"`
	CreatedAt           time.Time                  `json:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at"`
}

// MemberListResponse listado de miembros.
type MemberListResponse struct {
	Items []MemberResponse `json:"items"`
}

// UpdateTargetRequest objetivo mensual en IQD.
type UpdateTargetRequest struct {
	Value decimal.Decimal `json:"value"`
}

// TargetResponse resultado de fijar un objetivo. Propagated/Failed solo aplican a admin.
type TargetResponse struct {
	Month      string          `json:"month"`
	Value      decimal.Decimal `json:"value"`
	Propagated int             `json:"propagated"`
	Failed     int             `json:"failed"`
}
