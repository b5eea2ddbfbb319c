// Package access deriva rol y permisos por funcionalidad a partir del perfil guardado.
//
// Reglas:
//   - Perfil ausente: admin solo para la identidad configurada; permisos = tabla por defecto del rol.
//   - Perfil presente: rol guardado o "member"; un admin recibe siempre la tabla completa;
//     un member recibe sus permisos guardados o ninguno.
//   - Un error de lectura colapsa los permisos a vacío (fail-closed).
package access

import (
	"fmt"

	"github.com/jhoicas/mandoubi-api/internal/domain"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
)

// Funcionalidades controladas por permiso (una por ruta/capacidad).
const (
	FeatureSalesSummary    = "salesSummary"
	FeatureDailySales      = "dailySales"
	FeatureSalesData       = "salesData"
	FeatureSalesReports    = "salesReports"
	FeatureItems           = "items"
	FeatureSettings        = "settings"
	FeatureSalesForecast   = "salesForecast"
	FeatureAdminMembers    = "adminMembers"
	FeatureFollowUp        = "followUp"
	FeaturePharmaLocations = "pharmaLocations"
	FeatureBrochure        = "brochure"
)

// Features lista ordenada de todas las funcionalidades conocidas.
var Features = []string{
	FeatureSalesSummary,
	FeatureDailySales,
	FeatureSalesData,
	FeatureSalesReports,
	FeatureItems,
	FeatureSettings,
	FeatureSalesForecast,
	FeatureAdminMembers,
	FeatureFollowUp,
	FeaturePharmaLocations,
	FeatureBrochure,
}

// adminOnly funcionalidades administrativas: por defecto solo para admin.
var adminOnly = map[string]bool{
	FeatureItems:        true,
	FeatureSettings:     true,
	FeatureAdminMembers: true,
	FeatureFollowUp:     true,
}

// Permissions mapa funcionalidad → habilitada. Una clave ausente equivale a false.
type Permissions map[string]bool

// Allows informa si la funcionalidad está habilitada.
func (p Permissions) Allows(feature string) bool {
	return p[feature]
}

// Clone copia el mapa (nunca devuelve nil).
func (p Permissions) Clone() Permissions {
	out := make(Permissions, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Access resultado del resolvedor.
type Access struct {
	Role        string      `json:"role"`
	Permissions Permissions `json:"permissions"`
}

// IsAdmin informa si el rol resuelto es admin.
func (a Access) IsAdmin() bool {
	return a.Role == entity.RoleAdmin
}

// Can atajo de Permissions.Allows.
func (a Access) Can(feature string) bool {
	return a.Permissions.Allows(feature)
}

// AllGranted tabla con todas las funcionalidades en true.
func AllGranted() Permissions {
	out := make(Permissions, len(Features))
	for _, f := range Features {
		out[f] = true
	}
	return out
}

// DefaultsForRole tabla por defecto: lectura/navegación para todos, administración solo para admin.
func DefaultsForRole(role string) Permissions {
	out := make(Permissions, len(Features))
	for _, f := range Features {
		out[f] = !adminOnly[f] || role == entity.RoleAdmin
	}
	return out
}

// DefaultRole rol asignado a una identidad sin perfil.
func DefaultRole(userID, adminID string) string {
	if adminID != "" && userID == adminID {
		return entity.RoleAdmin
	}
	return entity.RoleMember
}

// NormalizeRole cualquier valor distinto de "admin" es "member".
func NormalizeRole(role string) string {
	if role == entity.RoleAdmin {
		return entity.RoleAdmin
	}
	return entity.RoleMember
}

// Resolve calcula rol y permisos. rec == nil significa perfil ausente.
func Resolve(userID string, rec *entity.User, adminID string) Access {
	if rec == nil {
		role := DefaultRole(userID, adminID)
		if role == entity.RoleAdmin {
			return Access{Role: role, Permissions: AllGranted()}
		}
		return Access{Role: role, Permissions: DefaultsForRole(role)}
	}

	role := rec.Role
	if role == "" {
		role = entity.RoleMember
	}
	if role == entity.RoleAdmin {
		return Access{Role: role, Permissions: AllGranted()}
	}
	return Access{Role: role, Permissions: Permissions(rec.Permissions).Clone()}
}

// FailClosed resultado ante un error de lectura del perfil: ningún permiso habilitado.
func FailClosed(role string) Access {
	return Access{Role: role, Permissions: Permissions{}}
}

// NewProfile construye el perfil que se aprovisiona en el primer inicio de sesión.
// Se guarda la tabla por defecto del rol (no la forzada de admin).
func NewProfile(userID, email, adminID string) *entity.User {
	role := DefaultRole(userID, adminID)
	return &entity.User{
		ID:                  userID,
		Email:               email,
		Role:                role,
		Permissions:         DefaultsForRole(role),
		MonthlyTargetPrices: nil,
	}
}

// EffectivePermissions lo que se debe persistir al editar un miembro: admin queda bloqueado en la tabla completa.
func EffectivePermissions(role string, requested Permissions) Permissions {
	if role == entity.RoleAdmin {
		return AllGranted()
	}
	out := make(Permissions, len(requested))
	for _, f := range Features {
		if v, ok := requested[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Actor identidad autenticada más su acceso resuelto; la reciben los casos de uso.
type Actor struct {
	UserID string
	Access Access
}

// Require devuelve domain.ErrForbidden si el actor no tiene la funcionalidad.
func (a Actor) Require(feature string) error {
	if !a.Access.Can(feature) {
		return fmt.Errorf("%w: falta el permiso %s", domain.ErrForbidden, feature)
	}
	return nil
}
