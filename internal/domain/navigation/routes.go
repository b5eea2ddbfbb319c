// Package navigation contiene la tabla estática de rutas y el latch de redirección por sesión.
package navigation

import (
	"sync"

	"github.com/jhoicas/mandoubi-api/internal/domain/access"
)

// Rutas de entrada y salida de la sesión.
const (
	HomePath  = "/"
	LoginPath = "/login"
)

// Route ruta → (vista, permiso requerido). Permission vacío = sin requisito.
type Route struct {
	Path       string `json:"path"`
	View       string `json:"view"`
	Permission string `json:"permission,omitempty"`
}

// Routes tabla estática de rutas.
var Routes = []Route{
	{Path: HomePath, View: "SalesSummary", Permission: access.FeatureSalesSummary},
	{Path: "/daily-sales", View: "DailySales", Permission: access.FeatureDailySales},
	{Path: "/sales-data", View: "SalesData", Permission: access.FeatureSalesData},
	{Path: "/reports", View: "SalesReports", Permission: access.FeatureSalesReports},
	{Path: "/items", View: "Items", Permission: access.FeatureItems},
	{Path: "/settings", View: "Settings", Permission: access.FeatureSettings},
	{Path: "/sales-forecast", View: "SalesForecasting", Permission: access.FeatureSalesForecast},
	{Path: "/admin-members", View: "AdminMembersList", Permission: access.FeatureAdminMembers},
	{Path: "/follow-up", View: "FollowUp", Permission: access.FeatureFollowUp},
	{Path: "/pharma-locations", View: "PharmaLocations", Permission: access.FeaturePharmaLocations},
	{Path: "/brochure", View: "Brochure", Permission: access.FeatureBrochure},
	{Path: LoginPath, View: "Login"},
}

// Lookup busca una ruta por path.
func Lookup(path string) (Route, bool) {
	for _, r := range Routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Allowed informa si el acceso resuelto puede abrir la ruta.
func (r Route) Allowed(a access.Access) bool {
	return r.Permission == "" || a.Can(r.Permission)
}

// Permitted rutas que el acceso resuelto puede abrir, en el orden de la tabla.
func Permitted(a access.Access) []Route {
	out := make([]Route, 0, len(Routes))
	for _, r := range Routes {
		if r.Allowed(a) {
			out = append(out, r)
		}
	}
	return out
}

// Latch dispara la redirección como máximo una vez por transición de identidad.
// El valor cero está listo para usarse (identidad vacía, sin redirección pendiente).
type Latch struct {
	mu         sync.Mutex
	identity   string
	redirected bool
}

// Observe registra la identidad actual ("" = sin sesión). Si cambió respecto de la anterior el latch se
// rearma; devuelve el destino y true solo la primera vez tras cada transición.
func (l *Latch) Observe(identity string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if identity != l.identity {
		l.identity = identity
		l.redirected = false
	}
	if l.redirected {
		return "", false
	}
	l.redirected = true
	if identity == "" {
		return LoginPath, true
	}
	return HomePath, true
}
