package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/mandoubi-api/internal/application/auth"
	"github.com/jhoicas/mandoubi-api/internal/application/catalogue"
	"github.com/jhoicas/mandoubi-api/internal/application/members"
	appsales "github.com/jhoicas/mandoubi-api/internal/application/sales"
	"github.com/jhoicas/mandoubi-api/internal/domain/access"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	Sessions    sessionAttacher
	SalesUC     *appsales.UseCase
	CatalogueUC *catalogue.UseCase
	MembersUC   *members.UseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas: token + acceso resuelto contra el perfil en cada petición
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret), AccessMiddleware(deps.Sessions))
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/navigation", authHandler.Navigation)

	// Sales
	saleHandler := NewSaleHandler(deps.SalesUC)
	sales := protected.Group("/sales")
	sales.Get("/", RequirePermission(access.FeatureSalesData), saleHandler.List)
	sales.Get("/stream", RequirePermission(access.FeatureSalesData), saleHandler.Stream)
	sales.Post("/", RequirePermission(access.FeatureDailySales), saleHandler.Create)
	sales.Delete("/", RequirePermission(access.FeatureSettings), saleHandler.ResetAll)
	sales.Get("/:id", saleHandler.GetByID)
	sales.Delete("/:id", saleHandler.Delete)
	sales.Get("/:id/pdf", saleHandler.ExportPDF)
	sales.Patch("/:id/status", saleHandler.UpdateStatus)
	sales.Patch("/:id/items/:index", saleHandler.UpdateLineItem)

	// Reports
	reportHandler := NewReportHandler(deps.SalesUC)
	reports := protected.Group("/reports")
	reports.Get("/summary", RequirePermission(access.FeatureSalesSummary), reportHandler.Summary)
	reports.Get("/sellers", RequirePermission(access.FeatureSalesReports), reportHandler.BySeller)
	reports.Get("/forecast", RequirePermission(access.FeatureSalesForecast), reportHandler.Forecast)
	reports.Get("/follow-up", RequirePermission(access.FeatureFollowUp), reportHandler.FollowUp)

	// Items: lectura para cualquier sesión; escritura con permiso items
	itemHandler := NewItemHandler(deps.CatalogueUC)
	items := protected.Group("/items")
	items.Get("/", itemHandler.List)
	items.Get("/groups", itemHandler.Groups)
	items.Get("/stream", itemHandler.Stream)
	items.Get("/:id", itemHandler.GetByID)
	items.Post("/", RequirePermission(access.FeatureItems), itemHandler.Create)
	items.Put("/:id", RequirePermission(access.FeatureItems), itemHandler.Update)
	items.Delete("/:id", RequirePermission(access.FeatureItems), itemHandler.Delete)

	// Brochure
	brochure := protected.Group("/brochure", RequirePermission(access.FeatureBrochure))
	brochure.Get("/selection", itemHandler.Selection)
	brochure.Post("/selection/:id", itemHandler.ToggleSelection)
	brochure.Delete("/selection", itemHandler.ClearSelection)

	// Members
	memberHandler := NewMemberHandler(deps.MembersUC)
	membersGroup := protected.Group("/members", RequirePermission(access.FeatureAdminMembers))
	membersGroup.Get("/", memberHandler.List)
	membersGroup.Post("/", memberHandler.Create)
	membersGroup.Put("/:id", memberHandler.Update)
	membersGroup.Delete("/:id", memberHandler.Delete)

	// Targets: cualquier sesión fija el suyo; la propagación la decide el caso de uso
	protected.Put("/targets/:month", memberHandler.UpdateTarget)
}
