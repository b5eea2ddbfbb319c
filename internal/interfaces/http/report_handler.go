package http

import (
	"github.com/gofiber/fiber/v2"

	appsales "github.com/jhoicas/mandoubi-api/internal/application/sales"
)

// ReportHandler resúmenes, reportes por vendedor, pronóstico y seguimiento.
type ReportHandler struct {
	uc *appsales.UseCase
}

// NewReportHandler construye el handler.
func NewReportHandler(uc *appsales.UseCase) *ReportHandler {
	return &ReportHandler{uc: uc}
}

func reportQuery(c *fiber.Ctx) appsales.ReportQuery {
	return appsales.ReportQuery{
		Month:    c.Query("month"),
		Seller:   c.Query("seller"),
		Currency: c.Query("currency"),
	}
}

// Summary godoc
// @Summary      Resumen mensual
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        month     query  string  false  "YYYY-MM (por defecto el mes en curso)"
// @Param        seller    query  string  false  "Vendedor (solo admin)"
// @Param        currency  query  string  false  "IQD | USD"
// @Success      200  {object}  sales.Summary
// @Router       /api/reports/summary [get]
func (h *ReportHandler) Summary(c *fiber.Ctx) error {
	out, err := h.uc.Summary(c.UserContext(), GetActor(c), reportQuery(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// BySeller godoc
// @Summary      Totales por vendedor
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        month     query  string  false  "YYYY-MM"
// @Param        currency  query  string  false  "IQD | USD"
// @Success      200  {array}  sales.SellerSummary
// @Router       /api/reports/sellers [get]
func (h *ReportHandler) BySeller(c *fiber.Ctx) error {
	out, err := h.uc.BySeller(c.UserContext(), GetActor(c), reportQuery(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Forecast godoc
// @Summary      Pronóstico del mes frente al objetivo
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        month     query  string  false  "YYYY-MM"
// @Param        currency  query  string  false  "IQD | USD"
// @Success      200  {object}  sales.ForecastResult
// @Router       /api/reports/forecast [get]
func (h *ReportHandler) Forecast(c *fiber.Ctx) error {
	out, err := h.uc.Forecast(c.UserContext(), GetActor(c), reportQuery(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// FollowUp godoc
// @Summary      Ventas pendientes de visita
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        seller    query  string  false  "Vendedor (solo admin)"
// @Param        currency  query  string  false  "IQD | USD"
// @Success      200  {object}  dto.SaleListResponse
// @Router       /api/reports/follow-up [get]
func (h *ReportHandler) FollowUp(c *fiber.Ctx) error {
	out, err := h.uc.FollowUp(c.UserContext(), GetActor(c), reportQuery(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
