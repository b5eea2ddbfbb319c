package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/mandoubi-api/internal/application/dto"
	"github.com/jhoicas/mandoubi-api/internal/application/realtime"
	appsales "github.com/jhoicas/mandoubi-api/internal/application/sales"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	domainsales "github.com/jhoicas/mandoubi-api/internal/domain/sales"
)

// SaleHandler maneja las peticiones HTTP de ventas (protegido).
type SaleHandler struct {
	uc *appsales.UseCase
}

// NewSaleHandler construye el handler.
func NewSaleHandler(uc *appsales.UseCase) *SaleHandler {
	return &SaleHandler{uc: uc}
}

// filterFromQuery lee name/day/month/year; valores no numéricos no restringen.
func filterFromQuery(c *fiber.Ctx) domainsales.Filter {
	return domainsales.Filter{
		Name:  c.Query("name"),
		Day:   c.QueryInt("day", 0),
		Month: c.QueryInt("month", 0),
		Year:  c.QueryInt("year", 0),
	}
}

// Create godoc
// @Summary      Registrar venta
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSaleRequest  true  "Cliente y líneas"
// @Success      201   {object}  dto.SaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	var selected []entity.Item
	sess := GetSession(c)
	if in.FromSelection && sess != nil {
		selected = sess.Selected()
	}
	out, err := h.uc.Create(c.UserContext(), GetActor(c), in, selected)
	if err != nil {
		return writeError(c, err)
	}
	if in.FromSelection && sess != nil {
		sess.ClearSelection()
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar ventas
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        name      query  string  false  "Subcadena del cliente"
// @Param        day       query  int     false  "Día"
// @Param        month     query  int     false  "Mes"
// @Param        year      query  int     false  "Año"
// @Param        seller    query  string  false  "Vendedor (solo admin)"
// @Param        currency  query  string  false  "IQD | USD"
// @Success      200  {object}  dto.SaleListResponse
// @Router       /api/sales [get]
func (h *SaleHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext(), GetActor(c), appsales.ListQuery{
		Seller:   c.Query("seller"),
		Filter:   filterFromQuery(c),
		Currency: c.Query("currency"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Stream godoc
// @Summary      Ventas en vivo (SSE)
// @Description  Emite un evento "snapshot" con el listado filtrado en cada cambio.
// @Tags         sales
// @Security     Bearer
// @Produce      text/event-stream
// @Router       /api/sales/stream [get]
func (h *SaleHandler) Stream(c *fiber.Ctx) error {
	actor := GetActor(c)
	seller := c.Query("seller")
	filter := filterFromQuery(c)
	currency := c.Query("currency")
	return streamSnapshots(c,
		func(ctx context.Context) (*realtime.Subscription[*entity.Sale], error) {
			return h.uc.Subscribe(ctx, actor, seller)
		},
		func(snap []*entity.Sale) any {
			return h.uc.ToListResponse(snap, filter, currency)
		},
	)
}

// GetByID godoc
// @Summary      Obtener venta
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id        path   string  true   "ID de la venta"
// @Param        currency  query  string  false  "IQD | USD"
// @Success      200  {object}  dto.SaleResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.UserContext(), GetActor(c), c.Params("id"), c.Query("currency"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// UpdateLineItem godoc
// @Summary      Editar precio, cantidad o bonus de una línea
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id     path  string  true  "ID de la venta"
// @Param        index  path  int     true  "Posición de la línea"
// @Param        body   body  dto.UpdateLineItemRequest  true  "Campo, valor y contraseña"
// @Success      200  {object}  dto.SaleResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/items/{index} [patch]
func (h *SaleHandler) UpdateLineItem(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "index debe ser entero"})
	}
	var in dto.UpdateLineItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.UpdateLineItem(c.UserContext(), GetActor(c), c.Params("id"), index, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// UpdateStatus godoc
// @Summary      Cambiar estado de visita
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la venta"
// @Param        body  body  dto.UpdateStatusRequest  true  "Estado y contraseña"
// @Success      200  {object}  dto.SaleResponse
// @Router       /api/sales/{id}/status [patch]
func (h *SaleHandler) UpdateStatus(c *fiber.Ctx) error {
	var in dto.UpdateStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.UpdateStatus(c.UserContext(), GetActor(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Borrar venta
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Param        id    path  string  true  "ID de la venta"
// @Param        body  body  dto.DeleteSaleRequest  false  "Contraseña"
// @Success      204
// @Router       /api/sales/{id} [delete]
func (h *SaleHandler) Delete(c *fiber.Ctx) error {
	var in dto.DeleteSaleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	if err := h.uc.Delete(c.UserContext(), GetActor(c), c.Params("id"), in.Password); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ResetAll godoc
// @Summary      Borrar todas las ventas (admin)
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ResetSalesResponse
// @Success      207  {object}  dto.ResetSalesResponse
// @Router       /api/sales [delete]
func (h *SaleHandler) ResetAll(c *fiber.Ctx) error {
	out, err := h.uc.ResetAll(c.UserContext(), GetActor(c))
	if err != nil {
		if out != nil {
			return writePartial(c, out, err)
		}
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ExportPDF godoc
// @Summary      Exportar venta a PDF
// @Tags         sales
// @Security     Bearer
// @Produce      application/pdf
// @Param        id        path   string  true   "ID de la venta"
// @Param        currency  query  string  false  "IQD | USD"
// @Success      200  {file}  binary
// @Router       /api/sales/{id}/pdf [get]
func (h *SaleHandler) ExportPDF(c *fiber.Ctx) error {
	body, filename, err := h.uc.ExportPDF(c.UserContext(), GetActor(c), c.Params("id"), c.Query("currency"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, ContentDisposition(filename))
	return c.Send(body)
}
