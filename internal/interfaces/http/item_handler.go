package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/mandoubi-api/internal/application/catalogue"
	"github.com/jhoicas/mandoubi-api/internal/application/dto"
	"github.com/jhoicas/mandoubi-api/internal/application/realtime"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
)

// ItemHandler catálogo de productos y selección del folleto (protegido).
type ItemHandler struct {
	uc *catalogue.UseCase
}

// NewItemHandler construye el handler.
func NewItemHandler(uc *catalogue.UseCase) *ItemHandler {
	return &ItemHandler{uc: uc}
}

// Create godoc
// @Summary      Crear ítem
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateItemRequest  true  "Datos del ítem"
// @Success      201   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/items [post]
func (h *ItemHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), GetActor(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar ítems
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        currency  query  string  false  "IQD | USD"
// @Success      200  {object}  dto.ItemListResponse
// @Router       /api/items [get]
func (h *ItemHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext(), c.Query("currency"), GetSession(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Groups godoc
// @Summary      Ítems agrupados por etiqueta
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        currency  query  string  false  "IQD | USD"
// @Success      200  {object}  dto.ItemGroupsResponse
// @Router       /api/items/groups [get]
func (h *ItemHandler) Groups(c *fiber.Ctx) error {
	out, err := h.uc.Groups(c.UserContext(), c.Query("currency"), GetSession(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Stream godoc
// @Summary      Catálogo en vivo (SSE)
// @Tags         items
// @Security     Bearer
// @Produce      text/event-stream
// @Router       /api/items/stream [get]
func (h *ItemHandler) Stream(c *fiber.Ctx) error {
	currency := c.Query("currency")
	sess := GetSession(c)
	return streamSnapshots(c,
		func(ctx context.Context) (*realtime.Subscription[*entity.Item], error) {
			return h.uc.Subscribe(ctx), nil
		},
		func(snap []*entity.Item) any {
			return h.uc.ToListResponse(snap, currency, sess)
		},
	)
}

// GetByID godoc
// @Summary      Obtener ítem
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del ítem"
// @Success      200  {object}  dto.ItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id} [get]
func (h *ItemHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), c.Params("id"), c.Query("currency"))
	if err != nil {
		return writeError(c, err)
	}
	if out == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "ítem no encontrado"})
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar ítem
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del ítem"
// @Param        body  body  dto.UpdateItemRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.ItemResponse
// @Router       /api/items/{id} [put]
func (h *ItemHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Update(c.UserContext(), GetActor(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Borrar ítem
// @Tags         items
// @Security     Bearer
// @Param        id  path  string  true  "ID del ítem"
// @Success      204
// @Router       /api/items/{id} [delete]
func (h *ItemHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), GetActor(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ── Folleto ──────────────────────────────────────────────────────────────────

// ToggleSelection godoc
// @Summary      Agregar o quitar ítem de la selección del folleto
// @Tags         brochure
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del ítem"
// @Success      200  {object}  dto.SelectionResponse
// @Router       /api/brochure/selection/{id} [post]
func (h *ItemHandler) ToggleSelection(c *fiber.Ctx) error {
	sess := GetSession(c)
	if sess == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "sesión no encontrada"})
	}
	out, err := h.uc.ToggleSelection(c.UserContext(), GetActor(c), sess, c.Params("id"), c.Query("currency"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Selection godoc
// @Summary      Selección actual del folleto
// @Tags         brochure
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.SelectionResponse
// @Router       /api/brochure/selection [get]
func (h *ItemHandler) Selection(c *fiber.Ctx) error {
	sess := GetSession(c)
	if sess == nil {
		return c.JSON(dto.SelectionResponse{Items: []dto.ItemResponse{}})
	}
	return c.JSON(h.uc.Selection(sess, c.Query("currency")))
}

// ClearSelection godoc
// @Summary      Vaciar la selección del folleto
// @Tags         brochure
// @Security     Bearer
// @Success      204
// @Router       /api/brochure/selection [delete]
func (h *ItemHandler) ClearSelection(c *fiber.Ctx) error {
	if sess := GetSession(c); sess != nil {
		sess.ClearSelection()
	}
	return c.SendStatus(fiber.StatusNoContent)
}
