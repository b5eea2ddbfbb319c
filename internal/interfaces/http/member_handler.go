package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/mandoubi-api/internal/application/dto"
	"github.com/jhoicas/mandoubi-api/internal/application/members"
)

// MemberHandler administración de miembros y objetivos mensuales (protegido).
type MemberHandler struct {
	uc *members.UseCase
}

// NewMemberHandler construye el handler.
func NewMemberHandler(uc *members.UseCase) *MemberHandler {
	return &MemberHandler{uc: uc}
}

// List godoc
// @Summary      Listar miembros
// @Tags         members
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.MemberListResponse
// @Router       /api/members [get]
func (h *MemberHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext(), GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Agregar miembro
// @Tags         members
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateMemberRequest  true  "Credenciales y rol"
// @Success      201   {object}  dto.MemberResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/members [post]
func (h *MemberHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateMemberRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Add(c.UserContext(), GetActor(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Update godoc
// @Summary      Editar rol o permisos de un miembro
// @Tags         members
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del miembro"
// @Param        body  body  dto.UpdateMemberRequest  true  "Cambios"
// @Success      200   {object}  dto.MemberResponse
// @Router       /api/members/{id} [put]
func (h *MemberHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateMemberRequest
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
// @Summary      Borrar miembro
// @Tags         members
// @Security     Bearer
// @Param        id  path  string  true  "ID del miembro"
// @Success      204
// @Router       /api/members/{id} [delete]
func (h *MemberHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), GetActor(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateTarget godoc
// @Summary      Fijar objetivo mensual
// @Description  Un admin con settings propaga el valor a todos los usuarios.
// @Tags         targets
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        month  path  string  true  "YYYY-MM"
// @Param        body   body  dto.UpdateTargetRequest  true  "Valor en IQD"
// @Success      200  {object}  dto.TargetResponse
// @Success      207  {object}  dto.TargetResponse
// @Router       /api/targets/{month} [put]
func (h *MemberHandler) UpdateTarget(c *fiber.Ctx) error {
	var in dto.UpdateTargetRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.UpdateTargetPrice(c.UserContext(), GetActor(c), c.Params("month"), in.Value)
	if err != nil {
		if out != nil {
			return writePartial(c, out, err)
		}
		return writeError(c, err)
	}
	return c.JSON(out)
}
