package sales

import (
	"context"

	"github.com/jhoicas/mandoubi-api/internal/application/gate"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	domainsales "github.com/jhoicas/mandoubi-api/internal/domain/sales"
)

// SalePDFGenerator genera la representación PDF de una venta con montos proyectados por p.
type SalePDFGenerator interface {
	GenerateSalePDF(sale *entity.Sale, sellerName string, p domainsales.Projector) ([]byte, error)
}

// Gatekeeper confirmación por contraseña de acciones sensibles.
type Gatekeeper interface {
	Check(ctx context.Context, userID string, a gate.Action, password string) error
}
