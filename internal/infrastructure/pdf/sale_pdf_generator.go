// Package pdf genera el comprobante PDF de una venta.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Mandoubi + moneda   │  Cliente + Fecha              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  Vendedor / Estado / Nota                                    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Producto | Cant | Bonus | Precio | Subtotal          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAL                                                       │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	appsales "github.com/jhoicas/mandoubi-api/internal/application/sales"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	domainsales "github.com/jhoicas/mandoubi-api/internal/domain/sales"
)

var _ appsales.SalePDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 20, Green: 110, Blue: 90}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa sales.SalePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	loc     *time.Location
	printer *message.Printer
}

// NewMarotoPDFGenerator construye el generador. loc fija la zona de la fecha impresa.
func NewMarotoPDFGenerator(loc *time.Location) *MarotoPDFGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &MarotoPDFGenerator{loc: loc, printer: message.NewPrinter(language.English)}
}

// GenerateSalePDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateSalePDF(sale *entity.Sale, sellerName string, p domainsales.Projector) ([]byte, error) {
	if sale == nil {
		return nil, fmt.Errorf("pdf: venta nil")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Sale "+sale.CustomerName, true).
		WithAuthor(sellerName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(sale, p))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(detailsRow(sale, sellerName))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range g.lineRows(sale.Items, p) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(g.totalRow(sale, p))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func (g *MarotoPDFGenerator) headerRow(sale *entity.Sale, p domainsales.Projector) core.Row {
	return row.New(18).Add(
		col.New(6).Add(
			text.New("MANDOUBI", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Amounts in "+p.Currency, props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(6).Add(
			text.New(sale.CustomerName, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 1,
			}),
			text.New("Date: "+sale.Date.In(g.loc).Format("2006-01-02 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

func detailsRow(sale *entity.Sale, sellerName string) core.Row {
	info := fmt.Sprintf("Seller: %s   |   Status: %s", nonEmpty(sellerName, "-"), sale.Status)
	r := row.New(14)
	c := col.New(12).Add(text.New(info, props.Text{Size: 8, Top: 2, Color: colorGray}))
	if sale.Note != "" {
		c.Add(text.New("Note: "+sale.Note, props.Text{Size: 8, Top: 8}))
	}
	return r.Add(c)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).WithStyle(&props.Cell{BackgroundColor: colorPrimary}).Add(
		h("Product", 5, align.Left),
		h("Qty", 1, align.Center),
		h("Bonus", 1, align.Center),
		h("Price", 2, align.Right),
		h("Subtotal", 3, align.Right),
	)
}

// lineRows una fila por línea; precio y subtotal se proyectan desde el valor guardado.
func (g *MarotoPDFGenerator) lineRows(items []entity.LineItem, p domainsales.Projector) []core.Row {
	rows := make([]core.Row, 0, len(items))
	for _, li := range items {
		rows = append(rows, row.New(7).Add(
			col.New(5).Add(text.New(li.Name, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(fmt.Sprint(li.Quantity), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(1).Add(text.New(fmt.Sprint(li.Bonus), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(g.FormatAmount(p.Value(li.Price), p.Currency), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(3).Add(text.New(g.FormatAmount(p.Value(li.Subtotal()), p.Currency), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

func (g *MarotoPDFGenerator) totalRow(sale *entity.Sale, p domainsales.Projector) core.Row {
	return row.New(12).Add(
		col.New(6),
		col.New(3).Add(text.New("TOTAL:", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 2, Right: 2,
		})),
		col.New(3).Add(text.New(g.FormatAmount(p.Value(sale.TotalPrice), p.Currency), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 2, Right: 1,
		})),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// FormatAmount separa miles con coma. IQD sin decimales, USD con dos.
// Ej: 1250000 IQD → "1,250,000 IQD"; 806.45 USD → "806.45 USD".
func (g *MarotoPDFGenerator) FormatAmount(v decimal.Decimal, currency string) string {
	if currency == domainsales.CurrencyUSD {
		f, _ := v.Round(2).Float64()
		return g.printer.Sprintf("%.2f %s", f, currency)
	}
	return g.printer.Sprintf("%d %s", v.Round(0).IntPart(), currency)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
