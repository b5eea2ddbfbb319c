package sales_test

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/mandoubi-api/internal/application/dto"
	"github.com/jhoicas/mandoubi-api/internal/application/gate"
	appsales "github.com/jhoicas/mandoubi-api/internal/application/sales"
	"github.com/jhoicas/mandoubi-api/internal/domain"
	"github.com/jhoicas/mandoubi-api/internal/domain/access"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	"github.com/jhoicas/mandoubi-api/internal/domain/repository"
	domainsales "github.com/jhoicas/mandoubi-api/internal/domain/sales"
)

// ── Fakes ────────────────────────────────────────────────────────────────────

type fakeSales struct {
	mu          sync.Mutex
	sales       map[string]*entity.Sale
	failDelete  map[string]bool
	itemWrites  int
	statusWrite int
}

func newFakeSales(list ...*entity.Sale) *fakeSales {
	f := &fakeSales{sales: map[string]*entity.Sale{}, failDelete: map[string]bool{}}
	for _, s := range list {
		f.sales[s.ID] = s
	}
	return f
}

func clone(s *entity.Sale) *entity.Sale {
	c := *s
	c.Items = append([]entity.LineItem(nil), s.Items...)
	return &c
}

func (f *fakeSales) Create(_ context.Context, s *entity.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := clone(s)
	c.TotalPrice = c.TotalPrice.Round(entity.MoneyScale) // como total_price NUMERIC(18, 3)
	f.sales[s.ID] = c
	return nil
}

func (f *fakeSales) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sales[id]
	if !ok {
		return nil, nil
	}
	return clone(s), nil
}

func (f *fakeSales) GetByIDForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeSales) List(_ context.Context, q repository.SaleQuery) ([]*entity.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*entity.Sale{}
	for _, s := range f.sales {
		if q.UserID == "" || s.UserID == q.UserID {
			out = append(out, clone(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSales) UpdateItems(_ context.Context, id string, items []entity.LineItem, total decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemWrites++
	s := f.sales[id]
	s.Items = append([]entity.LineItem(nil), items...)
	s.TotalPrice = total.Round(entity.MoneyScale)
	return nil
}

func (f *fakeSales) UpdateStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusWrite++
	f.sales[id].Status = status
	return nil
}

func (f *fakeSales) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete[id] {
		return errors.New("delete falló")
	}
	delete(f.sales, id)
	return nil
}

func (f *fakeSales) RunSales(_ context.Context, fn func(repository.SaleRepository) error) error {
	return fn(f)
}

type fakeUsers struct {
	users map[string]*entity.User
}

func (f *fakeUsers) Create(context.Context, *entity.User) error { return nil }
func (f *fakeUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	return f.users[id], nil
}
func (f *fakeUsers) List(context.Context) ([]*entity.User, error) { return nil, nil }
func (f *fakeUsers) Update(context.Context, *entity.User) error   { return nil }
func (f *fakeUsers) MergeTargetPrice(context.Context, string, string, decimal.Decimal) error {
	return nil
}
func (f *fakeUsers) Delete(context.Context, string) error { return nil }

type fakeGate struct {
	deny  bool
	calls []gate.Action
}

func (g *fakeGate) Check(_ context.Context, _ string, a gate.Action, _ string) error {
	g.calls = append(g.calls, a)
	if g.deny {
		return domain.ErrGateDenied
	}
	return nil
}

type fakePDF struct{ seller string }

func (p *fakePDF) GenerateSalePDF(_ *entity.Sale, seller string, _ domainsales.Projector) ([]byte, error) {
	p.seller = seller
	return []byte("%PDF"), nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func member(id string) access.Actor {
	return access.Actor{UserID: id, Access: access.Access{
		Role:        entity.RoleMember,
		Permissions: access.DefaultsForRole(entity.RoleMember),
	}}
}

func admin() access.Actor {
	return access.Actor{UserID: "boss", Access: access.Access{Role: entity.RoleAdmin, Permissions: access.AllGranted()}}
}

func fixture() []*entity.Sale {
	mk := func(id, user, customer string, at time.Time, items ...entity.LineItem) *entity.Sale {
		s := &entity.Sale{ID: id, UserID: user, CustomerName: customer, Date: at, Items: items, Status: entity.SaleStatusNotVisited}
		s.RecalculateTotal()
		return s
	}
	return []*entity.Sale{
		mk("s1", "u1", "Al Noor Pharmacy", time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
			entity.LineItem{Name: "Amoxil", Price: d(2500), Quantity: 4},
			entity.LineItem{Name: "Panadol", Price: d(1000), Quantity: 3, Bonus: 1}),
		mk("s2", "u1", "Baghdad Care", time.Date(2024, 6, 9, 10, 0, 0, 0, time.UTC),
			entity.LineItem{Name: "Panadol", Price: d(1000), Quantity: 10}),
		mk("s3", "u2", "Al Noor Pharmacy", time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC),
			entity.LineItem{Name: "Amoxil", Price: d(31000), Quantity: 1}),
	}
}

type env struct {
	uc    *appsales.UseCase
	sales *fakeSales
	gate  *fakeGate
	pdf   *fakePDF
}

func newEnv(list ...*entity.Sale) env {
	repo := newFakeSales(list...)
	g := &fakeGate{}
	pdf := &fakePDF{}
	users := &fakeUsers{users: map[string]*entity.User{
		"u1": {ID: "u1", Name: "Ali", MonthlyTargetPrices: map[string]decimal.Decimal{"2024-06": d(40000)}},
	}}
	uc := appsales.NewUseCase(repo, repo, users, g, pdf, nil,
		appsales.Config{ExchangeRate: d(1550), Location: time.UTC, FanOut: 2}, zerolog.Nop())
	return env{uc: uc, sales: repo, gate: g, pdf: pdf}
}

// ── Alta ─────────────────────────────────────────────────────────────────────

func TestCreate_CalculaTotalYNormalizaEstado(t *testing.T) {
	e := newEnv()
	resp, err := e.uc.Create(context.Background(), member("u1"), dto.CreateSaleRequest{
		CustomerName: "  Al Noor  ",
		Items: []dto.LineItemRequest{
			{Name: "Amoxil", Price: d(2500), Quantity: 2, Bonus: 1},
			{Name: "Panadol", Price: d(1000), Quantity: 0},
		},
		Status: "whatever",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Al Noor", resp.CustomerName)
	assert.Equal(t, "u1", resp.UserID)
	assert.True(t, resp.TotalPrice.Equal(d(6000)))
	assert.Equal(t, entity.SaleStatusNotVisited, resp.Status)
	assert.Equal(t, 1, resp.Items[1].Quantity)
	assert.Len(t, e.sales.sales, 1)
}

func TestCreate_DesdeSeleccion(t *testing.T) {
	e := newEnv()
	selected := []entity.Item{
		{ID: "i1", Name: "Amoxil", Price: d(2500)},
		{ID: "i2", Name: "Panadol", Price: d(1000)},
	}
	resp, err := e.uc.Create(context.Background(), member("u1"), dto.CreateSaleRequest{
		CustomerName:  "Al Noor",
		FromSelection: true,
	}, selected)
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.True(t, resp.TotalPrice.Equal(d(3500)))
}

func sumLines(items []entity.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, li := range items {
		sum = sum.Add(li.Price.Mul(decimal.NewFromInt(int64(li.Quantity))))
	}
	return sum
}

func TestCreate_PrecioConMasDecimalesQueLaColumna(t *testing.T) {
	e := newEnv()
	resp, err := e.uc.Create(context.Background(), member("u1"), dto.CreateSaleRequest{
		CustomerName: "Al Noor",
		Items:        []dto.LineItemRequest{{Name: "Amoxil", Price: decimal.RequireFromString("0.1255"), Quantity: 3}},
	}, nil)
	require.NoError(t, err)

	stored := e.sales.sales[resp.ID]
	assert.True(t, stored.Items[0].Price.Equal(decimal.RequireFromString("0.126")))
	assert.True(t, stored.TotalPrice.Equal(sumLines(stored.Items)), "total %s", stored.TotalPrice)
	assert.True(t, resp.TotalPrice.Equal(stored.TotalPrice))
}

func TestCreate_Invalidos(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	_, err := e.uc.Create(ctx, member("u1"), dto.CreateSaleRequest{CustomerName: "x"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.uc.Create(ctx, member("u1"), dto.CreateSaleRequest{
		Items: []dto.LineItemRequest{{Name: "a", Price: d(1), Quantity: 1}},
	}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.uc.Create(ctx, member("u1"), dto.CreateSaleRequest{
		CustomerName: "x",
		Items:        []dto.LineItemRequest{{Name: "a", Price: d(-1), Quantity: 1}},
	}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.uc.Create(ctx, member("u1"), dto.CreateSaleRequest{
		CustomerName: "x",
		Items:        []dto.LineItemRequest{{Name: "a", Price: d(1), Quantity: math.MaxInt32 + 1}},
	}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, e.sales.sales)
}

func TestCreate_SinPermisoNoEscribe(t *testing.T) {
	e := newEnv()
	actor := access.Actor{UserID: "u1", Access: access.FailClosed(entity.RoleMember)}
	_, err := e.uc.Create(context.Background(), actor, dto.CreateSaleRequest{
		CustomerName: "x",
		Items:        []dto.LineItemRequest{{Name: "a", Price: d(1), Quantity: 1}},
	}, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, e.sales.sales)
}

// ── Listado ──────────────────────────────────────────────────────────────────

func TestList_MemberSoloVeLoSuyo(t *testing.T) {
	e := newEnv(fixture()...)
	resp, err := e.uc.List(context.Background(), member("u1"), appsales.ListQuery{Seller: "u2"})
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	assert.Equal(t, "s2", resp.Items[0].ID, "más reciente primero")
	assert.Equal(t, "s1", resp.Items[1].ID)
	assert.True(t, resp.Total.Equal(d(23000)))
}

func TestList_AdminFiltraPorVendedorYNombre(t *testing.T) {
	e := newEnv(fixture()...)
	ctx := context.Background()

	all, err := e.uc.List(ctx, admin(), appsales.ListQuery{Filter: domainsales.Filter{Name: "al noor"}})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	u2, err := e.uc.List(ctx, admin(), appsales.ListQuery{Seller: "u2"})
	require.NoError(t, err)
	require.Len(t, u2.Items, 1)
	assert.Equal(t, "s3", u2.Items[0].ID)
}

func TestList_ProyeccionUSD(t *testing.T) {
	e := newEnv(fixture()...)
	resp, err := e.uc.List(context.Background(), admin(), appsales.ListQuery{Seller: "u2", Currency: "usd"})
	require.NoError(t, err)

	assert.Equal(t, domainsales.CurrencyUSD, resp.Currency)
	assert.True(t, resp.Items[0].TotalPrice.Equal(d(20)))
	assert.True(t, e.sales.sales["s3"].TotalPrice.Equal(d(31000)), "lo guardado no cambia")
}

// ── Edición ──────────────────────────────────────────────────────────────────

func TestUpdateLineItem_PersisteTotalRecalculado(t *testing.T) {
	e := newEnv(fixture()...)
	ctx := context.Background()

	resp, err := e.uc.UpdateLineItem(ctx, member("u1"), "s1", 0, dto.UpdateLineItemRequest{Field: "price", Value: d(3000)})
	require.NoError(t, err)
	assert.True(t, resp.TotalPrice.Equal(d(15000)))
	assert.Equal(t, []gate.Action{gate.ActionPriceChange}, e.gate.calls)

	_, err = e.uc.UpdateLineItem(ctx, member("u1"), "s1", 1, dto.UpdateLineItemRequest{Field: "bonus", Value: d(7)})
	require.NoError(t, err)

	stored := e.sales.sales["s1"]
	assert.True(t, stored.TotalPrice.Equal(d(15000)), "el bonus no entra en el total")
	assert.Equal(t, 7, stored.Items[1].Bonus)
}

func TestUpdateLineItem_PrecioFraccionarioCoincideConLoGuardado(t *testing.T) {
	e := newEnv(fixture()...)

	resp, err := e.uc.UpdateLineItem(context.Background(), member("u1"), "s1", 0,
		dto.UpdateLineItemRequest{Field: "price", Value: decimal.RequireFromString("0.1255")})
	require.NoError(t, err)

	stored := e.sales.sales["s1"]
	assert.True(t, stored.Items[0].Price.Equal(decimal.RequireFromString("0.126")))
	assert.True(t, stored.TotalPrice.Equal(sumLines(stored.Items)), "total %s", stored.TotalPrice)
	assert.True(t, resp.TotalPrice.Equal(stored.TotalPrice))
}

func TestUpdateLineItem_GateDenegadoNoEscribe(t *testing.T) {
	e := newEnv(fixture()...)
	e.gate.deny = true

	_, err := e.uc.UpdateLineItem(context.Background(), member("u1"), "s1", 0, dto.UpdateLineItemRequest{Field: "quantity", Value: d(9)})
	assert.ErrorIs(t, err, domain.ErrGateDenied)
	assert.Equal(t, 0, e.sales.itemWrites)
}

func TestUpdateLineItem_VentaAjenaRechazadaAntesDelGate(t *testing.T) {
	e := newEnv(fixture()...)

	_, err := e.uc.UpdateLineItem(context.Background(), member("u1"), "s3", 0, dto.UpdateLineItemRequest{Field: "price", Value: d(1)})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, e.gate.calls)
	assert.Equal(t, 0, e.sales.itemWrites)
}

func TestUpdateLineItem_AdminEditaCualquiera(t *testing.T) {
	e := newEnv(fixture()...)
	_, err := e.uc.UpdateLineItem(context.Background(), admin(), "s3", 0, dto.UpdateLineItemRequest{Field: "quantity", Value: d(2)})
	require.NoError(t, err)
	assert.True(t, e.sales.sales["s3"].TotalPrice.Equal(d(62000)))
}

func TestUpdateLineItem_Errores(t *testing.T) {
	e := newEnv(fixture()...)
	ctx := context.Background()

	_, err := e.uc.UpdateLineItem(ctx, member("u1"), "nope", 0, dto.UpdateLineItemRequest{Field: "price", Value: d(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.uc.UpdateLineItem(ctx, member("u1"), "s1", 9, dto.UpdateLineItemRequest{Field: "price", Value: d(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.uc.UpdateLineItem(ctx, member("u1"), "s1", 0, dto.UpdateLineItemRequest{Field: "name", Value: d(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateStatus(t *testing.T) {
	e := newEnv(fixture()...)
	resp, err := e.uc.UpdateStatus(context.Background(), member("u1"), "s1", dto.UpdateStatusRequest{Status: entity.SaleStatusVisited})
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusVisited, resp.Status)
	assert.Equal(t, []gate.Action{gate.ActionStatusChange}, e.gate.calls)
	assert.Equal(t, entity.SaleStatusVisited, e.sales.sales["s1"].Status)
}

func TestDelete(t *testing.T) {
	e := newEnv(fixture()...)
	ctx := context.Background()

	assert.ErrorIs(t, e.uc.Delete(ctx, member("u2"), "s1", ""), domain.ErrForbidden)
	require.NoError(t, e.uc.Delete(ctx, member("u1"), "s1", "pw"))
	assert.Equal(t, []gate.Action{gate.ActionDeleteSale}, e.gate.calls)
	assert.NotContains(t, e.sales.sales, "s1")
}

// ── Reinicio ─────────────────────────────────────────────────────────────────

func TestResetAll_SoloAdmin(t *testing.T) {
	e := newEnv(fixture()...)
	_, err := e.uc.ResetAll(context.Background(), member("u1"))
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Len(t, e.sales.sales, 3)
}

func TestResetAll_BorraTodo(t *testing.T) {
	e := newEnv(fixture()...)
	res, err := e.uc.ResetAll(context.Background(), admin())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Deleted)
	assert.Empty(t, e.sales.sales)
}

func TestResetAll_FalloParcialSinRollback(t *testing.T) {
	e := newEnv(fixture()...)
	e.sales.failDelete["s2"] = true

	res, err := e.uc.ResetAll(context.Background(), admin())
	assert.ErrorIs(t, err, domain.ErrPartialFailure)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Deleted)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, e.sales.sales, "s2")
	assert.Len(t, e.sales.sales, 1)
}

// ── Reportes y exportación ───────────────────────────────────────────────────

func TestSummary_MemberSoloSusVentas(t *testing.T) {
	e := newEnv(fixture()...)
	sum, err := e.uc.Summary(context.Background(), member("u1"), appsales.ReportQuery{Month: "2024-06"})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.SalesCount)
	assert.True(t, sum.TotalRevenue.Equal(d(23000)))

	_, err = e.uc.Summary(context.Background(), member("u1"), appsales.ReportQuery{Month: "junio"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBySeller_Admin(t *testing.T) {
	e := newEnv(fixture()...)
	rows, err := e.uc.BySeller(context.Background(), admin(), appsales.ReportQuery{Month: "2024-06"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "u2", rows[0].UserID)
}

func TestForecast_UsaObjetivoDelVendedor(t *testing.T) {
	e := newEnv(fixture()...)
	f, err := e.uc.Forecast(context.Background(), member("u1"), appsales.ReportQuery{Month: "2024-06"})
	require.NoError(t, err)
	assert.True(t, f.Target.Equal(d(40000)))
	assert.True(t, f.MonthToDate.Equal(d(23000)))
	assert.True(t, f.Remaining.Equal(d(17000)))
}

func TestFollowUp_RequierePermiso(t *testing.T) {
	e := newEnv(fixture()...)
	_, err := e.uc.FollowUp(context.Background(), member("u1"), appsales.ReportQuery{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	resp, err := e.uc.FollowUp(context.Background(), admin(), appsales.ReportQuery{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, "s1", resp.Items[0].ID)
}

func TestExportPDF(t *testing.T) {
	e := newEnv(fixture()...)
	data, name, err := e.uc.ExportPDF(context.Background(), member("u1"), "s1", "IQD")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), data)
	assert.Equal(t, "sale_Al Noor Pharmacy_2024-06-03.pdf", name)
	assert.Equal(t, "Ali", e.pdf.seller)
}

func TestPDFFilename_SanitizaSeparadores(t *testing.T) {
	s := &entity.Sale{CustomerName: "A/B", Date: time.Date(2024, 1, 2, 23, 30, 0, 0, time.UTC)}
	assert.Equal(t, "sale_A_B_2024-01-02.pdf", appsales.PDFFilename(s))
}

func TestPDFFilename_FechaUTC(t *testing.T) {
	baghdad := time.FixedZone("AST", 3*3600)
	s := &entity.Sale{CustomerName: "Noor", Date: time.Date(2024, 7, 1, 1, 30, 0, 0, baghdad)}
	assert.Equal(t, "sale_Noor_2024-06-30.pdf", appsales.PDFFilename(s))
}
