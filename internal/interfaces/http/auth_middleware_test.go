package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/mandoubi-api/internal/application/session"
	"github.com/jhoicas/mandoubi-api/internal/domain/access"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	"github.com/jhoicas/mandoubi-api/internal/domain/repository"
	apphttp "github.com/jhoicas/mandoubi-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/mandoubi-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testAdminID   = "00000000-0000-0000-0000-000000000099"
	testEmail     = "rep@mandoubi.test"
	testIssuer    = "mandoubi-test"
	testExpMin    = 60
)

// profileStore perfiles en memoria; failRead simula un error de lectura.
type profileStore struct {
	repository.UserRepository
	users    map[string]*entity.User
	failRead bool
}

func (s *profileStore) GetByID(_ context.Context, id string) (*entity.User, error) {
	if s.failRead {
		return nil, assert.AnError
	}
	return s.users[id], nil
}

func (s *profileStore) Create(_ context.Context, u *entity.User) error {
	s.users[u.ID] = u
	return nil
}

func newSessions(store *profileStore) *session.UseCase {
	return session.NewUseCase(store, session.NewRegistry(), testAdminID, 0, zerolog.Nop())
}

// buildTestApp app mínima: JWT + acceso resuelto + permiso requerido sobre un handler dummy.
func buildTestApp(store *profileStore, feature string) *fiber.App {
	app := fiber.New()
	app.Get("/protected",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.AccessMiddleware(newSessions(store)),
		apphttp.RequirePermission(feature),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"ok":   true,
				"role": apphttp.GetActor(c).Access.Role,
			})
		},
	)
	return app
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, pkgjwt.Identity{UserID: userID, Email: testEmail, Role: entity.RoleMember}, testIssuer, testExpMin)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return "Bearer " + tok
}

func doRequest(t *testing.T, app *fiber.App, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func member(id string, perms access.Permissions) *entity.User {
	return &entity.User{ID: id, Email: testEmail, Role: entity.RoleMember, Permissions: perms}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests RequirePermission
// ──────────────────────────────────────────────────────────────────────────────

func TestRequirePermission_MemberConPermiso(t *testing.T) {
	store := &profileStore{users: map[string]*entity.User{
		testUserID: member(testUserID, access.Permissions{access.FeatureDailySales: true}),
	}}
	resp := doRequest(t, buildTestApp(store, access.FeatureDailySales), tokenFor(t, testUserID))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, entity.RoleMember, body["role"])
}

func TestRequirePermission_MemberSinPermiso_Retorna403(t *testing.T) {
	store := &profileStore{users: map[string]*entity.User{
		testUserID: member(testUserID, access.Permissions{access.FeatureDailySales: true}),
	}}
	resp := doRequest(t, buildTestApp(store, access.FeatureItems), tokenFor(t, testUserID))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "PERMISSION_DENIED")
}

func TestRequirePermission_AdminAccedeATodo(t *testing.T) {
	store := &profileStore{users: map[string]*entity.User{
		testAdminID: {ID: testAdminID, Role: entity.RoleAdmin},
	}}
	for _, f := range access.Features {
		resp := doRequest(t, buildTestApp(store, f), tokenFor(t, testAdminID))
		assert.Equal(t, http.StatusOK, resp.StatusCode, f)
		resp.Body.Close()
	}
}

// El rol del token no concede nada: manda el perfil guardado.
func TestRequirePermission_RolDelTokenIgnorado(t *testing.T) {
	store := &profileStore{users: map[string]*entity.User{
		testUserID: member(testUserID, nil),
	}}
	tok, err := pkgjwt.Generate(testJWTSecret, pkgjwt.Identity{UserID: testUserID, Role: entity.RoleAdmin}, testIssuer, testExpMin)
	require.NoError(t, err)

	resp := doRequest(t, buildTestApp(store, access.FeatureSettings), "Bearer "+tok)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRequirePermission_ErrorDeLectura_FailClosed(t *testing.T) {
	store := &profileStore{users: map[string]*entity.User{}, failRead: true}
	resp := doRequest(t, buildTestApp(store, access.FeatureSalesSummary), tokenFor(t, testUserID))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// Perfil ausente: se aprovisiona con los valores por defecto de member.
func TestRequirePermission_PerfilNuevo_DefaultsMember(t *testing.T) {
	store := &profileStore{users: map[string]*entity.User{}}
	app := buildTestApp(store, access.FeatureSalesSummary)

	resp := doRequest(t, app, tokenFor(t, testUserID))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, store.users, testUserID)

	resp = doRequest(t, buildTestApp(store, access.FeatureAdminMembers), tokenFor(t, testUserID))
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests AuthMiddleware
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_SinAuthHeader_Retorna401(t *testing.T) {
	store := &profileStore{users: map[string]*entity.User{}}
	resp := doRequest(t, buildTestApp(store, access.FeatureSalesSummary), "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "MISSING_TOKEN")
}

func TestAuthMiddleware_TokenInvalido_Retorna401(t *testing.T) {
	store := &profileStore{users: map[string]*entity.User{}}
	resp := doRequest(t, buildTestApp(store, access.FeatureSalesSummary), "Bearer token.invalido.aqui")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "INVALID_TOKEN")
}

func TestAuthMiddleware_FormatoIncorrecto_Retorna401(t *testing.T) {
	store := &profileStore{users: map[string]*entity.User{}}
	resp := doRequest(t, buildTestApp(store, access.FeatureSalesSummary), "Token abc")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_ExtraeClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": apphttp.GetUserID(c),
			"email":   apphttp.GetEmail(c),
			"role":    apphttp.GetRole(c),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", tokenFor(t, testUserID))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, testEmail, body["email"])
	assert.Equal(t, entity.RoleMember, body["role"])
}

func TestAuthMiddleware_TokenEnQuery(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.SendString(apphttp.GetUserID(c))
	})
	tok, err := pkgjwt.Generate(testJWTSecret, pkgjwt.Identity{UserID: testUserID}, testIssuer, testExpMin)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me?token="+tok, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, testUserID, string(body))
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests JWT pkg
// ──────────────────────────────────────────────────────────────────────────────

func TestJWT_GenerateAndParse(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, pkgjwt.Identity{UserID: testUserID, Email: testEmail, Role: entity.RoleAdmin}, testIssuer, testExpMin)
	require.NoError(t, err)

	id, err := pkgjwt.Parse(testJWTSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, testUserID, id.UserID)
	assert.Equal(t, testEmail, id.Email)
	assert.Equal(t, entity.RoleAdmin, id.Role)
}

func TestJWT_TokenExpirado_RetornaError(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, pkgjwt.Identity{UserID: testUserID}, testIssuer, -1)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(testJWTSecret, tok)
	assert.Error(t, err, "token expirado debe retornar error")
}

func TestJWT_SecretIncorrecto_RetornaError(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, pkgjwt.Identity{UserID: testUserID}, testIssuer, testExpMin)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro-secret-completamente-distinto", tok)
	assert.Error(t, err, "secret incorrecto debe invalidar el token")
}
