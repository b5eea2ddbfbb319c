package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/mandoubi-api/internal/application/dto"
	"github.com/jhoicas/mandoubi-api/internal/application/session"
	"github.com/jhoicas/mandoubi-api/internal/domain"
	"github.com/jhoicas/mandoubi-api/internal/domain/access"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	"github.com/jhoicas/mandoubi-api/internal/domain/navigation"
	"github.com/jhoicas/mandoubi-api/internal/domain/repository"
	"github.com/jhoicas/mandoubi-api/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de autenticación: registro de credenciales, login y logout.
type AuthUseCase struct {
	accounts repository.AccountRepository
	sessions *session.UseCase
	jwtCfg   JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(accounts repository.AccountRepository, sessions *session.UseCase, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{accounts: accounts, sessions: sessions, jwtCfg: jwtCfg}
}

// Register crea una credencial: hashea password con bcrypt y persiste. El perfil se aprovisiona en el primer login.
func (uc *AuthUseCase) Register(ctx context.Context, in dto.RegisterRequest) (*dto.AccountResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || len(in.Password) < 6 {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	account := &entity.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := uc.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return &dto.AccountResponse{ID: account.ID, Email: account.Email, CreatedAt: account.CreatedAt}, nil
}

// Login verifica email/password, resuelve el acceso (aprovisionando el perfil si falta) y genera el JWT.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	account, err := uc.accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}

	sess, redirect := uc.sessions.Begin(ctx, account.ID, account.Email)
	a := sess.Access()
	token, err := jwt.Generate(uc.jwtCfg.Secret, jwt.Identity{
		UserID: account.ID,
		Email:  account.Email,
		Role:   a.Role,
	}, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token:    token,
		UserID:   account.ID,
		Email:    account.Email,
		Access:   ToAccessResponse(a),
		Routes:   navigation.Permitted(a),
		Redirect: redirect,
	}, nil
}

// Logout cierra la sesión; la redirección a login se devuelve solo una vez.
func (uc *AuthUseCase) Logout(userID string) dto.RedirectResponse {
	return dto.RedirectResponse{Redirect: uc.sessions.End(userID)}
}

// ToAccessResponse mapea el acceso resuelto a su salida.
func ToAccessResponse(a access.Access) dto.AccessResponse {
	perms := make(map[string]bool, len(a.Permissions))
	for k, v := range a.Permissions {
		perms[k] = v
	}
	return dto.AccessResponse{Role: a.Role, Permissions: perms}
}
