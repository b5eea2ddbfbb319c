package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Roles válidos para User.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User perfil de un representante (documento `users`).
// Permissions y MonthlyTargetPrices se guardan como JSONB; un mapa nil equivale a "sin valor guardado".
type User struct {
	ID                  string
	Email               string
	Name                string
	Role                string
	Permissions         map[string]bool
	MonthlyTargetPrices map[string]decimal.Decimal // clave de mes "YYYY-MM" → objetivo en IQD
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Account credenciales del proveedor de autenticación. Puede existir sin perfil User.
type Account struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
}
