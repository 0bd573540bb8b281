package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleOwner      Role = "owner"
	RoleManager    Role = "manager"
	RoleChef       Role = "chef"
	RolePurchasing Role = "purchasing"
	RoleCashier    Role = "cashier"
	RoleWaiter     Role = "waiter"
	RoleAccountant Role = "accountant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleChef, RolePurchasing, RoleCashier, RoleWaiter, RoleAccountant:
		return true
	}
	return false
}

// Claims are issued by the external identity service. Tenant is optional;
// when present it pins the token to one tenant.
type Claims struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Tenant string `json:"tenant,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken signs claims with HS256. Production tokens come from the
// identity service; this exists for the `token` CLI command and tests.
func GenerateToken(secret string, userID uint, name string, role Role, tenant string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Name:   name,
		Role:   role,
		Tenant: tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
