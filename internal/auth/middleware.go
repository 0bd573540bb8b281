package auth

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CtxIdentityKey = "identity"
	TenantHeader   = "X-Tenant"
)

// Identity is the request-scoped caller: who is acting and for which tenant.
type Identity struct {
	UserID   uint
	UserName string
	Role     Role
	Tenant   string
}

func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization must be 'Bearer <token>'")
		}

		token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "could not decode token")
		}
		if !claims.Role.Valid() {
			return fiber.NewError(fiber.StatusForbidden, "unknown role")
		}

		c.Locals(CtxIdentityKey, &Identity{
			UserID:   claims.UserID,
			UserName: claims.Name,
			Role:     claims.Role,
			Tenant:   claims.Tenant,
		})
		return c.Next()
	}
}

// TenantMiddleware resolves the tenant from X-Tenant (falling back to
// defaultTenant) and rejects requests whose token is pinned elsewhere.
// Must run after JWTMiddleware.
func TenantMiddleware(defaultTenant string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := IdentityFrom(c)
		if err != nil {
			return err
		}

		tenant := strings.TrimSpace(c.Get(TenantHeader))
		if tenant == "" {
			tenant = defaultTenant
		}
		if tenant == "" {
			return fiber.NewError(fiber.StatusBadRequest, "X-Tenant header is required")
		}
		if id.Tenant != "" && id.Tenant != tenant {
			return fiber.NewError(fiber.StatusForbidden, "token is not valid for this tenant")
		}

		id.Tenant = tenant
		return c.Next()
	}
}

func RequireRole(allowedRoles ...Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := IdentityFrom(c)
		if err != nil {
			return err
		}

		for _, r := range allowedRoles {
			if r == id.Role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "not allowed for this role")
	}
}

func IdentityFrom(c *fiber.Ctx) (*Identity, error) {
	id, ok := c.Locals(CtxIdentityKey).(*Identity)
	if !ok || id == nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "missing identity")
	}
	return id, nil
}
