package middleware

import (
	"errors"
	"strings"

	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by RequireAuth.
const (
	LocalCashier    = "cashier"
	LocalPrivileges = "privileges"
)

// RequireAuth validates the bearer token and puts the cashier on both the
// fiber locals and the request context. WebSocket upgrades may pass the
// token as the access_token query parameter since browsers cannot set
// headers on them.
func RequireAuth(cashiers service.CashierService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, problem := bearerToken(c)
		if problem != "" {
			return unauthorized(c, problem)
		}

		cashier, claims, err := cashiers.Authenticate(c.UserContext(), token)
		switch {
		case errors.Is(err, service.ErrSessionReplaced):
			return unauthorized(c, "Session expired (logged in on another device)")
		case errors.Is(err, service.ErrCashierInactive):
			return unauthorized(c, "Cashier account is inactive")
		case errors.Is(err, service.ErrCashierNotFound):
			return unauthorized(c, "Cashier not found")
		case err != nil:
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(LocalCashier, cashier)
		c.Locals(LocalPrivileges, claims.Privileges)
		c.SetUserContext(service.WithCashier(c.UserContext(), cashier.Ref()))
		return c.Next()
	}
}

// bearerToken returns the token, or the message to reject the request with.
func bearerToken(c *fiber.Ctx) (token, problem string) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		if token := c.Query("access_token"); token != "" && isUpgrade(c) {
			return token, ""
		}
		return "", "Missing authorization token"
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", "Invalid authorization format. Use: Bearer <token>"
	}
	return parts[1], ""
}

func isUpgrade(c *fiber.Ctx) bool {
	return strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket")
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg, "code": "unauthorized"})
}

// CurrentCashier returns the cashier RequireAuth resolved, or nil.
func CurrentCashier(c *fiber.Ctx) *model.Cashier {
	cashier, _ := c.Locals(LocalCashier).(*model.Cashier)
	return cashier
}

// RequirePrivilege checks if the authenticated cashier has the required privilege
func RequirePrivilege(required string) fiber.Handler {
	return RequireAnyPrivilege(required)
}

// RequireAnyPrivilege passes when the cashier holds at least one of required.
func RequireAnyPrivilege(required ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals(LocalPrivileges).([]string)
		if !ok {
			return forbidden(c, "No privileges found")
		}
		for _, have := range privileges {
			for _, want := range required {
				if have == want {
					return c.Next()
				}
			}
		}
		return forbidden(c, "Forbidden: requires one of "+strings.Join(required, ", "))
	}
}

func forbidden(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": msg, "code": "forbidden"})
}
