package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/lockyolinks/lockyolinks/internal/app/identity"
)

const userLocal = "auth_user"

// Identity resolves the authenticated caller via the external identity
// provider and stashes the result. Anonymous requests pass through; handlers
// that require a user call RequireUser or CurrentUser themselves.
func Identity(provider identity.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		credentials := map[string]string{
			identity.HeaderUserID:    c.Get(identity.HeaderUserID),
			identity.HeaderUserEmail: c.Get(identity.HeaderUserEmail),
		}

		user, err := provider.CurrentUser(credentials)
		if err == nil {
			c.Locals(userLocal, user)
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user for the request, or
// identity.ErrAnonymous.
func CurrentUser(c *fiber.Ctx) (identity.User, error) {
	if u, ok := c.Locals(userLocal).(identity.User); ok {
		return u, nil
	}
	return identity.User{}, identity.ErrAnonymous
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := CurrentUser(c); err != nil {
			if errors.Is(err, identity.ErrAnonymous) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "authentication required",
				})
			}
			return err
		}
		return c.Next()
	}
}
