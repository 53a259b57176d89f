package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"scheduler_server/core/port/in"
)

// AccountAuth authenticates each request's bearer token against the path's
// account, using collaborator. Accounts are addressed by :accountID in the
// route. On success it stores the resolved *domain.User under "user", its
// Policy under "policy", and the resolved user's ID under "user_id" (read by
// RequestLogger and, when it runs after this middleware, by the rate limiter).
func AccountAuth(collaborator in.AuthCollaborator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		accountIDStr := c.Params("accountID")
		accountID, err := uuid.Parse(accountIDStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid account id",
				"code":  "INVALID_ACCOUNT_ID",
			})
		}

		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization",
				"code":  "UNAUTHORIZED",
			})
		}

		user, policy, err := collaborator.Authenticate(c.Context(), accountID, token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
				"code":  "INVALID_TOKEN",
			})
		}

		c.Locals("user", user)
		c.Locals("policy", policy)
		c.Locals("user_id", user.ID)

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return c.Query("token")
}

// AccountCreationAuth guards tenant-provisioning endpoints with a shared
// secret rather than a per-account token, since no account exists yet.
func AccountCreationAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" || c.Get("X-Account-Creation-Secret") != secret {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "account creation not authorized",
				"code":  "FORBIDDEN",
			})
		}
		return c.Next()
	}
}
