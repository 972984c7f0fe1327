package fiber

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/reel"
)

const localAccountID = "reel.accountID"

// RequireScope creates a Fiber middleware that accepts only tokens of the
// given scope and stores the token subject for downstream handlers.
// The Authorization header carries the raw token; a "Bearer " prefix is
// tolerated.
func RequireScope(tokens reel.TokenIssuer, scope reel.TokenScope) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := extractToken(c)
		if token == "" {
			return writeError(c, reel.ErrMissingAuthHeader)
		}

		accountID, err := tokens.Verify(token, scope)
		if err != nil {
			return writeError(c, err)
		}

		c.Locals(localAccountID, accountID)
		return c.Next()
	}
}

// AccountID returns the subject stored by RequireScope
func AccountID(c fiber.Ctx) string {
	id, _ := c.Locals(localAccountID).(string)
	return id
}

func extractToken(c fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) >= 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
