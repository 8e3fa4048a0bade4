package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// PrincipalContextKey is the echo context key holding the *Principal
const PrincipalContextKey = "principal"

// RequireAuth validates the Bearer token and attaches the principal to both
// the echo context and the request context.
func RequireAuth(tokenService *TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			principal, err := tokenService.Validate(tokenParts[1])
			if err != nil {
				log.Debug().Err(err).Msg("Rejected access token")
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			c.Set(PrincipalContextKey, principal)
			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), principal)))
			return next(c)
		}
	}
}

// RequirePermission rejects callers lacking permission with 403
func RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c.Request().Context())
			if !ok || !p.HasPermission(permission) {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}
			return next(c)
		}
	}
}

// MustPrincipal returns the principal set by RequireAuth
func MustPrincipal(c echo.Context) *Principal {
	p, _ := c.Get(PrincipalContextKey).(*Principal)
	return p
}
