package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/theak/crm/internal/core"
)

// PasswordGuard protects routes with HTTP basic auth when, and only when,
// a password setting is configured. The username is ignored; the raw
// password comes straight from the repository (service reads mask it).
func PasswordGuard(settings core.SettingsRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			setting, err := settings.Get(c.Request().Context(), core.SettingPassword)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					return next(c)
				}
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			if setting.Value == "" {
				return next(c)
			}

			_, pass, ok := c.Request().BasicAuth()
			if !ok || subtle.ConstantTimeCompare([]byte(pass), []byte(setting.Value)) != 1 {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="crm"`)
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			return next(c)
		}
	}
}
