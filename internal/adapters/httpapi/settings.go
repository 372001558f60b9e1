package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/theak/crm/internal/core"
)

type setSettingReq struct {
	Value *string `json:"value"`
}

func getSettingsHandler(tracker *core.TrackerService) echo.HandlerFunc {
	return func(c echo.Context) error {
		settings, err := tracker.ListSettings(c.Request().Context())
		if err != nil {
			return writeError(c, err)
		}

		out := make(map[string]any, len(settings))
		for key, setting := range settings {
			out[key] = map[string]any{
				"value":      setting.Value,
				"updated_at": setting.UpdatedAt.Format(time.RFC3339),
			}
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success":  true,
			"settings": out,
		})
	}
}

func getSettingHandler(tracker *core.TrackerService) echo.HandlerFunc {
	return func(c echo.Context) error {
		setting, err := tracker.GetSetting(c.Request().Context(), c.Param("key"))
		if err != nil {
			return writeError(c, err)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success":    true,
			"key":        setting.Key,
			"value":      setting.Value,
			"updated_at": setting.UpdatedAt.Format(time.RFC3339),
		})
	}
}

func updateSettingHandler(tracker *core.TrackerService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req setSettingReq
		if err := c.Bind(&req); err != nil || req.Value == nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "value is required",
			})
		}

		key := c.Param("key")
		if err := tracker.SetSetting(c.Request().Context(), key, *req.Value); err != nil {
			return writeError(c, err)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"message": "Setting '" + key + "' has been updated",
		})
	}
}
