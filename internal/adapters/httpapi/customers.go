package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/theak/crm/internal/core"
)

type setStatusReq struct {
	Domain string `json:"domain"`
	Status int    `json:"status"`
}

func customerJSON(c core.Customer) map[string]any {
	return map[string]any{
		"domain":                   c.Domain,
		"status":                   int(c.Status),
		"status_name":              c.Status.String(),
		"created_at":               c.CreatedAt.Format(time.RFC3339),
		"status_changed_at":        c.StatusChangedAt.Format(time.RFC3339),
		"days_since_status_change": c.DaysSinceStatusChange,
	}
}

func setCustomerStatusHandler(tracker *core.TrackerService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req setStatusReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "both domain and status are required",
			})
		}

		if _, err := tracker.UpsertStatus(c.Request().Context(), req.Domain, core.Status(req.Status)); err != nil {
			return writeError(c, err)
		}

		domain := core.NormalizeDomain(req.Domain)
		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"message": fmt.Sprintf("Customer %s status has been set to %s", domain, core.Status(req.Status)),
		})
	}
}

func getCustomersHandler(tracker *core.TrackerService) echo.HandlerFunc {
	return func(c echo.Context) error {
		customers, err := tracker.ListCustomers(c.Request().Context())
		if err != nil {
			return writeError(c, err)
		}

		out := make([]map[string]any, 0, len(customers))
		for _, customer := range customers {
			out = append(out, customerJSON(customer))
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success":   true,
			"customers": out,
			"count":     len(out),
		})
	}
}

func getCustomerStatusHandler(tracker *core.TrackerService) echo.HandlerFunc {
	return func(c echo.Context) error {
		customer, err := tracker.GetCustomer(c.Request().Context(), c.Param("domain"))
		if err != nil {
			return writeError(c, err)
		}

		resp := customerJSON(*customer)
		resp["success"] = true
		return c.JSON(http.StatusOK, resp)
	}
}
