package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/theak/crm/internal/adapters/httpapi/middleware"
	"github.com/theak/crm/internal/config"
	"github.com/theak/crm/internal/core"
)

// Server is the HTTP surface: the JSON API, the UI pages, health and
// metrics endpoints.
type Server struct {
	e      *echo.Echo
	logger *zap.Logger
	addr   string
}

// NewServer wires all routes. The webhook and its debug endpoint stay
// outside the password guard so the email provider can reach them.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	tracker *core.TrackerService,
	processor *core.EmailProcessor,
	settings core.SettingsRepository,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover())

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Webhook surface, unauthenticated.
	e.POST("/api/process-email", processEmailHandler(processor))
	e.GET("/api/process-email-debug", processEmailDebugHandler(cfg, tracker))

	guard := middleware.PasswordGuard(settings)

	e.GET("/", indexHandler(), guard)
	e.GET("/settings", settingsPageHandler(), guard)

	api := e.Group("/api", guard)
	api.POST("/set_customer_status", setCustomerStatusHandler(tracker))
	api.GET("/get_customers", getCustomersHandler(tracker))
	api.GET("/get_customer_status/:domain", getCustomerStatusHandler(tracker))
	api.GET("/settings", getSettingsHandler(tracker))
	api.GET("/settings/:key", getSettingHandler(tracker))
	api.POST("/settings/:key", updateSettingHandler(tracker))

	return &Server{e: e, logger: logger, addr: cfg.GetServer().ListenAddress}
}

// Start begins serving; it blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("address", s.addr))
	return s.e.Start(s.addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

// writeError maps the core error taxonomy onto HTTP statuses with a
// structured body.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidDomain),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrInvalidSenderDomain),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, core.ErrUnknownSettingKey):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrMissingCredential),
		errors.Is(err, core.ErrClassifierTimeout),
		errors.Is(err, core.ErrClassifierProtocol):
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]any{"success": false, "error": err.Error()})
}
