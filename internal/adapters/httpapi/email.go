package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/theak/crm/internal/config"
	"github.com/theak/crm/internal/core"
	"github.com/theak/crm/internal/prompt"
)

// inboundEmailReq matches both JSON and form-encoded webhook payloads.
type inboundEmailReq struct {
	From    string `json:"from" form:"from"`
	Subject string `json:"subject" form:"subject"`
	Text    string `json:"text" form:"text"`
	HTML    string `json:"html" form:"html"`
}

func processEmailHandler(processor *core.EmailProcessor) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req inboundEmailReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "malformed email payload",
			})
		}

		result, err := processor.Process(c.Request().Context(), core.InboundEmail{
			From:    req.From,
			Subject: req.Subject,
			Text:    req.Text,
			HTML:    req.HTML,
		})
		if err != nil {
			return writeError(c, err)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success":       true,
			"processing_id": result.ProcessingID,
			"sender_domain": result.SenderDomain,
			"domain":        result.Domain,
			"status":        int(result.Status),
			"status_name":   result.Status.String(),
			"reasoning":     result.Reasoning,
			"created":       result.Created,
			"changed":       result.Changed,
		})
	}
}

// processEmailDebugHandler reports whether the classifier is usable and
// shows the rendered prompt. It must never echo the credential itself.
func processEmailDebugHandler(cfg *config.Config, tracker *core.TrackerService) echo.HandlerFunc {
	return func(c echo.Context) error {
		userEmail, err := tracker.UserEmail(c.Request().Context())
		if err != nil {
			return writeError(c, err)
		}

		rendered, err := prompt.Render(userEmail)
		if err != nil {
			return writeError(c, err)
		}

		llmCfg := cfg.GetLLM()
		configured := false
		switch llmCfg.Provider {
		case "openai":
			configured = cfg.GetOpenAI().APIKey != ""
		case "gemini":
			configured = cfg.GetGemini().APIKey != ""
		case "bedrock":
			// Bedrock credentials come from the AWS chain; assume present.
			configured = true
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success":            true,
			"provider":           llmCfg.Provider,
			"api_key_configured": configured,
			"user_email":         userEmail,
			"prompt":             rendered,
		})
	}
}
