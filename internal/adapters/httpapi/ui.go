package httpapi

import (
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/theak/crm/web"
)

var pages = template.Must(template.ParseFS(web.Templates, "templates/*.html"))

func renderPage(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
		c.Response().WriteHeader(http.StatusOK)
		return pages.ExecuteTemplate(c.Response(), name, nil)
	}
}

func indexHandler() echo.HandlerFunc {
	return renderPage("index.html")
}

func settingsPageHandler() echo.HandlerFunc {
	return renderPage("settings.html")
}
