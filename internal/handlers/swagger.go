package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/swaggo/swag"

	// Registers the generated document with swag.
	_ "github.com/deepchat-ai/deepchat/internal/docs"
)

const swaggerPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>DeepChat API</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>window.ui = SwaggerUIBundle({url: "/api/swagger.json", dom_id: "#swagger-ui"});</script>
</body>
</html>`

type SwaggerHandler struct{}

func NewSwaggerHandler() *SwaggerHandler {
	return &SwaggerHandler{}
}

func (h *SwaggerHandler) Register(e *echo.Echo) {
	e.GET("/api/swagger.json", h.Spec)
	e.GET("/api/docs", h.Page)
}

func (h *SwaggerHandler) Spec(c echo.Context) error {
	doc, err := swag.ReadDoc()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, messageServerError).SetInternal(err)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, []byte(doc))
}

func (h *SwaggerHandler) Page(c echo.Context) error {
	return c.HTML(http.StatusOK, swaggerPage)
}
