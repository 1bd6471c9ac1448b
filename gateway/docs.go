package gateway

import (
	_ "embed"

	"github.com/gofiber/fiber/v2"
)

//go:embed openapi.json
var openAPISpec []byte

const indexPage = `<!DOCTYPE html>
<html>
<head>
    <title>Lantern Multimodal Gateway</title>
</head>
<body>
    <h1>Lantern Multimodal Gateway</h1>
    <p>API is running successfully!</p>
    <p><a href="/api/docs">Visit Swagger UI Documentation</a></p>
</body>
</html>
`

const docsPage = `<!DOCTYPE html>
<html>
<head>
    <title>Lantern Multimodal Gateway - API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/spec",
            dom_id: "#swagger-ui"
        });
    </script>
</body>
</html>
`

// handleIndex serves the landing page, doubling as a liveness check.
func (g *Gateway) handleIndex(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(indexPage)
}

// handleDocs serves the Swagger UI page pointed at /spec.
func (g *Gateway) handleDocs(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(docsPage)
}

// handleSpec serves the embedded OpenAPI document.
func (g *Gateway) handleSpec(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(openAPISpec)
}
