package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves a Swagger UI page and the OpenAPI document of the JSON endpoints.
//   - GET /swagger/index.html
//   - GET /swagger/doc.json
func RegisterSwagger(r *gin.Engine) {
	r.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})
	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>authweb - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({ url: '/swagger/doc.json', dom_id: '#swagger-ui' })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "authweb", "version": "v1.0.0" },
  "paths": {
    "/api/auth/session": {
      "get": {
        "summary": "Current session without tokens",
        "responses": {
          "200": { "description": "session", "content": { "application/json": { "schema": { "type": "object", "properties": {
            "id": { "type": "string" },
            "user": { "type": "object", "properties": { "id": {"type":"string"}, "email": {"type":"string"}, "firstName": {"type":"string"}, "lastName": {"type":"string"} } },
            "issuedAt": { "type": "string", "format": "date-time" },
            "expiresAt": { "type": "string", "format": "date-time" } } } } } },
          "401": { "description": "not authenticated" }
        }
      }
    },
    "/api/auth/signout": {
      "post": { "summary": "Sign out and revoke the session", "responses": { "200": { "description": "signed out" } } }
    },
    "/api/users/exists": {
      "get": {
        "summary": "Whether an account uses the email",
        "parameters": [ { "name": "email", "in": "query", "required": true, "schema": { "type": "string" } } ],
        "responses": { "200": { "description": "{\"exists\": bool}" }, "400": { "description": "missing email" }, "503": { "description": "authentication API unavailable" } }
      }
    },
    "/api/tenants/exists": {
      "get": {
        "summary": "Whether a tenant owns the domain",
        "parameters": [ { "name": "domain", "in": "query", "required": true, "schema": { "type": "string" } } ],
        "responses": { "200": { "description": "{\"exists\": bool}" }, "400": { "description": "missing domain" }, "503": { "description": "authentication API unavailable" } }
      }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition format" } } } }
  }
}`
