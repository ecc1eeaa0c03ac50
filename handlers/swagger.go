package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/gogotex/backend/go-resource/internal/resource"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the resource.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(r gin.IRouter, cfg resource.Config) {
	doc := OpenAPI(cfg)
	page := fmt.Sprintf(swaggerHTML, cfg.Name)

	r.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, page)
	})

	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, doc)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>%s - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// OpenAPI describes the routes mounted for cfg.
func OpenAPI(cfg resource.Config) gin.H {
	base := cfg.MountPath()
	item := base + "/{id}"
	idParam := []gin.H{{"name": "id", "in": "path", "required": true, "schema": gin.H{"type": "string"}}}
	body := gin.H{"required": true, "content": gin.H{"application/json": gin.H{"schema": gin.H{"$ref": "#/components/schemas/Document"}}}}

	docResp := func(desc string) gin.H {
		return gin.H{"description": desc, "content": gin.H{"application/json": gin.H{"schema": gin.H{"$ref": "#/components/schemas/Document"}}}}
	}
	errResp := func(desc string) gin.H {
		return gin.H{"description": desc, "content": gin.H{"application/json": gin.H{"schema": gin.H{"$ref": "#/components/schemas/Error"}}}}
	}

	history := gin.H{
		"summary":    "List changes of a document, newest first",
		"parameters": idParam,
		"responses": gin.H{
			"200": gin.H{"description": "history records", "content": gin.H{"application/json": gin.H{"schema": gin.H{
				"type": "array", "items": gin.H{"$ref": "#/components/schemas/HistoryRecord"},
			}}}},
			"500": errResp("history not configured or store failure"),
		},
	}

	return gin.H{
		"openapi": "3.0.0",
		"info":    gin.H{"title": cfg.Name, "version": "v0.1.0"},
		"paths": gin.H{
			base: gin.H{
				"get": gin.H{
					"summary":   "List " + cfg.Name,
					"responses": gin.H{"200": gin.H{"description": "documents"}, "500": errResp("store failure")},
				},
				"post": gin.H{
					"summary":     "Create a document",
					"requestBody": body,
					"responses":   gin.H{"201": docResp("created"), "400": errResp("invalid body"), "500": errResp("store failure")},
				},
			},
			item: gin.H{
				"parameters": idParam,
				"get":        gin.H{"summary": "Read a document", "responses": gin.H{"200": docResp("document"), "404": errResp("not found")}},
				"put":        gin.H{"summary": "Replace a document", "requestBody": body, "responses": gin.H{"200": docResp("replaced"), "400": errResp("invalid body"), "404": errResp("not found")}},
				"patch":      gin.H{"summary": "Merge fields into a document", "requestBody": body, "responses": gin.H{"200": docResp("merged"), "400": errResp("invalid body"), "404": errResp("not found")}},
				"delete":     gin.H{"summary": "Delete a document", "responses": gin.H{"204": gin.H{"description": "deleted"}, "404": errResp("not found")}},
			},
			item + "/diff": gin.H{"get": history},
			"/health":      gin.H{"get": gin.H{"summary": "Liveness check", "responses": gin.H{"200": gin.H{"description": "healthy"}}}},
			"/ready":       gin.H{"get": gin.H{"summary": "Readiness check", "responses": gin.H{"200": gin.H{"description": "ready"}, "503": gin.H{"description": "not ready"}}}},
		},
		"components": gin.H{"schemas": gin.H{
			"Document": gin.H{
				"type":                 "object",
				"properties":           gin.H{resource.IDField: gin.H{"type": "string", "readOnly": true}},
				"additionalProperties": true,
			},
			"HistoryRecord": gin.H{
				"type": "object",
				"properties": gin.H{
					"_id":        gin.H{"type": "string"},
					"date":       gin.H{"type": "string", "format": "date-time"},
					"documentId": gin.H{"type": "string"},
					"delta": gin.H{
						"description": "JSON Patch (RFC 6902) on top-level fields from the previous state; replace and remove carry the previous value in \"old\"",
						"type":        "array",
						"items": gin.H{
							"type":     "object",
							"required": []string{"op", "path"},
							"properties": gin.H{
								"op":    gin.H{"type": "string", "enum": []string{"add", "replace", "remove"}},
								"path":  gin.H{"type": "string"},
								"value": gin.H{},
								"old":   gin.H{},
							},
						},
					},
				},
			},
			"Error": gin.H{
				"type":       "object",
				"properties": gin.H{"error": gin.H{"type": "string"}, "code": gin.H{"type": "string"}},
			},
		}},
	}
}
