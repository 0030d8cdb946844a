//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// docTemplate mirrors the godoc annotations on the handlers in server.go.
const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "{{.Title}}",
    "description": "{{escape .Description}}",
    "version": "{{.Version}}"
  },
  "host": "{{.Host}}",
  "basePath": "{{.BasePath}}",
  "schemes": {{ marshal .Schemes }},
  "paths": {
    "/status": {"get": {"tags": ["diagnostics"], "summary": "Engine status", "produces": ["application/json"],
      "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusReport"}}}}},
    "/healthz": {"get": {"tags": ["diagnostics"], "summary": "Liveness probe", "produces": ["text/plain"],
      "responses": {"200": {"description": "ok", "schema": {"type": "string"}}}}},
    "/readyz": {"get": {"tags": ["diagnostics"], "summary": "Readiness probe", "produces": ["text/plain"],
      "responses": {"200": {"description": "ready", "schema": {"type": "string"}},
                    "503": {"description": "loading", "schema": {"type": "string"}}}}},
    "/version": {"get": {"tags": ["diagnostics"], "summary": "Library version", "produces": ["application/json"],
      "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/httpapi.VersionResponse"}}}}},
    "/gpu": {"get": {"tags": ["diagnostics"], "summary": "GPU support", "produces": ["application/json"],
      "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/httpapi.GPUResponse"}}}}},
    "/models": {"get": {"tags": ["diagnostics"], "summary": "Model files", "produces": ["application/json"],
      "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/httpapi.ModelsResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httpapi.ErrorResponse"}}}}}
  },
  "definitions": {
    "types.StatusReport": {"type": "object", "properties": {
      "status": {"type": "string", "example": "ready"},
      "status_message": {"type": "string", "example": "Engine ready"},
      "total_memory_usage_bytes": {"type": "integer"},
      "model_memory_usage_bytes": {"type": "integer"},
      "active_generations": {"type": "integer"},
      "queued_generations": {"type": "integer"},
      "average_generation_time_seconds": {"type": "number"},
      "total_generations_completed": {"type": "integer"},
      "total_tokens_generated": {"type": "integer"},
      "last_generation_timestamp": {"type": "integer"},
      "gpu_acceleration_active": {"type": "boolean"},
      "model_name": {"type": "string"},
      "error_message": {"type": "string"}}},
    "httpapi.VersionResponse": {"type": "object", "properties": {
      "version": {"type": "string", "example": "0.1.0"},
      "major": {"type": "integer"}, "minor": {"type": "integer"}, "patch": {"type": "integer"},
      "go_version": {"type": "string"}}},
    "httpapi.GPUResponse": {"type": "object", "properties": {
      "supported": {"type": "boolean"}, "active": {"type": "boolean"}}},
    "httpapi.ModelsResponse": {"type": "object", "properties": {
      "models": {"type": "array", "items": {"type": "object"}}}},
    "httpapi.ErrorResponse": {"type": "object", "properties": {
      "error": {"type": "string"}, "code": {"type": "integer"}}}
  }
}`

// SwaggerInfo holds the exported API metadata.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "narengine diagnostics API",
	Description:      "Read-only status, health and metrics of the in-process generation engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// MountSwagger serves the Swagger UI under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
