// Package swagger registers the API document served under /swagger.
// Regenerate with: swag init -g cmd/serve.go -o docs/swagger
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/sync": {
            "get": {
                "description": "Lists the configured sources in run order with the report of their last run.",
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "List Sources",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/sync.SourceStatus"}}
                    }
                }
            }
        },
        "/sync/{source}": {
            "get": {
                "description": "Returns the report of the most recent run of a source since the server started.",
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "Last Report",
                "parameters": [
                    {"type": "string", "description": "Source name", "name": "source", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/reconcile.RunReport"}},
                    "404": {"description": "No run yet", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "post": {
                "description": "Reconciles one source into the inventory. Concurrent requests for the same source share one run.",
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "Run Source",
                "parameters": [
                    {"type": "string", "description": "Source name", "name": "source", "in": "path", "required": true},
                    {"type": "boolean", "description": "Do not write the inventory", "name": "dry_run", "in": "query"},
                    {"type": "boolean", "description": "Upload the report to object storage", "name": "upload", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/reconcile.RunReport"}},
                    "404": {"description": "Unknown source", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Source disabled", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "502": {"description": "Source unavailable", "schema": {"$ref": "#/definitions/reconcile.RunReport"}}
                }
            }
        }
    },
    "definitions": {
        "reconcile.EntityResult": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["created", "updated", "skipped"]},
                "matched_by": {"type": "string", "enum": ["exact", "mac", "primary_ip"]},
                "name": {"type": "string"},
                "object_type": {"type": "string"},
                "reason": {"type": "string"},
                "scope": {"type": "string"},
                "warnings": {"type": "array", "items": {"type": "string"}}
            }
        },
        "reconcile.RunReport": {
            "type": "object",
            "properties": {
                "dry_run": {"type": "boolean"},
                "error": {"type": "string"},
                "finished": {"type": "string"},
                "id": {"type": "string"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/reconcile.EntityResult"}},
                "source": {"type": "string"},
                "started": {"type": "string"},
                "summary": {"$ref": "#/definitions/reconcile.RunSummary"}
            }
        },
        "reconcile.RunSummary": {
            "type": "object",
            "properties": {
                "clusters": {"type": "integer"},
                "created": {"type": "integer"},
                "devices": {"type": "integer"},
                "errors": {"type": "integer"},
                "skipped": {"type": "integer"},
                "updated": {"type": "integer"},
                "virtual_machines": {"type": "integer"},
                "volumes": {"type": "integer"}
            }
        },
        "sync.SourceStatus": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean"},
                "last_run": {"$ref": "#/definitions/reconcile.RunReport"},
                "name": {"type": "string"},
                "type": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Inventory Sync API",
	Description:      "Reconciles OpenStack sources into the inventory.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
