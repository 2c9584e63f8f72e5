// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

// Package docs registers the OpenAPI document of the admin API with swag.
// It is regenerated with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "AGPL-3.0-or-later",
            "url": "https://www.gnu.org/licenses/agpl-3.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness check",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log in to the admin API",
                "parameters": [{"name": "credentials", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/rerank/cache": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Cache"],
                "summary": "Rerank config cache statistics",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Cache"],
                "summary": "Clear the rerank config cache",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/rerank/cache/{key}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Cache"],
                "summary": "Invalidate one cached config",
                "parameters": [{"type": "string", "name": "key", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/rerank/engines": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Cache"],
                "summary": "List reorder engines",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/rerank/preview": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Configs"],
                "summary": "Preview a reorder",
                "parameters": [{"name": "preview", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.PreviewRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/rerank/configs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Configs"],
                "summary": "List stored rerank configs",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/rerank/configs/{key}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Configs"],
                "summary": "Get a stored rerank config",
                "parameters": [{"type": "string", "name": "key", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Configs"],
                "summary": "Create or replace a rerank config",
                "parameters": [
                    {"type": "string", "name": "key", "in": "path", "required": true},
                    {"name": "config", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.RerankConfigRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Configs"],
                "summary": "Delete a stored rerank config",
                "parameters": [{"type": "string", "name": "key", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/rerank/aliases": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Configs"],
                "summary": "List stored aliases",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/rerank/aliases/{alias}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Configs"],
                "summary": "Create or replace an alias",
                "parameters": [
                    {"type": "string", "name": "alias", "in": "path", "required": true},
                    {"name": "alias", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.AliasRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Configs"],
                "summary": "Delete an alias",
                "parameters": [{"type": "string", "name": "alias", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        }
    },
    "definitions": {
        "api.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {},
                "request_id": {"type": "string"}
            }
        },
        "api.APIMeta": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "timestamp": {"type": "string"},
                "duration_ms": {"type": "integer"}
            }
        },
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"$ref": "#/definitions/api.APIError"},
                "meta": {"$ref": "#/definitions/api.APIMeta"}
            }
        },
        "models.LoginRequest": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {
                "username": {"type": "string", "maxLength": 128},
                "password": {"type": "string", "maxLength": 256}
            }
        },
        "models.RerankConfigRequest": {
            "type": "object",
            "required": ["script"],
            "properties": {
                "script": {"type": "string", "maxLength": 256},
                "lang": {"type": "string", "maxLength": 128},
                "type": {"type": "string", "enum": ["inline", "stored", "file"]},
                "params": {"type": "object", "additionalProperties": true},
                "reorder_size": {"type": "integer", "minimum": 0, "maximum": 10000},
                "keep_topn": {"type": "integer", "minimum": 0}
            }
        },
        "models.AliasRequest": {
            "type": "object",
            "required": ["indices"],
            "properties": {
                "indices": {"type": "array", "minItems": 1, "items": {"type": "string"}}
            }
        },
        "models.PreviewRequest": {
            "type": "object",
            "required": ["hits"],
            "properties": {
                "key": {"type": "string"},
                "config": {"$ref": "#/definitions/models.RerankConfigRequest"},
                "query": {"type": "object"},
                "hits": {"type": "array", "items": {"type": "object"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Dynarank Admin API",
	Description:      "Inspect and manage the search result diversification proxy.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
