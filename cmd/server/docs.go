// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

// @title Dynarank Admin API
// @version 1.0
// @description Administration of the Dynarank search result diversification proxy.
// @description
// @description ## Search endpoints
// @description
// @description `GET|POST /_search` and `GET|POST /{target}/_search` follow the Elasticsearch search API.
// @description They are not described here. Errors on these routes use the Elasticsearch error shape.
// @description
// @description ## Authentication
// @description
// @description Obtain a token from `/api/v1/auth/login` and send it as `Authorization: Bearer <token>`.
// @description
// @description ## Error Responses
// @description
// @description ```json
// @description {
// @description   "success": false,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message",
// @description     "request_id": "..."
// @description   },
// @description   "meta": {
// @description     "timestamp": "2026-01-01T12:34:56Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/dynarank/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:9280
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token from /api/v1/auth/login.
//
// @tag.name Core
// @tag.description Health and readiness
//
// @tag.name Auth
// @tag.description Admin login
//
// @tag.name Rerank
// @tag.description Config cache, stored configs, aliases and preview
package main
