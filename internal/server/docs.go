// Package server provides the HTTP API for concilia.
//
// This file contains general API documentation annotations for Swag/OpenAPI generation.
// Individual endpoint annotations live in the handler files.
package server

// @title Concilia API
// @version 1.0
// @description REST API for the payment reconciliation ledger with live updates via SSE and WebSocket.
// @description
// @description Features:
// @description - Year grid of cell statuses per client
// @description - Manual toggles on single cells
// @description - Two-step document import (preview, then commit)
//
// @host localhost:8080
// @BasePath /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for mutating endpoints (optional, configurable)
