// Package server provides the HTTP API for concilia.
//
// The layering is CLI → App → Server → Router → Handlers:
//
//   - Server: lifecycle, event broker and transports
//   - Config: listen address, CORS, auth and import limits
//   - Router: route registration and middleware chain
//   - Handlers: request handlers grouped by resource
//
// Usage:
//
//	srv, err := server.New(client, server.DefaultConfig(), server.WithLogger(&logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv.Start()
//	http.ListenAndServe(":8080", srv.Handler())
package server

//go:generate gomarkdoc --output README.md .
