// Package api provides the HTTP REST API and WebSocket event feed for
// the thermometer registry.
//
// All resources live under /api/v1. Thermometer routes cover the full
// lifecycle (create, one-time register, update with appended readings,
// delete with cascade); temperature-reading routes are strictly
// read-only and answer every write method with 405. Authentication is a
// JWT bearer token issued by POST /auth/login; the WebSocket feed
// authenticates with a single-use ticket from POST /auth/ws-ticket.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
