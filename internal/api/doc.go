// Package api provides the HTTP REST API and WebSocket server for the
// steward core.
//
// It exposes the service-request lifecycle, the device registry, the
// vessel directory, and the activity log to operator consoles (bridge
// stations, crew tablets), plus a WebSocket hub for live updates.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api
