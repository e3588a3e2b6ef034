// Package api provides the read-only HTTP status server of the climate daemon.
//
// Routes:
//
//	GET /metrics                 Prometheus exposition
//	GET /api/v1/health           liveness plus dependency checks
//	GET /api/v1/status           full scheduler snapshot
//	GET /api/v1/rooms            per-room health and last reading time
//	GET /api/v1/rooms/{id}       one room
//
// The server never touches scheduler state directly; it serves the snapshot
// the scheduler publishes after every tick.
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
