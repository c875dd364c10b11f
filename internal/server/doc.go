// Package server exposes the working set over a small JSON API.
//
// The [Router] interface defines HTTP routing with middleware support. [Middleware] wraps handlers in reverse order
// (last added executes first), following the standard Go pattern. [BasicRouter] uses [http.ServeMux] method patterns.
//
// # Routes
//
//	GET  /api/channels          → channels, filtered by ?type= and ?live=true
//	GET  /api/users             → users, filtered by ?type=
//	GET  /api/providers         → registered providers and their capabilities
//	POST /api/channels/refresh  → refresh channels of ?type= (all when empty)
//	GET  /metrics               → Prometheus metrics
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
