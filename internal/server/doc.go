// Package server provides HTTP routing, middleware, and a disk-backed
// object store for local development.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Blob Store
//
// [BlobHandler] serves GET, PUT, and HEAD for project object keys
// (config documents and frame images) out of a directory tree. It
// speaks the same surface as the production bucket, so a client can be
// pointed at a local `stopmo serve` instance instead of real storage
// for development and testing.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
