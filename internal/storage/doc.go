// Package storage implements the remote object client for project documents and frame images.
//
// # Object layout
//
// All objects live under a deterministic per-project namespace:
//
//	projects/{projectId}/config.json            the ProjectConfig document
//	projects/{projectId}/frame_{index:04d}.webp one image per taken frame
//
// Key derivation is pure: any client can reconstruct any other client's
// object URLs without a directory listing.
//
// # Access models
//
// [Client] speaks plain HTTP GET/PUT/HEAD against a base URL. In api mode the
// base URL is a bearer-token intermediary and every request carries an
// Authorization header; in bucket mode it is the bucket's public endpoint and
// requests are anonymous. The paths are identical either way, so one client
// covers both; the choice is configuration, not code.
//
// # Caching
//
// Reads are cached per key with a TTL (config and images independently).
// There is no server-side invalidation signal; staleness is bounded only by
// the TTL and explicit clearing.
//
// # Error classification
//
// Raw transport failures never leave this package unclassified. Failures map
// onto the shared sentinels:
//   - [shared.ErrProjectNotFound] : the object does not exist
//   - [shared.ErrBucketNotFound] : the endpoint itself is missing or unresolvable
//   - [shared.ErrTransport] : any other network or HTTP failure
//
// [Client.SyncFrames] is the one deliberate exception to fail-fast: it
// records per-item outcomes in input order and never aborts early, so partial
// success is an ordinary result rather than an error.
package storage
