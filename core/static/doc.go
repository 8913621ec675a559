// Package static serves files from a directory or any fs.FS (including
// embed.FS).
//
// Content types come from an extension table that covers the usual web assets
// and can be extended per server. Unknown extensions fall back to the system
// MIME database and then to application/octet-stream.
//
// # Route Handler
//
// Handler is meant for wildcard routes. The wildcard value is used as the file
// path:
//
//	assets := static.Dir("./public", static.WithContentType("webmanifest", "application/manifest+json"))
//	r.Get("/assets/*", assets.Handler())
//
// Missing files get a 404.
//
// # Middleware
//
// A Server is also a middleware. GET and HEAD requests for existing files are
// answered and end the pipeline, everything else continues. Middleware only
// runs for requests that resolve to a route, so pair it with a catch-all:
//
//	r.Use(static.Dir("./public"))
//	r.Get("/*", notFound)
//
// # Single Files and SPAs
//
//	r.Get("/favicon.ico", static.File("./static/favicon.ico"))
//	r.Get("/*", static.SPA("./dist").Handler())
//
// SPA serves index.html for extension-less paths that do not resolve, except
// those under /api.
//
// # Security
//
// Paths are cleaned before lookup and ".." segments can never leave the root.
// Directories are only served through their index file; there is no listing.
package static
