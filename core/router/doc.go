// Package router provides segment-based routing and router composition for the
// dispatcher. A Router holds its own routing tree and an ordered list of
// attachments: global middleware and sub-routers mounted at a prefix.
//
// # Features
//
//   - Segment tree with static, parameter and wildcard edges
//   - Static beats parameter beats wildcard, with backtracking
//   - Sub-router mounting with literal and parameter prefixes
//   - Global and route level middleware in registration order
//   - Distinct not-found and method-not-allowed outcomes
//   - Route introspection across mounted routers
//
// # Basic Usage
//
//	r := router.New()
//
//	r.Get("/users", listUsers)
//	r.Get("/users/:id", getUser)
//	r.Post("/users", createUser)
//	r.Get("/assets/*path", serveAsset)
//
// # Patterns
//
// Patterns must start with "/". Empty segments are ignored, so "/a/" and "/a"
// are the same route. A ":name" segment captures exactly one path segment and
// a "*" or "*name" segment captures the rest of the path, one segment or more,
// without trailing slashes (the unnamed form is stored as "*"). A wildcard must
// be the last segment.
//
// Request paths are matched in their escaped form: the path is split on "/"
// first and each segment is decoded afterwards, so "/user/a%2Fb" matches
// "/user/:id" with id "a/b".
//
// Registration errors are programming errors and panic:
//
//	r.Get("users", h)      // ErrInvalidPattern
//	r.Get("/a/*/b", h)     // ErrWildcardPosition
//	r.Get("/:id/:id", h)   // ErrDuplicateParam
//
// # Composition
//
// Attachments run in insertion order. Given
//
//	r.Use(m1)
//	r.Mount("/api", api)
//	r.Use(m2)
//
// a request to a route of api runs m1, then api's middleware and handler, then
// m2, unless an entry returns handler.End.
//
// When several mounts match the same path, every one of them contributes its
// middleware but only the first terminal handler found is kept.
//
// # Resolution
//
//	res, err := r.Resolve(handler.MethodGet, "/api/users/42")
//	switch {
//	case errors.Is(err, router.ErrNotFound):
//	case errors.Is(err, router.ErrMethodNotAllowed):
//		var mna *router.MethodNotAllowedError
//		errors.As(err, &mna)
//		allow := mna.AllowHeader()
//	}
//
// Routers are configured from one goroutine. Freeze makes the whole tree
// read-only; the dispatcher freezes the root router it is given.
package router
