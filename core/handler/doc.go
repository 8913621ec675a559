// Package handler defines the request and response model and the handler
// abstractions shared by the router, the dispatcher and all middleware.
//
// # Core Types
//
//	// Result controls pipeline continuation
//	type Result uint8 // Next or End
//
//	// Every pipeline entry implements Middleware
//	type Middleware interface {
//		Process(req *Request, res *Response) Result
//	}
//
//	// Terminal route handlers run and implicitly continue
//	type HandlerFunc func(req *Request, res *Response)
//
// # Requests
//
// A Request is immutable once built. Lookups never expose internal maps:
//
//	id := req.Param("id")
//	page, ok := req.Query("page")   // duplicate keys keep the last value
//	agent := req.Header("User-Agent") // case-insensitive
//
//	switch req.Body().Kind() {
//	case handler.BodyJSON:
//		var in CreateUser
//		if err := req.Body().Decode(&in); err != nil { ... }
//	case handler.BodyText:
//		s, _ := req.Body().Text()
//	}
//
// Tests build requests with NewRequest:
//
//	req := handler.NewRequest(handler.MethodGet, "/users/42?expand=true",
//		handler.WithHeader("Accept", "application/json"),
//		handler.WithPeer("10.0.0.1:5123"),
//	)
//
// # Responses
//
// A Response is mutated in place by every entry of the pipeline:
//
//	res.Status(http.StatusCreated).
//		SetHeader("Location", "/users/42").
//		JSON(user)
//
// Values that must travel between middleware and handlers of the same request
// are stored as locals:
//
//	res.SetLocal("request_id", id)
//	v, ok := res.Local("request_id")
//
// # Middleware
//
// Any function with the right shape becomes middleware through MiddlewareFunc:
//
//	auth := handler.MiddlewareFunc(func(req *handler.Request, res *handler.Response) handler.Result {
//		if req.Header("Authorization") == "" {
//			res.Status(http.StatusUnauthorized).Text("unauthorized")
//			return handler.End
//		}
//		return handler.Next
//	})
//
// Middleware instances are shared across concurrent requests. Keep them
// stateless or make their state safe for concurrent use.
package handler
