// Package dispatch runs the pipelines resolved by a root router.
//
// A Dispatcher owns the per-request lifecycle: the request is parsed, resolved
// against the root router, executed entry by entry until one returns
// handler.End or the pipeline is exhausted, and finalized into exactly one
// response.
//
// # Basic Usage
//
//	r := router.New()
//	r.Get("/hello", func(req *handler.Request, res *handler.Response) {
//		res.Text("Hello, World!")
//	})
//
//	d := dispatch.New(r,
//		dispatch.WithLogger(log),
//		dispatch.WithObserver(logger.AccessLog(log)),
//	)
//
//	http.ListenAndServe(":8080", d)
//
// # Errors
//
// Requests that do not resolve never reach a handler. The error handler turns
// them into responses:
//
//	router.ErrNotFound            -> 404
//	router.ErrMethodNotAllowed    -> 405 with Allow header
//	ErrMalformedRequest           -> 400
//	ErrBodyTooLarge               -> 413
//	handler panic (PanicError)    -> 500
//
// Errors implementing StatusCode() int choose their own status. A panic is
// recovered, logged with its stack, and the partial response of the faulting
// request is discarded before the error handler runs. Other requests are not
// affected.
//
//	d := dispatch.New(r, dispatch.WithErrorHandler(
//		func(req *handler.Request, res *handler.Response, err error) {
//			res.Status(dispatch.StatusCode(err)).JSON(map[string]string{"error": err.Error()})
//		},
//	))
//
// # Raw Requests
//
// HandleRaw accepts a complete HTTP/1.1 request and returns the serialized
// response, which is useful for tests and for custom transports:
//
//	out := d.HandleRaw([]byte("GET /hello HTTP/1.1\r\nHost: localhost\r\n\r\n"))
package dispatch
