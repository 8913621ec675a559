package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrymomot/krustie/core/dispatch"
	"github.com/dmitrymomot/krustie/core/handler"
	"github.com/dmitrymomot/krustie/core/router"
)

// ok writes a fixed text body.
func ok(req *handler.Request, res *handler.Response) {
	res.Text("ok")
}

// serve sends a single request through d and returns the recorded response.
func serve(t *testing.T, d http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	d.ServeHTTP(w, req)
	return w
}

// newDispatcher builds a router with mws attached and a GET /test route.
func newDispatcher(h handler.HandlerFunc, mws ...handler.Middleware) *dispatch.Dispatcher {
	r := router.New()
	r.Use(mws...)
	r.Get("/test", h)
	return dispatch.New(r)
}
