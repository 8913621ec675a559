package middleware_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/krustie/core/dispatch"
	"github.com/dmitrymomot/krustie/core/handler"
	"github.com/dmitrymomot/krustie/core/router"
	"github.com/dmitrymomot/krustie/middleware"
)

// corsDispatcher serves /test for every method so preflight requests resolve.
func corsDispatcher(cfg middleware.CORSConfig) *dispatch.Dispatcher {
	r := router.New()
	r.Use(middleware.CORSWithConfig(cfg))
	r.Handle("/test", ok)
	return dispatch.New(r)
}

func TestCORSDefaultConfiguration(t *testing.T) {
	t.Parallel()

	d := newDispatcher(ok, middleware.CORS())
	w := serve(t, d, http.MethodGet, "/test", map[string]string{"Origin": "https://example.com"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSPreflightRequest(t *testing.T) {
	t.Parallel()

	called := false
	r := router.New()
	r.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://example.com"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           3600,
	}))
	r.Options("/test", func(req *handler.Request, res *handler.Response) {
		called = true
	})

	w := serve(t, dispatch.New(r), http.MethodOptions, "/test", map[string]string{
		"Origin":                         "https://example.com",
		"Access-Control-Request-Method":  "POST",
		"Access-Control-Request-Headers": "Content-Type,Authorization",
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,POST,PUT,DELETE", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type,Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "Origin, Access-Control-Request-Method, Access-Control-Request-Headers", w.Header().Get("Vary"))
	assert.False(t, called, "preflight ends the pipeline")
}

func TestCORSPreflightRequestForbidden(t *testing.T) {
	t.Parallel()

	d := corsDispatcher(middleware.CORSConfig{
		AllowOrigins: []string{"https://allowed.com"},
		AllowMethods: []string{"GET", "POST"},
	})

	tests := []struct {
		name   string
		origin string
		method string
	}{
		{"forbidden origin", "https://forbidden.com", "POST"},
		{"forbidden method", "https://allowed.com", "DELETE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := serve(t, d, http.MethodOptions, "/test", map[string]string{
				"Origin":                        tt.origin,
				"Access-Control-Request-Method": tt.method,
			})

			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSOriginList(t *testing.T) {
	t.Parallel()

	d := corsDispatcher(middleware.CORSConfig{
		AllowOrigins:     []string{"https://a.example.com", "https://b.example.com"},
		AllowCredentials: true,
		ExposeHeaders:    []string{"X-Total-Count", "X-Request-ID"},
	})

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://a.example.com", true},
		{"https://b.example.com", true},
		{"https://c.example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run("origin_"+tt.origin, func(t *testing.T) {
			t.Parallel()

			w := serve(t, d, http.MethodGet, "/test", map[string]string{"Origin": tt.origin})
			assert.Equal(t, http.StatusOK, w.Code, "disallowed origins are served without CORS headers")

			if tt.allowed {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
				assert.Equal(t, "X-Total-Count,X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
				assert.Empty(t, w.Header().Get("Access-Control-Expose-Headers"))
			}
		})
	}
}

func TestCORSCredentialsWithWildcard(t *testing.T) {
	t.Parallel()

	d := corsDispatcher(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowCredentials: true,
	})

	w := serve(t, d, http.MethodGet, "/test", map[string]string{"Origin": "https://example.com"})
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSSkip(t *testing.T) {
	t.Parallel()

	d := corsDispatcher(middleware.CORSConfig{
		Skip: func(req *handler.Request) bool { return req.Header("Origin") == "" },
	})

	w := serve(t, d, http.MethodGet, "/test", nil)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Vary"))
}

func TestCORSPreflightNeedsRoute(t *testing.T) {
	t.Parallel()

	// only GET is registered, so OPTIONS resolves to 405 before CORS runs
	d := newDispatcher(ok, middleware.CORS())
	w := serve(t, d, http.MethodOptions, "/test", map[string]string{
		"Origin":                        "https://example.com",
		"Access-Control-Request-Method": "GET",
	})

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET", w.Header().Get("Allow"))
}

func TestCORSAllowOriginFuncs(t *testing.T) {
	t.Parallel()

	t.Run("wildcard func echoes origin", func(t *testing.T) {
		t.Parallel()

		fn := middleware.AllowOriginWildcard()

		origin, ok := fn("https://any.example")
		assert.True(t, ok)
		assert.Equal(t, "https://any.example", origin)

		_, ok = fn("")
		assert.False(t, ok)
	})

	t.Run("subdomain", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			domain  string
			origin  string
			allowed bool
		}{
			{"example.com", "https://example.com", true},
			{"example.com", "https://api.example.com", true},
			{"example.com", "https://API.Example.com:8443", true},
			{"*.example.com", "https://deep.api.example.com", true},
			{".example.com", "http://localhost.example.com:3000", true},
			{"example.com", "https://notexample.com", false},
			{"example.com", "https://example.com.evil.io", false},
			{"example.com", "not a url", false},
			{"example.com", "", false},
		}

		for _, tt := range tests {
			_, ok := middleware.AllowOriginSubdomain(tt.domain)(tt.origin)
			assert.Equal(t, tt.allowed, ok, "%s vs %s", tt.domain, tt.origin)
		}
	})

	t.Run("custom func through middleware", func(t *testing.T) {
		t.Parallel()

		d := corsDispatcher(middleware.CORSConfig{
			AllowOriginFunc:  middleware.AllowOriginSubdomain("example.com"),
			AllowCredentials: true,
		})

		w := serve(t, d, http.MethodGet, "/test", map[string]string{"Origin": "https://app.example.com"})
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})
}
