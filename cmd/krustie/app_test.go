package main

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/krustie/core/dispatch"
	"github.com/dmitrymomot/krustie/core/handler"
	"github.com/dmitrymomot/krustie/core/logger"
	"github.com/dmitrymomot/krustie/middleware"
)

func testConfig(t *testing.T) Config {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.css"), []byte("body{}"), 0o644))

	return Config{
		StaticDir: dir,
		RateLimit: middleware.RateLimitConfig{Requests: 100},
		Compress:  middleware.CompressConfig{DisableBrotli: true},
		Metrics:   middleware.MetricsConfig{Namespace: "krustie"},
	}
}

func newTestDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()

	a := newApp(testConfig(t), logger.Nop())
	return dispatch.New(a.root, dispatch.WithObserver(a.metrics))
}

func TestApp(t *testing.T) {
	t.Parallel()

	t.Run("hello", func(t *testing.T) {
		t.Parallel()

		d := newTestDispatcher(t)
		res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/hello?name=krustie"))

		assert.Equal(t, http.StatusOK, res.StatusCode())
		assert.Equal(t, "Hello, krustie!", string(res.BodyBytes()))
		assert.NotEmpty(t, res.Header("X-Request-ID"))
		assert.Equal(t, "nosniff", res.Header("X-Content-Type-Options"))
	})

	t.Run("echo json", func(t *testing.T) {
		t.Parallel()

		d := newTestDispatcher(t)
		body, err := handler.JSONBody([]byte(`{"server":"krustie"}`))
		require.NoError(t, err)

		res := d.Dispatch(handler.NewRequest(handler.MethodPost, "/echo", handler.WithBody(body)))

		assert.Equal(t, http.StatusOK, res.StatusCode())
		assert.Equal(t, "application/json", res.ContentType())
		assert.JSONEq(t, `{"server":"krustie"}`, string(res.BodyBytes()))
	})

	t.Run("echo empty", func(t *testing.T) {
		t.Parallel()

		d := newTestDispatcher(t)
		res := d.Dispatch(handler.NewRequest(handler.MethodPost, "/echo"))

		assert.Equal(t, http.StatusNoContent, res.StatusCode())
	})

	t.Run("user param", func(t *testing.T) {
		t.Parallel()

		d := newTestDispatcher(t)
		res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/user/42",
			handler.WithHeader("X-Request-ID", "ignored"),
		))

		require.Equal(t, http.StatusOK, res.StatusCode())
		assert.Contains(t, string(res.BodyBytes()), `"id":"42"`)
		assert.Contains(t, string(res.BodyBytes()), `"request_id":"`+res.Header("X-Request-ID")+`"`)
	})

	t.Run("static assets", func(t *testing.T) {
		t.Parallel()

		d := newTestDispatcher(t)
		res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/assets/app.css"))

		assert.Equal(t, http.StatusOK, res.StatusCode())
		assert.Equal(t, "body{}", string(res.BodyBytes()))
		assert.Equal(t, "public, max-age=3600", res.Header("Cache-Control"))
	})

	t.Run("gzip", func(t *testing.T) {
		t.Parallel()

		d := newTestDispatcher(t)
		res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/hello",
			handler.WithHeader("Accept-Encoding", "gzip, br"),
		))

		require.Equal(t, "gzip", res.Header("Content-Encoding"))
		zr, err := gzip.NewReader(bytes.NewReader(res.BodyBytes()))
		require.NoError(t, err)
		plain, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, "Hello, world!", string(plain))
	})

	t.Run("readiness", func(t *testing.T) {
		t.Parallel()

		d := newTestDispatcher(t)
		res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/health/ready"))

		assert.Equal(t, http.StatusOK, res.StatusCode())
		assert.Equal(t, "READY", string(res.BodyBytes()))
	})

	t.Run("unknown route", func(t *testing.T) {
		t.Parallel()

		d := newTestDispatcher(t)
		res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/missing"))

		assert.Equal(t, http.StatusNotFound, res.StatusCode())
		assert.Empty(t, res.Header("X-Request-ID"))
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		t.Parallel()

		d := newTestDispatcher(t)
		d.Dispatch(handler.NewRequest(handler.MethodGet, "/hello"))
		res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/metrics"))

		require.Equal(t, http.StatusOK, res.StatusCode())
		assert.Contains(t, string(res.BodyBytes()), `krustie_http_requests_total{method="GET",route="/hello",status="200"} 1`)
	})
}

func TestAppWithoutStaticDir(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.StaticDir = filepath.Join(t.TempDir(), "missing")

	a := newApp(cfg, logger.Nop())
	for _, route := range a.root.Routes() {
		assert.NotEqual(t, "/assets/*", route.Pattern)
	}

	d := dispatch.New(a.root)
	res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/health/ready"))
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode())

	res = d.Dispatch(handler.NewRequest(handler.MethodGet, "/health/live"))
	assert.Equal(t, "ALIVE", string(res.BodyBytes()))
}

func TestRoutesCommand(t *testing.T) {
	cmd := newRootCommand()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"routes"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "GET /hello\n")
	assert.Contains(t, out.String(), "POST /echo\n")
	assert.Contains(t, out.String(), "GET /user/:id\n")
	assert.Contains(t, out.String(), "GET /metrics\n")
}
