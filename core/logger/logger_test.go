package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/krustie/core/handler"
	"github.com/dmitrymomot/krustie/core/logger"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json with attrs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithProduction("krustie"),
			logger.WithOutput(&buf),
			logger.WithAttr(slog.String("region", "eu")),
		)
		log.Info("hello", logger.Component("test"))

		rec := decode(t, &buf)
		assert.Equal(t, "hello", rec["msg"])
		assert.Equal(t, "krustie", rec["service"])
		assert.Equal(t, "production", rec["env"])
		assert.Equal(t, "eu", rec["region"])
		assert.Equal(t, "test", rec["component"])
	})

	t.Run("level filters records", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelWarn))
		log.Info("dropped")
		assert.Zero(t, buf.Len())

		log.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("context values", func(t *testing.T) {
		t.Parallel()

		type tenantKey struct{}

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithJSONFormatter(),
			logger.WithContextValue("tenant", tenantKey{}),
		).With(slog.String("sub", "x"))

		log.InfoContext(context.WithValue(context.Background(), tenantKey{}, "acme"), "scoped")

		rec := decode(t, &buf)
		assert.Equal(t, "acme", rec["tenant"])
		assert.Equal(t, "x", rec["sub"])
	})

	t.Run("nop discards", func(t *testing.T) {
		t.Parallel()

		assert.NotPanics(t, func() { logger.Nop().Error("nothing") })
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, logger.ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel("loud"))
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewFromConfig(logger.Config{Level: "error", Format: "JSON", Service: "svc"}, logger.WithOutput(&buf))

	log.Warn("dropped")
	assert.Zero(t, buf.Len())

	log.Error("kept")
	rec := decode(t, &buf)
	assert.Equal(t, "svc", rec["service"])
}

func TestAttrHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
	assert.True(t, logger.RequestID("").Equal(slog.Attr{}))
	assert.True(t, logger.Route("").Equal(slog.Attr{}))
	assert.True(t, logger.Stack(nil).Equal(slog.Attr{}))
	assert.True(t, logger.Errors(nil, nil).Equal(slog.Attr{}))

	errs := logger.Errors(nil, errors.New("b"))
	assert.Equal(t, "errors", errs.Key)
	require.Len(t, errs.Value.Group(), 1)
	assert.Equal(t, "1", errs.Value.Group()[0].Key)

	assert.Equal(t, "status_code", logger.StatusCode(200).Key)
	assert.Equal(t, time.Second, logger.Latency(time.Second).Value.Duration())
}

func TestAccessLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithJSONFormatter(), logger.WithLevel(slog.LevelDebug))

	req := handler.NewRequest(handler.MethodGet, "/users/7",
		handler.WithPeer("10.0.0.9:4000"),
		handler.WithHeader("User-Agent", "test-agent"),
	)
	res := handler.NewResponse()
	res.SetLocal(handler.LocalRoute, "/users/:id")
	res.SetLocal(handler.LocalRequestID, "req-1")
	res.Status(http.StatusNotFound).Text("Not Found")

	logger.AccessLog(log).Observe(req, res, 5*time.Millisecond)

	rec := decode(t, &buf)
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "request completed", rec["msg"])
	assert.Equal(t, "GET", rec["method"])
	assert.Equal(t, "/users/7", rec["path"])
	assert.Equal(t, "/users/:id", rec["route"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, float64(404), rec["status_code"])
	assert.Equal(t, "10.0.0.9", rec["client_ip"])
	assert.Equal(t, "test-agent", rec["user_agent"])
	assert.Equal(t, float64(9), rec["bytes_out"])

	assert.NotPanics(t, func() {
		logger.AccessLog(nil).Observe(req, res, 0)
	})
}
