package logger

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/krustie/core/handler"
)

// AccessLogger writes one record per finalized response. It satisfies the
// dispatcher's Observer interface.
type AccessLogger struct {
	log *slog.Logger
}

// AccessLog creates an access logger writing to log.
// 5xx responses are logged at error level, 4xx at warn and the rest at info.
func AccessLog(log *slog.Logger) *AccessLogger {
	if log == nil {
		log = Nop()
	}
	return &AccessLogger{log: log}
}

// Observe logs the request and its response.
func (a *AccessLogger) Observe(req *handler.Request, res *handler.Response, elapsed time.Duration) {
	status := res.StatusCode()

	ip := res.LocalString(handler.LocalClientIP)
	if ip == "" {
		ip = req.PeerIP()
	}

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	a.log.LogAttrs(req.Context(), level, "request completed",
		Component("http"),
		RequestID(res.LocalString(handler.LocalRequestID)),
		Method(string(req.Method())),
		Path(req.Path()),
		Route(res.LocalString(handler.LocalRoute)),
		StatusCode(status),
		ClientIP(ip),
		UserAgent(req.Header("User-Agent")),
		BytesOut(int64(len(res.BodyBytes()))),
		Latency(elapsed),
	)
}
