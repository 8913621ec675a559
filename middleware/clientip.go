package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/dmitrymomot/krustie/core/handler"
)

// clientIPHeaders are checked in order before falling back to the peer address.
var clientIPHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// ClientIPConfig configures the client IP extraction middleware.
type ClientIPConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(req *handler.Request) bool
	// HeaderName specifies the response header name for the client IP (default: "X-Client-IP")
	HeaderName string
	// StoreInHeader determines whether to include the IP in response headers
	StoreInHeader bool
	// ValidateFunc rejects requests with 403 when it returns an error
	ValidateFunc func(req *handler.Request, ip string) error
}

// ClientIP creates a client IP extraction middleware with default configuration.
// The extracted IP is stored under handler.LocalClientIP.
func ClientIP() handler.Middleware {
	return ClientIPWithConfig(ClientIPConfig{})
}

// ClientIPWithConfig creates a client IP extraction middleware with custom configuration.
// It extracts the real client IP address from proxy headers (CF-Connecting-IP,
// DO-Connecting-IP, X-Forwarded-For, X-Real-IP) and falls back to the peer address.
func ClientIPWithConfig(cfg ClientIPConfig) handler.Middleware {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Client-IP"
	}

	return handler.MiddlewareFunc(func(req *handler.Request, res *handler.Response) handler.Result {
		if cfg.Skip != nil && cfg.Skip(req) {
			return handler.Next
		}

		ip := ExtractIP(req)
		res.SetLocal(handler.LocalClientIP, ip)

		if cfg.ValidateFunc != nil {
			if err := cfg.ValidateFunc(req, ip); err != nil {
				res.Status(http.StatusForbidden).Text(err.Error())
				return handler.End
			}
		}

		if cfg.StoreInHeader {
			res.SetHeader(cfg.HeaderName, ip)
		}

		return handler.Next
	})
}

// GetClientIP retrieves the client IP stored by the ClientIP middleware.
func GetClientIP(res *handler.Response) (string, bool) {
	ip := res.LocalString(handler.LocalClientIP)
	return ip, ip != ""
}

// ExtractIP returns the first valid address found in the proxy headers, or the
// peer IP when none is present. Only the leftmost X-Forwarded-For entry is used.
func ExtractIP(req *handler.Request) string {
	for _, name := range clientIPHeaders {
		v := req.Header(name)
		if v == "" {
			continue
		}
		if name == "X-Forwarded-For" {
			v, _, _ = strings.Cut(v, ",")
		}
		if ip := normalizeIP(v); ip != "" {
			return ip
		}
	}
	return req.PeerIP()
}

func normalizeIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
