package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/dmitrymomot/krustie/core/handler"
)

// Supported content encodings.
const (
	EncodingBrotli = "br"
	EncodingGzip   = "gzip"
)

// CompressConfig configures the response compression middleware.
type CompressConfig struct {
	// MinLength is the smallest body size that gets compressed (default: 0, any non-empty body)
	MinLength int `env:"COMPRESS_MIN_LENGTH" envDefault:"0"`
	// GzipLevel is passed to gzip.NewWriterLevel; zero selects gzip.DefaultCompression
	GzipLevel int `env:"COMPRESS_GZIP_LEVEL" envDefault:"-1"`
	// BrotliLevel is passed to brotli.NewWriterLevel; zero selects brotli.DefaultCompression
	BrotliLevel int `env:"COMPRESS_BROTLI_LEVEL" envDefault:"6"`
	// DisableBrotli restricts negotiation to gzip
	DisableBrotli bool `env:"COMPRESS_DISABLE_BROTLI" envDefault:"false"`

	// Skip defines a function to skip middleware execution for specific requests
	Skip func(req *handler.Request) bool
}

// Compress creates a compression middleware with default configuration.
//
// The middleware transforms a body that is already in place, so it must run
// after the terminal handler. Attach it to a router after mounting the
// application:
//
//	root := router.New()
//	root.Mount("/", app)
//	root.Use(middleware.Compress())
func Compress() handler.Middleware {
	return CompressWithConfig(CompressConfig{})
}

// CompressWithConfig creates a compression middleware with custom configuration.
// Brotli is preferred over gzip when the client accepts both. Responses that
// already carry a Content-Encoding are left alone.
func CompressWithConfig(cfg CompressConfig) handler.Middleware {
	if cfg.GzipLevel == 0 || cfg.GzipLevel < gzip.HuffmanOnly || cfg.GzipLevel > gzip.BestCompression {
		cfg.GzipLevel = gzip.DefaultCompression
	}
	if cfg.BrotliLevel <= brotli.BestSpeed || cfg.BrotliLevel > brotli.BestCompression {
		cfg.BrotliLevel = brotli.DefaultCompression
	}

	return handler.MiddlewareFunc(func(req *handler.Request, res *handler.Response) handler.Result {
		if cfg.Skip != nil && cfg.Skip(req) {
			return handler.Next
		}

		body := res.BodyBytes()
		if len(body) == 0 || len(body) < cfg.MinLength {
			return handler.Next
		}
		if _, encoded := res.LookupHeader("Content-Encoding"); encoded {
			return handler.Next
		}

		encoding := negotiateEncoding(req.Header("Accept-Encoding"), !cfg.DisableBrotli)
		if encoding == "" {
			return handler.Next
		}

		compressed, err := encode(encoding, body, cfg)
		if err != nil {
			return handler.Next
		}
		if err := res.UpdateBody(compressed); err != nil {
			return handler.Next
		}

		res.SetHeader("Content-Encoding", encoding)
		addVary(res, "Accept-Encoding")
		return handler.Next
	})
}

// negotiateEncoding picks the encoding to use for an Accept-Encoding value.
// Codings with q=0 are refused.
func negotiateEncoding(accept string, allowBrotli bool) string {
	var br, gz bool
	for part := range strings.SplitSeq(accept, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if rejected(params) {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case EncodingBrotli:
			br = true
		case EncodingGzip, "x-gzip":
			gz = true
		case "*":
			br, gz = true, true
		}
	}

	switch {
	case br && allowBrotli:
		return EncodingBrotli
	case gz:
		return EncodingGzip
	default:
		return ""
	}
}

func rejected(params string) bool {
	for p := range strings.SplitSeq(params, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), "q") {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return err == nil && q == 0
	}
	return false
}

func encode(encoding string, body []byte, cfg CompressConfig) ([]byte, error) {
	var buf bytes.Buffer

	var w io.WriteCloser
	switch encoding {
	case EncodingBrotli:
		w = brotli.NewWriterLevel(&buf, cfg.BrotliLevel)
	default:
		gw, err := gzip.NewWriterLevel(&buf, cfg.GzipLevel)
		if err != nil {
			return nil, err
		}
		w = gw
	}

	if _, err := w.Write(body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// addVary appends value to the Vary header unless it is already listed.
func addVary(res *handler.Response, value string) {
	current := res.Header("Vary")
	if current == "" {
		res.SetHeader("Vary", value)
		return
	}
	for v := range strings.SplitSeq(current, ",") {
		if strings.EqualFold(strings.TrimSpace(v), value) {
			return
		}
	}
	res.SetHeader("Vary", current+", "+value)
}
