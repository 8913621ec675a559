package dispatch

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/krustie/core/handler"
	"github.com/dmitrymomot/krustie/core/logger"
)

// ServeHTTP implements http.Handler. The parsed request is dispatched and the
// final response is written once.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := FromHTTP(r, d.maxBodySize)

	var res *handler.Response
	if err != nil {
		res = d.reject(req, err)
	} else {
		res = d.Dispatch(req)
	}

	if err := WriteResponse(w, r.Method, res); err != nil {
		d.logger.Debug("failed to write response",
			logger.Component("dispatch"),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Error(err),
		)
	}
}

// FromHTTP converts r into a Request. Bodies larger than maxBodySize are
// rejected when maxBodySize is positive. On error the returned request carries
// everything but the body so the failure can still be reported.
func FromHTTP(r *http.Request, maxBodySize int64) (*handler.Request, error) {
	opts := []handler.RequestOption{
		handler.WithEscapedPath(r.URL.EscapedPath()),
		handler.WithPeer(r.RemoteAddr),
		handler.WithRequestContext(r.Context()),
	}
	if r.Host != "" && r.Header.Get("Host") == "" {
		opts = append(opts, handler.WithHeader("Host", r.Host))
	}
	for key, values := range r.Header {
		for _, v := range values {
			opts = append(opts, handler.WithHeader(key, v))
		}
	}

	method, methodErr := handler.ParseMethod(r.Method)
	if methodErr != nil {
		method = handler.Method(r.Method)
	}

	target := "?" + r.URL.RawQuery
	req := handler.NewRequest(method, target, opts...)
	if methodErr != nil {
		return req, fmt.Errorf("%w: %w", ErrMalformedRequest, methodErr)
	}

	raw, err := readBody(r, maxBodySize)
	if err != nil {
		return req, err
	}

	body, err := handler.ParseBody(raw, r.Header.Get("Content-Type"))
	if err != nil {
		return req, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	return handler.NewRequest(method, target, append(opts, handler.WithBody(body))...), nil
}

func readBody(r *http.Request, maxBodySize int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	defer r.Body.Close()

	var src io.Reader = r.Body
	if maxBodySize > 0 {
		src = io.LimitReader(r.Body, maxBodySize+1)
	}

	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}
	if maxBodySize > 0 && int64(len(raw)) > maxBodySize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxBodySize)
	}
	return raw, nil
}

// WriteResponse serializes res to w. Content-Length is derived from the body
// and HEAD responses carry headers only.
func WriteResponse(w http.ResponseWriter, method string, res *handler.Response) error {
	body := res.BodyBytes()

	header := w.Header()
	for k, v := range res.Headers() {
		header.Set(k, v)
	}
	status := res.StatusCode()
	if !bodyAllowed(status) {
		w.WriteHeader(status)
		return nil
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))

	w.WriteHeader(status)

	if method == http.MethodHead || len(body) == 0 {
		return nil
	}
	if _, err := w.Write(body); err != nil && !errors.Is(err, http.ErrBodyNotAllowed) {
		return err
	}
	return nil
}

// bodyAllowed reports whether status permits a message body.
func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
