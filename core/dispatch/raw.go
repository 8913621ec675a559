package dispatch

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrymomot/krustie/core/handler"
	"github.com/dmitrymomot/krustie/core/logger"
)

// HandleRaw parses a raw HTTP/1.1 request, dispatches it and returns the
// serialized response. Input that cannot be parsed produces a 400 response.
func (d *Dispatcher) HandleRaw(raw []byte) []byte {
	r, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(raw)))

	var res *handler.Response
	method := ""
	if err != nil {
		res = d.reject(handler.NewRequest("", "/"), fmt.Errorf("%w: %w", ErrMalformedRequest, err))
	} else {
		method = r.Method
		req, perr := FromHTTP(r, d.maxBodySize)
		if perr != nil {
			res = d.reject(req, perr)
		} else {
			res = d.Dispatch(req)
		}
	}

	out, werr := Serialize(method, res)
	if werr != nil {
		d.logger.Error("failed to serialize response",
			logger.Component("dispatch"),
			logger.Error(werr),
		)
	}
	return out
}

// Serialize renders res in HTTP/1.1 wire format. HEAD responses keep their
// Content-Length but omit the body.
func Serialize(method string, res *handler.Response) ([]byte, error) {
	hr := &http.Response{
		StatusCode: res.StatusCode(),
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header, len(res.Headers())),
	}
	for k, v := range res.Headers() {
		hr.Header.Set(k, v)
	}

	body := res.BodyBytes()
	if bodyAllowed(hr.StatusCode) {
		hr.ContentLength = int64(len(body))
		if method == http.MethodHead {
			// net/http writes the length but skips the body
			hr.Request = &http.Request{Method: http.MethodHead}
		} else if len(body) > 0 {
			hr.Body = io.NopCloser(bytes.NewReader(body))
		}
	}

	var buf bytes.Buffer
	if err := hr.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
