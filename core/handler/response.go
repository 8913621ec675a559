package handler

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/textproto"
)

const defaultContentType = "text/plain; charset=utf-8"

// Response is the mutable response builder shared by every entry of a pipeline.
// Setters return the receiver so calls can be chained.
type Response struct {
	status  int
	headers map[string]string
	body    []byte
	locals  map[string]any
}

// NewResponse returns a response with status 200 and no body.
func NewResponse() *Response {
	return &Response{
		status:  http.StatusOK,
		headers: map[string]string{},
	}
}

// Status sets the status code.
func (r *Response) Status(code int) *Response {
	r.status = code
	return r
}

// StatusCode returns the current status code.
func (r *Response) StatusCode() int { return r.status }

// IsError reports whether the status is in the 4xx or 5xx range.
func (r *Response) IsError() bool { return r.status >= 400 && r.status < 600 }

// SetHeader sets key to value, replacing any value previously set for the same
// key regardless of its case.
func (r *Response) SetHeader(key, value string) *Response {
	r.headers[textproto.CanonicalMIMEHeaderKey(key)] = value
	return r
}

// SetHeaders merges headers into the response.
func (r *Response) SetHeaders(headers map[string]string) *Response {
	for k, v := range headers {
		r.SetHeader(k, v)
	}
	return r
}

// RemoveHeader deletes key.
func (r *Response) RemoveHeader(key string) *Response {
	delete(r.headers, textproto.CanonicalMIMEHeaderKey(key))
	return r
}

// Header returns the value set for key.
func (r *Response) Header(key string) string {
	return r.headers[textproto.CanonicalMIMEHeaderKey(key)]
}

// LookupHeader is like Header but reports whether key was set.
func (r *Response) LookupHeader(key string) (string, bool) {
	v, ok := r.headers[textproto.CanonicalMIMEHeaderKey(key)]
	return v, ok
}

// Headers returns a copy of the headers keyed by canonical name.
func (r *Response) Headers() map[string]string {
	return maps.Clone(r.headers)
}

// Body replaces the body and its content type. An empty content type
// falls back to text/plain.
func (r *Response) Body(b []byte, contentType string) *Response {
	if contentType == "" {
		contentType = defaultContentType
	}
	r.body = b
	r.headers["Content-Type"] = contentType
	return r
}

// Text sets a plain text body.
func (r *Response) Text(s string) *Response {
	return r.Body([]byte(s), defaultContentType)
}

// HTML sets an HTML body.
func (r *Response) HTML(s string) *Response {
	return r.Body([]byte(s), "text/html; charset=utf-8")
}

// JSON encodes v as the body. A value that cannot be encoded is a programming
// error and panics, which the dispatcher turns into a 500 response.
func (r *Response) JSON(v any) *Response {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("%w: %v", ErrEncodeResponse, err))
	}
	return r.Body(b, "application/json")
}

// BodyBytes returns the current body.
func (r *Response) BodyBytes() []byte { return r.body }

// ContentType returns the content type of the body.
func (r *Response) ContentType() string { return r.headers["Content-Type"] }

// UpdateBody swaps the bytes of an existing body, keeping its content type.
// Transforming middleware uses it after the terminal handler has run.
func (r *Response) UpdateBody(b []byte) error {
	if len(r.body) == 0 {
		return ErrEmptyBody
	}
	r.body = b
	return nil
}

// SetLocal stores a per-request value visible to later pipeline entries.
func (r *Response) SetLocal(key string, value any) {
	if r.locals == nil {
		r.locals = make(map[string]any)
	}
	r.locals[key] = value
}

// Local returns a value stored with SetLocal.
func (r *Response) Local(key string) (any, bool) {
	v, ok := r.locals[key]
	return v, ok
}

// Reset restores the response to its initial state. Locals are kept.
func (r *Response) Reset() *Response {
	r.status = http.StatusOK
	r.headers = map[string]string{}
	r.body = nil
	return r
}
