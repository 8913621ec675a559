package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"strings"
)

// BodyKind tags the variant held by a Body.
type BodyKind uint8

const (
	BodyEmpty BodyKind = iota
	BodyRaw
	BodyText
	BodyJSON
)

func (k BodyKind) String() string {
	switch k {
	case BodyEmpty:
		return "empty"
	case BodyRaw:
		return "raw"
	case BodyText:
		return "text"
	case BodyJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Body is the decoded request payload. The zero value is an empty body.
type Body struct {
	kind BodyKind
	raw  []byte
	json any
}

// EmptyBody returns a body with no content.
func EmptyBody() Body { return Body{} }

// RawBody wraps opaque bytes.
func RawBody(b []byte) Body {
	if len(b) == 0 {
		return Body{}
	}
	return Body{kind: BodyRaw, raw: b}
}

// TextBody wraps a text payload.
func TextBody(s string) Body {
	if s == "" {
		return Body{}
	}
	return Body{kind: BodyText, raw: []byte(s)}
}

// JSONBody decodes b as JSON. Invalid documents are reported as ErrMalformedBody.
func JSONBody(b []byte) (Body, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return Body{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Body{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return Body{kind: BodyJSON, raw: b, json: v}, nil
}

// ParseBody picks the body variant from the request content type.
// JSON types are decoded, text types kept as text, anything else stays raw.
func ParseBody(b []byte, contentType string) (Body, error) {
	if len(b) == 0 {
		return Body{}, nil
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		return JSONBody(b)
	case strings.HasPrefix(mt, "text/") || mt == "plain/text":
		return Body{kind: BodyText, raw: b}, nil
	default:
		return RawBody(b), nil
	}
}

// Kind returns the variant tag.
func (b Body) Kind() BodyKind { return b.kind }

// IsEmpty reports whether the body carries no content.
func (b Body) IsEmpty() bool { return b.kind == BodyEmpty }

// Bytes returns the payload as received. For empty bodies it returns nil.
func (b Body) Bytes() []byte { return b.raw }

// Text returns the payload as a string when the body is a text body.
func (b Body) Text() (string, bool) {
	if b.kind != BodyText {
		return "", false
	}
	return string(b.raw), true
}

// JSON returns the decoded JSON value. Numbers are json.Number.
func (b Body) JSON() (any, bool) {
	if b.kind != BodyJSON {
		return nil, false
	}
	return b.json, true
}

// Decode unmarshals a JSON body into v.
func (b Body) Decode(v any) error {
	if b.kind != BodyJSON {
		return ErrNotJSON
	}
	if err := json.Unmarshal(b.raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}
