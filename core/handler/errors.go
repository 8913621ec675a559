package handler

import "errors"

var (
	ErrInvalidMethod  = errors.New("invalid http method")
	ErrMalformedBody  = errors.New("malformed request body")
	ErrNotJSON        = errors.New("request body is not json")
	ErrEmptyBody      = errors.New("response has no body")
	ErrEncodeResponse = errors.New("failed to encode response body")
)
