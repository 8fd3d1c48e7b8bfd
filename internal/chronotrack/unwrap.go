// Package chronotrack talks to the results-timing endpoints behind the
// races the discovery scan confirms. The endpoints predate JSON APIs being
// a norm: bodies arrive wrapped in a one-character jsonp-style shell that
// has to be stripped before parsing.
package chronotrack

import (
	"bytes"
	"errors"
)

// ErrNotWrappedJSON is returned when a response has no JSON object inside
var ErrNotWrappedJSON = errors.New("chronotrack: no JSON object in response")

// Unwrap strips the wrapper characters around a load-model or results-grid
// body and returns the inner JSON object.
func Unwrap(raw []byte) ([]byte, error) {
	start := bytes.IndexByte(raw, '{')
	end := bytes.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return nil, ErrNotWrappedJSON
	}
	return raw[start : end+1], nil
}
