package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/shandysiswandi/mailrelay/internal/pkg/goerror"
)

// MaxBodyBytes caps the size of JSON request bodies.
const MaxBodyBytes = 64 * 1024

// Request wraps http.Request with helpers for inbound handlers.
type Request struct {
	// Request is the underlying http.Request.
	*http.Request
}

// GetQuery returns the trimmed query value for key.
func (r *Request) GetQuery(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// DecodeBody decodes a single JSON object from the body into dst.
// Malformed JSON, trailing data and oversized bodies are rejected as INVALID_FORMAT.
// Unknown fields are ignored, and a value of the wrong JSON type leaves its
// field zero so validation reports it.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))

	var typeErr *json.UnmarshalTypeError
	if err := dec.Decode(dst); err != nil && !errors.As(err, &typeErr) {
		return goerror.NewInvalidFormat()
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}

	return nil
}
