package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
)

// ErrUnsupportedBody is returned by ReadParams for bodies that are neither
// JSON nor form encoded.
var ErrUnsupportedBody = errors.New("httpx: unsupported request body")

// IsJSON reports whether the request body is declared as JSON.
func IsJSON(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

// WantsJSON reports whether the client asked for a JSON response.
func WantsJSON(r *http.Request) bool {
	for _, v := range r.Header.Values("Accept") {
		mt, _, _ := mime.ParseMediaType(v)
		if mt == "application/json" {
			return true
		}
	}
	return false
}

// ReadParams reads flat string parameters from a JSON object or a
// form-encoded body. Query parameters are not included. Non-string JSON
// values are rendered with fmt.
func ReadParams(r *http.Request, maxBytes int64) (url.Values, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)

	if IsJSON(r) {
		var obj map[string]any
		if err := json.NewDecoder(r.Body).Decode(&obj); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("httpx: decode json: %w", err)
		}
		out := make(url.Values, len(obj))
		for k, v := range obj {
			switch val := v.(type) {
			case nil:
			case string:
				out.Set(k, val)
			default:
				out.Set(k, fmt.Sprint(val))
			}
		}
		return out, nil
	}

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "" && mt != "application/x-www-form-urlencoded" {
		return nil, ErrUnsupportedBody
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("httpx: parse form: %w", err)
	}
	return r.PostForm, nil
}
