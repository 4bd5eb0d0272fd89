package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Detail     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	msg := strings.TrimSpace(e.Detail)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" {
		msg = "http error"
	}
	return fmt.Sprintf("http error: status=%d detail=%s", e.StatusCode, msg)
}

// IsUnknownModule reports whether the server rejected the module name.
func (e *HTTPError) IsUnknownModule() bool {
	return e != nil && strings.HasPrefix(e.Detail, "Unknown module type:")
}

func parseHTTPError(status int, raw []byte) error {
	body := strings.TrimSpace(string(raw))

	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	detail := ""
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Detail) > 0 {
		var s string
		if json.Unmarshal(env.Detail, &s) == nil {
			detail = s
		} else {
			detail = string(env.Detail)
		}
	}
	return &HTTPError{StatusCode: status, Detail: detail, Body: body}
}
