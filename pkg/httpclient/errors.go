package httpclient

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/nsouzarj/craweb/pkg/errors"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 1 << 20

// ParseResponseError reads the body of a non-2xx response and classifies it.
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response) *apperrors.AppError {
	defer func() { _ = resp.Body.Close() }()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	appErr := apperrors.FromStatus(resp.StatusCode, statusText(resp), extractServerMessage(body))
	appErr.Body = string(body)
	if readErr != nil && appErr.Err == nil {
		appErr.Err = readErr
	}
	return appErr
}

// extractServerMessage pulls a human message out of an error body. It looks
// at "message", then "error", then "detail"; a nested {"error":{"message"}}
// envelope and a bare JSON or plain-text string are accepted too.
func extractServerMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var obj map[string]json.RawMessage
	if json.Unmarshal(body, &obj) == nil {
		for _, key := range []string{"message", "error", "detail"} {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				return s
			}
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(raw, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
		}
		return ""
	}

	var s string
	if json.Unmarshal(body, &s) == nil {
		return s
	}

	// Plain text bodies are shown as-is; markup error pages are not.
	if body[0] == '<' || body[0] == '{' || body[0] == '[' {
		return ""
	}
	return string(body)
}

// statusText returns the reason phrase the server sent, falling back to
// the standard text for the code.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}
