package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	accorderrors "accord/internal/errors"
	"accord/internal/httpclient"
	"accord/internal/jsonx"
)

const maxResponseBytes = 16 << 20

func readResponseBody(r io.Reader) ([]byte, error) {
	return httpclient.ReadAllWithLimit(r, maxResponseBytes)
}

// wrapRequestError classifies a transport-level failure. Context cancellation
// passes through untouched so callers can distinguish caller intent from
// upstream flakiness.
func wrapRequestError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return accorderrors.NewTransientError(err, "request timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return accorderrors.NewTransientError(err, "network timeout")
	}
	return accorderrors.NewTransientError(err, fmt.Sprintf("request failed: %v", err))
}

// upstreamError is the error envelope both providers use.
type upstreamError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseUpstreamMessage(body []byte) string {
	var payload upstreamError
	if err := jsonx.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Error.Message)
}

// mapHTTPError converts a non-2xx agent response into the retry taxonomy.
// 429 and 5xx are transient; auth and request-shape failures are permanent.
func mapHTTPError(statusCode int, body []byte, headers http.Header) error {
	message := parseUpstreamMessage(body)
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}
	baseErr := fmt.Errorf("api error %d: %s", statusCode, message)

	switch {
	case statusCode == http.StatusUnauthorized:
		return &accorderrors.PermanentError{
			Err:        baseErr,
			StatusCode: statusCode,
			Message:    "authentication failed: check the agent credential",
		}
	case statusCode == http.StatusForbidden:
		return &accorderrors.PermanentError{
			Err:        baseErr,
			StatusCode: statusCode,
			Message:    "permission denied for this model or resource",
		}
	case statusCode == http.StatusTooManyRequests:
		return &accorderrors.TransientError{
			Err:        baseErr,
			StatusCode: statusCode,
			RetryAfter: parseRetryAfter(headers.Get("Retry-After")),
			Message:    "rate limit reached, retrying with backoff",
		}
	case accorderrors.IsTransientHTTPStatus(statusCode):
		return &accorderrors.TransientError{
			Err:        baseErr,
			StatusCode: statusCode,
			RetryAfter: parseRetryAfter(headers.Get("Retry-After")),
			Message:    fmt.Sprintf("server error %d, retrying", statusCode),
		}
	case statusCode >= 400:
		return &accorderrors.PermanentError{
			Err:        baseErr,
			StatusCode: statusCode,
			Message:    message,
		}
	default:
		return &accorderrors.TransientError{Err: baseErr, StatusCode: statusCode}
	}
}

// parseRetryAfter parses a Retry-After header value (delta-seconds or HTTP
// date) into whole seconds. Invalid or non-positive values map to 0.
func parseRetryAfter(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds > 0 {
			return seconds
		}
		return 0
	}
	if at, err := http.ParseTime(value); err == nil {
		seconds := int(time.Until(at).Seconds())
		if seconds > 0 {
			return seconds
		}
	}
	return 0
}
