package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	accorderrors "accord/internal/errors"
)

// --- wrapRequestError ---

func TestWrapRequestError_ContextCanceled(t *testing.T) {
	err := wrapRequestError(context.Canceled)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled passthrough, got %v", err)
	}
}

func TestWrapRequestError_DeadlineExceeded(t *testing.T) {
	err := wrapRequestError(context.DeadlineExceeded)
	var terr *accorderrors.TransientError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransientError, got %T", err)
	}
}

func TestWrapRequestError_NetTimeout(t *testing.T) {
	err := wrapRequestError(&net.DNSError{IsTimeout: true})
	var terr *accorderrors.TransientError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransientError for net timeout, got %T", err)
	}
}

func TestWrapRequestError_GenericError(t *testing.T) {
	err := wrapRequestError(net.ErrClosed)
	var terr *accorderrors.TransientError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransientError for generic error, got %T", err)
	}
}

// --- mapHTTPError ---

func TestMapHTTPError_Unauthorized(t *testing.T) {
	err := mapHTTPError(401, []byte("unauthorized"), nil)
	var perr *accorderrors.PermanentError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PermanentError, got %T", err)
	}
	if perr.StatusCode != 401 {
		t.Fatalf("expected status 401, got %d", perr.StatusCode)
	}
}

func TestMapHTTPError_Forbidden(t *testing.T) {
	err := mapHTTPError(403, []byte("forbidden"), nil)
	var perr *accorderrors.PermanentError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PermanentError for 403, got %T", err)
	}
}

func TestMapHTTPError_RateLimit(t *testing.T) {
	headers := http.Header{}
	headers.Set("Retry-After", "30")
	err := mapHTTPError(429, []byte("rate limited"), headers)
	var terr *accorderrors.TransientError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransientError for 429, got %T", err)
	}
	if terr.StatusCode != 429 {
		t.Fatalf("expected status 429, got %d", terr.StatusCode)
	}
	if terr.RetryAfter != 30 {
		t.Fatalf("expected RetryAfter 30, got %d", terr.RetryAfter)
	}
}

func TestMapHTTPError_ServerErrors(t *testing.T) {
	for _, status := range []int{500, 502, 503, 504} {
		err := mapHTTPError(status, nil, nil)
		var terr *accorderrors.TransientError
		if !errors.As(err, &terr) {
			t.Fatalf("expected TransientError for %d, got %T", status, err)
		}
	}
}

func TestMapHTTPError_ClientError(t *testing.T) {
	err := mapHTTPError(400, []byte("bad request"), nil)
	var perr *accorderrors.PermanentError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PermanentError for 400, got %T", err)
	}
}

func TestMapHTTPError_UpstreamEnvelope(t *testing.T) {
	body := []byte(`{"error":{"type":"invalid_request_error","message":"model not found"}}`)
	err := mapHTTPError(404, body, nil)
	var perr *accorderrors.PermanentError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PermanentError for 404, got %T", err)
	}
	if perr.Message != "model not found" {
		t.Fatalf("expected upstream message extracted, got %q", perr.Message)
	}
}

// --- parseRetryAfter ---

func TestParseRetryAfter_IntegerSeconds(t *testing.T) {
	if got := parseRetryAfter("60"); got != 60 {
		t.Fatalf("expected 60, got %d", got)
	}
}

func TestParseRetryAfter_Empty(t *testing.T) {
	if got := parseRetryAfter(""); got != 0 {
		t.Fatalf("expected 0 for empty, got %d", got)
	}
}

func TestParseRetryAfter_NegativeSeconds(t *testing.T) {
	if got := parseRetryAfter("-5"); got != 0 {
		t.Fatalf("expected 0 for negative, got %d", got)
	}
}

func TestParseRetryAfter_InvalidString(t *testing.T) {
	if got := parseRetryAfter("not-a-number-or-date"); got != 0 {
		t.Fatalf("expected 0 for invalid, got %d", got)
	}
}

func TestParseRetryAfter_Zero(t *testing.T) {
	if got := parseRetryAfter("0"); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
