package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{RequestFailed(500, "upstream"), http.StatusBadGateway},
		{Malformed("garbage"), http.StatusBadGateway},
		{RateLimit("slow down"), http.StatusTooManyRequests},
		{ServiceUnavailable("no route to host"), http.StatusServiceUnavailable},
		{Internal("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			if tt.err.StatusCode != tt.want {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.want)
			}
		})
	}
}

func TestHasCode_Wrapped(t *testing.T) {
	inner := RequestFailed(503, "unavailable")
	err := fmt.Errorf("load dashboard: %w", inner)

	if !HasCode(err, CodeRequestFailed) {
		t.Error("HasCode() should see through fmt.Errorf wrapping")
	}
	if HasCode(err, CodeMalformed) {
		t.Error("HasCode() matched the wrong code")
	}
	if HasCode(fmt.Errorf("plain"), CodeRequestFailed) {
		t.Error("HasCode() matched a non-AppError")
	}
}

func TestWriteError_WrappedAppError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := httptest.NewRecorder()

	WriteError(w, logger, fmt.Errorf("ctx: %w", Malformed("bad record")), "req-1")

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success {
		t.Error("success should be false")
	}
	if resp.Error.Code != string(CodeMalformed) {
		t.Errorf("code = %q, want %q", resp.Error.Code, CodeMalformed)
	}
	if resp.Error.RequestID != "req-1" {
		t.Errorf("request_id = %q, want req-1", resp.Error.RequestID)
	}
}

func TestWriteError_PlainError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := httptest.NewRecorder()

	WriteError(w, logger, fmt.Errorf("unexpected"), "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
