package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sundai-club/shop/internal/platform/requestctx"
)

func TestWriteErrorEnvelope(t *testing.T) {
	ctx := requestctx.WithTrace(context.Background(), requestctx.TraceInfo{TraceID: "trace-1"})
	rr := httptest.NewRecorder()

	WriteError(ctx, rr, NewError("missing_design_files", "contact support\nplease", http.StatusBadRequest).
		WithDetails(map[string]any{"details": []string{"Tee"}, "error": "ignored"}))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["error"] != "missing_design_files" {
		t.Fatalf("details must not override the code, got %v", payload["error"])
	}
	if payload["message"] != "contact support please" {
		t.Fatalf("expected newlines flattened, got %q", payload["message"])
	}
	if payload["trace_id"] != "trace-1" {
		t.Fatalf("expected trace id, got %v", payload["trace_id"])
	}
	if _, ok := payload["details"]; !ok {
		t.Fatal("expected details to be merged")
	}
}

func TestNewErrorDefaultsAndLimits(t *testing.T) {
	err := NewError(strings.Repeat("c", 200), "boom", 0)
	if err.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 default, got %d", err.Status)
	}
	if len(err.Code) != maxCodeLen {
		t.Fatalf("expected code truncated to %d, got %d", maxCodeLen, len(err.Code))
	}
	if err.Error() != err.Code+": boom" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}
