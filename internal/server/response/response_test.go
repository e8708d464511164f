package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/syncals/syncals/pkg/errors"
)

// TestOK tests the success envelope.
func TestOK(t *testing.T) {
	w := httptest.NewRecorder()
	OK(w, map[string]int{"added": 2})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp struct {
		Data  map[string]int `json:"data"`
		Error *Error         `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data["added"] != 2 || resp.Error != nil {
		t.Errorf("unexpected body %+v", resp)
	}
}

// TestErr tests error to status mapping.
func TestErr(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", pkgerrors.NewNotFoundError("snapshot", "cache.yaml"), http.StatusNotFound, "NOT_FOUND"},
		{"validation", pkgerrors.NewValidationError("schedule", "", "required"), http.StatusBadRequest, "BAD_REQUEST"},
		{"config", pkgerrors.NewConfigError("rules", "compile failed", nil), http.StatusBadRequest, "BAD_REQUEST"},
		{"wrapped resource", fmt.Errorf("sync: %w", pkgerrors.WrapResource("fetch", "calendar", "team", errors.New("timeout"))), http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"fetch timeout", pkgerrors.NewProviderError("calendar", "fetch", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{"overlapping sync", pkgerrors.ErrConflict, http.StatusConflict, "CONFLICT"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Err(w, tt.err)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var resp Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.code)
			}
		})
	}
}

// TestErrHidesInternal tests that unclassified errors are not echoed.
func TestErrHidesInternal(t *testing.T) {
	w := httptest.NewRecorder()
	Err(w, errors.New("secret path /etc/x"))

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Message != "Internal server error" || resp.Error.Details != "" {
		t.Errorf("internal error leaked: %+v", resp.Error)
	}
}
