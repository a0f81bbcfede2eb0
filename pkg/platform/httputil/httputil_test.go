package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "watchdesk/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("duplicate case maps to conflict with description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeDuplicateCase, "case already exists"))

		if w.Code != http.StatusConflict {
			t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "duplicate_case" {
			t.Fatalf("expected error code duplicate_case, got %q", body["error"])
		}
		if body["error_description"] != "case already exists" {
			t.Fatalf("expected error_description to be returned")
		}
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, io.ErrUnexpectedEOF)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeValidation:     http.StatusBadRequest,
		dErrors.CodeInvalidStatus:  http.StatusBadRequest,
		dErrors.CodeUnknownOfficer: http.StatusBadRequest,
		dErrors.CodeUnauthorized:   http.StatusUnauthorized,
		dErrors.CodeForbidden:      http.StatusForbidden,
		dErrors.CodeNotFound:       http.StatusNotFound,
		dErrors.CodeDuplicateCase:  http.StatusConflict,
		dErrors.CodeTimeout:        http.StatusGatewayTimeout,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFor(code), string(code))
	}
}

type noteRequest struct {
	Notes string `json:"notes"`
}

func (r *noteRequest) Validate() error {
	r.Notes = strings.TrimSpace(r.Notes)
	if r.Notes == "" {
		return dErrors.New(dErrors.CodeValidation, "notes is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("decodes and validates", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"notes":"  checked  "}`))
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[noteRequest](w, r, logger, context.Background(), "req-1")
		require.True(t, ok)
		assert.Equal(t, "checked", req.Notes)
	})

	t.Run("malformed body is bad request", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{`))
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[noteRequest](w, r, logger, context.Background(), "req-2")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "bad_request")
	})

	t.Run("validation error is surfaced", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"notes":" "}`))
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[noteRequest](w, r, logger, context.Background(), "req-3")
		require.False(t, ok)
		assert.Contains(t, w.Body.String(), "validation_error")
	})
}
