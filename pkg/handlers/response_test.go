package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		message    string
	}{
		{"method not allowed", http.StatusMethodNotAllowed, MsgInvalidMethod},
		{"bad request", http.StatusBadRequest, MsgInvalidJSON},
		{"internal error", http.StatusInternalServerError, MsgInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			if err := ErrorResponse(w, tt.statusCode, tt.message); err != nil {
				t.Fatalf("ErrorResponse returned error: %v", err)
			}

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.statusCode {
				t.Errorf("status code = %d, want %d", resp.StatusCode, tt.statusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want %q", ct, "application/json")
			}

			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response body: %v", err)
			}
			if body["error"] != tt.message {
				t.Errorf("body[error] = %q, want %q", body["error"], tt.message)
			}
			if len(body) != 1 {
				t.Errorf("body has %d keys, want 1: %v", len(body), body)
			}
		})
	}
}

func TestStatusResponse_MirrorsStatusCode(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusBadGateway} {
		w := httptest.NewRecorder()

		if err := StatusResponse(w, code, "msg"); err != nil {
			t.Fatalf("StatusResponse returned error: %v", err)
		}
		if w.Code != code {
			t.Errorf("status code = %d, want %d", w.Code, code)
		}

		var body struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response body: %v", err)
		}
		if body.Status != code {
			t.Errorf("body.status = %d, want %d", body.Status, code)
		}
		if body.Message != "msg" {
			t.Errorf("body.message = %q, want %q", body.Message, "msg")
		}
	}
}

func TestStatusErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	if err := StatusErrorResponse(w, http.StatusBadGateway, MsgUpstreamFailed); err != nil {
		t.Fatalf("StatusErrorResponse returned error: %v", err)
	}
	if w.Code != http.StatusBadGateway {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusBadGateway)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["status"] != float64(http.StatusBadGateway) {
		t.Errorf("body[status] = %v, want %d", body["status"], http.StatusBadGateway)
	}
	if body["error"] != MsgUpstreamFailed {
		t.Errorf("body[error] = %v, want %q", body["error"], MsgUpstreamFailed)
	}
}

func TestWriteJSON_Status200(t *testing.T) {
	w := httptest.NewRecorder()

	if err := WriteJSON(w, http.StatusOK, map[string]string{"key": "value"}); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}

	resp := w.Result()
	defer resp.Body.Close()

	// Status 200 is the default for ResponseRecorder, WriteJSON should not call WriteHeader
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["key"] != "value" {
		t.Errorf("body[key] = %q, want %q", body["key"], "value")
	}
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	w := httptest.NewRecorder()

	if err := WriteJSON(w, http.StatusOK, map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatal("expected an encoding error for a channel value")
	}
}
