package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestHTTP(t *testing.T, handler http.HandlerFunc) *HTTP {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	h, err := NewHTTP(zap.NewNop(), &HTTPConfig{BaseURL: server.URL + "/api/", Token: "tok", Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewHTTP failed: %v", err)
	}
	return h
}

func TestHTTP_SendJSON(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotType, gotKey string
	var gotBody map[string]any

	h := newTestHTTP(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotAuth, gotType = r.Header.Get("Authorization"), r.Header.Get("Content-Type")
		gotKey = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	})

	err := h.Send(context.Background(), Request{
		ID:       "op-1",
		Endpoint: "/lessons/l1/progress",
		Method:   "put",
		Payload:  json.RawMessage(`{"progress":80}`),
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotKey != "op-1" {
		t.Errorf("idempotency key = %q", gotKey)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("method = %q, want PUT", gotMethod)
	}
	if gotPath != "/api/lessons/l1/progress" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("content type = %q", gotType)
	}
	if gotBody["progress"] != float64(80) {
		t.Errorf("body = %v", gotBody)
	}
}

func TestHTTP_SendMultipart(t *testing.T) {
	var gotText, gotFile, gotFilename string

	h := newTestHTTP(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gotText = r.FormValue("submissionText")
		f, hdr, err := r.FormFile("files")
		if err == nil {
			data, _ := io.ReadAll(f)
			gotFile, gotFilename = string(data), hdr.Filename
		}
		w.WriteHeader(http.StatusCreated)
	})

	err := h.Send(context.Background(), Request{
		Endpoint:    "/assignment-submissions",
		Method:      http.MethodPost,
		Payload:     json.RawMessage(`{"assignmentId":"a1","submissionText":"my essay"}`),
		Attachments: []Attachment{{Filename: "essay.txt", ContentType: "text/plain", Data: []byte("hello")}},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotText != "my essay" {
		t.Errorf("submissionText = %q", gotText)
	}
	if gotFile != "hello" || gotFilename != "essay.txt" {
		t.Errorf("file = %q (%q)", gotFile, gotFilename)
	}
}

func TestHTTP_SendStatusError(t *testing.T) {
	h := newTestHTTP(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := h.Send(context.Background(), Request{Endpoint: "/x", Method: "POST"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d", se.StatusCode)
	}
}

func TestHTTP_SetToken(t *testing.T) {
	var gotAuth string
	h := newTestHTTP(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	})
	h.SetToken("")
	if err := h.Send(context.Background(), Request{Endpoint: "/x", Method: "DELETE"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("expected no authorization header, got %q", gotAuth)
	}
}

func TestHTTPConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *HTTPConfig
		wantErr bool
	}{
		{"valid", &HTTPConfig{BaseURL: "https://api.example.com", Timeout: time.Second}, false},
		{"relative url", &HTTPConfig{BaseURL: "/api", Timeout: time.Second}, true},
		{"bad scheme", &HTTPConfig{BaseURL: "ftp://x", Timeout: time.Second}, true},
		{"zero timeout", &HTTPConfig{BaseURL: "http://x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSenderFunc(t *testing.T) {
	var got Request
	s := SenderFunc(func(_ context.Context, req Request) error {
		got = req
		return nil
	})
	_ = s.Send(context.Background(), Request{Endpoint: "/e"})
	if got.Endpoint != "/e" {
		t.Errorf("SenderFunc did not forward the request")
	}
}
