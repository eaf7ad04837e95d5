package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"

	"github.com/dailyyoga/offlinekit/logger"
	"go.uber.org/zap"
)

// HTTP replays mutations against the LMS REST API
type HTTP struct {
	logger    logger.Logger
	client    *http.Client
	baseURL   string
	userAgent string

	mu    sync.RWMutex
	token string
}

// NewHTTP creates a REST sender
func NewHTTP(log logger.Logger, cfg *HTTPConfig) (*HTTP, error) {
	if cfg == nil {
		cfg = DefaultHTTPConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &HTTP{
		logger:    logger.Named(log, "remote.http"),
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		token:     cfg.Token,
	}, nil
}

// SetToken replaces the bearer token, e.g. after login or refresh
func (h *HTTP) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

func (h *HTTP) url(endpoint string) string {
	return h.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// Send performs the request; any non-2xx answer is a *StatusError
func (h *HTTP) Send(ctx context.Context, req Request) error {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodPost
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return ErrRequest(method, req.Endpoint, err)
	}

	target := h.url(req.Endpoint)
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return ErrRequest(method, req.Endpoint, err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", h.userAgent)
	if req.ID != "" {
		httpReq.Header.Set("Idempotency-Key", req.ID)
	}
	h.mu.RLock()
	if h.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.token)
	}
	h.mu.RUnlock()

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return ErrRequest(method, req.Endpoint, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: method, URL: target, StatusCode: resp.StatusCode}
	}

	h.logger.Debug("mutation delivered",
		zap.String("method", method),
		zap.String("endpoint", req.Endpoint),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}

// encodeBody returns a JSON body, or a multipart body when the request
// carries attachments. In the multipart case the top-level payload fields
// become form fields.
func encodeBody(req Request) (io.Reader, string, error) {
	if len(req.Attachments) == 0 {
		if len(req.Payload) == 0 || string(req.Payload) == "null" {
			return nil, "", nil
		}
		return bytes.NewReader(req.Payload), "application/json", nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if len(req.Payload) > 0 && string(req.Payload) != "null" {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(req.Payload, &fields); err != nil {
			return nil, "", fmt.Errorf("multipart payload must be a JSON object: %w", err)
		}
		for name, raw := range fields {
			if err := mw.WriteField(name, formValue(raw)); err != nil {
				return nil, "", err
			}
		}
	}

	for _, a := range req.Attachments {
		field := a.Field
		if field == "" {
			field = "files"
		}
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, a.Filename))
		hdr.Set("Content-Type", ct)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(a.Data); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// formValue unquotes JSON strings and keeps every other value as JSON text
func formValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
