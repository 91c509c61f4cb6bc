// Package httprequest provides the outbound HTTP call step handler.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alik-grt/flowd/pkg/expr"
	"github.com/alik-grt/flowd/pkg/models"
)

// RequestTimeout is the fixed timeout applied to every outbound call.
const RequestTimeout = 30 * time.Second

// ErrMissingURL is returned when an http node has no URL configured.
var ErrMissingURL = errors.New("http node must have a URL")

// RemoteError is a handled HTTP failure: a response with status >= 400, a
// JSON body carrying an `error` field, or a network-level failure. It keeps
// the structured result so the failing call still produces an output shape
// downstream nodes could branch on.
type RemoteError struct {
	Message string
	Result  map[string]any
}

func (e *RemoteError) Error() string {
	return e.Message
}

// IsRemoteError reports whether err is a handled HTTP failure and returns
// its structured result.
func IsRemoteError(err error) (*RemoteError, bool) {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr, true
	}

	return nil, false
}

// Handler implements the http step: it interpolates `{{key}}` placeholders
// in URL, header values and body template from the node input, then issues
// the configured method with the fixed timeout.
type Handler struct {
	client *http.Client
}

// NewHandler creates an http step handler.
func NewHandler() *Handler {
	return &Handler{
		client: &http.Client{Timeout: RequestTimeout},
	}
}

// Execute performs the HTTP call. The returned map is non-nil even for a
// *RemoteError so callers can record the structured failure result.
func (h *Handler) Execute(ctx context.Context, node *models.Node, input map[string]any) (map[string]any, error) {
	if node.URL == "" {
		return nil, ErrMissingURL
	}

	url := expr.Interpolate(node.URL, input)

	method := strings.ToUpper(node.Method)
	if method == "" {
		method = http.MethodGet
	}

	headers := expr.InterpolateMap(node.Headers, input)

	var body io.Reader

	if node.BodyTemplate != "" {
		body = strings.NewReader(expr.Interpolate(node.BodyTemplate, input))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if node.BodyTemplate != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		result := map[string]any{"error": err.Error()}

		return result, &RemoteError{
			Message: fmt.Sprintf("HTTP request failed: %v", err),
			Result:  result,
		}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		result := map[string]any{"status": resp.StatusCode, "error": err.Error()}

		return result, &RemoteError{
			Message: fmt.Sprintf("failed to read response from %s: %v", url, err),
			Result:  result,
		}
	}

	result := map[string]any{
		"status":  resp.StatusCode,
		"body":    parseBody(respBody),
		"headers": flattenHeaders(resp.Header),
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return result, &RemoteError{
			Message: fmt.Sprintf("HTTP request failed with status %d", resp.StatusCode),
			Result:  result,
		}
	}

	if message, found := responseError(result["body"]); found {
		return result, &RemoteError{
			Message: "HTTP response error: " + message,
			Result:  result,
		}
	}

	return result, nil
}

// parseBody decodes a JSON response body, falling back to the raw string.
func parseBody(raw []byte) any {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		return decoded
	}

	return string(raw)
}

// responseError detects an `error` field inside a JSON object body.
func responseError(body any) (string, bool) {
	object, ok := body.(map[string]any)
	if !ok {
		return "", false
	}

	value, ok := object["error"]
	if !ok {
		return "", false
	}

	if message, ok := value.(string); ok {
		return message, true
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value), true
	}

	return string(encoded), true
}

// flattenHeaders keeps the first value of each response header.
func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for key := range header {
		flat[key] = header.Get(key)
	}

	return flat
}
