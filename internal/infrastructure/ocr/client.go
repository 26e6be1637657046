// Package ocr talks to the external text-recognition provider. The provider
// is a black box: an image goes in, best-effort text comes out.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/resilience"
)

// ErrUnavailable is returned when the provider cannot be reached or answers with a server error.
var ErrUnavailable = errors.New("text recognition unavailable")

// DefaultTimeout bounds one recognition call.
const DefaultTimeout = 15 * time.Second

// maxImageBytes caps uploads forwarded to the provider.
const maxImageBytes = 10 << 20

// Recognizer extracts text from an image. An empty string means no text was found.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, contentType string) (string, error)
}

// recognizeResponse is the provider reply body.
type recognizeResponse struct {
	Text string `json:"text"`
}

// Client posts images to the provider's recognize endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
}

// NewClient creates a provider client for endpoint.
func NewClient(endpoint string, timeout time.Duration, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger = logger.WithComponent("ocr-client")

	cbConfig := resilience.DefaultCircuitBreakerConfig("ocr")
	cbConfig.IsFailure = func(err error) bool { return errors.Is(err, ErrUnavailable) }

	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    resilience.NewCircuitBreaker(cbConfig, logger.Logger),
		logger:     logger,
	}
}

// Recognize sends the image and returns the recognized text. 204 and 404
// replies, and replies with blank text, mean no result.
func (c *Client) Recognize(ctx context.Context, image []byte, contentType string) (string, error) {
	if len(image) == 0 {
		return "", nil
	}
	if len(image) > maxImageBytes {
		return "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	if contentType == "" {
		contentType = http.DetectContentType(image)
	}

	var text string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		text, err = c.recognize(ctx, image, contentType)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		c.logger.WithError(err).Warn("Text recognition failed", "bytes", len(image))
		return "", err
	}
	return text, nil
}

func (c *Client) recognize(ctx context.Context, image []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
		return "", nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", fmt.Errorf("%w: provider returned status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("provider rejected image: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode recognition response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

// Disabled is used when no provider is configured. Every image yields no result.
type Disabled struct{}

func (Disabled) Recognize(context.Context, []byte, string) (string, error) { return "", nil }

var (
	_ Recognizer = (*Client)(nil)
	_ Recognizer = Disabled{}
)
