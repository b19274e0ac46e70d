package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CardFields is the vision service's best-effort read of an identity
// card. Every field is independently nullable: a field the service
// could not find comes back null, never as an error.
type CardFields struct {
	Name       *string `json:"name"`
	FatherName *string `json:"father_name"`
	SchoolName *string `json:"school_name"`
	Class      *string `json:"class"`
	Section    *string `json:"section"`
	RollNumber *string `json:"roll_number"`
	Gender     *string `json:"gender"`
}

// Client calls the vision OCR microservice.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. With skip set, Extract returns a canned guess
// so the registration flow works without the service running.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // OCR can take a while on large images
		},
	}
}

// Extract sends a card image (base64 data URL) and returns the guess.
// Only transport and auth failures are errors.
func (c *Client) Extract(ctx context.Context, imageDataURL string) (*CardFields, error) {
	if c.Skip {
		name := "Test Student"
		class := "5"
		return &CardFields{Name: &name, Class: &class}, nil
	}
	if imageDataURL == "" {
		return nil, fmt.Errorf("image required")
	}

	body, _ := json.Marshal(map[string]string{"image": imageDataURL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ocr service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out CardFields
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Health checks if the OCR service is reachable.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("ocr service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("ocr service unhealthy: %s", resp.Status)
	}
	return nil
}
