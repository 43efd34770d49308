// Package faceclient calls the face recognition microservice that turns a
// captured image into a descriptor.
package faceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"campusvote/internal/face"
)

// ErrDisabled is returned by Describe when the client runs with Skip set.
var ErrDisabled = errors.New("face service disabled")

// Client calls the face recognition microservice.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with configurable timeout.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type describeResponse struct {
	Descriptor    []float64 `json:"descriptor"`
	Embedding     []float64 `json:"embedding"`
	FacesDetected int       `json:"faces_detected"`
}

// Describe asks the service for the descriptor of the single face in imageURL.
func (c *Client) Describe(ctx context.Context, imageURL string) (face.Descriptor, error) {
	if c.Skip {
		return nil, ErrDisabled
	}
	if imageURL == "" {
		return nil, fmt.Errorf("image url required")
	}

	body, _ := json.Marshal(map[string]string{"image_url": imageURL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/describe", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out describeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	d := face.Descriptor(out.Descriptor)
	if len(d) == 0 {
		d = face.Descriptor(out.Embedding)
	}
	if out.FacesDetected > 1 {
		return nil, fmt.Errorf("expected one face, found %d", out.FacesDetected)
	}
	if !d.Valid() {
		return nil, fmt.Errorf("no face detected in image")
	}
	return d, nil
}

// Health checks if the face service is available.
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
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}
	return nil
}
