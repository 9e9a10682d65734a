// Package cover talks to the external hard-subtitle detection service.
// The service samples frames from a video and proposes a rectangle that
// covers burned-in subtitles; the editor only stores the result, it never
// runs detection itself.
package cover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/subtitle-studio/backend/internal/timeline"
)

// Detector is the contract consumed by the API layer. Failures are
// transient and retryable; the editor state is never rolled back because
// detection failed.
type Detector interface {
	Detect(ctx context.Context, req DetectRequest) (*timeline.Region, error)
}

// DetectRequest identifies the video to sample.
type DetectRequest struct {
	VideoFile  string `json:"video_file"`
	NumSamples int    `json:"num_samples"`
	Language   string `json:"language"`
}

// Client calls the detection service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // frame sampling and OCR are slow
		},
	}
}

func (c *Client) Detect(ctx context.Context, req DetectRequest) (*timeline.Region, error) {
	if req.NumSamples <= 0 {
		req.NumSamples = 20
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/analyze"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Printf("[cover] requesting detection for %s (%d samples)", req.VideoFile, req.NumSamples)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("detection request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detection service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var region timeline.Region
	if err := json.Unmarshal(respBody, &region); err != nil {
		return nil, fmt.Errorf("decode region: %w", err)
	}
	return &region, nil
}
