// Package speech talks to the external speech-synthesis service, which
// turns subtitle cues into generated audio clips. The editor appends the
// returned clips to its audio tracks; synthesis itself is out of scope.
package speech

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

// Synthesizer is the contract consumed by the API layer.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesizeRequest) ([]timeline.AudioClip, error)
}

// SynthesizeRequest carries the cues to voice and the voice to use.
type SynthesizeRequest struct {
	Cues  []timeline.Cue `json:"cues"`
	Voice string         `json:"voice"`
	Track int            `json:"track"`
}

type synthesizeResponse struct {
	Clips []generatedClip `json:"clips"`
}

type generatedClip struct {
	ID        string  `json:"id"`
	Filename  string  `json:"filename"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
	Track     int     `json:"track"`
}

// Client calls the synthesis service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Minute, // batch synthesis can be long
		},
	}
}

func (c *Client) Synthesize(ctx context.Context, req SynthesizeRequest) ([]timeline.AudioClip, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/synthesize"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Printf("[speech] synthesizing %d cues (voice=%s)", len(req.Cues), req.Voice)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var decoded synthesizeResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	clips := make([]timeline.AudioClip, 0, len(decoded.Clips))
	for _, g := range decoded.Clips {
		clips = append(clips, timeline.AudioClip{
			ID:        g.ID,
			Name:      g.Filename,
			StartTime: g.StartTime,
			Duration:  g.Duration,
			Track:     g.Track,
		})
	}
	return clips, nil
}
