package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jackzampolin/reportcheck/internal/geometry"
)

const (
	PaddleName        = "paddle"
	PaddleDefaultPath = "/predict/ocr_system"
)

// PaddleConfig points at a PaddleOCR hub-serving instance.
type PaddleConfig struct {
	Endpoint string // e.g. http://localhost:8868
	Path     string
	Timeout  time.Duration
}

// PaddleDetector calls a PaddleOCR serving endpoint.
type PaddleDetector struct {
	url    string
	client *http.Client
}

// NewPaddleDetector creates a PaddleOCR serving detector.
func NewPaddleDetector(cfg PaddleConfig) *PaddleDetector {
	if cfg.Path == "" {
		cfg.Path = PaddleDefaultPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	url := ""
	if cfg.Endpoint != "" {
		url = cfg.Endpoint + cfg.Path
	}
	return &PaddleDetector{
		url:    url,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the detector identifier.
func (d *PaddleDetector) Name() string {
	return PaddleName
}

// Detect posts image to the serving endpoint.
func (d *PaddleDetector) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	if d.url == "" {
		return nil, fmt.Errorf("%w: paddle endpoint not configured", ErrDetectionUnavailable)
	}

	bodyBytes, err := json.Marshal(paddleRequest{Images: []string{base64.StdEncoding.EncodeToString(image)}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetectionUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paddle error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var pr paddleResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if pr.Status != "" && pr.Status != "000" {
		return nil, fmt.Errorf("paddle error %s: %s", pr.Status, pr.Msg)
	}
	if len(pr.Results) == 0 {
		return []Detection{}, nil
	}

	out := make([]Detection, 0, len(pr.Results[0]))
	for _, line := range pr.Results[0] {
		points := make([]geometry.Point, 0, len(line.TextRegion))
		for _, p := range line.TextRegion {
			if len(p) < 2 {
				continue
			}
			points = append(points, geometry.Point{X: p[0], Y: p[1]})
		}
		out = append(out, Detection{Points: points, Content: line.Text, Confidence: line.Confidence})
	}
	return out, nil
}

type paddleRequest struct {
	Images []string `json:"images"`
}

type paddleResponse struct {
	Msg     string `json:"msg"`
	Status  string `json:"status"`
	Results [][]struct {
		Text       string      `json:"text"`
		Confidence float64     `json:"confidence"`
		TextRegion [][]float64 `json:"text_region"`
	} `json:"results"`
}

var _ Detector = (*PaddleDetector)(nil)
