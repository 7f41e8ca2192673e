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
	VisionName    = "google-vision"
	VisionBaseURL = "https://vision.googleapis.com/v1"
)

// VisionConfig holds configuration for the Google Cloud Vision detector.
type VisionConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// VisionDetector calls the Cloud Vision images:annotate TEXT_DETECTION feature.
type VisionDetector struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewVisionDetector creates a Cloud Vision detector.
func NewVisionDetector(cfg VisionConfig) *VisionDetector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = VisionBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &VisionDetector{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the detector identifier.
func (d *VisionDetector) Name() string {
	return VisionName
}

// Detect annotates image and converts word-level annotations to detections.
func (d *VisionDetector) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("%w: vision api key not set", ErrDetectionUnavailable)
	}

	body := visionRequest{Requests: []visionImageRequest{{
		Image:    visionImage{Content: base64.StdEncoding.EncodeToString(image)},
		Features: []visionFeature{{Type: "TEXT_DETECTION"}},
	}}}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/images:annotate?key="+d.apiKey, bytes.NewReader(bodyBytes))
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
		return nil, fmt.Errorf("vision error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var vr visionResponse
	if err := json.Unmarshal(respBody, &vr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(vr.Responses) == 0 {
		return []Detection{}, nil
	}
	if e := vr.Responses[0].Error; e != nil {
		return nil, fmt.Errorf("vision error %d: %s", e.Code, e.Message)
	}
	return convertVisionAnnotations(vr.Responses[0].TextAnnotations), nil
}

// convertVisionAnnotations keeps word annotations whose vertices are complete.
// The document-level annotation (the one carrying a locale) is dropped since
// it repeats every word. Vision reports no per-word confidence.
func convertVisionAnnotations(annotations []visionAnnotation) []Detection {
	out := make([]Detection, 0, len(annotations))
	for _, a := range annotations {
		if a.Locale != "" {
			continue
		}
		points := make([]geometry.Point, 0, len(a.BoundingPoly.Vertices))
		complete := true
		for _, v := range a.BoundingPoly.Vertices {
			if v.X == nil || v.Y == nil {
				complete = false
				break
			}
			points = append(points, geometry.Point{X: *v.X, Y: *v.Y})
		}
		if !complete {
			continue
		}
		out = append(out, Detection{Points: points, Content: a.Description, Confidence: 1})
	}
	return out
}

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionImage struct {
	Content string `json:"content"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionResponse struct {
	Responses []struct {
		TextAnnotations []visionAnnotation `json:"textAnnotations"`
		Error           *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	} `json:"responses"`
}

type visionAnnotation struct {
	Locale       string `json:"locale,omitempty"`
	Description  string `json:"description"`
	BoundingPoly struct {
		Vertices []struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		} `json:"vertices"`
	} `json:"boundingPoly"`
}

var _ Detector = (*VisionDetector)(nil)
