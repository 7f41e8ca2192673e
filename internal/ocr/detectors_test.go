package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestVisionDetector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/images:annotate") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key")
		}
		var req visionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Requests) != 1 || req.Requests[0].Features[0].Type != "TEXT_DETECTION" {
			t.Errorf("unexpected request: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"responses":[{"textAnnotations":[
			{"locale":"en","description":"Hello World","boundingPoly":{"vertices":[{"x":0,"y":0},{"x":30,"y":0},{"x":30,"y":11},{"x":0,"y":11}]}},
			{"description":"Hello","boundingPoly":{"vertices":[{"x":0,"y":0},{"x":10,"y":0},{"x":10,"y":10},{"x":0,"y":10}]}},
			{"description":"World","boundingPoly":{"vertices":[{"x":12,"y":1},{"x":30,"y":1},{"x":30,"y":11},{"x":12,"y":11}]}},
			{"description":"edge","boundingPoly":{"vertices":[{"y":5},{"x":3,"y":5}]}}
		]}]}`))
	}))
	defer server.Close()

	d := NewVisionDetector(VisionConfig{APIKey: "test-key", BaseURL: server.URL})
	got, err := d.Detect(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d detections, want 2: %+v", len(got), got)
	}
	if got[0].Content != "Hello" || got[1].Content != "World" {
		t.Errorf("contents = %q, %q", got[0].Content, got[1].Content)
	}
	if got[0].Confidence != 1 {
		t.Errorf("Confidence = %v, want 1", got[0].Confidence)
	}

	words := NewPipeline(PipelineConfig{}).Normalize(got)
	if !reflect.DeepEqual(words, []string{"Hello", "World"}) {
		t.Errorf("Normalize = %q", words)
	}
}

func TestVisionDetectorWithoutKey(t *testing.T) {
	d := NewVisionDetector(VisionConfig{})
	_, err := d.Detect(context.Background(), nil)
	if !errors.Is(err, ErrDetectionUnavailable) {
		t.Errorf("err = %v, want ErrDetectionUnavailable", err)
	}
}

func TestPaddleDetector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PaddleDefaultPath {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req paddleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Images) != 1 {
			t.Errorf("bad request: %v %+v", err, req)
		}
		w.Write([]byte(`{"msg":"","status":"000","results":[[
			{"text":"Submit","confidence":0.97,"text_region":[[10,10],[60,10],[60,24],[10,24]]},
			{"text":"blur","confidence":0.41,"text_region":[[10,80],[40,80],[40,90],[10,90]]}
		]]}`))
	}))
	defer server.Close()

	d := NewPaddleDetector(PaddleConfig{Endpoint: server.URL})
	got, err := d.Detect(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d detections, want 2", len(got))
	}
	if got[1].Confidence != 0.41 {
		t.Errorf("Confidence = %v, want 0.41", got[1].Confidence)
	}

	words := NewPipeline(PipelineConfig{}).Normalize(got)
	if !reflect.DeepEqual(words, []string{"Submit"}) {
		t.Errorf("Normalize = %q, want [Submit]", words)
	}
}

func TestPaddleDetectorErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		_, err := NewPaddleDetector(PaddleConfig{}).Detect(context.Background(), nil)
		if !errors.Is(err, ErrDetectionUnavailable) {
			t.Errorf("err = %v, want ErrDetectionUnavailable", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		}))
		defer server.Close()

		_, err := NewPaddleDetector(PaddleConfig{Endpoint: server.URL}).Detect(context.Background(), nil)
		if err == nil || !strings.Contains(err.Error(), "500") {
			t.Errorf("err = %v, want status 500 error", err)
		}
	})

	t.Run("status code in body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"msg":"bad image","status":"101","results":[]}`))
		}))
		defer server.Close()

		_, err := NewPaddleDetector(PaddleConfig{Endpoint: server.URL}).Detect(context.Background(), nil)
		if err == nil || !strings.Contains(err.Error(), "bad image") {
			t.Errorf("err = %v", err)
		}
	})
}
