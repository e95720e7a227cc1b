package fal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"pixgen/internal/catalog"
	"pixgen/internal/imagegen"
	"pixgen/internal/storage"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

// queueStub simulates the fal queue API: submit, a scripted sequence of
// status responses, one result payload, and a download endpoint.
type queueStub struct {
	router *chi.Mux

	statuses   []string
	statusIdx  atomic.Int64
	statusHits atomic.Int64
	submitCode int
	submitBody map[string]any
	result     map[string]any
	imageData  []byte

	server *httptest.Server
}

func newQueueStub(t *testing.T) *queueStub {
	t.Helper()
	s := &queueStub{
		router:     chi.NewRouter(),
		submitCode: http.StatusOK,
		imageData:  []byte("fake-image-bytes"),
	}
	s.server = httptest.NewServer(s.router)
	t.Cleanup(s.server.Close)

	s.router.Post("/*", func(w http.ResponseWriter, r *http.Request) {
		body := s.submitBody
		if body == nil {
			body = map[string]any{
				"request_id":   "req-1",
				"status_url":   s.server.URL + "/requests/req-1/status",
				"response_url": s.server.URL + "/requests/req-1",
			}
		}
		w.WriteHeader(s.submitCode)
		_ = json.NewEncoder(w).Encode(body)
	})
	s.router.Get("/requests/req-1/status", func(w http.ResponseWriter, r *http.Request) {
		s.statusHits.Add(1)
		idx := int(s.statusIdx.Add(1)) - 1
		status := "IN_PROGRESS"
		if idx < len(s.statuses) {
			status = s.statuses[idx]
		} else if len(s.statuses) > 0 {
			status = s.statuses[len(s.statuses)-1]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": status})
	})
	s.router.Get("/requests/req-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(s.result)
	})
	s.router.Get("/files/out.webp", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(s.imageData)
	})
	return s
}

func (s *queueStub) imageURL() string {
	return s.server.URL + "/files/out.webp"
}

func newTestClient(t *testing.T, stub *queueStub) (*Client, *storage.FileStore) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	opts := Options{
		APIKey:          "test-key",
		Store:           store,
		MaxPollAttempts: 5,
		PollInterval:    time.Millisecond,
		Now:             func() time.Time { return testNow },
	}
	if stub != nil {
		opts.QueueBaseURL = stub.server.URL
		opts.RestBaseURL = stub.server.URL
	}
	return NewClient(opts), store
}

func meta() imagegen.ArtifactMeta {
	return imagegen.ArtifactMeta{Hint: "cyberpunk city", Mode: catalog.ModeGen, Tier: "default"}
}

func TestRunWithoutCredentials(t *testing.T) {
	store, _ := storage.NewFileStore(t.TempDir())
	client := NewClient(Options{Store: store})

	res := client.Run(context.Background(), "fal-ai/flux-2/turbo", imagegen.JobInput{Prompt: "p"}, meta())
	if res.Success || res.Code != imagegen.CodeAuthMissing {
		t.Fatalf("unexpected result: %#v", res)
	}
	if res.Error != "Missing FAL_API_KEY in .env" {
		t.Fatalf("message = %q", res.Error)
	}
}

func TestRunHappyPath(t *testing.T) {
	stub := newQueueStub(t)
	stub.statuses = []string{"IN_QUEUE", "IN_PROGRESS", "COMPLETED"}
	stub.result = map[string]any{
		"images": []map[string]any{{"url": stub.imageURL(), "width": 1024, "height": 1024}},
	}
	client, _ := newTestClient(t, stub)

	res := client.Run(context.Background(), "fal-ai/flux-2/turbo", imagegen.JobInput{Prompt: "cyberpunk city"}, meta())
	if !res.Success {
		t.Fatalf("run failed: %#v", res)
	}
	if filepath.Base(res.FilePath) != "20260828120000_gen_default_cyberpunk_city.webp" {
		t.Fatalf("artifact name = %q", filepath.Base(res.FilePath))
	}
	data, err := os.ReadFile(res.FilePath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "fake-image-bytes" {
		t.Fatalf("artifact bytes = %q", data)
	}
	if got := stub.statusHits.Load(); got != 3 {
		t.Fatalf("status polls = %d, want 3", got)
	}
}

func TestRunMissingRequestIDFailsWithoutPolling(t *testing.T) {
	stub := newQueueStub(t)
	stub.submitBody = map[string]any{"status_url": "x", "response_url": "y"}
	client, _ := newTestClient(t, stub)

	res := client.Run(context.Background(), "fal-ai/flux-2/turbo", imagegen.JobInput{Prompt: "p"}, meta())
	if res.Success || res.Code != imagegen.CodeProviderError {
		t.Fatalf("unexpected result: %#v", res)
	}
	if stub.statusHits.Load() != 0 {
		t.Fatalf("client must not poll after a malformed submit response")
	}
}

func TestRunSubmitRejectionIsClassified(t *testing.T) {
	stub := newQueueStub(t)
	stub.submitCode = http.StatusPaymentRequired
	client, _ := newTestClient(t, stub)

	res := client.Run(context.Background(), "fal-ai/flux-2/turbo", imagegen.JobInput{Prompt: "p"}, meta())
	if res.Code != imagegen.CodeCreditsExhausted {
		t.Fatalf("code = %q, want CREDITS_EXHAUSTED", res.Code)
	}
}

func TestRunTimesOutAtAttemptCeiling(t *testing.T) {
	stub := newQueueStub(t)
	stub.statuses = []string{"IN_PROGRESS"}
	client, _ := newTestClient(t, stub)

	res := client.Run(context.Background(), "fal-ai/flux-2/turbo", imagegen.JobInput{Prompt: "p"}, meta())
	if res.Code != imagegen.CodeJobTimeout {
		t.Fatalf("code = %q, want JOB_TIMEOUT", res.Code)
	}
	if got := stub.statusHits.Load(); got != 5 {
		t.Fatalf("status polls = %d, want exactly the ceiling (5)", got)
	}
}

func TestRunUnknownStatusFailsJob(t *testing.T) {
	stub := newQueueStub(t)
	stub.statuses = []string{"CANCELLED"}
	client, _ := newTestClient(t, stub)

	res := client.Run(context.Background(), "fal-ai/flux-2/turbo", imagegen.JobInput{Prompt: "p"}, meta())
	if res.Code != imagegen.CodeProviderError {
		t.Fatalf("code = %q", res.Code)
	}
	if res.Error != "Job failed: CANCELLED" {
		t.Fatalf("message = %q", res.Error)
	}
	if stub.statusHits.Load() != 1 {
		t.Fatalf("terminal status must stop polling immediately")
	}
}

func TestRunCompletedWithoutImageIsNoImage(t *testing.T) {
	stub := newQueueStub(t)
	stub.statuses = []string{"COMPLETED"}
	stub.result = map[string]any{"seed": 42}
	client, _ := newTestClient(t, stub)

	res := client.Run(context.Background(), "fal-ai/flux-2/turbo", imagegen.JobInput{Prompt: "p"}, meta())
	if res.Code != imagegen.CodeNoImage {
		t.Fatalf("code = %q, want NO_IMAGE", res.Code)
	}
	if res.Error != "No image URL in Fal.ai response" {
		t.Fatalf("message = %q", res.Error)
	}
}

func TestRunPrefersImagesArrayOverImageObject(t *testing.T) {
	stub := newQueueStub(t)
	stub.statuses = []string{"COMPLETED"}
	stub.result = map[string]any{
		"images": []map[string]any{{"url": stub.imageURL()}},
		"image":  map[string]any{"url": stub.server.URL + "/files/ignored.webp"},
	}
	client, _ := newTestClient(t, stub)

	res := client.Run(context.Background(), "fal-ai/flux-2/turbo", imagegen.JobInput{Prompt: "p"}, meta())
	if !res.Success {
		t.Fatalf("run failed: %#v", res)
	}
}

func TestRunSingularImageObject(t *testing.T) {
	stub := newQueueStub(t)
	stub.statuses = []string{"COMPLETED"}
	stub.result = map[string]any{"image": map[string]any{"url": stub.imageURL()}}
	client, _ := newTestClient(t, stub)

	res := client.Run(context.Background(), "fal-ai/imageutils/rembg", imagegen.JobInput{ImageURL: "https://x/in.png"}, meta())
	if !res.Success {
		t.Fatalf("run failed: %#v", res)
	}
}

func TestRunDownloadFailureIsTerminal(t *testing.T) {
	stub := newQueueStub(t)
	stub.statuses = []string{"COMPLETED"}
	stub.result = map[string]any{
		"images": []map[string]any{{"url": stub.server.URL + "/files/missing.webp"}},
	}
	client, _ := newTestClient(t, stub)

	res := client.Run(context.Background(), "fal-ai/flux-2/turbo", imagegen.JobInput{Prompt: "p"}, meta())
	if res.Success || res.Code != imagegen.CodeProviderError {
		t.Fatalf("unexpected result: %#v", res)
	}
}

func TestEncodeInputShapes(t *testing.T) {
	size := imagegen.Size{Width: 512, Height: 768}
	payload := encodeInput(imagegen.JobInput{
		Prompt:    "p",
		ImageURLs: []string{"a", "b"},
		MaskURL:   "m",
		ImageSize: &size,
	})
	if payload["prompt"] != "p" || payload["mask_url"] != "m" {
		t.Fatalf("payload = %#v", payload)
	}
	if _, ok := payload["image_url"]; ok {
		t.Fatalf("empty image_url must be omitted")
	}
	if _, ok := payload["scale"]; ok {
		t.Fatalf("zero scale must be omitted")
	}

	payload = encodeInput(imagegen.JobInput{ImageURL: "u", Scale: 4})
	if payload["image_url"] != "u" || payload["scale"] != 4 {
		t.Fatalf("payload = %#v", payload)
	}
	if _, ok := payload["image_size"]; ok {
		t.Fatalf("nil size must be omitted")
	}
}
