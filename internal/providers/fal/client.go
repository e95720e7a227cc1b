// Package fal implements the queue-based provider: submit a job, poll its
// status endpoint until completion, fetch the result, and persist the first
// image it references. It also implements the upload half of the transfer
// service, since fal hosts the inputs for its own models.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pixgen/internal/imagegen"
	"pixgen/internal/infra"
	"pixgen/internal/storage"
)

const (
	defaultQueueBaseURL = "https://queue.fal.run"
	defaultRestBaseURL  = "https://rest.alpha.fal.ai"

	defaultMaxPollAttempts = 120
	defaultPollInterval    = time.Second
)

// Options configures the fal client.
type Options struct {
	APIKey       string
	QueueBaseURL string
	RestBaseURL  string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	Store        *storage.FileStore

	// Poll knobs exist so tests can shrink the two-minute ceiling; zero
	// values select the production defaults.
	MaxPollAttempts int
	PollInterval    time.Duration

	// Now supplies artifact timestamps; defaults to time.Now.
	Now func() time.Time
}

// Client performs HTTP calls against the fal queue and storage APIs. One
// Run call owns exactly one submit/poll/fetch cycle; the only state shared
// across calls is the upload URL cache.
type Client struct {
	apiKey          string
	queueBaseURL    string
	restBaseURL     string
	httpClient      *http.Client
	logger          *infra.Logger
	store           *storage.FileStore
	maxPollAttempts int
	pollInterval    time.Duration
	now             func() time.Time

	mu       sync.Mutex
	uploaded map[string]string
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	queueBase := strings.TrimRight(opts.QueueBaseURL, "/")
	if queueBase == "" {
		queueBase = defaultQueueBaseURL
	}
	restBase := strings.TrimRight(opts.RestBaseURL, "/")
	if restBase == "" {
		restBase = defaultRestBaseURL
	}
	attempts := opts.MaxPollAttempts
	if attempts <= 0 {
		attempts = defaultMaxPollAttempts
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:          strings.TrimSpace(opts.APIKey),
		queueBaseURL:    queueBase,
		restBaseURL:     restBase,
		httpClient:      httpClient,
		logger:          logger,
		store:           opts.Store,
		maxPollAttempts: attempts,
		pollInterval:    interval,
		now:             now,
		uploaded:        map[string]string{},
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

type submitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type statusResponse struct {
	Status        string `json:"status"`
	QueuePosition int    `json:"queue_position"`
	Error         string `json:"error"`
}

type imageRef struct {
	URL         string `json:"url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"content_type"`
}

type resultResponse struct {
	Images []imageRef `json:"images"`
	Image  *imageRef  `json:"image"`
}

// Run submits a job for the given model, polls it to completion under the
// attempt ceiling, fetches the result, and persists the first image. Every
// failure comes back classified; Run never returns a Go error.
func (c *Client) Run(ctx context.Context, model string, input imagegen.JobInput, meta imagegen.ArtifactMeta) imagegen.Result {
	if !c.HasCredentials() {
		return imagegen.Fail(imagegen.ProviderFal, imagegen.CodeAuthMissing, "Missing FAL_API_KEY in .env")
	}

	c.logger.Info().Str("model", model).Msg("fal: submitting job")

	job, res := c.submit(ctx, model, input)
	if !res.Success {
		return res
	}

	c.logger.Debug().Str("request_id", job.RequestID).Msg("fal: job queued")

	if res := c.poll(ctx, job); !res.Success {
		return res
	}

	imageURL, res := c.fetchResult(ctx, job)
	if !res.Success {
		return res
	}

	return c.materialize(ctx, imageURL, meta)
}

func (c *Client) submit(ctx context.Context, model string, input imagegen.JobInput) (*submitResponse, imagegen.Result) {
	payload, err := json.Marshal(encodeInput(input))
	if err != nil {
		return nil, imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError, fmt.Sprintf("encode request: %v", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queueBaseURL+"/"+model, bytes.NewReader(payload))
	if err != nil {
		return nil, imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	status, body, res := c.do(req)
	if !res.Success {
		return nil, res
	}
	if status >= 300 {
		return nil, classifyHTTP(status, string(body))
	}

	var job submitResponse
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError, fmt.Sprintf("decode submit response: %v", err))
	}
	if job.RequestID == "" {
		return nil, imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError,
			fmt.Sprintf("no request_id in response: %s", strings.TrimSpace(string(body))))
	}
	return &job, imagegen.Result{Success: true}
}

// poll checks the status endpoint once per attempt with a fixed sleep in
// between. Reaching the ceiling while the job is still queued or in progress
// abandons it as timed out; the job is never resubmitted.
func (c *Client) poll(ctx context.Context, job *submitResponse) imagegen.Result {
	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.StatusURL, nil)
		if err != nil {
			return imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError, fmt.Sprintf("build status request: %v", err))
		}
		req.Header.Set("Authorization", "Key "+c.apiKey)

		status, body, res := c.do(req)
		if !res.Success {
			return res
		}
		if status >= 300 {
			return classifyHTTP(status, string(body))
		}

		var st statusResponse
		if err := json.Unmarshal(body, &st); err != nil {
			return imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError, fmt.Sprintf("decode status response: %v", err))
		}

		switch st.Status {
		case "COMPLETED":
			return imagegen.Result{Success: true}
		case "IN_QUEUE", "IN_PROGRESS":
			c.logger.Debug().
				Str("request_id", job.RequestID).
				Str("status", st.Status).
				Int("queue_position", st.QueuePosition).
				Msg("fal: waiting")
			select {
			case <-time.After(c.pollInterval):
			case <-ctx.Done():
				return imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError, ctx.Err().Error())
			}
		default:
			reason := st.Error
			if reason == "" {
				reason = st.Status
			}
			return imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError, "Job failed: "+reason)
		}
	}
	return imagegen.Fail(imagegen.ProviderFal, imagegen.CodeJobTimeout,
		fmt.Sprintf("Job timed out after %ds", c.maxPollAttempts))
}

func (c *Client) fetchResult(ctx context.Context, job *submitResponse) (string, imagegen.Result) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.ResponseURL, nil)
	if err != nil {
		return "", imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError, fmt.Sprintf("build result request: %v", err))
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)

	status, body, res := c.do(req)
	if !res.Success {
		return "", res
	}
	if status >= 300 {
		return "", classifyHTTP(status, string(body))
	}

	var result resultResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError, fmt.Sprintf("decode result response: %v", err))
	}

	// The result shape varies by model: an images array or a singular image
	// object. The array wins when both are present.
	if len(result.Images) > 0 && result.Images[0].URL != "" {
		return result.Images[0].URL, imagegen.Result{Success: true}
	}
	if result.Image != nil && result.Image.URL != "" {
		return result.Image.URL, imagegen.Result{Success: true}
	}
	return "", imagegen.Fail(imagegen.ProviderFal, imagegen.CodeNoImage, "No image URL in Fal.ai response")
}

// materialize downloads the finished artifact and writes it under the
// computed name. A failed download is terminal for the job, not retried.
func (c *Client) materialize(ctx context.Context, imageURL string, meta imagegen.ArtifactMeta) imagegen.Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError, fmt.Sprintf("build download request: %v", err))
	}
	status, body, res := c.do(req)
	if !res.Success {
		return res
	}
	if status >= 300 {
		return imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError,
			fmt.Sprintf("Failed to download image: status %d", status))
	}

	hint := meta.Hint
	if hint == "" {
		hint = "image"
	}
	name := storage.ArtifactName(c.now(), hint, storage.ExtFromURL(imageURL), string(meta.Mode), meta.Tier)
	path, err := c.store.Write(name, body)
	if err != nil {
		return imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError, err.Error())
	}
	c.logger.Info().Str("path", path).Msg("fal: saved artifact")
	return imagegen.Succeed(imagegen.ProviderFal, path)
}

// do executes a request and reads the full body. Transport failures map to
// the generic provider code rather than propagating a raw error.
func (c *Client) do(req *http.Request) (int, []byte, imagegen.Result) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError, err.Error())
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError, fmt.Sprintf("read response: %v", err))
	}
	return resp.StatusCode, body, imagegen.Result{Success: true}
}

func encodeInput(input imagegen.JobInput) map[string]any {
	payload := map[string]any{}
	if input.Prompt != "" {
		payload["prompt"] = input.Prompt
	}
	if input.ImageURL != "" {
		payload["image_url"] = input.ImageURL
	}
	if len(input.ImageURLs) > 0 {
		payload["image_urls"] = input.ImageURLs
	}
	if input.MaskURL != "" {
		payload["mask_url"] = input.MaskURL
	}
	if input.ImageSize != nil {
		payload["image_size"] = map[string]int{
			"width":  input.ImageSize.Width,
			"height": input.ImageSize.Height,
		}
	}
	if input.Scale > 0 {
		payload["scale"] = input.Scale
	}
	return payload
}

var _ imagegen.QueueRunner = (*Client)(nil)
