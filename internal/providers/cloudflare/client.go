// Package cloudflare implements the free synchronous provider: Workers AI
// returns the finished image base64-encoded in the submission response, so
// there is no job to poll.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pixgen/internal/catalog"
	"pixgen/internal/imagegen"
	"pixgen/internal/infra"
	"pixgen/internal/storage"
)

const (
	defaultBaseURL = "https://api.cloudflare.com"

	// Fixed inference steps for the flux-2-klein model.
	steps = 25
)

// Options configures the Workers AI client.
type Options struct {
	AccountID  string
	APIToken   string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
	Store      *storage.FileStore
	Now        func() time.Time
}

// Client calls the Workers AI run endpoint for the free iterate tier.
type Client struct {
	accountID  string
	apiToken   string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
	store      *storage.FileStore
	now        func() time.Time
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
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
		accountID:  strings.TrimSpace(opts.AccountID),
		apiToken:   strings.TrimSpace(opts.APIToken),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		store:      opts.Store,
		now:        now,
	}
}

type runResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Image string `json:"image"`
	} `json:"result"`
}

// Generate runs the model once and persists the decoded image. Failures are
// classified; Generate never returns a Go error.
func (c *Client) Generate(ctx context.Context, prompt string, size imagegen.Size) imagegen.Result {
	if c.accountID == "" || c.apiToken == "" {
		missing := "CLOUDFLARE_ACCOUNT_ID"
		if c.accountID != "" {
			missing = "CLOUDFLARE_API_TOKEN"
		}
		return imagegen.Fail(imagegen.ProviderCloudflare, imagegen.CodeAuthMissing, "Missing "+missing)
	}

	c.logger.Info().Str("model", catalog.CloudflareModel).Msg("cloudflare: generating (free tier)")

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	_ = writer.WriteField("prompt", prompt)
	_ = writer.WriteField("width", strconv.Itoa(size.Width))
	_ = writer.WriteField("height", strconv.Itoa(size.Height))
	_ = writer.WriteField("steps", strconv.Itoa(steps))
	if err := writer.Close(); err != nil {
		return imagegen.Fail(imagegen.ProviderCloudflare, imagegen.CodeProviderError, fmt.Sprintf("encode form: %v", err))
	}

	endpoint := fmt.Sprintf("%s/client/v4/accounts/%s/ai/run/%s", c.baseURL, c.accountID, catalog.CloudflareModel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &form)
	if err != nil {
		return imagegen.Fail(imagegen.ProviderCloudflare, imagegen.CodeProviderError, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return imagegen.Fail(imagegen.ProviderCloudflare, imagegen.CodeProviderError, err.Error())
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return imagegen.Fail(imagegen.ProviderCloudflare, imagegen.CodeProviderError, fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return imagegen.Fail(imagegen.ProviderCloudflare, imagegen.CodeRateLimit,
			"Cloudflare rate limit exceeded (~96/day). Wait until midnight UTC or use default tier.")
	}
	if resp.StatusCode >= 300 {
		return classifyError(resp.StatusCode, string(body))
	}

	var decoded runResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return imagegen.Fail(imagegen.ProviderCloudflare, imagegen.CodeProviderError, fmt.Sprintf("decode response: %v", err))
	}
	if !decoded.Success || decoded.Result.Image == "" {
		return imagegen.Fail(imagegen.ProviderCloudflare, imagegen.CodeProviderError, "No image in Cloudflare response")
	}

	imageData, err := base64.StdEncoding.DecodeString(decoded.Result.Image)
	if err != nil {
		return imagegen.Fail(imagegen.ProviderCloudflare, imagegen.CodeProviderError, fmt.Sprintf("decode image payload: %v", err))
	}

	// The synchronous provider always produces png.
	name := storage.ArtifactName(c.now(), prompt, "png", string(catalog.ModeGen), string(catalog.TierIterate))
	path, err := c.store.Write(name, imageData)
	if err != nil {
		return imagegen.Fail(imagegen.ProviderCloudflare, imagegen.CodeProviderError, err.Error())
	}
	c.logger.Info().Str("path", path).Msg("cloudflare: saved artifact")
	return imagegen.Succeed(imagegen.ProviderCloudflare, path)
}

// classifyError maps a non-2xx, non-429 Workers AI response onto the
// taxonomy. Quota exhaustion sometimes surfaces with an opaque status code
// and only the body names the condition, so the body is scanned first.
func classifyError(status int, body string) imagegen.Result {
	lower := strings.ToLower(body)

	switch {
	case strings.Contains(lower, "quota"),
		strings.Contains(lower, "limit"),
		strings.Contains(lower, "exceeded"):
		return imagegen.Fail(imagegen.ProviderCloudflare, imagegen.CodeQuotaExceeded,
			"Cloudflare quota exceeded. Wait until midnight UTC or use default tier.")
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return imagegen.Fail(imagegen.ProviderCloudflare, imagegen.CodeAuthMissing,
			fmt.Sprintf("Cloudflare auth error (%d): %s", status, body))
	default:
		return imagegen.Fail(imagegen.ProviderCloudflare, imagegen.CodeProviderError,
			fmt.Sprintf("Cloudflare API error (%d): %s", status, body))
	}
}

var _ imagegen.SyncGenerator = (*Client)(nil)
