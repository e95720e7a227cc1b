package imagegen

import (
	"regexp"
	"strconv"
	"strings"

	"pixgen/internal/catalog"
)

// ErrorCode is the closed taxonomy every provider failure is classified into.
type ErrorCode string

const (
	CodeAuthMissing      ErrorCode = "AUTH_MISSING"
	CodeAuthInvalid      ErrorCode = "AUTH_INVALID"
	CodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	CodeRateLimit        ErrorCode = "RATE_LIMIT"
	CodeCreditsExhausted ErrorCode = "CREDITS_EXHAUSTED"
	CodeJobTimeout       ErrorCode = "JOB_TIMEOUT"
	CodeNoImage          ErrorCode = "NO_IMAGE"
	CodeProviderError    ErrorCode = "GENERIC_PROVIDER_ERROR"
)

// Provider names used in Result.Provider.
const (
	ProviderCloudflare = "cloudflare"
	ProviderFal        = "fal"
)

// Result is the uniform return value of every provider call. Exactly one of
// FilePath or Code is populated depending on Success.
type Result struct {
	Success  bool
	FilePath string
	Error    string
	Code     ErrorCode
	Provider string

	// VectorPath is set when a generation also produced a vectorized copy.
	VectorPath string
}

// Succeed builds a successful result pointing at a persisted artifact.
func Succeed(provider, filePath string) Result {
	return Result{Success: true, FilePath: filePath, Provider: provider}
}

// Fail builds a classified failure result.
func Fail(provider string, code ErrorCode, message string) Result {
	return Result{Success: false, Provider: provider, Code: code, Error: message}
}

// RetryLater reports the distinguished "free-tier exhausted, do not retry
// automatically" outcome. Callers map it to a dedicated exit status instead
// of silently degrading to a paid tier.
func (r Result) RetryLater() bool {
	return !r.Success &&
		r.Provider == ProviderCloudflare &&
		(r.Code == CodeQuotaExceeded || r.Code == CodeRateLimit)
}

// Size is an output resolution in pixels.
type Size struct {
	Width  int
	Height int
}

var sizePattern = regexp.MustCompile(`^(\d+)x(\d+)$`)

// ParseSize parses a "WxH" string. Anything unparseable falls back to
// 1024x1024; sizing is advisory, not validated input.
func ParseSize(s string) Size {
	m := sizePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Size{Width: 1024, Height: 1024}
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	return Size{Width: w, Height: h}
}

// JobInput is the provider-agnostic payload for a queue job. Field presence
// follows the operation: gen sets Prompt and ImageSize, edit sets ImageURLs
// and Prompt, upscale sets ImageURL and Scale, util flows set ImageURL only.
type JobInput struct {
	Prompt    string
	ImageURL  string
	ImageURLs []string
	MaskURL   string
	ImageSize *Size
	Scale     int
}

// ArtifactMeta carries the pieces of a request that name the persisted file.
// Tier is a label, not a catalog.Tier: util flows stamp "free".
type ArtifactMeta struct {
	Hint string
	Mode catalog.Mode
	Tier string
}
