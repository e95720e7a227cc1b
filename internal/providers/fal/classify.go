package fal

import (
	"fmt"
	"net/http"
	"strings"

	"pixgen/internal/imagegen"
)

// classifyHTTP maps a non-2xx fal response onto the error taxonomy. fal does
// not report exhausted credits with a consistent status code, so the body is
// also scanned, case-insensitively, with the first match winning.
func classifyHTTP(status int, body string) imagegen.Result {
	lower := strings.ToLower(body)

	switch {
	case status == http.StatusUnauthorized:
		return imagegen.Fail(imagegen.ProviderFal, imagegen.CodeAuthInvalid,
			"Fal.ai API key is invalid. Check FAL_API_KEY in .env")
	case status == http.StatusPaymentRequired,
		strings.Contains(lower, "credits"),
		strings.Contains(lower, "insufficient"),
		strings.Contains(lower, "balance"):
		return imagegen.Fail(imagegen.ProviderFal, imagegen.CodeCreditsExhausted,
			"Fal.ai credits exhausted. Add credits at: https://fal.ai/dashboard")
	case status == http.StatusTooManyRequests:
		return imagegen.Fail(imagegen.ProviderFal, imagegen.CodeRateLimit,
			"Fal.ai rate limit exceeded. Wait 60 seconds and retry.")
	default:
		return imagegen.Fail(imagegen.ProviderFal, imagegen.CodeProviderError,
			fmt.Sprintf("Fal.ai error (%d): %s", status, body))
	}
}
