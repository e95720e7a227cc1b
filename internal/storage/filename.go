package storage

import (
	"regexp"
	"strings"
	"time"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// ArtifactName derives a deterministic filename of the form
// <14-digit UTC timestamp>_<mode>_<tier>_<hint>.<ext>. Empty mode or tier
// segments are omitted. The hint has non-alphanumeric runs collapsed to
// single underscores, leading/trailing underscores stripped, and is capped
// at 40 characters.
func ArtifactName(now time.Time, hint, ext, mode, tier string) string {
	timestamp := now.UTC().Format("20060102150405")

	safeHint := nonAlnum.ReplaceAllString(hint, "_")
	safeHint = strings.Trim(safeHint, "_")
	if len(safeHint) > 40 {
		safeHint = safeHint[:40]
	}

	parts := []string{timestamp}
	if mode != "" {
		parts = append(parts, mode)
	}
	if tier != "" {
		parts = append(parts, tier)
	}
	parts = append(parts, safeHint)

	return strings.Join(parts, "_") + "." + ext
}

// ExtFromURL infers the artifact extension from a result URL. Providers
// return webp for most raster models and svg for vectorize; anything else is
// treated as jpg.
func ExtFromURL(url string) string {
	switch {
	case strings.Contains(url, ".webp"):
		return "webp"
	case strings.Contains(url, ".svg"):
		return "svg"
	default:
		return "jpg"
	}
}
