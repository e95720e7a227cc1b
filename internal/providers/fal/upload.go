package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// UploadFile makes a local image addressable by fal models and returns its
// remote URL. Remote inputs pass through unchanged. Results are cached per
// local path for the lifetime of the client; re-uploading identical bytes is
// idempotent on the provider side, so a concurrent double-populate is
// harmless.
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	if !c.HasCredentials() {
		return "", errors.New("fal: FAL_API_KEY required for file upload")
	}

	c.mu.Lock()
	cached, ok := c.uploaded[path]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("fal: read upload source: %w", err)
	}
	contentType := contentTypeForPath(path)
	fileName := filepath.Base(path)

	fileURL, err := c.uploadBytes(ctx, fileName, contentType, data)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.uploaded[path] = fileURL
	c.mu.Unlock()

	c.logger.Debug().Str("path", path).Str("url", fileURL).Msg("fal: uploaded input")
	return fileURL, nil
}

type initiateRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

type initiateResponse struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
}

// uploadBytes performs the two-step initiate/PUT protocol: request a
// pre-signed upload URL, then PUT the raw bytes to it.
func (c *Client) uploadBytes(ctx context.Context, fileName, contentType string, data []byte) (string, error) {
	payload, err := json.Marshal(initiateRequest{FileName: fileName, ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("fal: encode initiate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.restBaseURL+"/storage/upload/initiate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("fal: build initiate request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fal: initiate upload: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("fal: read initiate response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("fal: upload initiate failed: %s", strings.TrimSpace(string(body)))
	}

	var grant initiateResponse
	if err := json.Unmarshal(body, &grant); err != nil {
		return "", fmt.Errorf("fal: decode initiate response: %w", err)
	}
	if grant.UploadURL == "" || grant.FileURL == "" {
		return "", fmt.Errorf("fal: malformed initiate response: %s", strings.TrimSpace(string(body)))
	}

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, grant.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("fal: build upload request: %w", err)
	}
	putReq.Header.Set("Content-Type", contentType)

	putResp, err := c.httpClient.Do(putReq)
	if err != nil {
		return "", fmt.Errorf("fal: upload bytes: %w", err)
	}
	defer putResp.Body.Close()
	if putResp.StatusCode >= 300 {
		return "", fmt.Errorf("fal: upload failed: status %d", putResp.StatusCode)
	}

	return grant.FileURL, nil
}

func contentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	default:
		return "image/png"
	}
}
