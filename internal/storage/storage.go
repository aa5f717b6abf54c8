// Package storage forwards uploaded images to an external media host.
// Only the returned public URL is kept by the API.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format: allowed jpg, jpeg, png, webp")
	ErrNotConfigured     = errors.New("image storage is not configured")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// ValidateImageName checks the file extension against the allow-list.
func ValidateImageName(filename string) error {
	if !allowedExtensions[strings.ToLower(filepath.Ext(filename))] {
		return ErrUnsupportedFormat
	}
	return nil
}

// HTTPUploader posts files to an unsigned-upload endpoint (Cloudinary
// compatible). The upload preset carries the bounding-box transform.
type HTTPUploader struct {
	URL        string
	Preset     string
	HTTPClient *http.Client
}

func NewHTTPUploader(url, preset string) *HTTPUploader {
	return &HTTPUploader{
		URL:    url,
		Preset: preset,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Upload sends the file into folder and returns its public URL.
func (u *HTTPUploader) Upload(ctx context.Context, folder, filename string, file io.Reader) (string, error) {
	if u.URL == "" {
		return "", ErrNotConfigured
	}
	if err := ValidateImageName(filename); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy file: %w", err)
	}
	if u.Preset != "" {
		if err := mw.WriteField("upload_preset", u.Preset); err != nil {
			return "", fmt.Errorf("write preset: %w", err)
		}
	}
	if folder != "" {
		if err := mw.WriteField("folder", folder); err != nil {
			return "", fmt.Errorf("write folder: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	var out uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("upload: status %d: decode response: %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != nil {
			return "", fmt.Errorf("upload: status %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("upload: status %d", resp.StatusCode)
	}
	if out.SecureURL == "" {
		return "", errors.New("upload: response missing secure_url")
	}
	return out.SecureURL, nil
}
