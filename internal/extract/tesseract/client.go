//go:build !windows

// Package tesseract wraps gosseract for local OCR. It needs cgo and libtesseract.
package tesseract

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Client extracts text from photos with a local tesseract install
type Client struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates a tesseract client configured for handwritten or
// printed materials lists
func New() (*Client, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// PSM 6 = Assume a single uniform block of text
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	return &Client{client: client}, nil
}

// ExtractText runs OCR over the image. The gosseract client is not safe for
// concurrent use, so calls are serialised.
func (t *Client) ExtractText(ctx context.Context, image []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmpFile, err := os.CreateTemp("", "materials-*.img")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(image); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImage(tmpFile.Name()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return text, nil
}

// Close releases OCR resources
func (t *Client) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}
