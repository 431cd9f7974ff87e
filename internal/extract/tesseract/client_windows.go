//go:build windows

package tesseract

import (
	"context"
	"errors"
)

// Client is unavailable on Windows builds
type Client struct{}

// New always fails on Windows - run in the Docker container
func New() (*Client, error) {
	return nil, errors.New("tesseract OCR is not available on Windows - run in Docker container")
}

func (t *Client) ExtractText(context.Context, []byte, string) (string, error) {
	return "", errors.New("tesseract OCR is not available on Windows")
}

func (t *Client) Close() error {
	return nil
}
