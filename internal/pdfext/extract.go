// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfext downloads paper PDFs and extracts their plain text for the
// detailed analysis stage.
package pdfext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText indicates the PDF parsed but yielded no extractable text
// (scanned images, exotic encodings).
var ErrNoText = errors.New("pdfext: no extractable text")

// Extractor fetches PDFs over HTTP and extracts their text.
type Extractor struct {
	Client    *http.Client
	UserAgent string
}

// Extract downloads the PDF at pdfURL to a temporary file and returns its
// plain text. The caller truncates; this function returns everything.
func (e *Extractor) Extract(ctx context.Context, pdfURL string) (string, error) {
	path, err := e.download(ctx, pdfURL)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	return extractFile(path)
}

// download writes the PDF to a temp file and returns its path.
func (e *Extractor) download(ctx context.Context, pdfURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", e.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading PDF: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading PDF: HTTP %d from %s", resp.StatusCode, pdfURL)
	}

	tmpFile, err := os.CreateTemp("", "paper-digest-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}
	return tmpPath, nil
}

// extractFile reads the plain text of a PDF on disk.
func extractFile(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting PDF text: %w", err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, reader); err != nil {
		return "", fmt.Errorf("reading extracted text: %w", err)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
