package document

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher downloads source documents from the URL carried by a job and turns
// them into raw text. File URLs and bare paths are read directly so workers
// can process locally staged documents.
type Fetcher struct {
	client *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// FetchText retrieves the document at url and returns its extracted text.
// PDFs go through the PDF extractor; anything else is treated as plain text.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	path, cleanup, err := f.localPath(ctx, url)
	if err != nil {
		return "", err
	}
	defer cleanup()

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return ExtractPDFText(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	return string(data), nil
}

func (f *Fetcher) localPath(ctx context.Context, url string) (string, func(), error) {
	noop := func() {}

	if strings.HasPrefix(url, "file://") {
		return strings.TrimPrefix(url, "file://"), noop, nil
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return url, noop, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", noop, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", noop, fmt.Errorf("fetching document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", noop, fmt.Errorf("fetching document: status %d", resp.StatusCode)
	}

	ext := filepath.Ext(strings.SplitN(url, "?", 2)[0])
	if ext == "" {
		if strings.Contains(resp.Header.Get("Content-Type"), "pdf") {
			ext = ".pdf"
		}
	}
	tmp, err := os.CreateTemp("", "lattice-doc-*"+ext)
	if err != nil {
		return "", noop, err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", noop, fmt.Errorf("downloading document: %w", err)
	}
	tmp.Close()
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}
