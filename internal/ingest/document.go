package ingest

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

// maxBodyBytes caps how much of a remote SOW we read.
const maxBodyBytes = 10 << 20

// Document is a loaded statement of work ready for feature extraction.
type Document struct {
	Source string
	Title  string
	Text   string
}

// Loader reads SOW documents from local files (plain text, markdown, PDF)
// or over HTTP. HTML responses are reduced to their visible text.
type Loader struct {
	client *http.Client
}

// NewLoader creates a Loader. A nil client gets a default with a 30 second
// timeout.
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{client: client}
}

// Load reads the SOW at source, which is either a URL (http/https) or a
// local file path. The returned document always has non-empty text.
func (l *Loader) Load(ctx context.Context, source string) (Document, error) {
	var doc Document
	var err error

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		doc, err = l.fetchURL(ctx, source)
	} else {
		doc, err = loadFile(source)
	}
	if err != nil {
		return Document{}, err
	}

	doc.Text = strings.TrimSpace(doc.Text)
	if doc.Text == "" {
		return Document{}, fmt.Errorf("document %s has no extractable text", source)
	}
	return doc, nil
}

func loadFile(path string) (Document, error) {
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err := readPDF(path)
		if err != nil {
			return Document{}, fmt.Errorf("reading pdf %s: %w", path, err)
		}
		return Document{Source: path, Title: title, Text: text}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading file %s: %w", path, err)
	}
	return Document{Source: path, Title: title, Text: string(data)}, nil
}

func (l *Loader) fetchURL(ctx context.Context, url string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Document{}, fmt.Errorf("building request for %s: %w", url, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)
	contentType := resp.Header.Get("Content-Type")

	if strings.Contains(contentType, "text/html") {
		title, text, err := htmlToText(body)
		if err != nil {
			return Document{}, fmt.Errorf("parsing html from %s: %w", url, err)
		}
		if title == "" {
			title = url
		}
		return Document{Source: url, Title: title, Text: text}, nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return Document{}, fmt.Errorf("reading body of %s: %w", url, err)
	}
	return Document{Source: url, Title: url, Text: string(data)}, nil
}
