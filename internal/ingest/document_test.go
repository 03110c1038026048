package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadTextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acme-retainer.md")
	if err := os.WriteFile(path, []byte("# SOW\n\nBrand redesign with three workstreams.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := NewLoader(nil).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Title != "acme-retainer" {
		t.Errorf("Title = %q, want acme-retainer", doc.Title)
	}
	if !strings.Contains(doc.Text, "three workstreams") {
		t.Errorf("Text = %q, missing content", doc.Text)
	}
	if doc.Source != path {
		t.Errorf("Source = %q, want %q", doc.Source, path)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, []byte("   \n\t\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewLoader(nil).Load(context.Background(), path); err == nil {
		t.Error("expected error for a document with no text")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := NewLoader(nil).Load(context.Background(), "/nonexistent/sow.txt"); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestLoadMissingPDF(t *testing.T) {
	if _, err := NewLoader(nil).Load(context.Background(), "/nonexistent/sow.pdf"); err == nil {
		t.Error("expected error for a missing pdf")
	}
}

func TestLoadURLPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("Annual media retainer, monthly reporting."))
	}))
	defer srv.Close()

	doc, err := NewLoader(srv.Client()).Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(doc.Text, "media retainer") {
		t.Errorf("Text = %q", doc.Text)
	}
}

func TestLoadURLHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Acme SOW</title><style>p{color:red}</style></head>
			<body><script>alert(1)</script><h1>Scope</h1><p>Creative production for the holiday campaign.</p></body></html>`))
	}))
	defer srv.Close()

	doc, err := NewLoader(srv.Client()).Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Title != "Acme SOW" {
		t.Errorf("Title = %q, want Acme SOW", doc.Title)
	}
	if !strings.Contains(doc.Text, "Creative production") {
		t.Errorf("Text = %q, missing body content", doc.Text)
	}
	if strings.Contains(doc.Text, "alert") || strings.Contains(doc.Text, "color:red") {
		t.Errorf("Text = %q, script/style content leaked", doc.Text)
	}
}

func TestLoadURLErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewLoader(srv.Client()).Load(context.Background(), srv.URL); err == nil {
		t.Error("expected error for a 404 response")
	}
}

func TestHTMLToText(t *testing.T) {
	in := `<html><head><title>T</title></head><body>
		<h1>Scope of Work</h1>
		<p>Phase one.</p>
		<p>Phase two.</p>
	</body></html>`
	title, text, err := htmlToText(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if title != "T" {
		t.Errorf("title = %q", title)
	}
	for _, want := range []string{"Scope of Work", "Phase one.", "Phase two."} {
		if !strings.Contains(text, want) {
			t.Errorf("text %q missing %q", text, want)
		}
	}
}
