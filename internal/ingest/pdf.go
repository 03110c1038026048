package ingest

import (
	"bytes"

	"github.com/ledongthuc/pdf"
)

// readPDF extracts the plain text of a PDF file. Layout is not preserved;
// feature extraction only needs the words.
func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
