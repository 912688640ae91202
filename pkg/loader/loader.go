// Package loader reads the document corpus from a directory. Inclusion is
// by file extension: markdown and plain text are read wholesale, PDFs go
// through text extraction.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// supportedExtensions are the corpus file types we index.
var supportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".pdf":      true,
}

// Document is one corpus file: its base name and extracted text.
type Document struct {
	Name string
	Text string
}

// LoadDir reads every supported file directly under dir, sorted by name so
// indexing order is reproducible. A directory with no supported files is a
// configuration error: there is nothing to index and nothing to ever
// retrieve.
func LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loader: reading corpus directory: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !supportedExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		text, err := extractText(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loader: %s: %w", name, err)
		}
		docs = append(docs, Document{Name: name, Text: text})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("loader: no supported documents in %s", dir)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

func extractText(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return extractPDF(path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	body, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}
