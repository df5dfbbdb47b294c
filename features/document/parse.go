package document

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ParsedUpload is the text extracted from an uploaded file.
type ParsedUpload struct {
	Title string
	Text  string
}

// ParseUpload extracts plain text from an uploaded pdf, md or txt file. The
// title falls back to the filename when the content has no usable first line.
func ParseUpload(filename string, data []byte) (*ParsedUpload, error) {
	var text string

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".pdf":
		extracted, err := extractPDF(data)
		if err != nil {
			return nil, err
		}
		text = extracted
	case ".md", ".txt":
		text = string(data)
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}

	text = normalizeText(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text content in %s", filepath.Base(filename))
	}

	title := firstNonEmptyLine(text)
	if title == "" || len(title) > 120 {
		title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	return &ParsedUpload{Title: title, Text: text}, nil
}

func extractPDF(data []byte) (string, error) {
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			return line
		}
	}
	return ""
}
