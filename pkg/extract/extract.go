// Package extract turns uploaded documents into normalised plain text.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
)

const (
	DefaultMaxBytes = 5 * 1024 * 1024
	DefaultMinChars = 100
)

// ExtractionError reports a document that could not be turned into usable text.
type ExtractionError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Filename, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Filename, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// Extractor extracts text from .txt, .md, .html and .docx documents.
type Extractor struct {
	MaxBytes int64
	MinChars int
}

// New creates an Extractor. Non-positive limits fall back to the defaults.
func New(maxBytes int64, minChars int) *Extractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	return &Extractor{MaxBytes: maxBytes, MinChars: minChars}
}

// Extract returns the normalised text of the named document.
func (x *Extractor) Extract(filename string, data []byte) (string, error) {
	if int64(len(data)) > x.MaxBytes {
		return "", &ExtractionError{
			Filename: filename,
			Reason: fmt.Sprintf("file size %s exceeds %s limit",
				humanize.IBytes(uint64(len(data))), humanize.IBytes(uint64(x.MaxBytes))),
		}
	}

	var (
		text string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".txt", ".md":
		if !utf8.Valid(data) {
			return "", &ExtractionError{Filename: filename, Reason: "text is not valid UTF-8"}
		}
		text = string(data)
	case ".html", ".htm":
		text, err = htmlText(data)
	case ".docx":
		text, err = docxText(data)
	default:
		return "", &ExtractionError{Filename: filename, Reason: fmt.Sprintf("unsupported file type %q", ext)}
	}
	if err != nil {
		return "", &ExtractionError{Filename: filename, Reason: "failed to parse document", Err: err}
	}

	text = Normalize(text)
	if utf8.RuneCountInString(text) < x.MinChars {
		return "", &ExtractionError{Filename: filename, Reason: "could not extract sufficient text"}
	}
	return text, nil
}

// Normalize converts CRLF to LF, collapses runs of three or more newlines
// to two and trims surrounding whitespace.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.Join(lines, "\n"), nil
}
