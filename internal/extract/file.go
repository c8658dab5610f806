package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrBinaryFile is returned for files that are neither PDF nor UTF-8 text.
var ErrBinaryFile = errors.New("file is not UTF-8 text")

// ReadFile returns the text of a local file. PDFs are converted to plain
// text, HTML files yield their body text, anything else is read as UTF-8.
func ReadFile(path string) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = readPDF(path)
	case ".html", ".htm":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close() //nolint:errcheck
		text, err = HTMLText(f)
	default:
		var b []byte
		b, err = os.ReadFile(path)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrBinaryFile)
		}
		text = string(b)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrNoText)
	}
	return text, nil
}

func readPDF(path string) (text string, err error) {
	// the PDF parser panics on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unreadable PDF: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck

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
