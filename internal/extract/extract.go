package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MediaTypePDF is the only document type the recommendation service accepts.
const MediaTypePDF = "application/pdf"

var ErrNotPDF = errors.New("not a pdf document")

// NormalizeMediaType lowercases a declared media type and drops its parameters.
func NormalizeMediaType(mediaType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mediaType, ";")[0]))
}

// IsPDF reports whether a declared media type names a PDF document.
func IsPDF(mediaType string) bool {
	return NormalizeMediaType(mediaType) == MediaTypePDF
}

// PageCount reads the page tree of an in-memory PDF.
func PageCount(data []byte) (pages int, err error) {
	if len(data) == 0 {
		return 0, ErrNotPDF
	}
	// the parser panics on some truncated inputs
	defer func() {
		if r := recover(); r != nil {
			pages = 0
			err = fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return reader.NumPage(), nil
}

// PlainText extracts the text layer of an in-memory PDF.
func PlainText(ctx context.Context, data []byte) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrNotPDF
	}
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
