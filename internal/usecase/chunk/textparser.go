package chunk

import (
	"bytes"
	"errors"
)

// TextParser parses form-feed paginated text documents: one page per
// \f-delimited segment, the way upstream text extraction emits them.
type TextParser struct{}

// NewTextParser creates a paginated text parser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse splits data on form feeds. Empty input is not a document.
func (*TextParser) Parse(data []byte) (PageSource, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty document")
	}
	return &textSource{pages: bytes.Split(data, []byte{'\f'})}, nil
}

type textSource struct {
	pages [][]byte
}

func (t *textSource) PageCount() int { return len(t.pages) }

func (t *textSource) Window(start, end int) ([]byte, error) {
	if start < 0 || end > len(t.pages) || start >= end {
		return nil, errors.New("window out of range")
	}
	return bytes.Join(t.pages[start:end], []byte{'\f'}), nil
}
