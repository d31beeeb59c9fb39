package extractor

import (
	"context"
	"fmt"
	"unicode/utf8"
)

var _ Interface = &Extractor{}

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch detect(filename, contentType) {
	case kindPDF:
		return extractPDF(data)
	case kindHTML:
		return extractHTML(data)
	case kindText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s is not valid UTF-8 text", filename)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%w: %q (%s)", ErrUnsupportedType, contentType, filename)
}
