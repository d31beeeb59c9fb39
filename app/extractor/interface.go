package extractor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

var ErrUnsupportedType = errors.New("unsupported content type")

// Interface turns an uploaded file into plain text.
type Interface interface {
	Extract(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

type kind int

const (
	kindUnknown kind = iota
	kindPDF
	kindHTML
	kindText
)

var byContentType = map[string]kind{
	"application/pdf": kindPDF,
	"text/html":       kindHTML,
	"text/plain":      kindText,
	"text/markdown":   kindText,
}

var byExtension = map[string]kind{
	".pdf":  kindPDF,
	".html": kindHTML,
	".htm":  kindHTML,
	".txt":  kindText,
	".md":   kindText,
}

// detect prefers the declared content type and falls back to the extension.
func detect(filename, contentType string) kind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if k, ok := byContentType[ct]; ok {
		return k
	}
	return byExtension[strings.ToLower(filepath.Ext(filename))]
}
