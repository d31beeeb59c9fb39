package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
)

// extractPDF concatenates the plain text of every page in order. Pages that
// have no text or fail to decode contribute nothing.
func extractPDF(data []byte) (text string, err error) {
	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, perr := p.GetPlainText(nil)
		if perr != nil {
			logrus.Warnf("⚠️ Skipping pdf page %d/%d: %v", i, total, perr)
			continue
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}
