package extractor

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a one page document with a single text run.
func buildPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestDetect(t *testing.T) {
	cases := []struct {
		filename    string
		contentType string
		want        kind
	}{
		{"doc.pdf", "application/pdf", kindPDF},
		{"upload", "application/pdf", kindPDF},
		{"doc.PDF", "application/octet-stream", kindPDF},
		{"page.html", "", kindHTML},
		{"page", "text/html; charset=utf-8", kindHTML},
		{"notes.md", "", kindText},
		{"notes.txt", "text/plain", kindText},
		{"image.png", "image/png", kindUnknown},
	}
	for _, cse := range cases {
		t.Run(cse.filename+"_"+cse.contentType, func(t *testing.T) {
			assert.Equal(t, cse.want, detect(cse.filename, cse.contentType))
		})
	}
}

func TestExtractPDF(t *testing.T) {
	text, err := New().Extract(context.Background(), "hello.pdf", "application/pdf", buildPDF("Hello PDF world"))
	require.NoError(t, err)
	assert.Contains(t, text, "Hello")
	assert.Contains(t, text, "world")
}

func TestExtractPDFMalformed(t *testing.T) {
	cases := map[string][]byte{
		"not_pdf":   []byte("plain bytes"),
		"truncated": buildPDF("Hello")[:40],
		"garbage":   []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >>\nstartxref\n9999\n%%EOF"),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New().Extract(context.Background(), "bad.pdf", "application/pdf", data)
			assert.Error(t, err)
		})
	}
}

func TestExtractHTML(t *testing.T) {
	page := `<html><head><style>body{color:red}</style><script>var x = 1;</script></head>
<body><h1>Title</h1><p>First  paragraph.</p><p>Second</p></body></html>`

	text, err := New().Extract(context.Background(), "page.html", "text/html", []byte(page))
	require.NoError(t, err)
	assert.Equal(t, "Title First  paragraph. Second", text)
}

func TestExtractText(t *testing.T) {
	text, err := New().Extract(context.Background(), "notes.txt", "", []byte("héllo\nworld"))
	require.NoError(t, err)
	assert.Equal(t, "héllo\nworld", text)

	_, err = New().Extract(context.Background(), "notes.txt", "", []byte{0xff, 0xfe, 0x00})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractUnsupported(t *testing.T) {
	_, err := New().Extract(context.Background(), "photo.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Extract(ctx, "notes.txt", "text/plain", []byte("hi"))
	assert.ErrorIs(t, err, context.Canceled)
}
