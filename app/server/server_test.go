package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"YapEngine/app/extractor"
	"YapEngine/app/rag"
	"YapEngine/app/storage"
)

type mockPipeline struct {
	mock.Mock
}

func (m *mockPipeline) Ingest(ctx context.Context, namespace string, doc rag.Document) (*rag.IngestResult, error) {
	args := m.Called(ctx, namespace, doc)
	res, _ := args.Get(0).(*rag.IngestResult)
	return res, args.Error(1)
}

func (m *mockPipeline) Ask(ctx context.Context, namespace, question string) (*rag.Answer, error) {
	args := m.Called(ctx, namespace, question)
	res, _ := args.Get(0).(*rag.Answer)
	return res, args.Error(1)
}

func (m *mockPipeline) Documents(ctx context.Context, namespace string) ([]storage.LedgerEntry, error) {
	args := m.Called(ctx, namespace)
	res, _ := args.Get(0).([]storage.LedgerEntry)
	return res, args.Error(1)
}

func defaultOptions() Options {
	return Options{MaxUploadBytes: 1 << 20, RequireSession: true, DefaultNamespace: "default"}
}

func uploadRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHome(t *testing.T) {
	s := New(&mockPipeline{}, defaultOptions())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, WelcomeText, decode(t, rec)["message"])
}

func TestUploadSuccess(t *testing.T) {
	p := &mockPipeline{}
	p.On("Ingest", mock.Anything, "session-1", rag.Document{
		Filename: "doc.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4"),
	}).Return(&rag.IngestResult{Filename: "doc.pdf", Namespace: "session-1", Indexed: 3, Skipped: 1}, nil)

	req := uploadRequest(t, "doc.pdf", "application/pdf", []byte("%PDF-1.4"))
	req.Header.Set(SessionHeader, "session-1")
	rec := httptest.NewRecorder()
	New(p, defaultOptions()).Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "doc.pdf", body["filename"])
	assert.Equal(t, "Indexed Successfully", body["status"])
	assert.Equal(t, float64(3), body["chunks"])
	assert.Equal(t, float64(1), body["skipped"])
	p.AssertExpectations(t)
}

func TestUploadErrors(t *testing.T) {
	cases := []struct {
		name       string
		ingestErr  error
		wantStatus int
	}{
		{name: "unsupported", ingestErr: fmt.Errorf("%w: x: %w", rag.ErrExtraction, extractor.ErrUnsupportedType), wantStatus: http.StatusUnsupportedMediaType},
		{name: "no_text", ingestErr: rag.ErrNoText, wantStatus: http.StatusUnprocessableEntity},
		{name: "no_embeddings", ingestErr: rag.ErrNoEmbeddings, wantStatus: http.StatusUnprocessableEntity},
		{name: "bad_pdf", ingestErr: fmt.Errorf("%w: doc.pdf: parse pdf", rag.ErrExtraction), wantStatus: http.StatusUnprocessableEntity},
		{name: "index", ingestErr: errors.New("upsert doc.pdf: unavailable"), wantStatus: http.StatusBadGateway},
	}
	for _, cse := range cases {
		t.Run(cse.name, func(t *testing.T) {
			p := &mockPipeline{}
			p.On("Ingest", mock.Anything, "s", mock.Anything).Return(nil, cse.ingestErr)

			req := uploadRequest(t, "doc.pdf", "application/pdf", []byte("data"))
			req.Header.Set(SessionHeader, "s")
			rec := httptest.NewRecorder()
			New(p, defaultOptions()).Handler().ServeHTTP(rec, req)

			assert.Equal(t, cse.wantStatus, rec.Code)
			assert.Equal(t, cse.ingestErr.Error(), decode(t, rec)["error"])
		})
	}
}

func TestUploadBadRequests(t *testing.T) {
	p := &mockPipeline{}
	s := New(p, defaultOptions())

	t.Run("missing_session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, uploadRequest(t, "doc.pdf", "application/pdf", []byte("x")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["error"], "x-session-id")
	})

	t.Run("missing_file", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("other", "value"))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/upload", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set(SessionHeader, "s")

		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not_multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(SessionHeader, "s")

		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too_large", func(t *testing.T) {
		small := New(p, Options{MaxUploadBytes: 64, RequireSession: true})
		req := uploadRequest(t, "doc.pdf", "application/pdf", bytes.Repeat([]byte("a"), 1024))
		req.Header.Set(SessionHeader, "s")

		rec := httptest.NewRecorder()
		small.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	p.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadDefaultNamespace(t *testing.T) {
	p := &mockPipeline{}
	p.On("Ingest", mock.Anything, "default", mock.Anything).Return(&rag.IngestResult{Filename: "a.txt", Indexed: 1}, nil)

	opts := defaultOptions()
	opts.RequireSession = false
	rec := httptest.NewRecorder()
	New(p, opts).Handler().ServeHTTP(rec, uploadRequest(t, "a.txt", "text/plain", []byte("hello")))

	assert.Equal(t, http.StatusOK, rec.Code)
	p.AssertExpectations(t)
}

func chatRequestFor(body, session string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	return req
}

func TestChat(t *testing.T) {
	p := &mockPipeline{}
	p.On("Ask", mock.Anything, "s", "What is it?").
		Return(&rag.Answer{Text: "It is a test.", Context: "chunk one\n\nchunk two"}, nil)

	t.Run("answer_only", func(t *testing.T) {
		rec := httptest.NewRecorder()
		New(p, defaultOptions()).Handler().ServeHTTP(rec, chatRequestFor(`{"question":" What is it? "}`, "s"))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "It is a test.", body["answer"])
		_, hasSource := body["source"]
		assert.False(t, hasSource)
	})

	t.Run("with_source", func(t *testing.T) {
		opts := defaultOptions()
		opts.IncludeSource = true
		rec := httptest.NewRecorder()
		New(p, opts).Handler().ServeHTTP(rec, chatRequestFor(`{"question":"What is it?"}`, "s"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "chunk one\n\nchunk two", decode(t, rec)["source"])
	})
}

func TestChatDegraded(t *testing.T) {
	p := &mockPipeline{}
	p.On("Ask", mock.Anything, "s", "q").Return(&rag.Answer{Text: rag.BusyMessage, Degraded: true}, nil)

	opts := defaultOptions()
	opts.IncludeSource = true
	rec := httptest.NewRecorder()
	New(p, opts).Handler().ServeHTTP(rec, chatRequestFor(`{"question":"q"}`, "s"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, rag.BusyMessage, body["answer"])
	assert.NotContains(t, body, "source")
}

func TestChatErrors(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		session    string
		askErr     error
		wantStatus int
	}{
		{name: "bad_json", body: `{"question":`, session: "s", wantStatus: http.StatusBadRequest},
		{name: "missing_question", body: `{}`, session: "s", wantStatus: http.StatusBadRequest},
		{name: "blank_question", body: `{"question":"   "}`, session: "s", wantStatus: http.StatusBadRequest},
		{name: "missing_session", body: `{"question":"q"}`, wantStatus: http.StatusBadRequest},
		{name: "upstream", body: `{"question":"q"}`, session: "s", askErr: errors.New("chat completion: 500"), wantStatus: http.StatusBadGateway},
	}
	for _, cse := range cases {
		t.Run(cse.name, func(t *testing.T) {
			p := &mockPipeline{}
			if cse.askErr != nil {
				p.On("Ask", mock.Anything, cse.session, "q").Return(nil, cse.askErr)
			}
			rec := httptest.NewRecorder()
			New(p, defaultOptions()).Handler().ServeHTTP(rec, chatRequestFor(cse.body, cse.session))

			assert.Equal(t, cse.wantStatus, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
			p.AssertExpectations(t)
		})
	}
}

func TestDocuments(t *testing.T) {
	p := &mockPipeline{}
	p.On("Documents", mock.Anything, "s").Return([]storage.LedgerEntry{{Namespace: "s", Filename: "a.pdf", ChunksIndexed: 2}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set(SessionHeader, "s")
	rec := httptest.NewRecorder()
	New(p, defaultOptions()).Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "s", body["namespace"])
	docs, ok := body["documents"].([]any)
	require.True(t, ok)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.pdf", docs[0].(map[string]any)["filename"])
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Session-Id")
	rec := httptest.NewRecorder()
	New(&mockPipeline{}, defaultOptions()).Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), "x-session-id")
}

func TestRecovererWritesJSON(t *testing.T) {
	p := &mockPipeline{}
	p.On("Ask", mock.Anything, "s", "boom").Run(func(mock.Arguments) { panic("kaboom") })

	rec := httptest.NewRecorder()
	New(p, defaultOptions()).Handler().ServeHTTP(rec, chatRequestFor(`{"question":"boom"}`, "s"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec)["error"])
}
