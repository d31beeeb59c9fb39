package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"YapEngine/app/extractor"
	"YapEngine/app/rag"
)

type chatRequest struct {
	Question string `json:"question" validate:"required"`
}

type chatResponse struct {
	Answer string `json:"answer"`
	Source string `json:"source,omitempty"`
}

type uploadResponse struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Chunks   int    `json:"chunks"`
	Skipped  int    `json:"skipped"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var errMissingSession = errors.New("missing " + strings.ToLower(SessionHeader) + " header")

func (s *Server) namespace(r *http.Request) (string, error) {
	ns := strings.TrimSpace(r.Header.Get(SessionHeader))
	if ns != "" {
		return ns, nil
	}
	if s.opts.RequireSession {
		return "", errMissingSession
	}
	return s.opts.DefaultNamespace, nil
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": WelcomeText})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ns, err := s.namespace(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}
	if err = r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("missing form field \"file\""))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	res, err := s.pipeline.Ingest(r.Context(), ns, rag.Document{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		status := ingestStatus(err)
		logrus.WithFields(logrus.Fields{"namespace": ns, "filename": header.Filename, "status": status}).
			Errorf("❌ Upload failed: %v", err)
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Filename: res.Filename,
		Status:   "Indexed Successfully",
		Chunks:   res.Indexed,
		Skipped:  res.Skipped,
	})
}

func ingestStatus(err error) int {
	switch {
	case errors.Is(err, extractor.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, rag.ErrNoText), errors.Is(err, rag.ErrNoEmbeddings), errors.Is(err, rag.ErrExtraction):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ns, err := s.namespace(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req chatRequest
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if err = s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("question is required"))
		return
	}

	answer, err := s.pipeline.Ask(r.Context(), ns, req.Question)
	if err != nil {
		logrus.WithField("namespace", ns).Errorf("❌ Chat failed: %v", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}

	resp := chatResponse{Answer: answer.Text}
	if s.opts.IncludeSource && !answer.Degraded {
		resp.Source = answer.Context
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	ns, err := s.namespace(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	docs, err := s.pipeline.Documents(r.Context(), ns)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"namespace": ns, "documents": docs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("⚠️ Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
