package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"YapEngine/app/rag"
	"YapEngine/app/storage"
)

const (
	SessionHeader = "X-Session-Id"
	WelcomeText   = "Yap-Engine is Awake and Lightweight!"

	multipartMemory = 8 << 20
)

// Pipeline is the part of rag.Client the handlers depend on.
type Pipeline interface {
	Ingest(ctx context.Context, namespace string, doc rag.Document) (*rag.IngestResult, error)
	Ask(ctx context.Context, namespace, question string) (*rag.Answer, error)
	Documents(ctx context.Context, namespace string) ([]storage.LedgerEntry, error)
}

type Options struct {
	MaxUploadBytes   int64
	RequireSession   bool
	DefaultNamespace string
	IncludeSource    bool
}

type Server struct {
	pipeline Pipeline
	opts     Options
	validate *validator.Validate
	router   chi.Router
}

func New(pipeline Pipeline, opts Options) *Server {
	s := &Server{
		pipeline: pipeline,
		opts:     opts,
		validate: validator.New(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", SessionHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", s.handleHome)
	r.Post("/upload", s.handleUpload)
	r.Post("/chat", s.handleChat)
	r.Get("/documents", s.handleDocuments)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logrus.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
			}).Info("🌐 request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// recoverer turns a handler panic into a JSON 500.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				logrus.WithField("request_id", middleware.GetReqID(r.Context())).
					Errorf("💥 panic: %v\n%s", rvr, debug.Stack())
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
