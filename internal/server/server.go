// Package server exposes the graph registry over HTTP.
//
// Every request carries a principal in the X-Foundry-Principal header; the
// registry enforces per-graph permissions, so the server only has to extract
// the principal and translate errors to status codes.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/entity"
	apperrors "github.com/gioppoluca/foundry-graph-sub000/pkg/errors"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/export"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/registry"
)

// PrincipalHeader carries the acting user's identity.
const PrincipalHeader = "X-Foundry-Principal"

// Server is the HTTP surface over a registry and exporter.
type Server struct {
	registry *registry.Registry
	exporter *export.Exporter
	logger   *log.Logger
}

// New creates the server.
func New(reg *registry.Registry, exp *export.Exporter, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{registry: reg, exporter: exp, logger: logger}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.requirePrincipal)

	r.Route("/api", func(r chi.Router) {
		r.Get("/graphtypes", s.handleGraphTypes)
		r.Route("/graphs", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.Get("/{id}", s.handleGet)
			r.Put("/{id}", s.handlePut)
			r.Delete("/{id}", s.handleDelete)
			r.Get("/{id}/export", s.handleExport)
		})
		r.Post("/entities/cleanup", s.handleCleanup)
	})
	return r
}

// ListenAndServe runs the server until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("listening", "addr", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// =============================================================================
// Middleware
// =============================================================================

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		ctx := log.WithContext(r.Context(), s.logger)
		next.ServeHTTP(ww, r.WithContext(ctx))

		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}

func (s *Server) requirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := r.Header.Get(PrincipalHeader)
		if err := apperrors.ValidatePrincipal(principal); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func principal(r *http.Request) string { return r.Header.Get(PrincipalHeader) }

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleGraphTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.GraphTypes())
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.registry.GetAllGraphs(r.Context(), principal(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []document.Summary{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := s.registry.GetGraph(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDocument(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := s.registry.UpsertGraph(r.Context(), principal(r), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDocument(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if id := chi.URLParam(r, "id"); d.ID != id {
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput,
			"body id %q does not match path id %q", d.ID, id))
		return
	}
	entry, err := s.registry.UpsertGraph(r.Context(), principal(r), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeleteGraph(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatSVG
	}

	d, err := s.registry.GetGraph(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := s.registry.GetAllGraphs(r.Context(), principal(r))
	if err != nil {
		writeError(w, err)
		return
	}
	revision := 0
	for _, e := range entries {
		if e.ID == id {
			revision = e.Revision
			break
		}
	}

	data, err := s.exporter.Export(r.Context(), d, revision, format)
	if err != nil {
		writeError(w, err)
		return
	}

	switch format {
	case export.FormatSVG:
		w.Header().Set("Content-Type", "image/svg+xml")
	case export.FormatPNG:
		w.Header().Set("Content-Type", "image/png")
	default:
		w.Header().Set("Content-Type", "text/vnd.graphviz")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// cleanupRequest is the entity-deletion hook payload.
type cleanupRequest struct {
	Ref string `json:"ref"`
}

type cleanupResponse struct {
	Affected []string `json:"affected"`
	Cleaned  int      `json:"cleaned"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode cleanup request"))
		return
	}
	ref, err := entity.ParseRef(req.Ref)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "parse entity ref"))
		return
	}

	cleaned, err := s.registry.CleanupEntity(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}
	if cleaned == nil {
		cleaned = []string{}
	}
	writeJSON(w, http.StatusOK, cleanupResponse{Affected: cleaned, Cleaned: len(cleaned)})
}

// =============================================================================
// Encoding helpers
// =============================================================================

func decodeDocument(r *http.Request) (*document.GraphDocument, error) {
	var d document.GraphDocument
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode document")
	}
	return &d, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	writeJSON(w, statusFor(code), errorBody{Code: string(code), Message: apperrors.UserMessage(err)})
}

func statusFor(code apperrors.Code) int {
	switch code {
	case apperrors.ErrCodeGraphNotFound, apperrors.ErrCodeNotFound, apperrors.ErrCodeTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInvalidLink, apperrors.ErrCodeInvalidNode,
		apperrors.ErrCodeInvalidRenderer, apperrors.ErrCodeInvalidFormat, apperrors.ErrCodeInvalidDocument,
		apperrors.ErrCodeCycle:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
