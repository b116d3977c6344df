package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/conorfennell/vocabquiz/internal/domain"
	"github.com/conorfennell/vocabquiz/internal/sync"
)

type sourceResponse struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	LastScanned *time.Time `json:"last_scanned,omitempty"`
}

func newSourceResponse(src domain.Source) sourceResponse {
	return sourceResponse{ID: src.ID, Path: src.Path, Type: string(src.Type), LastScanned: src.LastScanned}
}

type addSourceRequest struct {
	Path string `json:"path" validate:"required"`
}

// handleListSources lists the registered word list sources.
func (s *Server) handleListSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := s.syncer.Sources(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]sourceResponse, 0, len(sources))
		for _, src := range sources {
			out = append(out, newSourceResponse(src))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleAddSource registers a local directory or git URL.
func (s *Server) handleAddSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addSourceRequest
		if err := decodeValid(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		src, err := s.syncer.AddSource(r.Context(), req.Path)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newSourceResponse(*src))
	}
}

// handleDeleteSource removes a source by its ID.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, r, domain.Validation("invalid source ID %q", r.PathValue("id")))
			return
		}
		if err := s.syncer.RemoveSource(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostSync runs a sync in the foreground and reports per source.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, err := s.syncer.RunSync(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if reports == nil {
			reports = []sync.Report{}
		}
		writeJSON(w, http.StatusOK, reports)
	}
}
