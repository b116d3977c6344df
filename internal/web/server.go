package web

import (
	"net/http"

	"github.com/conorfennell/vocabquiz/internal/quiz"
	"github.com/conorfennell/vocabquiz/internal/sync"
	"github.com/conorfennell/vocabquiz/internal/vocab"
)

// ClientHeader identifies the client whose quiz rounds a request concerns.
const ClientHeader = "X-Client-ID"

// Server holds the dependencies for the HTTP server.
type Server struct {
	router  *http.ServeMux
	handler http.Handler
	vocab   *vocab.Service
	quiz    *quiz.Service
	syncer  *sync.Syncer
}

// NewServer creates and configures a new server.
func NewServer(vocab *vocab.Service, quiz *quiz.Service, syncer *sync.Syncer) *Server {
	s := &Server{
		router: http.NewServeMux(),
		vocab:  vocab,
		quiz:   quiz,
		syncer: syncer,
	}
	s.routes()
	s.handler = logRequests(cors(s.router))
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /health", s.handleHealth())

	s.router.HandleFunc("GET /api/vocab", s.handleListVocab())
	s.router.HandleFunc("POST /api/vocab", s.handleCreateVocab())
	s.router.HandleFunc("GET /api/vocab/export", s.handleExportVocab())
	s.router.HandleFunc("GET /api/vocab/{id}", s.handleGetVocab())
	s.router.HandleFunc("PUT /api/vocab/{id}", s.handleUpdateVocab())
	s.router.HandleFunc("DELETE /api/vocab/{id}", s.handleDeleteVocab())
	s.router.HandleFunc("POST /api/vocab/{id}/answers", s.handleRecordAnswer())
	s.router.HandleFunc("GET /api/cards", s.handleListCards())

	s.router.HandleFunc("POST /api/quiz/start", s.handleStartQuiz())
	s.router.HandleFunc("GET /api/quiz/next", s.handleNextQuestions())
	s.router.HandleFunc("GET /api/quiz/sessions/{id}", s.handleGetSession())
	s.router.HandleFunc("POST /api/quiz/answer", s.handleAnswer())
	s.router.HandleFunc("POST /api/quiz/finish", s.handleFinish())

	// Source management routes
	s.router.HandleFunc("GET /api/sources", s.handleListSources())
	s.router.HandleFunc("POST /api/sources", s.handleAddSource())
	s.router.HandleFunc("DELETE /api/sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /api/sync", s.handlePostSync())
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func clientID(r *http.Request) string {
	if id := r.Header.Get(ClientHeader); id != "" {
		return id
	}
	return quiz.DefaultClient
}
