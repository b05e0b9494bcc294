// Package web provides a simple web UI for gantry.
package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gantry-dev/gantry/internal/run"
	"github.com/gantry-dev/gantry/internal/ticket"
)

// Server provides the web UI handlers and state.
type Server struct {
	tickets *ticket.Store
	runs    *run.Store
}

// NewServer creates a new web server.
func NewServer(tickets *ticket.Store, runs *run.Store) (*Server, error) {
	return &Server{tickets: tickets, runs: runs}, nil
}

//go:embed templates/*.html
var templatesFS embed.FS

// Routes returns the router for the web UI.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("POST /tickets/{key}/done", s.handleMarkDone)
	mux.HandleFunc("POST /tickets/{key}/reopen", s.handleReopen)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

type indexData struct {
	Tickets []ticket.Ticket
	Runs    []run.RunRow
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	tickets, err := s.tickets.List(r.Context(), nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	runs, err := s.runs.ListRuns(r.Context(), 20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := tmpl.Execute(w, indexData{Tickets: tickets, Runs: runs}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleMarkDone(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := s.tickets.Transition(r.Context(), key, ticket.StatusDone); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReopen(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := s.tickets.Transition(r.Context(), key, ticket.StatusReopened); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
