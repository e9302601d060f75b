package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/pricealert/internal/domain"
	apimw "github.com/hamed0406/pricealert/internal/httpapi/middleware"
	"github.com/hamed0406/pricealert/internal/metrics"
	"github.com/hamed0406/pricealert/internal/repo"
)

// Server exposes the configured targets and their persisted alert state
// read-only. Runs happen elsewhere; this only reads the shared store.
type Server struct {
	Logger  *zap.Logger
	Targets []domain.Target
	Store   repo.StateStore
	Metrics *metrics.Recorder
}

func NewServer(l *zap.Logger, targets []domain.Target, store repo.StateStore, m *metrics.Recorder) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Targets: targets, Store: store, Metrics: m}
}

func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, publicRPM, publicBurst int) http.Handler {
	r := chi.NewRouter()
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "X-API-Key"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RateLimit(publicRPM, publicBurst))
		r.Use(apimw.RequireAny(keys))

		r.Get("/targets", s.handleListTargets)
		r.Get("/targets/{id}", s.handleGetTarget)
		r.Get("/state", s.handleState)
	})

	return r
}

type stateView struct {
	Armed         bool        `json:"armed"`
	LastState     domain.Zone `json:"lastState,omitempty"`
	LastAlertAtMs *int64      `json:"lastAlertAtMs"`
	LastAlertAt   *time.Time  `json:"lastAlertAt,omitempty"`
}

type targetView struct {
	ID         domain.TargetID `json:"id"`
	Label      string          `json:"label"`
	Threshold  float64         `json:"threshold"`
	Buffer     float64         `json:"buffer"`
	RearmLevel float64         `json:"rearmLevel"`
	State      stateView       `json:"state"`
}

func view(t domain.Target, rec domain.TargetState) targetView {
	sv := stateView{Armed: rec.Armed, LastState: rec.LastState, LastAlertAtMs: rec.LastAlertAtMs}
	if at, ok := rec.LastAlertAt(); ok {
		at = at.UTC()
		sv.LastAlertAt = &at
	}
	return targetView{
		ID:         t.ID,
		Label:      t.Label,
		Threshold:  t.Threshold,
		Buffer:     t.Buffer,
		RearmLevel: t.RearmLevel(),
		State:      sv,
	}
}

// loadState treats a store that was never written as all targets armed.
func (s *Server) loadState(r *http.Request) (domain.State, error) {
	st, err := s.Store.Load(r.Context())
	if errors.Is(err, repo.ErrNoState) {
		return domain.NewState(), nil
	}
	return st, err
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	st, err := s.loadState(r)
	if err != nil {
		s.Logger.Error("state_load_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "state unavailable")
		return
	}
	out := make([]targetView, 0, len(s.Targets))
	for _, t := range s.Targets {
		out = append(out, view(t, st.Record(t.ID)))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	id := domain.TargetID(chi.URLParam(r, "id"))
	for _, t := range s.Targets {
		if t.ID != id {
			continue
		}
		st, err := s.loadState(r)
		if err != nil {
			s.Logger.Error("state_load_failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "state unavailable")
			return
		}
		writeJSON(w, http.StatusOK, view(t, st.Record(t.ID)))
		return
	}
	writeError(w, http.StatusNotFound, "unknown target")
}

// handleState returns the persisted document as-is, including records for
// ids no longer configured.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.loadState(r)
	if err != nil {
		s.Logger.Error("state_load_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "state unavailable")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
