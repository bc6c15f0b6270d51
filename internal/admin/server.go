package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"truckops-sim/internal/history"
	"truckops-sim/internal/sim"
)

// HistorySource answers history queries. *history.Store satisfies it.
type HistorySource interface {
	RecentStatus(ctx context.Context, vehicleID string, limit int) ([]history.StatusRecord, error)
	Samples(ctx context.Context, vehicleID string, limit int) ([]history.SampleRecord, error)
}

type Server struct {
	Sim       *sim.Simulator
	History   HistorySource
	StreamBuf int
	tpl       *template.Template
	mux       *http.ServeMux
}

//go:embed templates/index.html
var content embed.FS

const defaultHistoryLimit = 100

func NewServer(s *sim.Simulator, h HistorySource) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	srv := &Server{Sim: s, History: h, StreamBuf: 16, tpl: tpl, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/telemetry", s.handleTelemetry)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/events", s.handleEvents)
	s.mux.HandleFunc("/control/start", s.handleStart)
	s.mux.HandleFunc("/control/stop", s.handleStop)
	s.mux.HandleFunc("/history", s.handleHistory)
}

// Handler exposes the routes for embedding or testing.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("admin server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := struct {
		VehicleID    string
		TickInterval time.Duration
		Running      bool
		Observers    int
		HasHistory   bool
	}{
		VehicleID:    s.Sim.VehicleID(),
		TickInterval: s.Sim.TickInterval(),
		Running:      s.Sim.Running(),
		Observers:    s.Sim.ObserverCount(),
		HasHistory:   s.History != nil,
	}
	if err := s.tpl.Execute(w, data); err != nil {
		slog.Error("render index", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Latest())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	latest := s.Sim.Latest()
	writeJSON(w, map[string]any{
		"vehicle_id":     s.Sim.VehicleID(),
		"running":        s.Sim.Running(),
		"paused":         s.Sim.Paused(),
		"observers":      s.Sim.ObserverCount(),
		"consumers":      s.Sim.Consumers(),
		"tick_interval":  s.Sim.TickInterval().String(),
		"tick":           latest.Tick,
		"status_updates": latest.StatusUpdates,
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.Sim.Start()
	writeJSON(w, map[string]any{"running": s.Sim.Running()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.Sim.Stop()
	writeJSON(w, map[string]any{"running": s.Sim.Running()})
}

// handleEvents streams snapshots as server-sent events. The connection
// counts as a consumer for as long as it stays open.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	obs := s.Sim.NewChanObserver(s.StreamBuf)
	defer obs.Close()
	b, err := s.Sim.Attach(obs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.Detach()
	slog.Debug("event stream opened", "binding_id", b.ID, "remote", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("event stream closed", "binding_id", b.ID, "dropped", obs.Dropped())
			return
		case m, ok := <-obs.C():
			if !ok {
				return
			}
			data, err := json.Marshal(m)
			if err != nil {
				slog.Error("encode snapshot", "err", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", m.Tick, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		http.Error(w, "history store not configured", http.StatusNotFound)
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	vehicle := r.URL.Query().Get("vehicle_id")
	if vehicle == "" {
		vehicle = s.Sim.VehicleID()
	}
	status, err := s.History.RecentStatus(r.Context(), vehicle, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	samples, err := s.History.Samples(r.Context(), vehicle, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"vehicle_id": vehicle,
		"status":     status,
		"samples":    samples,
	})
}
