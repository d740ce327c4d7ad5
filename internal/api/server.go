// Package api serves the local admin HTTP surface: runtime status,
// tuning-parameter inspection and adjustment, and the live marker table.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/tabletop/internal/config"
	"github.com/banshee-data/tabletop/internal/hub"
	"github.com/banshee-data/tabletop/internal/monitoring"
	"github.com/banshee-data/tabletop/internal/tangible"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	hub      *hub.Hub
	registry *tangible.Registry
	engine   *tangible.Engine
	tuning   *config.Tuning
}

func NewServer(h *hub.Hub, registry *tangible.Registry, engine *tangible.Engine, tuning *config.Tuning) *Server {
	return &Server{
		hub:      h,
		registry: registry,
		engine:   engine,
		tuning:   tuning,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/api/objects", s.listObjects)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	status := map[string]interface{}{
		"subscribers":      s.hub.Count(),
		"published_events": s.hub.Published(),
		"tracked_objects":  s.registry.Len(),
		"gesture_enabled":  s.engine.GestureEnabled(),
	}

	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write status")
		return
	}
}

// paramsView is the resolved parameter set: defaults applied, live values
// read from the running engine where they can drift from the file.
type paramsView struct {
	ProximityThreshold   float64  `json:"proximity_threshold"`
	HoverInterval        string   `json:"hover_interval"`
	Medications          []string `json:"medications"`
	GestureAcceptance    float64  `json:"gesture_acceptance"`
	ResamplePoints       int      `json:"resample_points"`
	BaseMinutes          int      `json:"base_minutes"`
	MaxAdjustmentMinutes int      `json:"max_adjustment_minutes"`
	UpdateInterval       string   `json:"update_interval"`
	RetryBackoff         string   `json:"retry_backoff"`
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		raw := r.FormValue("proximity_threshold")
		if raw == "" {
			s.writeJSONError(w, http.StatusBadRequest, "Missing 'proximity_threshold' parameter")
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'proximity_threshold' parameter")
			return
		}
		s.engine.SetProximityThreshold(v)
		monitoring.Logf("api: proximity_threshold set to %v", v)
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	view := paramsView{
		ProximityThreshold:   s.engine.ProximityThreshold(),
		HoverInterval:        s.tuning.GetHoverInterval().String(),
		Medications:          s.tuning.GetMedications(),
		GestureAcceptance:    s.tuning.GetGestureAcceptance(),
		ResamplePoints:       s.tuning.GetResamplePoints(),
		BaseMinutes:          s.tuning.GetBaseMinutes(),
		MaxAdjustmentMinutes: s.tuning.GetMaxAdjustmentMinutes(),
		UpdateInterval:       s.tuning.GetUpdateInterval().String(),
		RetryBackoff:         s.tuning.GetRetryBackoff().String(),
	}

	if err := json.NewEncoder(w).Encode(view); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write params")
		return
	}
}

// objectView is one registry entry in the canonical wire field names.
type objectView struct {
	SymbolID  int     `json:"symbol_id"`
	SessionID int64   `json:"session_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Angle     float64 `json:"angle"`
}

func (s *Server) listObjects(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	objects := s.registry.Snapshot()
	views := make([]objectView, len(objects))
	for i, obj := range objects {
		views[i] = objectView{
			SymbolID:  obj.SymbolID,
			SessionID: obj.SessionID,
			X:         obj.X,
			Y:         obj.Y,
			Angle:     obj.Angle,
		}
	}

	if err := json.NewEncoder(w).Encode(views); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to write objects: %v", err))
		return
	}
}
