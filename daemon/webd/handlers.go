package webd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rotblauer/cleanspeed/params"
	"github.com/rotblauer/cleanspeed/source"
	"github.com/rotblauer/cleanspeed/state"
	"github.com/rotblauer/cleanspeed/tracker"
	"github.com/rotblauer/cleanspeed/types/trip"
	"github.com/rotblauer/cleanspeed/units"
)

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

type webDaemonStatus struct {
	StartedAt  time.Time               `json:"started_at"`
	Uptime     string                  `json:"uptime"`
	Config     *params.WebDaemonConfig `json:"config"`
	WSOpen     bool                    `json:"ws_open"`
	WSConns    int                     `json:"ws_conns"`
	Status     trip.Status             `json:"status"`
	PushActive bool                    `json:"push_active"`
	Fixes      map[string]int64        `json:"fixes"`
}

func (s *WebDaemon) statusReport(w http.ResponseWriter, r *http.Request) {
	tr := s.app.Tracker()
	st := webDaemonStatus{
		StartedAt:  s.started,
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		WSOpen:     !s.melodyInstance.IsClosed(),
		WSConns:    s.melodyInstance.Len(),
		Config:     s.Config,
		Status:     tr.Status(),
		PushActive: s.push != nil && s.push.Active(),
		Fixes:      map[string]int64{},
	}
	for _, o := range []tracker.Outcome{tracker.Accepted, tracker.Ignored, tracker.Malformed,
		tracker.WeakSignal, tracker.Stale, tracker.OutOfOrder} {
		st.Fixes[o.String()] = tr.Count(o)
	}
	s.writeJSON(w, st)
}

func (s *WebDaemon) writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func (s *WebDaemon) writeView(w http.ResponseWriter, r *http.Request) {
	v, err := s.app.View(r.Context())
	if err != nil {
		s.logger.Error("Failed to build view", "error", err)
		http.Error(w, "Failed to build view", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, v)
}

func (s *WebDaemon) handleView(w http.ResponseWriter, r *http.Request) {
	s.writeView(w, r)
}

func (s *WebDaemon) handleStart(w http.ResponseWriter, r *http.Request) {
	s.app.Start(r.Context())
	s.writeView(w, r)
}

func (s *WebDaemon) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.app.PauseOrResume(r.Context())
	s.writeView(w, r)
}

// handleStop stops the trip and responds with the saved trip,
// or 204 No Content when there was nothing to save.
func (s *WebDaemon) handleStop(w http.ResponseWriter, r *http.Request) {
	saved, err := s.app.StopAndSave(r.Context())
	if err != nil {
		s.logger.Error("Failed to save trip", "error", err)
		http.Error(w, "Failed to save trip", http.StatusInternalServerError)
		return
	}
	if saved == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, saved.Summary())
}

func (s *WebDaemon) handleReset(w http.ResponseWriter, r *http.Request) {
	s.app.Reset()
	s.writeView(w, r)
}

// handleFix accepts newline-delimited JSON fixes (see source.Decode).
// Fixes are refused with 409 Conflict while no trip is running.
func (s *WebDaemon) handleFix(w http.ResponseWriter, r *http.Request) {
	if s.push == nil {
		http.Error(w, "Fix push is not enabled", http.StatusNotFound)
		return
	}
	n, err := s.push.DeliverJSON(r.Context(), r.Body)
	if errors.Is(err, source.ErrInactive) {
		http.Error(w, "No trip running", http.StatusConflict)
		return
	}
	if err != nil {
		s.logger.Warn("Failed to decode fixes", "error", err, "delivered", n)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.writeJSON(w, map[string]int{"delivered": n})
}

func (s *WebDaemon) handleRecentTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.app.RecentTrips(r.Context())
	if err != nil {
		s.logger.Error("Failed to read trips", "error", err)
		http.Error(w, "Failed to read trips", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, trips)
}

func getRequestTripID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
}

// handleGetTrip selects the trip for review and responds with it, points included.
func (s *WebDaemon) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := getRequestTripID(r)
	if err != nil {
		http.Error(w, "Bad trip id", http.StatusBadRequest)
		return
	}
	t, err := s.app.LoadTrip(r.Context(), id)
	if errors.Is(err, state.ErrTripNotFound) {
		http.Error(w, "No trip that", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("Failed to read trip", "error", err)
		http.Error(w, "Failed to read trip", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, t)
}

func (s *WebDaemon) handleClearSelected(w http.ResponseWriter, r *http.Request) {
	s.app.ClearSelectedTrip()
	w.WriteHeader(http.StatusNoContent)
}

// handleTripGeoJSON renders the trip as a GeoJSON feature.
// Stored trips never change, so renderings are cached.
func (s *WebDaemon) handleTripGeoJSON(w http.ResponseWriter, r *http.Request) {
	id, err := getRequestTripID(r)
	if err != nil {
		http.Error(w, "Bad trip id", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if item := s.exports.Get(id); item != nil {
		_, _ = w.Write(item.Value())
		return
	}

	t, err := s.app.Trip(r.Context(), id)
	if errors.Is(err, state.ErrTripNotFound) {
		http.Error(w, "No trip that", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("Failed to read trip", "error", err)
		http.Error(w, "Failed to read trip", http.StatusInternalServerError)
		return
	}
	b, err := json.Marshal(t.Feature())
	if err != nil {
		s.logger.Error("Failed to render trip", "error", err)
		http.Error(w, "Failed to render trip", http.StatusInternalServerError)
		return
	}
	s.exports.Set(id, b, ttlcache.DefaultTTL)
	_, _ = w.Write(b)
}

func (s *WebDaemon) handleGetPrefs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.app.Preferences())
}

type prefsRequest struct {
	Units     *string `json:"units"`
	KeepAwake *bool   `json:"keep_awake"`
}

// handlePutPrefs updates the preferences present in the body.
func (s *WebDaemon) handlePutPrefs(w http.ResponseWriter, r *http.Request) {
	req := prefsRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad preferences", http.StatusBadRequest)
		return
	}
	if req.Units != nil {
		sys, err := units.ParseSystem(*req.Units)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.app.SetUnits(sys); err != nil {
			s.logger.Error("Failed to store preferences", "error", err)
			http.Error(w, "Failed to store preferences", http.StatusInternalServerError)
			return
		}
	}
	if req.KeepAwake != nil {
		if err := s.app.SetKeepAwake(*req.KeepAwake); err != nil {
			s.logger.Error("Failed to store preferences", "error", err)
			http.Error(w, "Failed to store preferences", http.StatusInternalServerError)
			return
		}
	}
	s.writeJSON(w, s.app.Preferences())
}

// handlePermission lets a presentation report the user's location permission decision.
func (s *WebDaemon) handlePermission(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Denied bool `json:"denied"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad permission", http.StatusBadRequest)
		return
	}
	s.app.SetPermissionDenied(req.Denied)
	s.writeView(w, r)
}
