package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hearthd/hearthd/internal/room"
)

// handleStatus returns the status snapshot of every room.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": s.core.RoomStatuses(time.Now()),
	})
}

// handleGetRoom returns one room's status snapshot.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	status, err := s.core.RoomStatus(name, time.Now())
	if err != nil {
		writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type overrideRequest struct {
	TargetC   float64 `json:"target_c"`
	DurationS int     `json:"duration_s"`
}

// handleSetOverride pins a room's target for a duration.
func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DurationS <= 0 {
		writeBadRequest(w, "duration_s must be positive")
		return
	}

	until := time.Now().Add(time.Duration(req.DurationS) * time.Second)
	if err := s.core.Override(name, room.DeciFromC(req.TargetC), until); err != nil {
		writeRoomError(w, err)
		return
	}

	s.logger.Info("manual override set",
		"room", name,
		"target_c", req.TargetC,
		"until", until.Format(time.RFC3339))
	writeJSON(w, http.StatusOK, map[string]any{
		"room":     name,
		"target_c": req.TargetC,
		"until":    until,
	})
}

// handleClearOverride removes a room's manual target.
func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.core.ClearOverride(name); err != nil {
		writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": name})
}

type disableRequest struct {
	DurationS int `json:"duration_s"`
}

// handleDisable suppresses automatic heating for a duration.
func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req disableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DurationS <= 0 {
		writeBadRequest(w, "duration_s must be positive")
		return
	}

	until := time.Now().Add(time.Duration(req.DurationS) * time.Second)
	if err := s.core.Disable(name, until); err != nil {
		writeRoomError(w, err)
		return
	}

	s.logger.Info("heating disabled", "room", name, "until", until.Format(time.RFC3339))
	writeJSON(w, http.StatusOK, map[string]any{
		"room":  name,
		"until": until,
	})
}

// handleEnable lifts a disable window immediately.
func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.core.EnableNow(name); err != nil {
		writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": name})
}

type relayRequest struct {
	On      bool `json:"on"`
	DelayMS int  `json:"delay_ms"`
}

// handleRelayCommand sends a manual relay command through the
// dispatcher, subject to the same confirm/retry handling as automatic
// ones.
func (s *Server) handleRelayCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req relayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DelayMS < 0 {
		writeBadRequest(w, "delay_ms must not be negative")
		return
	}

	if err := s.core.CommandRelay(name, req.On, time.Duration(req.DelayMS)*time.Millisecond); err != nil {
		writeRoomError(w, err)
		return
	}

	s.logger.Info("manual relay command", "room", name, "on", req.On)
	writeJSON(w, http.StatusOK, map[string]any{
		"room": name,
		"on":   req.On,
	})
}

// handleForceHeat opens the boost window, as a device button would.
func (s *Server) handleForceHeat(w http.ResponseWriter, _ *http.Request) {
	s.core.ForceHeat()
	writeJSON(w, http.StatusOK, map[string]any{"status": "forced"})
}

// writeRoomError maps store errors to HTTP responses.
func writeRoomError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, room.ErrPastDeadline):
		writeBadRequest(w, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
