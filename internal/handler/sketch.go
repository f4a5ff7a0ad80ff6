package handler

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"packetflow/internal/service"
)

// SketchHandler serves the controls shared by every sketch
type SketchHandler struct {
	runner *service.Runner
	logger *zap.Logger
}

// NewSketchHandler creates a new sketch handler
func NewSketchHandler(runner *service.Runner, logger *zap.Logger) *SketchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SketchHandler{runner: runner, logger: logger.Named("handler")}
}

// SpeedRequest is the body of PUT /api/sketches/{name}/speed
type SpeedRequest struct {
	Speed *float64 `json:"speed"`
}

// MaxPacketsRequest is the body of PUT /api/sketches/{name}/max-packets
type MaxPacketsRequest struct {
	MaxPackets *int `json:"max_packets"`
}

// SwitchRequest is the optional body of POST /api/sketches/{name}/switch.
// An empty network moves to the next one.
type SwitchRequest struct {
	Network string `json:"network"`
}

// List returns the status of every sketch
func (h *SketchHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.runner.List(), http.StatusOK)
}

// Get returns the current snapshot of one sketch
func (h *SketchHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.runner.Snapshot(r.PathValue("name"))
	if err != nil {
		writeServiceError(w, h.logger, "Failed to get sketch", err)
		return
	}
	writeJSON(w, snap, http.StatusOK)
}

// Reset resets one sketch and returns its fresh snapshot
func (h *SketchHandler) Reset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.runner.Reset(name); err != nil {
		writeServiceError(w, h.logger, "Failed to reset sketch", err)
		return
	}
	h.writeStatus(w, name)
}

// Pause toggles one sketch between running and paused
func (h *SketchHandler) Pause(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, err := h.runner.TogglePause(name); err != nil {
		writeServiceError(w, h.logger, "Failed to toggle pause", err)
		return
	}
	h.writeStatus(w, name)
}

// SetSpeed changes one sketch's speed multiplier
func (h *SketchHandler) SetSpeed(w http.ResponseWriter, r *http.Request) {
	var req SpeedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Speed == nil {
		writeError(w, "Invalid request body", "speed is required", http.StatusBadRequest)
		return
	}

	name := r.PathValue("name")
	if err := h.runner.SetSpeed(name, *req.Speed); err != nil {
		writeServiceError(w, h.logger, "Failed to set speed", err)
		return
	}
	h.writeStatus(w, name)
}

// SetMaxPackets changes the live packet cap of a sketch that has one
func (h *SketchHandler) SetMaxPackets(w http.ResponseWriter, r *http.Request) {
	var req MaxPacketsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if req.MaxPackets == nil {
		writeError(w, "Invalid request body", "max_packets is required", http.StatusBadRequest)
		return
	}

	name := r.PathValue("name")
	if err := h.runner.SetMaxPackets(name, *req.MaxPackets); err != nil {
		writeServiceError(w, h.logger, "Failed to set max packets", err)
		return
	}
	h.writeStatus(w, name)
}

// AddLoss schedules a manual loss on a sketch that accepts them
func (h *SketchHandler) AddLoss(w http.ResponseWriter, r *http.Request) {
	ev, err := h.runner.AddLoss(r.PathValue("name"))
	if err != nil {
		writeServiceError(w, h.logger, "Failed to add loss", err)
		return
	}
	writeJSON(w, ev, http.StatusAccepted)
}

// Switch starts a network switch and returns the snapshot showing the
// pending transition
func (h *SketchHandler) Switch(w http.ResponseWriter, r *http.Request) {
	var req SwitchRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	name := r.PathValue("name")
	if err := h.runner.SwitchNetwork(name, req.Network); err != nil {
		writeServiceError(w, h.logger, "Failed to switch network", err)
		return
	}
	snap, err := h.runner.Snapshot(name)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to get sketch", err)
		return
	}
	writeJSON(w, snap, http.StatusAccepted)
}

func (h *SketchHandler) writeStatus(w http.ResponseWriter, name string) {
	s, err := h.runner.Get(name)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to get sketch", err)
		return
	}
	writeJSON(w, s.Status(), http.StatusOK)
}
