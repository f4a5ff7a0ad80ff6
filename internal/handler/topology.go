package handler

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"packetflow/internal/codec"
	"packetflow/internal/domain"
	"packetflow/internal/service"
)

// TopologyHandler serves the packet-flow topology, packet injection and the
// delivery log
type TopologyHandler struct {
	svc    *service.PacketFlowService
	logger *zap.Logger
}

// NewTopologyHandler creates a new topology handler
func NewTopologyHandler(svc *service.PacketFlowService, logger *zap.Logger) *TopologyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopologyHandler{svc: svc, logger: logger.Named("handler")}
}

// SpawnRequest is the body of POST /api/sketches/packet-flow/packets
type SpawnRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// RouteResponse is returned by GET /api/topology/route
type RouteResponse struct {
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Path        []string `json:"path"`
	Hops        int      `json:"hops"`
}

// Export writes the active topology as JSON (default) or YAML
func (h *TopologyHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		writeServiceError(w, h.logger, "Unsupported format", err)
		return
	}

	var buf bytes.Buffer
	if err := c.Export(h.svc.Topology(), &buf); err != nil {
		writeServiceError(w, h.logger, "Failed to export topology", err)
		return
	}

	if c.Format() == "json" {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "application/x-yaml")
	}
	w.Write(buf.Bytes())
}

// Replace parses a topology from the body (YAML unless Content-Type says
// JSON), swaps it in and resets the simulation
func (h *TopologyHandler) Replace(w http.ResponseWriter, r *http.Request) {
	c := codec.ForContentType(r.Header.Get("Content-Type"))
	topo, err := c.Parse(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, "Invalid topology", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.SetTopology(topo); err != nil {
		writeServiceError(w, h.logger, "Failed to replace topology", err)
		return
	}
	writeJSON(w, domain.DeriveGraph(topo), http.StatusOK)
}

// Route returns the path a packet would take between two nodes
func (h *TopologyHandler) Route(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("from")
	dst := r.URL.Query().Get("to")
	if src == "" || dst == "" {
		writeError(w, "Invalid query", "from and to are required", http.StatusBadRequest)
		return
	}

	path, err := h.svc.Route(src, dst)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to route", err)
		return
	}
	writeJSON(w, RouteResponse{
		Source:      src,
		Destination: dst,
		Path:        path,
		Hops:        len(path) - 1,
	}, http.StatusOK)
}

// Spawn injects a packet between two non-hub nodes
func (h *TopologyHandler) Spawn(w http.ResponseWriter, r *http.Request) {
	var req SpawnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.Spawn(req.Source, req.Destination)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to spawn packet", err)
		return
	}
	writeJSON(w, p, http.StatusCreated)
}

// ListDeliveries returns recorded deliveries, newest first
func (h *TopologyHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil || limit < 0 {
		writeError(w, "Invalid query", "limit must be a non-negative integer", http.StatusBadRequest)
		return
	}

	deliveries, err := h.svc.Deliveries(r.Context(), limit, queryBool(r, "all"))
	if err != nil {
		writeServiceError(w, h.logger, "Failed to list deliveries", err)
		return
	}
	writeJSON(w, deliveries, http.StatusOK)
}

// DeliveryStats summarizes recorded deliveries
func (h *TopologyHandler) DeliveryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.DeliveryStats(r.Context(), queryBool(r, "all"))
	if err != nil {
		writeServiceError(w, h.logger, "Failed to get delivery stats", err)
		return
	}
	writeJSON(w, stats, http.StatusOK)
}
