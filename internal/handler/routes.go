package handler

import (
	"net/http"
)

// Routes registers the API on mux. events serves the SSE stream and static
// serves everything else; either may be nil.
func Routes(mux *http.ServeMux, sketches *SketchHandler, topology *TopologyHandler, events, static http.Handler) {
	// Sketch endpoints
	mux.HandleFunc("GET /api/sketches", sketches.List)
	mux.HandleFunc("GET /api/sketches/{name}", sketches.Get)
	mux.HandleFunc("POST /api/sketches/{name}/reset", sketches.Reset)
	mux.HandleFunc("POST /api/sketches/{name}/pause", sketches.Pause)
	mux.HandleFunc("PUT /api/sketches/{name}/speed", sketches.SetSpeed)
	mux.HandleFunc("PUT /api/sketches/{name}/max-packets", sketches.SetMaxPackets)
	mux.HandleFunc("POST /api/sketches/{name}/loss", sketches.AddLoss)
	mux.HandleFunc("POST /api/sketches/{name}/switch", sketches.Switch)

	// Packet flow endpoints
	mux.HandleFunc("POST /api/sketches/packet-flow/packets", topology.Spawn)
	mux.HandleFunc("GET /api/topology", topology.Export)
	mux.HandleFunc("PUT /api/topology", topology.Replace)
	mux.HandleFunc("GET /api/topology/route", topology.Route)
	mux.HandleFunc("GET /api/deliveries", topology.ListDeliveries)
	mux.HandleFunc("GET /api/deliveries/stats", topology.DeliveryStats)

	if events != nil {
		mux.Handle("GET /events", events)
	}
	if static != nil {
		mux.Handle("/", static)
	}
}

// NewRouter builds the complete HTTP handler with middleware applied
func NewRouter(sketches *SketchHandler, topology *TopologyHandler, events, static http.Handler) http.Handler {
	mux := http.NewServeMux()
	Routes(mux, sketches, topology, events, static)
	return Chain(mux,
		Recover,
		CORS,
		Logger,
	)
}
