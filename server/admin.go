package server

import (
	"encoding/json"
	"net/http"
)

// HandleRooms reports live room occupancy.
// GET /admin/rooms
func (g *Gateway) HandleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	payload := map[string]any{
		"capacity": RoomCapacity,
		"rooms":    g.table.Rooms(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// HandleMetrics reports the gateway counters.
// GET /metrics
func (g *Gateway) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(g.metrics.Snapshot())
}
