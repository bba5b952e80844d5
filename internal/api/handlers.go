package api

import (
	"context"
	"maps"
	"net/http"
	"slices"
)

// Health status values.
const (
	healthOK       = "ok"
	healthDegraded = "degraded"
)

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ModuleInfo names one registered module.
type ModuleInfo struct {
	Name  string `json:"name"`
	Topic string `json:"topic"`
}

// StateResponse is the body of GET /api/v1/state.
type StateResponse struct {
	WateringNeeded bool              `json:"watering_needed"`
	Modules        []ModuleInfo      `json:"modules"`
	Settings       map[string]string `json:"settings"`
}

// handleHealth runs every registered dependency check and reports 503 if
// any of them fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  healthOK,
		Version: s.version,
		Checks:  make(map[string]string, len(s.checks)+1),
	}

	for _, name := range slices.Sorted(maps.Keys(s.checks)) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			resp.Status = healthDegraded
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = healthOK
	}

	if s.broker != nil {
		if s.broker.IsRunning() {
			resp.Checks["broker"] = healthOK
		} else {
			resp.Status = healthDegraded
			resp.Checks["broker"] = string(s.broker.Status())
		}
	}

	status := http.StatusOK
	if resp.Status != healthOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleState reports the watering flag and the settings published at
// startup.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.state.Snapshot(r.Context())
	if err != nil {
		writeUnavailable(w, "shared state is busy")
		return
	}

	mods := s.registry.Modules()
	infos := make([]ModuleInfo, 0, len(mods))
	for _, m := range mods {
		infos = append(infos, ModuleInfo{Name: m.Name(), Topic: m.Topic()})
	}

	writeJSON(w, http.StatusOK, StateResponse{
		WateringNeeded: snap.WateringNeeded,
		Modules:        infos,
		Settings:       s.registry.Configs(),
	})
}

// handleBroker reports the supervised broker process.
func (s *Server) handleBroker(w http.ResponseWriter, _ *http.Request) {
	if s.broker == nil {
		writeNotFound(w, "broker is not managed by this hub")
		return
	}
	writeJSON(w, http.StatusOK, s.broker.Stats())
}
