package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"klein/internal/health"
	"klein/internal/membership"
)

type homeResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type heartbeatResponse struct {
	RequestTime int64           `json:"request_time"`
	ServerHB    []health.Report `json:"server_hb"`
}

type repMessage struct {
	N        int      `json:"N"`
	Replicas []string `json:"replicas"`
}

type repResponse struct {
	Message repMessage `json:"message"`
	Status  string     `json:"status"`
}

// changeRequest is the body of /add and /rm. Hostnames beyond n are used
// as-is; for /add, missing names up to n are synthesized.
type changeRequest struct {
	N         int      `json:"n"`
	Hostnames []string `json:"hostnames"`
}

type changeResponse struct {
	Results []membership.Result `json:"results"`
	Status  string              `json:"status"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encoding response failed", zap.Error(err))
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	backend, ok := s.dispatcher.Pick()
	if !ok {
		s.writeJSON(w, http.StatusOK, homeResponse{
			Message: "Could not get server",
			Status:  "error",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, homeResponse{
		Message: fmt.Sprintf("Hello from Server: %s", backend.Name),
		Status:  "successful",
	})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	now := time.Now().Unix()
	s.lastHeartbeat.Store(now)

	s.writeJSON(w, http.StatusOK, heartbeatResponse{
		RequestTime: now,
		ServerHB:    s.monitor.CheckAll(r.Context()),
	})
}

func (s *Server) handleRep(w http.ResponseWriter, r *http.Request) {
	backends := s.pool.Backends()
	names := make([]string, 0, len(backends))
	for _, b := range backends {
		names = append(names, b.Name)
	}
	s.writeJSON(w, http.StatusOK, repResponse{
		Message: repMessage{N: len(names), Replicas: names},
		Status:  "successful",
	})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req changeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, homeResponse{
			Message: "invalid request body",
			Status:  "error",
		})
		return
	}

	names := req.Hostnames
	for len(names) < req.N {
		names = append(names, fmt.Sprintf("server-%d", s.src.NextID()))
	}

	results := make([]membership.Result, 0, len(names))
	for _, name := range names {
		_, res := s.manager.Add(r.Context(), name)
		results = append(results, res)
	}
	s.writeJSON(w, http.StatusOK, changeResponse{Results: results, Status: "successful"})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req changeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, homeResponse{
			Message: "invalid request body",
			Status:  "error",
		})
		return
	}

	results := make([]membership.Result, 0, len(req.Hostnames))
	for _, name := range req.Hostnames {
		results = append(results, s.manager.Remove(r.Context(), name))
	}
	s.writeJSON(w, http.StatusOK, changeResponse{Results: results, Status: "successful"})
}
