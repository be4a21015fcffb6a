package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "hpcq API",
		Version:     "v1",
		Description: "hpcq, a shared-facility batch queue with Round Robin and Priority scheduling",
		Endpoints: []endpointInfo{
			{"/api/v1/jobs", []string{"GET", "POST"}, "Pending job queue: submit and list"},
			{"/api/v1/runs", []string{"GET", "POST"}, "Scheduling runs. POST drains the queue with the given algorithm"},
			{"/api/v1/runs/{id}", []string{"GET"}, "Single run detail"},
			{"/api/v1/runs/{id}/trace", []string{"GET"}, "Execution trace of a run, in decision order"},
			{"/api/v1/completed", []string{"GET"}, "Completed-job ledger (append-only)"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
