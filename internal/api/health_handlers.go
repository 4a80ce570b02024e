package api

import "net/http"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.RebuildPool != nil {
		body["rebuild_queue"] = s.RebuildPool.QueueSize()
	}
	respondJSON(w, http.StatusOK, body)
}
