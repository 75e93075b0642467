package httpapi

import "net/http"

func (s *Server) handleListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.repo.GetLabels(r.Context())
	if err != nil {
		s.logger.Error("list labels failed", errField(err))
		writeError(w, http.StatusInternalServerError, "failed to list labels")
		return
	}
	writeJSON(w, http.StatusOK, labels)
}
