package httpapi

import "net/http"

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.repo.GetUsers(r.Context())
	if err != nil {
		s.logger.Error("list users failed", errField(err))
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}
