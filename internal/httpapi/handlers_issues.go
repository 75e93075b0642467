package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/issueboard/server/internal/repository"
	"github.com/issueboard/server/internal/store"
	"github.com/issueboard/server/internal/types"
	"github.com/issueboard/server/internal/validator"
)

const maxRequestBodyBytes = 1 << 20 // 1MB

func decodeJSON(r *http.Request, dest any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

// parseIssueFilter reads status/priority/label/assignee/page/page_size
// query parameters into an IssueFilter. Multi-valued parameters (status,
// priority, label) may each be repeated any number of times.
func parseIssueFilter(r *http.Request) (repository.IssueFilter, error) {
	q := r.URL.Query()

	var filter repository.IssueFilter
	for _, v := range q["status"] {
		s := types.Status(v)
		if !s.IsValid() {
			return filter, errors.New("invalid status filter value: " + v)
		}
		filter.Status = append(filter.Status, s)
	}
	for _, v := range q["priority"] {
		p := types.Priority(v)
		if !p.IsValid() {
			return filter, errors.New("invalid priority filter value: " + v)
		}
		filter.Priority = append(filter.Priority, p)
	}
	filter.Labels = q["label"]
	filter.Assignee = q.Get("assignee")

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return filter, errors.New("invalid page parameter")
		}
		filter.Page = page
	}
	if v := q.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			return filter, errors.New("invalid page_size parameter")
		}
		filter.PageSize = size
	}

	return filter, nil
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	filter, err := parseIssueFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	issues, err := s.repo.GetIssues(r.Context(), filter)
	if err != nil {
		s.logger.Error("list issues failed", errField(err))
		writeError(w, http.StatusInternalServerError, "failed to list issues")
		return
	}

	writeJSON(w, http.StatusOK, issues)
}

func (s *Server) handleCountIssues(w http.ResponseWriter, r *http.Request) {
	filter, err := parseIssueFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := s.repo.CountIssues(r.Context(), filter)
	if err != nil {
		s.logger.Error("count issues failed", errField(err))
		writeError(w, http.StatusInternalServerError, "failed to count issues")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	issue, err := s.repo.GetIssue(r.Context(), id)
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "issue not found")
		return
	}
	if err != nil {
		s.logger.Error("get issue failed", errField(err))
		writeError(w, http.StatusInternalServerError, "failed to get issue")
		return
	}

	writeJSON(w, http.StatusOK, issue)
}

type createIssueRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      types.Status   `json:"status"`
	Priority    types.Priority `json:"priority"`
	AssigneeID  *string        `json:"assignee_id"`
	LabelIDs    []string       `json:"label_ids"`
}

func (s *Server) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if req.Status == "" {
		req.Status = types.StatusBacklog
	}
	if req.Priority == "" {
		req.Priority = types.PriorityMedium
	}

	if err := validator.CreateIssue(validator.CreateIssueInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
	}); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			writeValidationError(w, verr)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// order_index is never taken from the client: a new issue always lands
	// at the top of its column, one below the column's current minimum.
	min, ok, err := s.repo.MinOrderIndex(r.Context(), req.Status)
	if err != nil {
		s.logger.Error("compute order index failed", errField(err))
		writeError(w, http.StatusInternalServerError, "failed to create issue")
		return
	}
	orderIndex := 0.0
	if ok {
		orderIndex = min - 1
	}

	issue, err := s.repo.CreateIssue(r.Context(), repository.CreateIssueParams{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		OrderIndex:  orderIndex,
	})
	if errors.Is(err, store.ErrDanglingReference) {
		writeError(w, http.StatusBadRequest, "assignee_id does not reference an existing user")
		return
	}
	if err != nil {
		s.logger.Error("create issue failed", errField(err))
		writeError(w, http.StatusInternalServerError, "failed to create issue")
		return
	}

	if len(req.LabelIDs) > 0 {
		issue, err = s.repo.UpdateIssueLabels(r.Context(), issue.ID, req.LabelIDs)
		if errors.Is(err, store.ErrDanglingReference) {
			writeError(w, http.StatusBadRequest, "label_ids references a label that does not exist")
			return
		}
		if err != nil {
			s.logger.Error("attach labels on create failed", errField(err))
			writeError(w, http.StatusInternalServerError, "failed to attach labels")
			return
		}
	}

	writeJSON(w, http.StatusCreated, issue)
}

// updatableIssueFields maps JSON field names to the store column they
// write. assignee_id accepts JSON null to clear the assignee.
var updatableIssueFields = map[string]string{
	"title":       "title",
	"description": "description",
	"status":      "status",
	"priority":    "priority",
	"assignee_id": "assignee_id",
	"order_index": "order_index",
}

func (s *Server) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var raw map[string]json.RawMessage
	if err := decodeJSON(r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	fields := make(map[string]any, len(raw))
	var validationInput validator.UpdateIssueInput
	var labelIDs []string
	replaceLabels := false

	for key, value := range raw {
		if key == "label_ids" {
			if err := json.Unmarshal(value, &labelIDs); err != nil {
				writeError(w, http.StatusBadRequest, "label_ids must be an array of strings")
				return
			}
			replaceLabels = true
			continue
		}

		column, ok := updatableIssueFields[key]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown field: "+key)
			return
		}

		switch key {
		case "title":
			var v string
			if err := json.Unmarshal(value, &v); err != nil {
				writeError(w, http.StatusBadRequest, "title must be a string")
				return
			}
			fields[column] = v
			validationInput.Title = &v
		case "description":
			var v string
			if err := json.Unmarshal(value, &v); err != nil {
				writeError(w, http.StatusBadRequest, "description must be a string")
				return
			}
			fields[column] = v
			validationInput.Description = &v
		case "status":
			var v types.Status
			if err := json.Unmarshal(value, &v); err != nil {
				writeError(w, http.StatusBadRequest, "status must be a string")
				return
			}
			fields[column] = v
			validationInput.Status = &v
		case "priority":
			var v types.Priority
			if err := json.Unmarshal(value, &v); err != nil {
				writeError(w, http.StatusBadRequest, "priority must be a string")
				return
			}
			fields[column] = v
			validationInput.Priority = &v
		case "order_index":
			var v float64
			if err := json.Unmarshal(value, &v); err != nil {
				writeError(w, http.StatusBadRequest, "order_index must be a number")
				return
			}
			fields[column] = v
		case "assignee_id":
			var v *string
			if err := json.Unmarshal(value, &v); err != nil {
				writeError(w, http.StatusBadRequest, "assignee_id must be a string or null")
				return
			}
			fields[column] = v
		}
	}

	if err := validator.UpdateIssue(validationInput); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			writeValidationError(w, verr)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	issue, err := s.repo.UpdateIssue(r.Context(), id, fields)
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "issue not found")
		return
	}
	if errors.Is(err, store.ErrDanglingReference) {
		writeError(w, http.StatusBadRequest, "assignee_id does not reference an existing user")
		return
	}
	if err != nil {
		s.logger.Error("update issue failed", errField(err))
		writeError(w, http.StatusInternalServerError, "failed to update issue")
		return
	}

	if replaceLabels {
		issue, err = s.repo.UpdateIssueLabels(r.Context(), id, labelIDs)
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "issue not found")
			return
		}
		if errors.Is(err, store.ErrDanglingReference) {
			writeError(w, http.StatusBadRequest, "label_ids references a label that does not exist")
			return
		}
		if err != nil {
			s.logger.Error("update issue labels failed", errField(err))
			writeError(w, http.StatusInternalServerError, "failed to update labels")
			return
		}
	}

	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) handleDeleteIssue(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := s.repo.DeleteIssue(r.Context(), id)
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "issue not found")
		return
	}
	if err != nil {
		s.logger.Error("delete issue failed", errField(err))
		writeError(w, http.StatusInternalServerError, "failed to delete issue")
		return
	}

	writeNoContent(w)
}

// moveIssueRequest is the body of the drag-and-drop move endpoint. The
// client computes OrderIndex via fractional indexing between its two new
// neighbors; the server accepts it verbatim and never recomputes it.
type moveIssueRequest struct {
	OrderIndex float64       `json:"order_index"`
	Status     *types.Status `json:"status"`
}

// handleMoveIssue applies a board drag-and-drop move. It intentionally
// skips the general-purpose validator: an out-of-range or NaN order_index
// still produces a well-defined, if visually odd, ordering, and rejecting
// it would make the drag gesture fail after the user already released the
// mouse client-side.
func (s *Server) handleMoveIssue(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req moveIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	fields := map[string]any{"order_index": req.OrderIndex}
	if req.Status != nil {
		if !req.Status.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		fields["status"] = *req.Status
	}

	issue, err := s.repo.UpdateIssue(r.Context(), id, fields)
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "issue not found")
		return
	}
	if err != nil {
		s.logger.Error("move issue failed", errField(err))
		writeError(w, http.StatusInternalServerError, "failed to move issue")
		return
	}

	writeJSON(w, http.StatusOK, issue)
}

type replaceLabelsRequest struct {
	LabelIDs []string `json:"label_ids"`
}

// handleReplaceIssueLabels fully replaces an issue's label set within a
// single transaction (see repository.UpdateIssueLabels): the previous
// associations are gone the instant the new ones are visible.
func (s *Server) handleReplaceIssueLabels(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req replaceLabelsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	issue, err := s.repo.UpdateIssueLabels(r.Context(), id, req.LabelIDs)
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "issue not found")
		return
	}
	if errors.Is(err, store.ErrDanglingReference) {
		writeError(w, http.StatusBadRequest, "label_ids references a label that does not exist")
		return
	}
	if err != nil {
		s.logger.Error("replace issue labels failed", errField(err))
		writeError(w, http.StatusInternalServerError, "failed to replace labels")
		return
	}

	writeJSON(w, http.StatusOK, issue)
}
