package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issueboard/server/internal/logging"
	"github.com/issueboard/server/internal/metrics"
	"github.com/issueboard/server/internal/repository"
	"github.com/issueboard/server/internal/store"
	"github.com/issueboard/server/internal/types"
)

const testAPIKey = "test-api-key"

func newTestServer(t *testing.T) (*Server, *repository.Repository, *store.Store) {
	t.Helper()

	cfg := store.Config{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
		MigrationDir: "../store/migrations",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}
	st, err := store.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	repo := repository.New(st)
	srv := New(repo, st, logging.NewNop(), metrics.New(), Config{
		APIKey:         testAPIKey,
		AllowedOrigins: []string{"http://localhost:5173"},
		RequestTimeout: 5 * time.Second,
	})
	return srv, repo, st
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth_NoAuthRequired(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doRequest(t, srv.Router(), http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIssuesEndpoint_RequiresAuth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doRequest(t, srv.Router(), http.MethodGet, "/api/issues", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv.Router(), http.MethodGet, "/api/issues", nil, "wrong-key")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListIssues_EmptyReturnsEmptyArrayNotNull(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doRequest(t, srv.Router(), http.MethodGet, "/api/issues", nil, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateAndGetIssue(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/issues", createIssueRequest{
		Title:    "New issue",
		Status:   types.StatusTodo,
		Priority: types.PriorityHigh,
	}, testAPIKey)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created types.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "New issue", created.Title)
	assert.Equal(t, []types.Label{}, created.Labels)

	rec = doRequest(t, srv.Router(), http.MethodGet, "/api/issues/"+created.ID, nil, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateIssue_ValidationFailure(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/issues", createIssueRequest{
		Title: "",
	}, testAPIKey)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Details)
	assert.Contains(t, envelope.Details.Errors, "title")
}

func TestCreateIssue_OrderIndexIsServerComputedPerColumn(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/issues", createIssueRequest{
		Title: "first in column", Status: types.StatusTodo, Priority: types.PriorityMedium,
	}, testAPIKey)
	require.Equal(t, http.StatusCreated, rec.Code)
	var first types.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, 0.0, first.OrderIndex, "first issue in an empty column lands at 0")

	rec = doRequest(t, srv.Router(), http.MethodPost, "/api/issues", createIssueRequest{
		Title: "second in column", Status: types.StatusTodo, Priority: types.PriorityMedium,
	}, testAPIKey)
	require.Equal(t, http.StatusCreated, rec.Code)
	var second types.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, -1.0, second.OrderIndex, "a later create goes above the column's current minimum")

	rec = doRequest(t, srv.Router(), http.MethodPost, "/api/issues", createIssueRequest{
		Title: "other column", Status: types.StatusInProgress, Priority: types.PriorityMedium,
	}, testAPIKey)
	require.Equal(t, http.StatusCreated, rec.Code)
	var other types.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &other))
	assert.Equal(t, 0.0, other.OrderIndex, "order_index resets per status column")
}

func TestGetIssue_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doRequest(t, srv.Router(), http.MethodGet, "/api/issues/does-not-exist", nil, testAPIKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateIssue_PartialUpdate(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/issues", createIssueRequest{
		Title: "Before", Status: types.StatusTodo, Priority: types.PriorityLow,
	}, testAPIKey)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created types.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(t, srv.Router(), http.MethodPatch, "/api/issues/"+created.ID,
		map[string]any{"title": "After"}, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated types.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "After", updated.Title)
	assert.Equal(t, types.StatusTodo, updated.Status)
}

func TestUpdateIssue_UnknownFieldRejected(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/issues", createIssueRequest{
		Title: "T", Status: types.StatusTodo, Priority: types.PriorityLow,
	}, testAPIKey)
	var created types.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(t, srv.Router(), http.MethodPatch, "/api/issues/"+created.ID,
		map[string]any{"id": "hijack"}, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMoveIssue_AcceptsOrderIndexVerbatim(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/issues", createIssueRequest{
		Title: "T", Status: types.StatusTodo, Priority: types.PriorityLow,
	}, testAPIKey)
	var created types.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(t, srv.Router(), http.MethodPatch, "/api/issues/"+created.ID+"/move",
		moveIssueRequest{OrderIndex: 1.5}, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var moved types.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &moved))
	assert.Equal(t, 1.5, moved.OrderIndex)
}

func TestDeleteIssue(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/issues", createIssueRequest{
		Title: "T", Status: types.StatusTodo, Priority: types.PriorityLow,
	}, testAPIKey)
	var created types.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(t, srv.Router(), http.MethodDelete, "/api/issues/"+created.ID, nil, testAPIKey)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, srv.Router(), http.MethodGet, "/api/issues/"+created.ID, nil, testAPIKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReplaceIssueLabels(t *testing.T) {
	srv, _, st := newTestServer(t)

	_, err := st.DB().Exec("INSERT INTO labels (id, name, color) VALUES ('l1', 'bug', '#ff0000')")
	require.NoError(t, err)
	_, err = st.DB().Exec("INSERT INTO labels (id, name, color) VALUES ('l2', 'feature', '#00ff00')")
	require.NoError(t, err)

	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/issues", createIssueRequest{
		Title: "T", Status: types.StatusTodo, Priority: types.PriorityLow,
	}, testAPIKey)
	var created types.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(t, srv.Router(), http.MethodPut, "/api/issues/"+created.ID+"/labels",
		replaceLabelsRequest{LabelIDs: []string{"l1", "l2"}}, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var labeled types.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &labeled))
	require.Len(t, labeled.Labels, 2)

	rec = doRequest(t, srv.Router(), http.MethodPut, "/api/issues/"+created.ID+"/labels",
		replaceLabelsRequest{LabelIDs: []string{"l2"}}, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &labeled))
	require.Len(t, labeled.Labels, 1)
	assert.Equal(t, "feature", labeled.Labels[0].Name)
}

func TestUpdateIssue_LabelIDsReplacesLabelSet(t *testing.T) {
	srv, _, st := newTestServer(t)

	_, err := st.DB().Exec("INSERT INTO labels (id, name, color) VALUES ('b', 'bug', '#ff0000')")
	require.NoError(t, err)
	_, err = st.DB().Exec("INSERT INTO labels (id, name, color) VALUES ('c', 'chore', '#0000ff')")
	require.NoError(t, err)

	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/issues", createIssueRequest{
		Title: "T", Status: types.StatusTodo, Priority: types.PriorityLow, LabelIDs: []string{"b"},
	}, testAPIKey)
	var created types.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.Labels, 1)

	rec = doRequest(t, srv.Router(), http.MethodPatch, "/api/issues/"+created.ID,
		map[string]any{"label_ids": []string{"b", "c"}}, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated types.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Len(t, updated.Labels, 2)
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/issues", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight_DisallowedOriginNotEchoed(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/issues", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
