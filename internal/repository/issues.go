package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/issueboard/server/internal/store"
	"github.com/issueboard/server/internal/types"
)

const issueSelectColumns = `
	i.id, i.title, i.description, i.status, i.priority, i.assignee_id,
	i.order_index, i.created_at, i.updated_at,
	u.id, u.name, u.avatar_url`

const issueSelectFrom = `
	FROM issues i
	LEFT JOIN users u ON u.id = i.assignee_id`

// GetIssues returns every issue matching filter, ordered by order_index then
// id for a stable tiebreak, with assignees and labels fully hydrated. Labels
// are fetched in one additional query keyed by the page's issue ids, never
// once per issue.
func (r *Repository) GetIssues(ctx context.Context, filter IssueFilter) ([]types.Issue, error) {
	where, args := filter.whereClause()

	query := "SELECT" + issueSelectColumns + issueSelectFrom + " " + where + " ORDER BY i.order_index ASC, i.id ASC"

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
	}

	rows, err := r.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	issues, err := scanIssues(rows)
	if err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}

	if err := r.hydrateLabels(ctx, issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// CountIssues reports how many issues match filter, ignoring pagination.
// It powers the supplemented /api/issues/count endpoint.
func (r *Repository) CountIssues(ctx context.Context, filter IssueFilter) (int, error) {
	where, args := filter.whereClause()
	query := "SELECT COUNT(*) FROM issues i " + where

	var count int
	if err := r.store.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count issues: %w", err)
	}
	return count, nil
}

// GetIssue returns a single hydrated issue by id, or store.ErrNotFound if no
// such issue exists.
func (r *Repository) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	query := "SELECT" + issueSelectColumns + issueSelectFrom + " WHERE i.id = ?"

	row := r.store.DB().QueryRowContext(ctx, query, id)
	issue, err := scanIssueRow(row)
	if err != nil {
		return nil, store.WrapDBError(fmt.Sprintf("get issue %s", id), err)
	}

	issues := []types.Issue{*issue}
	if err := r.hydrateLabels(ctx, issues); err != nil {
		return nil, err
	}
	return &issues[0], nil
}

// CreateIssueParams carries the fields a caller may set at creation time.
// OrderIndex is stored exactly as given; the HTTP create handler derives it
// from MinOrderIndex rather than taking it from the client.
type CreateIssueParams struct {
	Title       string
	Description string
	Status      types.Status
	Priority    types.Priority
	AssigneeID  *string
	OrderIndex  float64
}

// MinOrderIndex returns the smallest order_index among issues currently in
// status, and false if that column holds no issues yet.
func (r *Repository) MinOrderIndex(ctx context.Context, status types.Status) (float64, bool, error) {
	var min sql.NullFloat64
	err := r.store.DB().QueryRowContext(ctx,
		"SELECT MIN(order_index) FROM issues WHERE status = ?", status,
	).Scan(&min)
	if err != nil {
		return 0, false, fmt.Errorf("min order index for status %s: %w", status, err)
	}
	if !min.Valid {
		return 0, false, nil
	}
	return min.Float64, true, nil
}

// CreateIssue inserts a new issue and returns its hydrated record. A
// non-nil AssigneeID that does not reference an existing user fails with
// store.ErrDanglingReference.
func (r *Repository) CreateIssue(ctx context.Context, params CreateIssueParams) (*types.Issue, error) {
	id, err := types.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate issue id: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.store.DB().ExecContext(ctx, `
		INSERT INTO issues (id, title, description, status, priority, assignee_id, order_index, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, params.Title, params.Description, params.Status, params.Priority,
		params.AssigneeID, params.OrderIndex, now, now,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("create issue: %w", store.ErrDanglingReference)
		}
		return nil, fmt.Errorf("create issue: %w", err)
	}

	return r.GetIssue(ctx, id)
}

// issueUpdateColumns whitelists the columns UpdateIssue may touch. Any key
// outside this set makes UpdateIssue return an error before any SQL runs
// (the HTTP handler also rejects unknown fields up front).
var issueUpdateColumns = map[string]bool{
	"title":        true,
	"description":  true,
	"status":       true,
	"priority":     true,
	"assignee_id":  true,
	"order_index":  true,
}

// UpdateIssue applies a partial update to the named columns of fields and
// returns the refreshed, hydrated issue. It fails with store.ErrNotFound if
// no row matches id, and store.ErrDanglingReference if assignee_id is set to
// a user that does not exist. An empty fields map is a no-op read.
func (r *Repository) UpdateIssue(ctx context.Context, id string, fields map[string]any) (*types.Issue, error) {
	if len(fields) == 0 {
		return r.GetIssue(ctx, id)
	}

	setClauses := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	for col, val := range fields {
		if !issueUpdateColumns[col] {
			return nil, fmt.Errorf("update issue: column %q is not updatable", col)
		}
		setClauses = append(setClauses, col+" = ?")
		args = append(args, val)
	}
	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, id)

	query := "UPDATE issues SET " + joinComma(setClauses) + " WHERE id = ?"
	res, err := r.store.DB().ExecContext(ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("update issue %s: %w", id, store.ErrDanglingReference)
		}
		return nil, fmt.Errorf("update issue %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update issue %s: %w", id, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("update issue %s: %w", id, store.ErrNotFound)
	}

	return r.GetIssue(ctx, id)
}

// DeleteIssue removes an issue and, via the foreign key cascade, its label
// associations. It fails with store.ErrNotFound if no row matches id.
func (r *Repository) DeleteIssue(ctx context.Context, id string) error {
	res, err := r.store.DB().ExecContext(ctx, "DELETE FROM issues WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete issue %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete issue %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete issue %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// UpdateIssueLabels replaces the full set of labels on an issue with
// labelIDs, atomically: the existing associations are deleted and the new
// set inserted within a single transaction, so readers never observe a
// partial label set.
func (r *Repository) UpdateIssueLabels(ctx context.Context, issueID string, labelIDs []string) (*types.Issue, error) {
	tx, err := r.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update issue labels %s: begin transaction: %w", issueID, err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM issues WHERE id = ?", issueID).Scan(&exists)
	if err != nil {
		return nil, store.WrapDBError(fmt.Sprintf("update issue labels %s", issueID), err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM issue_labels WHERE issue_id = ?", issueID); err != nil {
		return nil, fmt.Errorf("update issue labels %s: clear existing: %w", issueID, err)
	}

	for _, labelID := range labelIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO issue_labels (issue_id, label_id) VALUES (?, ?)", issueID, labelID,
		); err != nil {
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("update issue labels %s: %w", issueID, store.ErrDanglingReference)
			}
			return nil, fmt.Errorf("update issue labels %s: insert %s: %w", issueID, labelID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "UPDATE issues SET updated_at = ? WHERE id = ?", time.Now().UTC(), issueID); err != nil {
		return nil, fmt.Errorf("update issue labels %s: touch issue: %w", issueID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update issue labels %s: commit: %w", issueID, err)
	}

	return r.GetIssue(ctx, issueID)
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
