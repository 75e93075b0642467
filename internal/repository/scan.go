package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/issueboard/server/internal/types"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows, letting
// scanIssueRow share logic between the single-row and multi-row paths.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssueRow(r rowScanner) (*types.Issue, error) {
	var (
		issue                          types.Issue
		assigneeID                     sql.NullString
		assigneeUserID, assigneeName   sql.NullString
		assigneeAvatar                 sql.NullString
	)

	err := r.Scan(
		&issue.ID, &issue.Title, &issue.Description, &issue.Status, &issue.Priority, &assigneeID,
		&issue.OrderIndex, &issue.CreatedAt, &issue.UpdatedAt,
		&assigneeUserID, &assigneeName, &assigneeAvatar,
	)
	if err != nil {
		return nil, err
	}

	if assigneeID.Valid {
		id := assigneeID.String
		issue.AssigneeID = &id
	}
	if assigneeUserID.Valid {
		issue.Assignee = &types.User{
			ID:        assigneeUserID.String,
			Name:      assigneeName.String,
			AvatarURL: assigneeAvatar.String,
		}
	}
	issue.Labels = []types.Label{}

	return &issue, nil
}

func scanIssues(rows *sql.Rows) ([]types.Issue, error) {
	issues := make([]types.Issue, 0)
	for rows.Next() {
		issue, err := scanIssueRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue row: %w", err)
		}
		issues = append(issues, *issue)
	}
	return issues, nil
}

// hydrateLabels fills in the Labels field of every issue in a single
// additional query keyed by the full set of issue ids, instead of issuing
// one label query per issue.
func (r *Repository) hydrateLabels(ctx context.Context, issues []types.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	ids := make([]string, len(issues))
	byID := make(map[string]*types.Issue, len(issues))
	for i := range issues {
		ids[i] = issues[i].ID
		byID[issues[i].ID] = &issues[i]
	}

	placeholders, args := placeholdersFor(ids)
	query := `
		SELECT il.issue_id, l.id, l.name, l.color
		FROM issue_labels il
		JOIN labels l ON l.id = il.label_id
		WHERE il.issue_id IN (` + placeholders + `)
		ORDER BY l.name ASC`

	rows, err := r.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("hydrate labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var issueID string
		var label types.Label
		if err := rows.Scan(&issueID, &label.ID, &label.Name, &label.Color); err != nil {
			return fmt.Errorf("hydrate labels: scan: %w", err)
		}
		if issue, ok := byID[issueID]; ok {
			issue.Labels = append(issue.Labels, label)
		}
	}
	return rows.Err()
}

// isForeignKeyViolation reports whether err came back from SQLite because a
// foreign key target row does not exist. The driver surfaces this as a
// plain error whose message contains "FOREIGN KEY constraint failed"; there
// is no typed sentinel to compare against.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
