package repository

import (
	"strings"

	"github.com/issueboard/server/internal/types"
)

// IssueFilter is the AND of every supplied filter for GetIssues. Zero-value
// (nil/empty) fields contribute nothing to the query.
type IssueFilter struct {
	Status   []types.Status
	Priority []types.Priority
	Assignee string
	Labels   []string
	Page     int
	PageSize int
}

// whereClause assembles a parenthesized AND/semi-join WHERE clause for the
// issue list query. Every value is bound positionally through args; no
// value is ever interpolated into the SQL text, and multi-valued filters
// expand to a parameter placeholder per element.
func (f IssueFilter) whereClause() (clause string, args []any) {
	var conds []string

	if len(f.Status) > 0 {
		placeholders, vals := placeholdersFor(statusStrings(f.Status))
		conds = append(conds, "i.status IN ("+placeholders+")")
		args = append(args, vals...)
	}

	if len(f.Priority) > 0 {
		placeholders, vals := placeholdersFor(priorityStrings(f.Priority))
		conds = append(conds, "i.priority IN ("+placeholders+")")
		args = append(args, vals...)
	}

	if f.Assignee != "" {
		conds = append(conds, "i.assignee_id = ?")
		args = append(args, f.Assignee)
	}

	if len(f.Labels) > 0 {
		placeholders, vals := placeholdersFor(f.Labels)
		conds = append(conds, `EXISTS (
			SELECT 1 FROM issue_labels il
			JOIN labels l ON l.id = il.label_id
			WHERE il.issue_id = i.id AND l.name IN (`+placeholders+`)
		)`)
		args = append(args, vals...)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// placeholdersFor returns a comma-joined "?" placeholder list matching the
// length of values, plus values widened to []any for positional binding.
func placeholdersFor(values []string) (placeholders string, args []any) {
	ph := make([]string, len(values))
	args = make([]any, len(values))
	for i, v := range values {
		ph[i] = "?"
		args[i] = v
	}
	return strings.Join(ph, ", "), args
}

func statusStrings(statuses []types.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func priorityStrings(priorities []types.Priority) []string {
	out := make([]string, len(priorities))
	for i, p := range priorities {
		out[i] = string(p)
	}
	return out
}
