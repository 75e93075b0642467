package repository

import (
	"context"
	"fmt"

	"github.com/issueboard/server/internal/types"
)

// GetLabels returns every label in the system, ordered by name.
func (r *Repository) GetLabels(ctx context.Context) ([]types.Label, error) {
	rows, err := r.store.DB().QueryContext(ctx, "SELECT id, name, color FROM labels ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	labels := make([]types.Label, 0)
	for rows.Next() {
		var l types.Label
		if err := rows.Scan(&l.ID, &l.Name, &l.Color); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}
