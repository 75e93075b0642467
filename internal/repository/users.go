package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/issueboard/server/internal/store"
	"github.com/issueboard/server/internal/types"
)

// GetUsers returns every user in the system, ordered by name.
func (r *Repository) GetUsers(ctx context.Context) ([]types.User, error) {
	rows, err := r.store.DB().QueryContext(ctx, "SELECT id, name, avatar_url FROM users ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		var u types.User
		var avatar sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &avatar); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.AvatarURL = avatar.String
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser returns a single user by id, or store.ErrNotFound.
func (r *Repository) GetUser(ctx context.Context, id string) (*types.User, error) {
	var u types.User
	var avatar sql.NullString
	err := r.store.DB().QueryRowContext(ctx, "SELECT id, name, avatar_url FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Name, &avatar)
	if err != nil {
		return nil, store.WrapDBError(fmt.Sprintf("get user %s", id), err)
	}
	u.AvatarURL = avatar.String
	return &u, nil
}
