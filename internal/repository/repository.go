// Package repository translates between the HTTP layer's domain
// requests and SQL, owning query assembly, batch label hydration, and
// the transactional write paths. It is the only package above store
// that issues SQL.
package repository

import (
	"github.com/issueboard/server/internal/store"
)

// Repository serves issue, user, and label reads and writes against a
// single *store.Store. It holds no state of its own beyond the handle.
type Repository struct {
	store *store.Store
}

// New constructs a Repository over an already-opened store.
func New(s *store.Store) *Repository {
	return &Repository{store: s}
}
