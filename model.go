package usertoken

import "time"

// A Model is the essential data points for primary ID-based records,
// indicating when a record was created and last updated.
// The store manages all three fields.
type Model struct {
	ID        uint      `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Exists asserts whether the record has been persisted.
func (m Model) Exists() bool { return !m.CreatedAt.IsZero() }
