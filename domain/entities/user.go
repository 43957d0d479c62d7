package entities

import "time"

// User holds the point balance the settlement path reads and writes
type User struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	Points    int64     `db:"points"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
