// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. The core game layers only ever consume the
// Username, which serves as the stable player identity for a session.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
