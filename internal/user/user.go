package users

import (
	"time"

	"github.com/google/uuid"
)

type ContextKey string

const CallerKey ContextKey = "caller"

// SystemID is the identity the scheduler acts under.
var SystemID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Caller is the identity supplied by the upstream auth provider.
type Caller struct {
	ID      uuid.UUID
	IsAdmin bool
}

// System is an administrator caller for background jobs.
func System() Caller {
	return Caller{ID: SystemID, IsAdmin: true}
}

type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	IsBanned  bool      `db:"is_banned" json:"is_banned"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Team struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsBanned  bool      `db:"is_banned" json:"is_banned"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Members []uuid.UUID `db:"-" json:"members,omitempty"`
}

func (t *Team) HasMember(userID uuid.UUID) bool {
	for _, m := range t.Members {
		if m == userID {
			return true
		}
	}
	return false
}
