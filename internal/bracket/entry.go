package bracket

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a registration of a user (solo) or a team in a tournament.
// EntityID is the user or team id and is what match slots refer to.
type Entry struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	EntityID     uuid.UUID `db:"entity_id" json:"entity_id"`
	Kind         Format    `db:"kind" json:"kind"`
	Name         string    `db:"name" json:"name"`
	Seed         int       `db:"seed" json:"seed"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
