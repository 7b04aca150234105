package bracket

import (
	"time"

	"github.com/google/uuid"
)

type GroupStage struct {
	ID               uuid.UUID `db:"id" json:"id"`
	TournamentID     uuid.UUID `db:"tournament_id" json:"tournament_id"`
	WinnersQualified int       `db:"winners_qualified" json:"winners_qualified"`
	LosersQualified  int       `db:"losers_qualified" json:"losers_qualified"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`

	Groups []Group `db:"-" json:"groups,omitempty"`
}

type Group struct {
	ID              uuid.UUID `db:"id" json:"id"`
	GroupStageID    uuid.UUID `db:"group_stage_id" json:"group_stage_id"`
	TournamentID    uuid.UUID `db:"tournament_id" json:"tournament_id"`
	Letter          string    `db:"letter" json:"letter"`
	MaxParticipants int       `db:"max_participants" json:"max_participants"`

	Rows    []StandingsRow `db:"-" json:"rows,omitempty"`
	Matches []Match        `db:"-" json:"matches,omitempty"`
}

// StandingsRow is the running tally of one entrant inside a group.
type StandingsRow struct {
	ID            uuid.UUID `db:"id" json:"id"`
	GroupID       uuid.UUID `db:"group_id" json:"group_id"`
	ParticipantID uuid.UUID `db:"participant_id" json:"participant_id"`
	Seed          int       `db:"seed" json:"seed"`
	Place         int       `db:"place" json:"place"`
	Wins          int       `db:"wins" json:"wins"`
	Draws         int       `db:"draws" json:"draws"`
	Losses        int       `db:"losses" json:"losses"`
	Points        int       `db:"points" json:"points"`
}

const (
	PointsForWin  = 3
	PointsForDraw = 1
)

func (r *StandingsRow) RecordWin() {
	r.Wins++
	r.Points += PointsForWin
}

func (r *StandingsRow) RecordLoss() {
	r.Losses++
}

// RanksAbove orders rows by points, then fewer losses, then lower seed.
func (r *StandingsRow) RanksAbove(other *StandingsRow) bool {
	if r.Points != other.Points {
		return r.Points > other.Points
	}
	if r.Losses != other.Losses {
		return r.Losses < other.Losses
	}
	return r.Seed < other.Seed
}
