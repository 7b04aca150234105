package bracket

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TournamentStatus string

const (
	TournamentOpen      TournamentStatus = "open"
	TournamentOngoing   TournamentStatus = "ongoing"
	TournamentCompleted TournamentStatus = "completed"
	TournamentCanceled  TournamentStatus = "canceled"
)

// Format says what kind of entity competes. A tournament never mixes the two.
type Format string

const (
	FormatSolo Format = "solo"
	FormatTeam Format = "team"
)

func (f Format) Valid() bool {
	return f == FormatSolo || f == FormatTeam
}

type EliminationType string

const (
	SingleElimination EliminationType = "single"
	DoubleElimination EliminationType = "double"
)

func (e EliminationType) Valid() bool {
	return e == SingleElimination || e == DoubleElimination
}

type Tournament struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	OwnerID     uuid.UUID        `db:"owner_id" json:"owner_id"`
	Title       string           `db:"title" json:"title"`
	Format      Format           `db:"format" json:"format"`
	Elimination EliminationType  `db:"elimination" json:"elimination"`
	Status      TournamentStatus `db:"status" json:"status"`
	Capacity    int              `db:"capacity" json:"capacity"`
	PrizePool   decimal.Decimal  `db:"prize_pool" json:"prize_pool"`
	BestOf      int              `db:"best_of" json:"best_of"`
	FinalBestOf int              `db:"final_best_of" json:"final_best_of"`

	HasGroupStage    bool `db:"has_group_stage" json:"has_group_stage"`
	NumGroups        int  `db:"num_groups" json:"num_groups"`
	WinnersQualified int  `db:"winners_qualified" json:"winners_qualified"`
	LosersQualified  int  `db:"losers_qualified" json:"losers_qualified"`

	StartTime *time.Time `db:"start_time" json:"start_time,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// IsManagedBy reports whether the caller may mutate the tournament.
func (t *Tournament) IsManagedBy(callerID uuid.UUID, isAdmin bool) bool {
	return isAdmin || (callerID != uuid.Nil && callerID == t.OwnerID)
}
