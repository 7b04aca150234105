package bracket

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PrizeRow is one finishing place of the prize table. Exactly one of UserID
// and TeamID is set, depending on the tournament format.
type PrizeRow struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	TournamentID uuid.UUID       `db:"tournament_id" json:"tournament_id"`
	Place        int             `db:"place" json:"place"`
	UserID       *uuid.UUID      `db:"user_id" json:"user_id,omitempty"`
	TeamID       *uuid.UUID      `db:"team_id" json:"team_id,omitempty"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// PayoutBasisPoints is the share of the pool per place, 10000 = 100%.
var PayoutBasisPoints = []int{5000, 3000, 2000}

// Distribute splits the pool by basis points. Each share is rounded down to
// the cent and whatever is left over goes to first place, including the
// shares of places cut off the list when fewer entrants finished. The whole
// pool is always paid out.
func Distribute(pool decimal.Decimal, basisPoints []int) []decimal.Decimal {
	prizes := make([]decimal.Decimal, len(basisPoints))
	if len(basisPoints) == 0 {
		return prizes
	}

	allocated := decimal.Zero
	for i, bp := range basisPoints {
		share := pool.Mul(decimal.NewFromInt(int64(bp))).Div(decimal.NewFromInt(10000)).RoundFloor(2)
		prizes[i] = share
		allocated = allocated.Add(share)
	}

	if remainder := pool.Sub(allocated); remainder.IsPositive() {
		prizes[0] = prizes[0].Add(remainder)
	}
	return prizes
}
