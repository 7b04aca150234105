package service

import (
	"context"
	"log/slog"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/AdamBeresnev/op-tourney/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PrizeService ranks a finished bracket and writes the prize table.
type PrizeService struct {
	stores Stores
}

func NewPrizeService(stores Stores) *PrizeService {
	return &PrizeService{stores: stores}
}

// Finalize writes one prize row per paid place. The prize table is written
// once; a second call fails instead of overwriting it.
func (s *PrizeService) Finalize(ctx context.Context, q sqlx.ExtContext, tournament *bracket.Tournament, g *bracket.Graph) ([]bracket.PrizeRow, error) {
	if len(g.Matches) == 0 {
		return nil, apperr.InvalidState("tournament %s has no playoff stage to rank", tournament.ID)
	}

	existing, err := s.stores.Tournaments.GetPrizeRows(ctx, q, tournament.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, apperr.InvalidState("tournament %s already has a prize table", tournament.ID)
	}
	if !g.Resolved() {
		return nil, apperr.InvalidState("tournament %s still has matches to play", tournament.ID)
	}

	entries, err := s.stores.Tournaments.GetEntries(ctx, q, tournament.ID)
	if err != nil {
		return nil, err
	}
	ranked, err := bracket.Placements(g, seedsByEntity(entries))
	if err != nil {
		return nil, err
	}

	places := min(len(ranked), len(bracket.PayoutBasisPoints))
	amounts := bracket.Distribute(tournament.PrizePool, bracket.PayoutBasisPoints[:places])

	rows := make([]bracket.PrizeRow, places)
	for i := range rows {
		rows[i] = bracket.PrizeRow{
			ID:           uuid.New(),
			TournamentID: tournament.ID,
			Place:        i + 1,
			Amount:       amounts[i],
		}
		if tournament.Format == bracket.FormatTeam {
			rows[i].TeamID = utils.Ptr(ranked[i])
		} else {
			rows[i].UserID = utils.Ptr(ranked[i])
		}
	}

	if err := s.stores.Tournaments.CreatePrizeRows(ctx, q, rows); err != nil {
		return nil, err
	}

	slog.Info("prize table written", "tournament", tournament.ID, "places", places, "pool", tournament.PrizePool.String())
	return rows, nil
}
