package service

import (
	"context"
	"log/slog"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// BracketGeneration persists knockout stages.
type BracketGeneration struct {
	stores Stores
}

func NewBracketService(stores Stores) *BracketGeneration {
	return &BracketGeneration{stores: stores}
}

// BuildPlayoffs builds and stores the bracket for participants in seed order.
// A tournament holds at most one bracket; rebuilding requires a reset.
func (s *BracketGeneration) BuildPlayoffs(ctx context.Context, q sqlx.ExtContext, tournament *bracket.Tournament, participants []uuid.UUID) (*bracket.Graph, error) {
	existing, err := s.stores.Matches.GetNodes(ctx, q, tournament.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, apperr.InvalidState("tournament %s already has a playoff stage", tournament.ID)
	}

	g, err := bracket.Build(tournament.Elimination, bracket.BuildOptions{
		TournamentID: tournament.ID,
		BestOf:       tournament.BestOf,
		FinalBestOf:  tournament.FinalBestOf,
	}, participants)
	if err != nil {
		return nil, err
	}

	if err := s.stores.Matches.SaveGraph(ctx, q, g); err != nil {
		return nil, err
	}

	slog.Info("playoff bracket built",
		"tournament", tournament.ID,
		"elimination", tournament.Elimination,
		"participants", len(participants),
		"bracket_size", bracket.BracketSize(len(participants)),
		"matches", len(g.Matches))
	return g, nil
}
