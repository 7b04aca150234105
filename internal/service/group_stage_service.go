package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// GroupStageService builds round-robin groups and keeps their standings.
type GroupStageService struct {
	stores Stores
}

func NewGroupStageService(stores Stores) *GroupStageService {
	return &GroupStageService{stores: stores}
}

// BuildGroupStage partitions the seeded pool into lettered groups, with one
// match per pair and one standings row per entrant in each group.
func (s *GroupStageService) BuildGroupStage(ctx context.Context, q sqlx.ExtContext, tournament *bracket.Tournament, entries []bracket.Entry) (*bracket.GroupStage, error) {
	_, err := s.stores.Groups.GetGroupStage(ctx, q, tournament.ID)
	if err == nil {
		return nil, apperr.InvalidState("tournament %s already has a group stage", tournament.ID)
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	chunks, err := bracket.PartitionGroups(entityIDs(entries), tournament.NumGroups)
	if err != nil {
		return nil, err
	}

	qualifying := 0
	perGroup := tournament.WinnersQualified
	if tournament.Elimination == bracket.DoubleElimination {
		perGroup += tournament.LosersQualified
	}
	for _, chunk := range chunks {
		qualifying += min(len(chunk), perGroup)
	}
	if qualifying < bracket.MinParticipants {
		return nil, apperr.CapacityExceeded("groups would qualify %d entrants, playoffs need %d", qualifying, bracket.MinParticipants)
	}

	stage := &bracket.GroupStage{
		ID:               uuid.New(),
		TournamentID:     tournament.ID,
		WinnersQualified: tournament.WinnersQualified,
		LosersQualified:  tournament.LosersQualified,
	}
	if err := s.stores.Groups.CreateGroupStage(ctx, q, stage); err != nil {
		return nil, err
	}

	seeds := seedsByEntity(entries)
	var rows []bracket.StandingsRow
	var matches []bracket.Match
	for i, chunk := range chunks {
		group := bracket.Group{
			ID:              uuid.New(),
			GroupStageID:    stage.ID,
			TournamentID:    tournament.ID,
			Letter:          bracket.GroupLetter(i),
			MaxParticipants: len(chunk),
		}

		for place, participant := range chunk {
			row := bracket.StandingsRow{
				ID:            uuid.New(),
				GroupID:       group.ID,
				ParticipantID: participant,
				Seed:          seeds[participant],
				Place:         place + 1,
			}
			rows = append(rows, row)
			group.Rows = append(group.Rows, row)
		}

		for _, pair := range bracket.RoundRobinPairs(len(chunk)) {
			m := bracket.Match{
				ID:             uuid.New(),
				TournamentID:   tournament.ID,
				Stage:          bracket.GroupStageMatch,
				GroupID:        &group.ID,
				BestOf:         tournament.BestOf,
				Status:         bracket.MatchScheduled,
				Participant1ID: &chunk[pair[0]],
				Participant2ID: &chunk[pair[1]],
			}
			matches = append(matches, m)
			group.Matches = append(group.Matches, m)
		}
		stage.Groups = append(stage.Groups, group)
	}

	if err := s.stores.Groups.CreateGroups(ctx, q, stage.Groups); err != nil {
		return nil, err
	}
	if err := s.stores.Groups.CreateStandingsRows(ctx, q, rows); err != nil {
		return nil, err
	}
	if err := s.stores.Matches.CreateMatches(ctx, q, matches); err != nil {
		return nil, err
	}

	slog.Info("group stage built", "tournament", tournament.ID, "groups", len(stage.Groups), "matches", len(matches))
	return stage, nil
}

// RecordResult credits a concluded group match to both standings rows and
// re-ranks the group.
func (s *GroupStageService) RecordResult(ctx context.Context, q sqlx.ExtContext, match *bracket.Match) error {
	if match.GroupID == nil || match.WinnerID == nil {
		return apperr.InvalidState("match %s is not a decided group match", match.ID)
	}
	loser := match.LoserID()
	if loser == nil {
		return apperr.InvalidState("match %s has no loser", match.ID)
	}

	rows, err := s.stores.Groups.GetStandingsRows(ctx, q, *match.GroupID)
	if err != nil {
		return err
	}

	credited := 0
	for i := range rows {
		switch rows[i].ParticipantID {
		case *match.WinnerID:
			rows[i].RecordWin()
			credited++
		case *loser:
			rows[i].RecordLoss()
			credited++
		}
	}
	if credited != 2 {
		return apperr.InvalidState("group %s has no standings for match %s", *match.GroupID, match.ID)
	}

	bracket.RankRows(rows)
	for i := range rows {
		if err := s.stores.Groups.UpdateStandingsRow(ctx, q, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// Qualifiers returns the playoff seeding from the final group standings.
func (s *GroupStageService) Qualifiers(ctx context.Context, q sqlx.ExtContext, tournament *bracket.Tournament) ([]uuid.UUID, error) {
	stage, err := s.stores.Groups.GetGroupStage(ctx, q, tournament.ID)
	if err != nil {
		return nil, err
	}
	groups, err := s.stores.Groups.GetGroups(ctx, q, stage.ID)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		if groups[i].Rows, err = s.stores.Groups.GetStandingsRows(ctx, q, groups[i].ID); err != nil {
			return nil, err
		}
		bracket.RankRows(groups[i].Rows)
	}
	return bracket.Qualifiers(groups, tournament.Elimination, stage.WinnersQualified, stage.LosersQualified), nil
}

// Load returns the group stage with groups, standings and matches.
func (s *GroupStageService) Load(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) (*bracket.GroupStage, error) {
	stage, err := s.stores.Groups.GetGroupStage(ctx, q, tournamentID)
	if err != nil {
		return nil, err
	}
	stage.Groups, err = s.stores.Groups.LoadGroups(ctx, q, s.stores.Matches, stage.ID)
	if err != nil {
		return nil, err
	}
	return stage, nil
}
