package store

import (
	"context"

	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type GroupStore struct {
	db *sqlx.DB
}

func NewGroupStore(db *sqlx.DB) *GroupStore {
	return &GroupStore{db: db}
}

func (s *GroupStore) CreateGroupStage(ctx context.Context, q sqlx.ExtContext, stage *bracket.GroupStage) error {
	_, err := sqlx.NamedExecContext(ctx, q, `INSERT INTO group_stages (id, tournament_id, winners_qualified, losers_qualified)
		VALUES (:id, :tournament_id, :winners_qualified, :losers_qualified)`, stage)
	return translate(err, "group stage of tournament", stage.TournamentID)
}

func (s *GroupStore) GetGroupStage(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) (*bracket.GroupStage, error) {
	var stage bracket.GroupStage
	if err := sqlx.GetContext(ctx, q, &stage, "SELECT * FROM group_stages WHERE tournament_id = ?", tournamentID); err != nil {
		return nil, translate(err, "group stage of tournament", tournamentID)
	}
	return &stage, nil
}

func (s *GroupStore) CreateGroups(ctx context.Context, q sqlx.ExtContext, groups []bracket.Group) error {
	if len(groups) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, q, `INSERT INTO stage_groups (id, group_stage_id, tournament_id, letter, max_participants)
		VALUES (:id, :group_stage_id, :tournament_id, :letter, :max_participants)`, groups)
	return err
}

func (s *GroupStore) GetGroups(ctx context.Context, q sqlx.ExtContext, groupStageID uuid.UUID) ([]bracket.Group, error) {
	var groups []bracket.Group
	err := sqlx.SelectContext(ctx, q, &groups, "SELECT * FROM stage_groups WHERE group_stage_id = ? ORDER BY letter ASC", groupStageID)
	return groups, err
}

func (s *GroupStore) CreateStandingsRows(ctx context.Context, q sqlx.ExtContext, rows []bracket.StandingsRow) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, q, `INSERT INTO standings_rows (id, group_id, participant_id, seed, place, wins, draws, losses, points)
		VALUES (:id, :group_id, :participant_id, :seed, :place, :wins, :draws, :losses, :points)`, rows)
	return err
}

// GetStandingsRows returns a group's rows by current place.
func (s *GroupStore) GetStandingsRows(ctx context.Context, q sqlx.ExtContext, groupID uuid.UUID) ([]bracket.StandingsRow, error) {
	var rows []bracket.StandingsRow
	err := sqlx.SelectContext(ctx, q, &rows, "SELECT * FROM standings_rows WHERE group_id = ? ORDER BY place ASC, seed ASC", groupID)
	return rows, err
}

func (s *GroupStore) UpdateStandingsRow(ctx context.Context, q sqlx.ExtContext, row *bracket.StandingsRow) error {
	_, err := sqlx.NamedExecContext(ctx, q, `UPDATE standings_rows SET
		place = :place, wins = :wins, draws = :draws, losses = :losses, points = :points
		WHERE id = :id`, row)
	return err
}

// DeleteGroupStage removes the stage with its groups, rows and group matches.
func (s *GroupStore) DeleteGroupStage(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) error {
	_, err := q.ExecContext(ctx, "DELETE FROM group_stages WHERE tournament_id = ?", tournamentID)
	return err
}

// LoadGroups returns the stage's groups with their ranked rows and matches.
func (s *GroupStore) LoadGroups(ctx context.Context, q sqlx.ExtContext, matches *MatchStore, groupStageID uuid.UUID) ([]bracket.Group, error) {
	groups, err := s.GetGroups(ctx, q, groupStageID)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		if groups[i].Rows, err = s.GetStandingsRows(ctx, q, groups[i].ID); err != nil {
			return nil, err
		}
		if groups[i].Matches, err = matches.GetGroupMatches(ctx, q, groups[i].ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}
