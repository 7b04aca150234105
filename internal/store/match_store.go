package store

import (
	"context"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MatchStore persists matches, their maps and the bracket nodes backing
// playoff matches.
type MatchStore struct {
	db *sqlx.DB
}

const (
	insertMatchQuery = `INSERT INTO matches (id, tournament_id, stage, group_id, best_of, status, participant_1_id, participant_2_id,
		score_1, score_2, winner_id, is_bye, version)
		VALUES (:id, :tournament_id, :stage, :group_id, :best_of, :status, :participant_1_id, :participant_2_id,
		:score_1, :score_2, :winner_id, :is_bye, :version)`

	// The version guard serializes concurrent reporters of the same match.
	updateMatchQuery = `UPDATE matches SET
		status = :status,
		participant_1_id = :participant_1_id,
		participant_2_id = :participant_2_id,
		score_1 = :score_1,
		score_2 = :score_2,
		winner_id = :winner_id,
		is_bye = :is_bye,
		version = version + 1
		WHERE id = :id AND version = :version`

	insertNodeQuery = `INSERT INTO bracket_nodes (match_id, tournament_id, side, round_number, match_order, round_label,
		depends_on_1_id, depends_on_1_kind, depends_on_2_id, depends_on_2_kind,
		winner_to_id, winner_to_slot, loser_to_id, loser_to_slot, slot_1_bye, slot_2_bye)
		VALUES (:match_id, :tournament_id, :side, :round_number, :match_order, :round_label,
		:depends_on_1_id, :depends_on_1_kind, :depends_on_2_id, :depends_on_2_kind,
		:winner_to_id, :winner_to_slot, :loser_to_id, :loser_to_slot, :slot_1_bye, :slot_2_bye)`

	// Winners rounds, then losers rounds, then the grand final: every match
	// comes after the matches it depends on.
	selectNodesQuery = `SELECT * FROM bracket_nodes WHERE tournament_id = ?
		ORDER BY CASE side WHEN 'winners' THEN 0 WHEN 'losers' THEN 1 ELSE 2 END, round_number ASC, match_order ASC`
)

func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db}
}

func (s *MatchStore) CreateMatches(ctx context.Context, q sqlx.ExtContext, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, q, insertMatchQuery, matches)
	return err
}

func (s *MatchStore) GetMatch(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	if err := sqlx.GetContext(ctx, q, &match, "SELECT * FROM matches WHERE id = ?", id); err != nil {
		return nil, translate(err, "match", id)
	}
	return &match, nil
}

// GetMatches lists a tournament's matches, optionally limited to one stage.
func (s *MatchStore) GetMatches(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID, stage bracket.Stage) ([]bracket.Match, error) {
	var matches []bracket.Match
	var err error
	if stage == "" {
		err = sqlx.SelectContext(ctx, q, &matches, "SELECT * FROM matches WHERE tournament_id = ? ORDER BY stage ASC, created_at ASC, rowid ASC", tournamentID)
	} else {
		err = sqlx.SelectContext(ctx, q, &matches, "SELECT * FROM matches WHERE tournament_id = ? AND stage = ? ORDER BY created_at ASC, rowid ASC", tournamentID, stage)
	}
	return matches, err
}

func (s *MatchStore) GetGroupMatches(ctx context.Context, q sqlx.ExtContext, groupID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, q, &matches, "SELECT * FROM matches WHERE group_id = ? ORDER BY rowid ASC", groupID)
	return matches, err
}

// CountOpenMatches counts the matches of a stage that are not concluded yet.
func (s *MatchStore) CountOpenMatches(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID, stage bracket.Stage) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, "SELECT COUNT(*) FROM matches WHERE tournament_id = ? AND stage = ? AND status != ?",
		tournamentID, stage, bracket.MatchConcluded)
	return count, err
}

// UpdateMatch writes the mutable columns of a match if nobody else wrote it
// since it was read, and bumps its version.
func (s *MatchStore) UpdateMatch(ctx context.Context, q sqlx.ExtContext, match *bracket.Match) error {
	result, err := sqlx.NamedExecContext(ctx, q, updateMatchQuery, match)
	if err != nil {
		return err
	}
	if err := checkAffectedRows(result, apperr.Conflict("match %s was modified concurrently", match.ID)); err != nil {
		return err
	}
	match.Version++
	return nil
}

func (s *MatchStore) DeleteMatches(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) error {
	_, err := q.ExecContext(ctx, "DELETE FROM matches WHERE tournament_id = ?", tournamentID)
	return err
}

func (s *MatchStore) CreateMaps(ctx context.Context, q sqlx.ExtContext, maps []bracket.Map) error {
	if len(maps) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, q, "INSERT INTO maps (id, match_id, number, winner_id) VALUES (:id, :match_id, :number, :winner_id)", maps)
	return err
}

func (s *MatchStore) GetMaps(ctx context.Context, q sqlx.ExtContext, matchID uuid.UUID) ([]bracket.Map, error) {
	var maps []bracket.Map
	err := sqlx.SelectContext(ctx, q, &maps, "SELECT * FROM maps WHERE match_id = ? ORDER BY number ASC", matchID)
	return maps, err
}

func (s *MatchStore) SetMapWinner(ctx context.Context, q sqlx.ExtContext, mapID uuid.UUID, winnerID uuid.UUID) error {
	result, err := q.ExecContext(ctx, "UPDATE maps SET winner_id = ? WHERE id = ?", winnerID, mapID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, apperr.NotFound("map %s", mapID))
}

func (s *MatchStore) CreateNodes(ctx context.Context, q sqlx.ExtContext, nodes []bracket.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, q, insertNodeQuery, nodes)
	return err
}

// GetNodes returns the bracket nodes of a tournament in dependency order.
func (s *MatchStore) GetNodes(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Node, error) {
	var nodes []bracket.Node
	err := sqlx.SelectContext(ctx, q, &nodes, selectNodesQuery, tournamentID)
	return nodes, err
}

func (s *MatchStore) UpdateNodeByes(ctx context.Context, q sqlx.ExtContext, node *bracket.Node) error {
	_, err := q.ExecContext(ctx, "UPDATE bracket_nodes SET slot_1_bye = ?, slot_2_bye = ? WHERE match_id = ?",
		node.Slot1Bye, node.Slot2Bye, node.MatchID)
	return err
}

// GetGraph loads the playoff arena of a tournament.
func (s *MatchStore) GetGraph(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) (*bracket.Graph, error) {
	nodes, err := s.GetNodes(ctx, q, tournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.GetMatches(ctx, q, tournamentID, bracket.PlayoffMatch)
	if err != nil {
		return nil, err
	}
	return bracket.NewGraph(matches, nodes)
}

// SaveGraph inserts a freshly built arena.
func (s *MatchStore) SaveGraph(ctx context.Context, q sqlx.ExtContext, g *bracket.Graph) error {
	matches := make([]bracket.Match, len(g.Matches))
	nodes := make([]bracket.Node, len(g.Nodes))
	for i := range g.Matches {
		matches[i] = *g.Matches[i]
		nodes[i] = *g.Nodes[i]
	}
	if err := s.CreateMatches(ctx, q, matches); err != nil {
		return err
	}
	return s.CreateNodes(ctx, q, nodes)
}

// SaveGraphChanges writes back every match and node touched in memory.
func (s *MatchStore) SaveGraphChanges(ctx context.Context, q sqlx.ExtContext, g *bracket.Graph) error {
	for _, i := range g.Dirty() {
		if err := s.UpdateMatch(ctx, q, g.Matches[i]); err != nil {
			return err
		}
		if err := s.UpdateNodeByes(ctx, q, g.Nodes[i]); err != nil {
			return err
		}
	}
	return nil
}
