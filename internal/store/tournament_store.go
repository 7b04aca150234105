package store

import (
	"context"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TournamentStore persists tournaments with their registrations and prize
// tables. Every method takes the executor to run on, so the same call works on
// the database or inside a transaction.
type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) CreateTournament(ctx context.Context, q sqlx.ExtContext, tournament *bracket.Tournament) error {
	_, err := sqlx.NamedExecContext(ctx, q, `INSERT INTO tournaments (id, owner_id, title, format, elimination, status, capacity, prize_pool,
		best_of, final_best_of, has_group_stage, num_groups, winners_qualified, losers_qualified, start_time)
		VALUES (:id, :owner_id, :title, :format, :elimination, :status, :capacity, :prize_pool,
		:best_of, :final_best_of, :has_group_stage, :num_groups, :winners_qualified, :losers_qualified, :start_time)`, tournament)
	return translate(err, "tournament", tournament.Title)
}

func (s *TournamentStore) GetTournament(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := sqlx.GetContext(ctx, q, &tournament, "SELECT * FROM tournaments WHERE id = ?", id)
	if err != nil {
		return nil, translate(err, "tournament", id)
	}
	return &tournament, nil
}

func (s *TournamentStore) GetTournamentsByOwner(ctx context.Context, q sqlx.ExtContext, ownerID uuid.UUID) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := sqlx.SelectContext(ctx, q, &tournaments, "SELECT * FROM tournaments WHERE owner_id = ? ORDER BY created_at DESC", ownerID)
	return tournaments, err
}

// GetTournamentsByParticipant returns the tournaments a user is entered in,
// either directly or through the roster of a registered team.
func (s *TournamentStore) GetTournamentsByParticipant(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := sqlx.SelectContext(ctx, q, &tournaments, `SELECT t.* FROM tournaments t
		WHERE EXISTS (
			SELECT 1 FROM entries e
			WHERE e.tournament_id = t.id AND (
				(t.format = 'solo' AND e.entity_id = ?)
				OR (t.format = 'team' AND e.entity_id IN (SELECT team_id FROM team_members WHERE user_id = ?))
			)
		)
		ORDER BY t.created_at DESC`, userID, userID)
	return tournaments, err
}

// GetScheduledTournaments returns open tournaments carrying a start time.
func (s *TournamentStore) GetScheduledTournaments(ctx context.Context, q sqlx.ExtContext) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := sqlx.SelectContext(ctx, q, &tournaments, "SELECT * FROM tournaments WHERE status = ? AND start_time IS NOT NULL", bracket.TournamentOpen)
	return tournaments, err
}

func (s *TournamentStore) UpdateTournamentStatus(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, status bracket.TournamentStatus) error {
	result, err := q.ExecContext(ctx, "UPDATE tournaments SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, apperr.NotFound("tournament %s", id))
}

func (s *TournamentStore) DeleteTournament(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) error {
	result, err := q.ExecContext(ctx, "DELETE FROM tournaments WHERE id = ?", id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, apperr.NotFound("tournament %s", id))
}

func (s *TournamentStore) CreateEntry(ctx context.Context, q sqlx.ExtContext, entry *bracket.Entry) error {
	_, err := sqlx.NamedExecContext(ctx, q, `INSERT INTO entries (id, tournament_id, entity_id, kind, name, seed)
		VALUES (:id, :tournament_id, :entity_id, :kind, :name, :seed)`, entry)
	return translate(err, "registration", entry.EntityID)
}

func (s *TournamentStore) DeleteEntry(ctx context.Context, q sqlx.ExtContext, tournamentID, entityID uuid.UUID) error {
	result, err := q.ExecContext(ctx, "DELETE FROM entries WHERE tournament_id = ? AND entity_id = ?", tournamentID, entityID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, apperr.NotFound("registration of %s", entityID))
}

func (s *TournamentStore) GetEntries(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Entry, error) {
	var entries []bracket.Entry
	err := sqlx.SelectContext(ctx, q, &entries, "SELECT * FROM entries WHERE tournament_id = ? ORDER BY seed ASC", tournamentID)
	return entries, err
}

func (s *TournamentStore) UpdateEntrySeed(ctx context.Context, q sqlx.ExtContext, entryID uuid.UUID, seed int) error {
	_, err := q.ExecContext(ctx, "UPDATE entries SET seed = ? WHERE id = ?", seed, entryID)
	return err
}

// NextSeed is one past the highest seed handed out so far.
func (s *TournamentStore) NextSeed(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) (int, error) {
	var seed int
	err := sqlx.GetContext(ctx, q, &seed, "SELECT COALESCE(MAX(seed), 0) + 1 FROM entries WHERE tournament_id = ?", tournamentID)
	return seed, err
}

func (s *TournamentStore) CountEntries(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, "SELECT COUNT(*) FROM entries WHERE tournament_id = ?", tournamentID)
	return count, err
}

func (s *TournamentStore) CreatePrizeRows(ctx context.Context, q sqlx.ExtContext, rows []bracket.PrizeRow) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, q, `INSERT INTO prize_rows (id, tournament_id, place, user_id, team_id, amount)
		VALUES (:id, :tournament_id, :place, :user_id, :team_id, :amount)`, rows)
	return translate(err, "prize table of tournament", rows[0].TournamentID)
}

func (s *TournamentStore) GetPrizeRows(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.PrizeRow, error) {
	var rows []bracket.PrizeRow
	err := sqlx.SelectContext(ctx, q, &rows, "SELECT * FROM prize_rows WHERE tournament_id = ? ORDER BY place ASC", tournamentID)
	return rows, err
}

func (s *TournamentStore) DeletePrizeRows(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) error {
	_, err := q.ExecContext(ctx, "DELETE FROM prize_rows WHERE tournament_id = ?", tournamentID)
	return err
}
