package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/AdamBeresnev/op-tourney/internal/events"
	users "github.com/AdamBeresnev/op-tourney/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type TournamentService struct {
	db        *sqlx.DB
	stores    Stores
	entries   *EntryService
	groups    *GroupStageService
	brackets  *BracketGeneration
	prizes    *PrizeService
	scheduler Scheduler
	publisher events.Publisher
	now       func() time.Time
}

func NewTournamentService(db *sqlx.DB, stores Stores, entries *EntryService, groups *GroupStageService, brackets *BracketGeneration, prizes *PrizeService, publisher events.Publisher) *TournamentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TournamentService{
		db:        db,
		stores:    stores,
		entries:   entries,
		groups:    groups,
		brackets:  brackets,
		prizes:    prizes,
		scheduler: nopScheduler{},
		publisher: publisher,
		now:       time.Now,
	}
}

// UseScheduler routes scheduled starts to s. The scheduler calls back into
// StartScheduled, so it is attached after both are built.
func (s *TournamentService) UseScheduler(scheduler Scheduler) {
	if scheduler == nil {
		scheduler = nopScheduler{}
	}
	s.scheduler = scheduler
}

type GroupStageInput struct {
	NumGroups        int `json:"num_groups"`
	WinnersQualified int `json:"winners_qualified"`
	LosersQualified  int `json:"losers_qualified"`
}

type CreateTournamentInput struct {
	Title       string                  `json:"title"`
	Format      bracket.Format          `json:"format"`
	Elimination bracket.EliminationType `json:"elimination"`
	Capacity    int                     `json:"capacity"`
	PrizePool   decimal.Decimal         `json:"prize_pool"`
	BestOf      int                     `json:"best_of"`
	FinalBestOf int                     `json:"final_best_of"`
	GroupStage  *GroupStageInput        `json:"group_stage,omitempty"`
	StartTime   *time.Time              `json:"start_time,omitempty"`
}

func (in *CreateTournamentInput) validate(now time.Time) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apperr.InvalidInput("title is required")
	}
	if !in.Format.Valid() {
		return apperr.InvalidInput("unknown format %q", in.Format)
	}
	if in.Elimination == "" {
		in.Elimination = bracket.SingleElimination
	}
	if !in.Elimination.Valid() {
		return apperr.InvalidInput("unknown elimination type %q", in.Elimination)
	}
	if in.Capacity < bracket.MinParticipants {
		return apperr.InvalidInput("capacity must be at least %d", bracket.MinParticipants)
	}
	if in.PrizePool.IsNegative() {
		return apperr.InvalidInput("prize pool cannot be negative")
	}
	if in.BestOf == 0 {
		in.BestOf = 1
	}
	if in.FinalBestOf == 0 {
		in.FinalBestOf = in.BestOf
	}
	for _, bo := range []int{in.BestOf, in.FinalBestOf} {
		if bo < 1 || bo%2 == 0 {
			return apperr.InvalidInput("best-of must be a positive odd number, got %d", bo)
		}
	}
	if in.StartTime != nil && !in.StartTime.After(now) {
		return apperr.InvalidInput("start time %s is in the past", in.StartTime.Format(time.RFC3339))
	}

	if gs := in.GroupStage; gs != nil {
		if gs.NumGroups < 1 {
			return apperr.InvalidInput("a group stage needs at least one group")
		}
		if gs.NumGroups > bracket.MaxGroups {
			return apperr.CapacityExceeded("at most %d groups are supported, got %d", bracket.MaxGroups, gs.NumGroups)
		}
		if gs.WinnersQualified < 1 {
			return apperr.InvalidInput("at least one entrant per group must qualify")
		}
		if gs.LosersQualified < 0 {
			return apperr.InvalidInput("losers qualified cannot be negative")
		}
		if gs.LosersQualified > 0 && in.Elimination != bracket.DoubleElimination {
			return apperr.InvalidInput("losers qualify only into a double elimination playoff")
		}
	}
	return nil
}

func (s *TournamentService) CreateTournament(ctx context.Context, caller users.Caller, input CreateTournamentInput) (*bracket.Tournament, error) {
	if caller.ID == uuid.Nil {
		return nil, apperr.Unauthorized("an authenticated caller is required")
	}
	if err := input.validate(s.now()); err != nil {
		return nil, err
	}

	tournament := &bracket.Tournament{
		ID:          uuid.New(),
		OwnerID:     caller.ID,
		Title:       input.Title,
		Format:      input.Format,
		Elimination: input.Elimination,
		Status:      bracket.TournamentOpen,
		Capacity:    input.Capacity,
		PrizePool:   input.PrizePool,
		BestOf:      input.BestOf,
		FinalBestOf: input.FinalBestOf,
		StartTime:   input.StartTime,
		CreatedAt:   s.now().UTC(),
	}
	if gs := input.GroupStage; gs != nil {
		tournament.HasGroupStage = true
		tournament.NumGroups = gs.NumGroups
		tournament.WinnersQualified = gs.WinnersQualified
		tournament.LosersQualified = gs.LosersQualified
	}

	if err := s.stores.Tournaments.CreateTournament(ctx, s.db, tournament); err != nil {
		return nil, err
	}
	if tournament.StartTime != nil {
		s.scheduler.Schedule(tournament.ID, *tournament.StartTime)
	}

	slog.Info("tournament created", "tournament", tournament.ID, "title", tournament.Title, "owner", caller.ID)
	return tournament, nil
}

func (s *TournamentService) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	return s.stores.Tournaments.GetTournament(ctx, s.db, id)
}

func (s *TournamentService) GetTournamentsForOwner(ctx context.Context, ownerID uuid.UUID) ([]bracket.Tournament, error) {
	return s.stores.Tournaments.GetTournamentsByOwner(ctx, s.db, ownerID)
}

// GetTournamentsForParticipant lists tournaments the user plays in, solo or
// as a member of a registered team.
func (s *TournamentService) GetTournamentsForParticipant(ctx context.Context, userID uuid.UUID) ([]bracket.Tournament, error) {
	return s.stores.Tournaments.GetTournamentsByParticipant(ctx, s.db, userID)
}

// GetScheduledTournaments lists open tournaments waiting for their start time.
func (s *TournamentService) GetScheduledTournaments(ctx context.Context) ([]bracket.Tournament, error) {
	return s.stores.Tournaments.GetScheduledTournaments(ctx, s.db)
}

func (s *TournamentService) GetEntries(ctx context.Context, id uuid.UUID) ([]bracket.Entry, error) {
	if _, err := s.stores.Tournaments.GetTournament(ctx, s.db, id); err != nil {
		return nil, err
	}
	return s.stores.Tournaments.GetEntries(ctx, s.db, id)
}

type StartOptions struct {
	// Shuffle redraws the seeds before the first stage is built.
	Shuffle bool `json:"shuffle"`
}

// StartTournament closes registration and builds the first stage: the group
// stage when one is configured, the playoff bracket otherwise.
func (s *TournamentService) StartTournament(ctx context.Context, caller users.Caller, id uuid.UUID, opts StartOptions) (*bracket.Tournament, error) {
	var tournament *bracket.Tournament
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		tournament, err = s.stores.Tournaments.GetTournament(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(caller, tournament); err != nil {
			return err
		}
		if tournament.Status != bracket.TournamentOpen {
			return apperr.InvalidState("tournament %s is already %s", id, tournament.Status)
		}

		pool, err := s.entries.ResolvePool(ctx, tx, tournament, opts.Shuffle)
		if err != nil {
			return err
		}

		if tournament.HasGroupStage {
			_, err = s.groups.BuildGroupStage(ctx, tx, tournament, pool)
		} else {
			_, err = s.brackets.BuildPlayoffs(ctx, tx, tournament, entityIDs(pool))
		}
		if err != nil {
			return err
		}

		tournament.Status = bracket.TournamentOngoing
		return s.stores.Tournaments.UpdateTournamentStatus(ctx, tx, id, tournament.Status)
	})
	if err != nil {
		return nil, err
	}

	s.scheduler.Cancel(id)
	publish(ctx, s.publisher, []events.Event{{Kind: events.TournamentStarted, TournamentID: id, At: s.now().UTC()}})
	slog.Info("tournament started", "tournament", id, "group_stage", tournament.HasGroupStage)
	return tournament, nil
}

// StartScheduled is the scheduler's entry point. A tournament that was
// deleted, started or canceled in the meantime is left alone.
func (s *TournamentService) StartScheduled(ctx context.Context, id uuid.UUID) error {
	_, err := s.StartTournament(ctx, users.System(), id, StartOptions{})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalidState):
		slog.Info("scheduled start skipped", "tournament", id, "reason", err)
		return nil
	}
	return err
}

func (s *TournamentService) CancelTournament(ctx context.Context, caller users.Caller, id uuid.UUID) error {
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		tournament, err := s.stores.Tournaments.GetTournament(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(caller, tournament); err != nil {
			return err
		}
		if tournament.Status != bracket.TournamentOpen && tournament.Status != bracket.TournamentOngoing {
			return apperr.InvalidState("tournament %s is %s and cannot be canceled", id, tournament.Status)
		}
		return s.stores.Tournaments.UpdateTournamentStatus(ctx, tx, id, bracket.TournamentCanceled)
	})
	if err != nil {
		return err
	}

	s.scheduler.Cancel(id)
	slog.Info("tournament canceled", "tournament", id)
	return nil
}

// ResetTournament discards every generated stage and the prize table and
// reopens registration. Entries are kept.
func (s *TournamentService) ResetTournament(ctx context.Context, caller users.Caller, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament *bracket.Tournament
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		tournament, err = s.stores.Tournaments.GetTournament(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(caller, tournament); err != nil {
			return err
		}

		if err := s.stores.Tournaments.DeletePrizeRows(ctx, tx, id); err != nil {
			return err
		}
		if err := s.stores.Matches.DeleteMatches(ctx, tx, id); err != nil {
			return err
		}
		if err := s.stores.Groups.DeleteGroupStage(ctx, tx, id); err != nil {
			return err
		}

		tournament.Status = bracket.TournamentOpen
		return s.stores.Tournaments.UpdateTournamentStatus(ctx, tx, id, tournament.Status)
	})
	if err != nil {
		return nil, err
	}

	if tournament.StartTime != nil && tournament.StartTime.After(s.now()) {
		s.scheduler.Schedule(id, *tournament.StartTime)
	}
	publish(ctx, s.publisher, []events.Event{{Kind: events.TournamentReset, TournamentID: id, At: s.now().UTC()}})
	slog.Info("tournament reset", "tournament", id)
	return tournament, nil
}

func (s *TournamentService) DeleteTournament(ctx context.Context, caller users.Caller, id uuid.UUID) error {
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		tournament, err := s.stores.Tournaments.GetTournament(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(caller, tournament); err != nil {
			return err
		}
		return s.stores.Tournaments.DeleteTournament(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.scheduler.Cancel(id)
	slog.Info("tournament deleted", "tournament", id)
	return nil
}

// CompleteTournament finalizes a tournament whose final has been decided.
// Concluding the final already does this, so it only matters for data that
// predates the automatic path or was repaired by hand.
func (s *TournamentService) CompleteTournament(ctx context.Context, caller users.Caller, id uuid.UUID) ([]bracket.PrizeRow, error) {
	var rows []bracket.PrizeRow
	var winner *uuid.UUID
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		tournament, err := s.stores.Tournaments.GetTournament(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(caller, tournament); err != nil {
			return err
		}
		if tournament.Status != bracket.TournamentOngoing {
			return apperr.InvalidState("tournament %s is %s", id, tournament.Status)
		}

		g, err := s.stores.Matches.GetGraph(ctx, tx, id)
		if err != nil {
			return err
		}
		if rows, err = s.prizes.Finalize(ctx, tx, tournament, g); err != nil {
			return err
		}
		if final, _ := g.Final(); final != nil {
			winner = final.WinnerID
		}
		return s.stores.Tournaments.UpdateTournamentStatus(ctx, tx, id, bracket.TournamentCompleted)
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, []events.Event{{Kind: events.TournamentCompleted, TournamentID: id, WinnerID: winner, At: s.now().UTC()}})
	slog.Info("tournament completed", "tournament", id)
	return rows, nil
}

func (s *TournamentService) GetGroupStage(ctx context.Context, id uuid.UUID) (*bracket.GroupStage, error) {
	return s.groups.Load(ctx, s.db, id)
}

// GetPlayoffStage returns the bracket graph, NotFound when none was built.
func (s *TournamentService) GetPlayoffStage(ctx context.Context, id uuid.UUID) (*bracket.Graph, error) {
	if _, err := s.stores.Tournaments.GetTournament(ctx, s.db, id); err != nil {
		return nil, err
	}
	g, err := s.stores.Matches.GetGraph(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if len(g.Matches) == 0 {
		return nil, apperr.NotFound("playoff stage of tournament %s", id)
	}
	return g, nil
}

func (s *TournamentService) GetPrizeTable(ctx context.Context, id uuid.UUID) ([]bracket.PrizeRow, error) {
	if _, err := s.stores.Tournaments.GetTournament(ctx, s.db, id); err != nil {
		return nil, err
	}
	return s.stores.Tournaments.GetPrizeRows(ctx, s.db, id)
}

type Overview struct {
	Tournament *bracket.Tournament `json:"tournament"`
	Entries    []bracket.Entry     `json:"entries"`
	Matches    []bracket.Match     `json:"matches"`
	GroupStage *bracket.GroupStage `json:"group_stage,omitempty"`
	Prizes     []bracket.PrizeRow  `json:"prizes"`
	OpenCount  int                 `json:"open_matches"`
}

// GetOverview reads everything about a tournament at once.
func (s *TournamentService) GetOverview(ctx context.Context, id uuid.UUID) (*Overview, error) {
	tournament, err := s.stores.Tournaments.GetTournament(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	ov := &Overview{Tournament: tournament}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ov.Entries, err = s.stores.Tournaments.GetEntries(gctx, s.db, id)
		return err
	})
	g.Go(func() error {
		var err error
		ov.Matches, err = s.stores.Matches.GetMatches(gctx, s.db, id, "")
		return err
	})
	g.Go(func() error {
		var err error
		ov.Prizes, err = s.stores.Tournaments.GetPrizeRows(gctx, s.db, id)
		return err
	})
	if tournament.HasGroupStage {
		g.Go(func() error {
			stage, err := s.groups.Load(gctx, s.db, id)
			if errors.Is(err, apperr.ErrNotFound) {
				return nil
			}
			ov.GroupStage = stage
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, m := range ov.Matches {
		if m.Status != bracket.MatchConcluded {
			ov.OpenCount++
		}
	}
	return ov, nil
}
