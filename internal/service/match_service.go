package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/AdamBeresnev/op-tourney/internal/events"
	users "github.com/AdamBeresnev/op-tourney/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MatchService drives matches through scheduled, ongoing and concluded, and
// carries each conclusion through standings, the bracket and the prize table
// inside the same transaction.
type MatchService struct {
	db        *sqlx.DB
	stores    Stores
	groups    *GroupStageService
	brackets  *BracketGeneration
	prizes    *PrizeService
	publisher events.Publisher
}

func NewMatchService(db *sqlx.DB, stores Stores, groups *GroupStageService, brackets *BracketGeneration, prizes *PrizeService, publisher events.Publisher) *MatchService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &MatchService{
		db:        db,
		stores:    stores,
		groups:    groups,
		brackets:  brackets,
		prizes:    prizes,
		publisher: publisher,
	}
}

func (s *MatchService) GetMatch(ctx context.Context, tournamentID, matchID uuid.UUID) (*bracket.Match, error) {
	match, err := s.loadMatch(ctx, s.db, tournamentID, matchID)
	if err != nil {
		return nil, err
	}
	if match.Maps, err = s.stores.Matches.GetMaps(ctx, s.db, match.ID); err != nil {
		return nil, err
	}
	return match, nil
}

func (s *MatchService) GetMatches(ctx context.Context, tournamentID uuid.UUID, stage bracket.Stage) ([]bracket.Match, error) {
	if _, err := s.stores.Tournaments.GetTournament(ctx, s.db, tournamentID); err != nil {
		return nil, err
	}
	return s.stores.Matches.GetMatches(ctx, s.db, tournamentID, stage)
}

// StartMatch opens a match for reporting and creates one map per game of its
// series. Starting an ongoing match again changes nothing.
func (s *MatchService) StartMatch(ctx context.Context, caller users.Caller, tournamentID, matchID uuid.UUID) (*bracket.Match, error) {
	var match *bracket.Match
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		tournament, m, err := s.loadForUpdate(ctx, tx, caller, tournamentID, matchID)
		if err != nil {
			return err
		}
		if err := requireOngoing(tournament); err != nil {
			return err
		}
		match = m

		switch match.Status {
		case bracket.MatchOngoing:
			match.Maps, err = s.stores.Matches.GetMaps(ctx, tx, match.ID)
			return err
		case bracket.MatchConcluded:
			return apperr.InvalidState("match %s is already concluded", match.ID)
		}
		if !match.HasBothParticipants() {
			return apperr.InvalidState("cannot start match %s with a missing participant", match.ID)
		}

		maps := make([]bracket.Map, match.BestOf)
		for i := range maps {
			maps[i] = bracket.Map{ID: uuid.New(), MatchID: match.ID, Number: i + 1}
		}
		if err := s.stores.Matches.CreateMaps(ctx, tx, maps); err != nil {
			return err
		}

		match.Status = bracket.MatchOngoing
		if err := s.stores.Matches.UpdateMatch(ctx, tx, match); err != nil {
			return err
		}
		match.Maps = maps
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// CompleteMap records the winner of one map and recomputes the series. A
// report identical to the stored one is a no-op; a different winner for a
// map that already has one is rejected.
func (s *MatchService) CompleteMap(ctx context.Context, caller users.Caller, tournamentID, matchID, mapID, winnerID uuid.UUID) (*bracket.Match, error) {
	var match *bracket.Match
	var batch []events.Event
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		tournament, m, err := s.loadForUpdate(ctx, tx, caller, tournamentID, matchID)
		if err != nil {
			return err
		}
		match = m

		maps, err := s.stores.Matches.GetMaps(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		target := -1
		for i := range maps {
			if maps[i].ID == mapID {
				target = i
			}
		}
		if target < 0 {
			return apperr.NotFound("map %s in match %s", mapID, match.ID)
		}

		if recorded := maps[target].WinnerID; recorded != nil {
			if *recorded != winnerID {
				return apperr.InvalidState("map %d of match %s was already won by %s", maps[target].Number, match.ID, *recorded)
			}
			match.Maps = maps
			return nil
		}

		if err := requireOngoing(tournament); err != nil {
			return err
		}
		if match.Status != bracket.MatchOngoing {
			return apperr.InvalidState("match %s is %s, maps can only be reported while ongoing", match.ID, match.Status)
		}
		if match.Slot(winnerID) == 0 {
			return apperr.InvalidState("%s is not a participant of match %s", winnerID, match.ID)
		}

		maps[target].WinnerID = &winnerID
		tally, err := bracket.TallyMaps(match, maps)
		if err != nil {
			return err
		}
		if err := s.stores.Matches.SetMapWinner(ctx, tx, mapID, winnerID); err != nil {
			return err
		}

		match.Score1, match.Score2 = tally.Score1, tally.Score2
		if tally.WinnerID == nil {
			if err := s.stores.Matches.UpdateMatch(ctx, tx, match); err != nil {
				return err
			}
			match.Maps = maps
			return nil
		}

		match.WinnerID = tally.WinnerID
		match, batch, err = s.conclude(ctx, tx, tournament, match)
		if err != nil {
			return err
		}
		match.Maps = maps
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, batch)
	return match, nil
}

// CompleteMatch concludes a match with the given winner without looking at
// its maps.
func (s *MatchService) CompleteMatch(ctx context.Context, caller users.Caller, tournamentID, matchID, winnerID uuid.UUID) (*bracket.Match, error) {
	var match *bracket.Match
	var batch []events.Event
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		tournament, m, err := s.loadForUpdate(ctx, tx, caller, tournamentID, matchID)
		if err != nil {
			return err
		}
		if err := requireOngoing(tournament); err != nil {
			return err
		}
		if m.Status == bracket.MatchConcluded {
			return apperr.InvalidState("match %s is already concluded", m.ID)
		}
		if !m.HasBothParticipants() {
			return apperr.InvalidState("match %s is missing a participant", m.ID)
		}
		if m.Slot(winnerID) == 0 {
			return apperr.InvalidState("%s is not a participant of match %s", winnerID, m.ID)
		}

		m.WinnerID = &winnerID
		match, batch, err = s.conclude(ctx, tx, tournament, m)
		if err != nil {
			return err
		}
		match.Maps, err = s.stores.Matches.GetMaps(ctx, tx, match.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, batch)
	return match, nil
}

// conclude persists a decided match and everything that follows from it: group
// standings and, after the last group match, the playoff bracket; or the
// downstream bracket slots and, after the final, the prize table.
func (s *MatchService) conclude(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament, match *bracket.Match) (*bracket.Match, []events.Event, error) {
	now := time.Now().UTC()
	match.Status = bracket.MatchConcluded
	batch := []events.Event{{
		Kind:         events.MatchConcluded,
		TournamentID: tournament.ID,
		MatchID:      &match.ID,
		WinnerID:     match.WinnerID,
		At:           now,
	}}

	if match.Stage == bracket.GroupStageMatch {
		if err := s.stores.Matches.UpdateMatch(ctx, tx, match); err != nil {
			return nil, nil, err
		}
		if err := s.groups.RecordResult(ctx, tx, match); err != nil {
			return nil, nil, err
		}

		open, err := s.stores.Matches.CountOpenMatches(ctx, tx, tournament.ID, bracket.GroupStageMatch)
		if err != nil {
			return nil, nil, err
		}
		if open == 0 {
			qualifiers, err := s.groups.Qualifiers(ctx, tx, tournament)
			if err != nil {
				return nil, nil, err
			}
			if _, err := s.brackets.BuildPlayoffs(ctx, tx, tournament, qualifiers); err != nil {
				return nil, nil, err
			}
		}

		slog.Info("group match concluded", "tournament", tournament.ID, "match", match.ID, "winner", *match.WinnerID, "groups_open", open)
		return match, batch, nil
	}

	g, err := s.stores.Matches.GetGraph(ctx, tx, tournament.ID)
	if err != nil {
		return nil, nil, err
	}
	played, _, ok := g.Lookup(match.ID)
	if !ok {
		return nil, nil, apperr.InvalidState("match %s is not part of the bracket", match.ID)
	}
	*played = *match

	if err := g.Advance(match.ID); err != nil {
		return nil, nil, err
	}
	if err := s.stores.Matches.SaveGraphChanges(ctx, tx, g); err != nil {
		return nil, nil, err
	}
	slog.Info("playoff match concluded", "tournament", tournament.ID, "match", match.ID, "winner", *match.WinnerID)

	if final, _ := g.Final(); final != nil && final.Status == bracket.MatchConcluded {
		if _, err := s.prizes.Finalize(ctx, tx, tournament, g); err != nil {
			return nil, nil, err
		}
		if err := s.stores.Tournaments.UpdateTournamentStatus(ctx, tx, tournament.ID, bracket.TournamentCompleted); err != nil {
			return nil, nil, err
		}
		batch = append(batch, events.Event{
			Kind:         events.TournamentCompleted,
			TournamentID: tournament.ID,
			WinnerID:     final.WinnerID,
			At:           now,
		})
		slog.Info("tournament completed", "tournament", tournament.ID, "winner", *final.WinnerID)
	}
	return played, batch, nil
}

// loadForUpdate loads the tournament and match a reporter acts on and checks
// the caller may manage it.
func (s *MatchService) loadForUpdate(ctx context.Context, tx *sqlx.Tx, caller users.Caller, tournamentID, matchID uuid.UUID) (*bracket.Tournament, *bracket.Match, error) {
	tournament, err := s.stores.Tournaments.GetTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	if err := authorize(caller, tournament); err != nil {
		return nil, nil, err
	}

	match, err := s.loadMatch(ctx, tx, tournamentID, matchID)
	if err != nil {
		return nil, nil, err
	}
	return tournament, match, nil
}

func (s *MatchService) loadMatch(ctx context.Context, q sqlx.ExtContext, tournamentID, matchID uuid.UUID) (*bracket.Match, error) {
	match, err := s.stores.Matches.GetMatch(ctx, q, matchID)
	if err != nil {
		return nil, err
	}
	if match.TournamentID != tournamentID {
		return nil, apperr.NotFound("match %s in tournament %s", matchID, tournamentID)
	}
	return match, nil
}

func requireOngoing(tournament *bracket.Tournament) error {
	if tournament.Status != bracket.TournamentOngoing {
		return apperr.InvalidState("tournament %s is %s", tournament.ID, tournament.Status)
	}
	return nil
}
