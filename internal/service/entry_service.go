package service

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	users "github.com/AdamBeresnev/op-tourney/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EntryService owns registrations and resolves them into the seeded pool a
// stage is built from.
type EntryService struct {
	db     *sqlx.DB
	stores Stores
	users  *UserService
}

func NewEntryService(db *sqlx.DB, stores Stores, users *UserService) *EntryService {
	return &EntryService{db: db, stores: stores, users: users}
}

func (s *EntryService) Register(ctx context.Context, caller users.Caller, tournamentID, entityID uuid.UUID) (*bracket.Entry, error) {
	var entry *bracket.Entry
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		tournament, err := s.stores.Tournaments.GetTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if tournament.Status != bracket.TournamentOpen {
			return apperr.InvalidState("tournament %s is %s, registration is closed", tournamentID, tournament.Status)
		}

		entrant, err := s.users.ResolveEntrant(ctx, tx, tournament.Format, entityID)
		if err != nil {
			return err
		}
		if !entrant.CanActFor(caller, tournament) {
			return apperr.Unauthorized("caller %s may not register %s", caller.ID, entityID)
		}

		count, err := s.stores.Tournaments.CountEntries(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if count >= tournament.Capacity {
			return apperr.CapacityExceeded("tournament %s is full (%d)", tournamentID, tournament.Capacity)
		}

		seed, err := s.stores.Tournaments.NextSeed(ctx, tx, tournamentID)
		if err != nil {
			return err
		}

		entry = &bracket.Entry{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			EntityID:     entrant.ID,
			Kind:         entrant.Kind,
			Name:         entrant.Name,
			Seed:         seed,
		}
		return s.stores.Tournaments.CreateEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("participant registered", "tournament", tournamentID, "entity", entityID, "seed", entry.Seed)
	return entry, nil
}

func (s *EntryService) Unregister(ctx context.Context, caller users.Caller, tournamentID, entityID uuid.UUID) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		tournament, err := s.stores.Tournaments.GetTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if tournament.Status != bracket.TournamentOpen {
			return apperr.InvalidState("tournament %s is %s, registration is closed", tournamentID, tournament.Status)
		}

		allowed := tournament.IsManagedBy(caller.ID, caller.IsAdmin)
		if !allowed {
			entrant, err := s.users.ResolveEntrant(ctx, tx, tournament.Format, entityID)
			if err != nil {
				return err
			}
			allowed = entrant.CanActFor(caller, tournament)
		}
		if !allowed {
			return apperr.Unauthorized("caller %s may not unregister %s", caller.ID, entityID)
		}

		return s.stores.Tournaments.DeleteEntry(ctx, tx, tournamentID, entityID)
	})
}

// ResolvePool returns the tournament's entrants by seed. With shuffle the
// seeds are redrawn at random and persisted. The pool must hold at least two
// entrants, all of the tournament's format.
func (s *EntryService) ResolvePool(ctx context.Context, q sqlx.ExtContext, tournament *bracket.Tournament, shuffle bool) ([]bracket.Entry, error) {
	entries, err := s.stores.Tournaments.GetEntries(ctx, q, tournament.ID)
	if err != nil {
		return nil, err
	}
	if len(entries) < bracket.MinParticipants {
		return nil, apperr.InvalidState("tournament %s needs at least %d entrants, has %d", tournament.ID, bracket.MinParticipants, len(entries))
	}
	for _, e := range entries {
		if e.Kind != tournament.Format {
			return nil, apperr.InvalidState("tournament %s mixes %s and %s entrants", tournament.ID, tournament.Format, e.Kind)
		}
	}

	if shuffle {
		rand.Shuffle(len(entries), func(i, j int) {
			entries[i], entries[j] = entries[j], entries[i]
		})
		for i := range entries {
			entries[i].Seed = i + 1
			if err := s.stores.Tournaments.UpdateEntrySeed(ctx, q, entries[i].ID, entries[i].Seed); err != nil {
				return nil, err
			}
		}
	}
	return entries, nil
}

func entityIDs(entries []bracket.Entry) []uuid.UUID {
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.EntityID
	}
	return ids
}

func seedsByEntity(entries []bracket.Entry) map[uuid.UUID]int {
	seeds := make(map[uuid.UUID]int, len(entries))
	for _, e := range entries {
		seeds[e.EntityID] = e.Seed
	}
	return seeds
}
