package service

import (
	"context"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/AdamBeresnev/op-tourney/internal/store"
	users "github.com/AdamBeresnev/op-tourney/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UserService validates entrants against the user and team directory.
type UserService struct {
	db    *sqlx.DB
	store *store.UserStore
}

func NewUserService(db *sqlx.DB, store *store.UserStore) *UserService {
	return &UserService{db: db, store: store}
}

// Entrant is a directory entity eligible to compete.
type Entrant struct {
	ID   uuid.UUID
	Kind bracket.Format
	Name string
	// Members lists who may act for the entrant.
	Members []uuid.UUID
}

// ResolveEntrant looks the entity up as a user (solo) or a team and checks it
// may compete: it exists, is not banned, and a team has at least one member.
func (s *UserService) ResolveEntrant(ctx context.Context, q sqlx.ExtContext, format bracket.Format, entityID uuid.UUID) (*Entrant, error) {
	switch format {
	case bracket.FormatSolo:
		user, err := s.store.GetUser(ctx, q, entityID)
		if err != nil {
			return nil, err
		}
		if user.IsBanned {
			return nil, apperr.InvalidState("user %s is banned", entityID)
		}
		return &Entrant{ID: user.ID, Kind: format, Name: user.Username, Members: []uuid.UUID{user.ID}}, nil

	case bracket.FormatTeam:
		team, err := s.store.GetTeam(ctx, q, entityID)
		if err != nil {
			return nil, err
		}
		if team.IsBanned {
			return nil, apperr.InvalidState("team %s is banned", entityID)
		}
		if len(team.Members) == 0 {
			return nil, apperr.CapacityExceeded("team %s has an empty roster", entityID)
		}
		return &Entrant{ID: team.ID, Kind: format, Name: team.Name, Members: team.Members}, nil
	}
	return nil, apperr.InvalidInput("unknown format %q", format)
}

// CanActFor reports whether the caller may register or unregister the entrant.
func (e *Entrant) CanActFor(caller users.Caller, tournament *bracket.Tournament) bool {
	if tournament.IsManagedBy(caller.ID, caller.IsAdmin) {
		return true
	}
	for _, m := range e.Members {
		if m == caller.ID {
			return true
		}
	}
	return false
}

func (s *UserService) CreateUser(ctx context.Context, user *users.User) error {
	return s.store.CreateUser(ctx, s.db, user)
}

func (s *UserService) CreateTeam(ctx context.Context, team *users.Team) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return s.store.CreateTeam(ctx, tx, team)
	})
}
