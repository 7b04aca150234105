package store

import (
	"context"

	users "github.com/AdamBeresnev/op-tourney/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UserStore is the read side of the user and team directory. Accounts are
// owned by the identity provider; rows are only written for seeding.
type UserStore struct {
	db *sqlx.DB
}

const (
	getUserQuery        = "SELECT * FROM users WHERE id = ?"
	getTeamQuery        = "SELECT * FROM teams WHERE id = ?"
	getTeamMembersQuery = "SELECT user_id FROM team_members WHERE team_id = ? ORDER BY user_id"
	createUserQuery     = `
		INSERT INTO users (id, username, is_banned) VALUES
		(:id, :username, :is_banned)
	`
	createTeamQuery = `
		INSERT INTO teams (id, name, is_banned) VALUES
		(:id, :name, :is_banned)
	`
)

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUser(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*users.User, error) {
	var user users.User
	if err := sqlx.GetContext(ctx, q, &user, getUserQuery, id); err != nil {
		return nil, translate(err, "user", id)
	}
	return &user, nil
}

// GetTeam returns the team with its roster.
func (s *UserStore) GetTeam(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*users.Team, error) {
	var team users.Team
	if err := sqlx.GetContext(ctx, q, &team, getTeamQuery, id); err != nil {
		return nil, translate(err, "team", id)
	}
	if err := sqlx.SelectContext(ctx, q, &team.Members, getTeamMembersQuery, id); err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *UserStore) CreateUser(ctx context.Context, q sqlx.ExtContext, user *users.User) error {
	_, err := sqlx.NamedExecContext(ctx, q, createUserQuery, user)
	return translate(err, "user", user.ID)
}

func (s *UserStore) CreateTeam(ctx context.Context, q sqlx.ExtContext, team *users.Team) error {
	if _, err := sqlx.NamedExecContext(ctx, q, createTeamQuery, team); err != nil {
		return translate(err, "team", team.ID)
	}
	for _, member := range team.Members {
		if _, err := q.ExecContext(ctx, "INSERT INTO team_members (team_id, user_id) VALUES (?, ?)", team.ID, member); err != nil {
			return translate(err, "team member", member)
		}
	}
	return nil
}
