package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/AdamBeresnev/op-tourney/internal/events"
	users "github.com/AdamBeresnev/op-tourney/internal/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTournament_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name   string
		caller users.Caller
		mutate func(in *CreateTournamentInput)
		want   error
	}{
		{"anonymous caller", users.Caller{}, func(in *CreateTournamentInput) {}, apperr.ErrUnauthorized},
		{"blank title", testOwner, func(in *CreateTournamentInput) { in.Title = "  " }, apperr.ErrInvalidInput},
		{"unknown format", testOwner, func(in *CreateTournamentInput) { in.Format = "duo" }, apperr.ErrInvalidInput},
		{"unknown elimination", testOwner, func(in *CreateTournamentInput) { in.Elimination = "swiss" }, apperr.ErrInvalidInput},
		{"capacity of one", testOwner, func(in *CreateTournamentInput) { in.Capacity = 1 }, apperr.ErrInvalidInput},
		{"even best-of", testOwner, func(in *CreateTournamentInput) { in.BestOf = 2 }, apperr.ErrInvalidInput},
		{"negative prize pool", testOwner, func(in *CreateTournamentInput) { in.PrizePool = decimal.NewFromInt(-1) }, apperr.ErrInvalidInput},
		{"start in the past", testOwner, func(in *CreateTournamentInput) { in.StartTime = &past }, apperr.ErrInvalidInput},
		{"too many groups", testOwner, func(in *CreateTournamentInput) {
			in.GroupStage = &GroupStageInput{NumGroups: 27, WinnersQualified: 1}
		}, apperr.ErrCapacityExceeded},
		{"losers quota in single elimination", testOwner, func(in *CreateTournamentInput) {
			in.GroupStage = &GroupStageInput{NumGroups: 2, WinnersQualified: 1, LosersQualified: 1}
		}, apperr.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := soloInput("Validation " + tt.name)
			tt.mutate(&input)
			_, err := f.svc.Tournaments.CreateTournament(ctx, tt.caller, input)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestCreateTournament_Defaults(t *testing.T) {
	f := newFixture(t)
	input := soloInput("Defaults")
	input.BestOf = 0
	input.Elimination = ""

	tournament := f.createTournament(t, input)
	assert.Equal(t, bracket.TournamentOpen, tournament.Status)
	assert.Equal(t, bracket.SingleElimination, tournament.Elimination)
	assert.Equal(t, 1, tournament.BestOf)
	assert.Equal(t, 1, tournament.FinalBestOf)
	assert.Equal(t, testOwner.ID, tournament.OwnerID)

	got, err := f.svc.Tournaments.GetTournament(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, "Defaults", got.Title)
	assert.True(t, decimal.NewFromInt(1000).Equal(got.PrizePool))
}

func TestCreateTournament_DuplicateTitle(t *testing.T) {
	f := newFixture(t)
	f.createTournament(t, soloInput("Same"))

	_, err := f.svc.Tournaments.CreateTournament(context.Background(), testOwner, soloInput("Same"))
	assert.True(t, errors.Is(err, apperr.ErrConflict), "got %v", err)
}

func TestCreateTournament_SchedulesStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	input := soloInput("Scheduled")
	input.StartTime = &start

	tournament := f.createTournament(t, input)
	assert.True(t, f.schedule.has(tournament.ID))

	scheduled, err := f.svc.Tournaments.GetScheduledTournaments(ctx)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, tournament.ID, scheduled[0].ID)

	require.NoError(t, f.svc.Tournaments.DeleteTournament(ctx, testOwner, tournament.ID))
	assert.False(t, f.schedule.has(tournament.ID))
}

func TestStartTournament_BuildsBracket(t *testing.T) {
	f := newFixture(t)
	tournament, _ := f.startWith(t, soloInput("Five"), 5)

	assert.Equal(t, bracket.TournamentOngoing, tournament.Status)
	assert.Equal(t, 1, f.recorder.Count(events.TournamentStarted))

	g, err := f.svc.Tournaments.GetPlayoffStage(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Len(t, g.Matches, 7, "a bracket of eight")

	byes := 0
	for _, m := range g.Matches {
		if m.IsBye {
			byes++
			assert.Equal(t, bracket.MatchConcluded, m.Status)
		}
	}
	assert.Equal(t, 3, byes)
}

func TestStartTournament_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lonely := f.createTournament(t, soloInput("Lonely"))
	f.registerAll(t, lonely.ID, f.seedUsers(t, 1))
	_, err := f.svc.Tournaments.StartTournament(ctx, testOwner, lonely.ID, StartOptions{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidState), "too few entrants: %v", err)

	started, ids := f.startWith(t, soloInput("Started"), 2)
	_, err = f.svc.Tournaments.StartTournament(ctx, testOwner, started.ID, StartOptions{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidState), "second start: %v", err)

	other := f.createTournament(t, soloInput("Other"))
	_, err = f.svc.Tournaments.StartTournament(ctx, users.Caller{ID: ids[0]}, other.ID, StartOptions{})
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized), "not the owner: %v", err)

	_, err = f.svc.Tournaments.StartTournament(ctx, users.Caller{ID: uuid.New(), IsAdmin: true}, uuid.New(), StartOptions{})
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "unknown: %v", err)
}

func TestStartTournament_GroupStageNeedsQualifiers(t *testing.T) {
	f := newFixture(t)
	input := soloInput("One group")
	input.GroupStage = &GroupStageInput{NumGroups: 1, WinnersQualified: 1}
	tournament := f.createTournament(t, input)
	f.registerAll(t, tournament.ID, f.seedUsers(t, 4))

	_, err := f.svc.Tournaments.StartTournament(context.Background(), testOwner, tournament.ID, StartOptions{})
	assert.True(t, errors.Is(err, apperr.ErrCapacityExceeded), "got %v", err)

	// Nothing was left behind by the failed start.
	got, err := f.svc.Tournaments.GetTournament(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentOpen, got.Status)
	assert.Empty(t, f.matches(t, tournament.ID, ""))
}

func TestStartTournament_Shuffle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament := f.createTournament(t, soloInput("Shuffle"))
	f.registerAll(t, tournament.ID, f.seedUsers(t, 6))

	_, err := f.svc.Tournaments.StartTournament(ctx, testOwner, tournament.ID, StartOptions{Shuffle: true})
	require.NoError(t, err)

	entries, err := f.svc.Tournaments.GetEntries(ctx, tournament.ID)
	require.NoError(t, err)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Seed, "seeds stay a permutation of 1..n")
	}
}

func TestStartScheduled_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament := f.createTournament(t, soloInput("Timer"))
	f.registerAll(t, tournament.ID, f.seedUsers(t, 2))

	require.NoError(t, f.svc.Tournaments.StartScheduled(ctx, tournament.ID))
	require.NoError(t, f.svc.Tournaments.StartScheduled(ctx, tournament.ID), "already started")
	require.NoError(t, f.svc.Tournaments.StartScheduled(ctx, uuid.New()), "deleted meanwhile")

	got, err := f.svc.Tournaments.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentOngoing, got.Status)
	assert.Equal(t, 1, f.recorder.Count(events.TournamentStarted))
}

func TestResetTournament(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := soloInput("Reset")
	input.GroupStage = &GroupStageInput{NumGroups: 2, WinnersQualified: 2}
	tournament, ids := f.startWith(t, input, 6)
	seeds := seedsOf(ids)

	f.playOut(t, tournament.ID, bracket.GroupStageMatch, seeds)
	f.playOut(t, tournament.ID, bracket.PlayoffMatch, seeds)
	rows, err := f.svc.Tournaments.GetPrizeTable(ctx, tournament.ID)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	reset, err := f.svc.Tournaments.ResetTournament(ctx, testOwner, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentOpen, reset.Status)
	assert.Equal(t, 1, f.recorder.Count(events.TournamentReset))

	assert.Empty(t, f.matches(t, tournament.ID, ""))
	_, err = f.svc.Tournaments.GetGroupStage(ctx, tournament.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
	_, err = f.svc.Tournaments.GetPlayoffStage(ctx, tournament.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
	rows, err = f.svc.Tournaments.GetPrizeTable(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	var count int
	require.NoError(t, f.db.Get(&count, "SELECT COUNT(*) FROM maps"))
	assert.Zero(t, count)
	require.NoError(t, f.db.Get(&count, "SELECT COUNT(*) FROM bracket_nodes"))
	assert.Zero(t, count)

	entries, err := f.svc.Tournaments.GetEntries(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 6, "registrations survive a reset")

	// The tournament can be started and played again from scratch.
	_, err = f.svc.Tournaments.StartTournament(ctx, testOwner, tournament.ID, StartOptions{})
	require.NoError(t, err)
	assert.Len(t, f.matches(t, tournament.ID, bracket.GroupStageMatch), 6)
	f.playOut(t, tournament.ID, bracket.GroupStageMatch, seeds)
	f.playOut(t, tournament.ID, bracket.PlayoffMatch, seeds)

	got, err := f.svc.Tournaments.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentCompleted, got.Status)
}

func TestCancelTournament(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament := f.createTournament(t, soloInput("Cancel"))

	require.NoError(t, f.svc.Tournaments.CancelTournament(ctx, testOwner, tournament.ID))
	err := f.svc.Tournaments.CancelTournament(ctx, testOwner, tournament.ID)
	assert.True(t, errors.Is(err, apperr.ErrInvalidState), "got %v", err)

	_, err = f.svc.Entries.Register(ctx, testOwner, tournament.ID, f.seedUsers(t, 1)[0])
	assert.True(t, errors.Is(err, apperr.ErrInvalidState), "got %v", err)
}

func TestCompleteTournament_RequiresDecidedFinal(t *testing.T) {
	f := newFixture(t)
	tournament, _ := f.startWith(t, soloInput("Early"), 4)

	_, err := f.svc.Tournaments.CompleteTournament(context.Background(), testOwner, tournament.ID)
	assert.True(t, errors.Is(err, apperr.ErrInvalidState), "got %v", err)
}

func TestGetOverview(t *testing.T) {
	f := newFixture(t)
	input := soloInput("Overview")
	input.GroupStage = &GroupStageInput{NumGroups: 2, WinnersQualified: 1}
	tournament, _ := f.startWith(t, input, 4)

	ov, err := f.svc.Tournaments.GetOverview(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.ID, ov.Tournament.ID)
	assert.Len(t, ov.Entries, 4)
	assert.Len(t, ov.Matches, 2)
	assert.Equal(t, 2, ov.OpenCount)
	require.NotNil(t, ov.GroupStage)
	assert.Len(t, ov.GroupStage.Groups, 2)
	assert.Empty(t, ov.Prizes)

	_, err = f.svc.Tournaments.GetOverview(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
}

func TestListTournamentsForOwnerAndParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	solo := f.createTournament(t, soloInput("Solo Night"))
	teamInput := soloInput("Team Night")
	teamInput.Format = bracket.FormatTeam
	teams := f.createTournament(t, teamInput)
	other, err := f.svc.Tournaments.CreateTournament(ctx, users.Caller{ID: uuid.New()}, soloInput("Elsewhere"))
	require.NoError(t, err)

	players := f.seedUsers(t, 3)
	f.registerAll(t, solo.ID, players[:1])
	team := &users.Team{ID: uuid.New(), Name: "Red", Members: players[1:]}
	require.NoError(t, f.svc.Users.CreateTeam(ctx, team))
	_, err = f.svc.Entries.Register(ctx, testOwner, teams.ID, team.ID)
	require.NoError(t, err)

	owned, err := f.svc.Tournaments.GetTournamentsForOwner(ctx, testOwner.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{solo.ID, teams.ID}, tournamentIDs(owned))
	assert.NotContains(t, tournamentIDs(owned), other.ID)

	tests := []struct {
		name   string
		userID uuid.UUID
		want   []uuid.UUID
	}{
		{"solo entrant", players[0], []uuid.UUID{solo.ID}},
		{"team member", players[2], []uuid.UUID{teams.ID}},
		{"not entered", uuid.New(), nil},
		{"team id is not a user", team.ID, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joined, err := f.svc.Tournaments.GetTournamentsForParticipant(ctx, tt.userID)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, tournamentIDs(joined))
		})
	}
}

func tournamentIDs(tournaments []bracket.Tournament) []uuid.UUID {
	var ids []uuid.UUID
	for _, t := range tournaments {
		ids = append(ids, t.ID)
	}
	return ids
}
