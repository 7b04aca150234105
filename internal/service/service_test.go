package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/AdamBeresnev/op-tourney/internal/db"
	"github.com/AdamBeresnev/op-tourney/internal/events"
	users "github.com/AdamBeresnev/op-tourney/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testOwner = users.Caller{ID: uuid.MustParse("00000000-0000-0000-0000-0000000000aa")}

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Connect(":memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	require.NoError(t, db.RunMigrations(database), "Failed to apply migrations")

	t.Cleanup(func() { database.Close() })
	return database
}

type fixture struct {
	db       *sqlx.DB
	svc      *Services
	recorder *events.Recorder
	schedule *recordingScheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := setupTestDB(t)
	recorder := &events.Recorder{}
	svc := New(database, recorder)
	schedule := &recordingScheduler{jobs: make(map[uuid.UUID]time.Time)}
	svc.Tournaments.UseScheduler(schedule)
	return &fixture{db: database, svc: svc, recorder: recorder, schedule: schedule}
}

// seedUsers creates n users named player-1..player-n.
func (f *fixture) seedUsers(t *testing.T, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		user := &users.User{ID: uuid.New(), Username: fmt.Sprintf("player-%d", i+1)}
		require.NoError(t, f.svc.Users.CreateUser(context.Background(), user))
		ids[i] = user.ID
	}
	return ids
}

func soloInput(title string) CreateTournamentInput {
	return CreateTournamentInput{
		Title:       title,
		Format:      bracket.FormatSolo,
		Elimination: bracket.SingleElimination,
		Capacity:    16,
		PrizePool:   decimal.NewFromInt(1000),
		BestOf:      1,
	}
}

func (f *fixture) createTournament(t *testing.T, input CreateTournamentInput) *bracket.Tournament {
	t.Helper()
	tournament, err := f.svc.Tournaments.CreateTournament(context.Background(), testOwner, input)
	require.NoError(t, err)
	return tournament
}

func (f *fixture) registerAll(t *testing.T, tournamentID uuid.UUID, ids []uuid.UUID) {
	t.Helper()
	for _, id := range ids {
		_, err := f.svc.Entries.Register(context.Background(), testOwner, tournamentID, id)
		require.NoError(t, err)
	}
}

// startWith creates, fills and starts a tournament.
func (f *fixture) startWith(t *testing.T, input CreateTournamentInput, players int) (*bracket.Tournament, []uuid.UUID) {
	t.Helper()
	tournament := f.createTournament(t, input)
	ids := f.seedUsers(t, players)
	f.registerAll(t, tournament.ID, ids)

	started, err := f.svc.Tournaments.StartTournament(context.Background(), testOwner, tournament.ID, StartOptions{})
	require.NoError(t, err)
	return started, ids
}

func (f *fixture) matches(t *testing.T, tournamentID uuid.UUID, stage bracket.Stage) []bracket.Match {
	t.Helper()
	matches, err := f.svc.Matches.GetMatches(context.Background(), tournamentID, stage)
	require.NoError(t, err)
	return matches
}

// playable returns the first match of the stage waiting to be played.
func (f *fixture) playable(t *testing.T, tournamentID uuid.UUID, stage bracket.Stage) *bracket.Match {
	t.Helper()
	for _, m := range f.matches(t, tournamentID, stage) {
		if m.Status != bracket.MatchConcluded && m.HasBothParticipants() {
			return &m
		}
	}
	return nil
}

// playOut concludes every remaining match of the stage, the better seed
// (lower seed number) always winning.
func (f *fixture) playOut(t *testing.T, tournamentID uuid.UUID, stage bracket.Stage, seeds map[uuid.UUID]int) {
	t.Helper()
	for range 200 {
		m := f.playable(t, tournamentID, stage)
		if m == nil {
			return
		}
		winner := *m.Participant1ID
		if seeds[*m.Participant2ID] < seeds[winner] {
			winner = *m.Participant2ID
		}
		_, err := f.svc.Matches.CompleteMatch(context.Background(), testOwner, tournamentID, m.ID, winner)
		require.NoError(t, err)
	}
	t.Fatal("stage did not finish")
}

func seedsOf(ids []uuid.UUID) map[uuid.UUID]int {
	seeds := make(map[uuid.UUID]int, len(ids))
	for i, id := range ids {
		seeds[id] = i + 1
	}
	return seeds
}

type recordingScheduler struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]time.Time
}

func (s *recordingScheduler) Schedule(id uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = at
}

func (s *recordingScheduler) Cancel(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

func (s *recordingScheduler) has(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	return ok
}
