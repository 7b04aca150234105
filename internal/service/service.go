package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/AdamBeresnev/op-tourney/internal/bracket"
	"github.com/AdamBeresnev/op-tourney/internal/events"
	"github.com/AdamBeresnev/op-tourney/internal/store"
	users "github.com/AdamBeresnev/op-tourney/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Stores bundles the stores the services share.
type Stores struct {
	Tournaments *store.TournamentStore
	Matches     *store.MatchStore
	Groups      *store.GroupStore
	Users       *store.UserStore
}

func NewStores(db *sqlx.DB) Stores {
	return Stores{
		Tournaments: store.NewTournamentStore(db),
		Matches:     store.NewMatchStore(db),
		Groups:      store.NewGroupStore(db),
		Users:       store.NewUserStore(db),
	}
}

// Scheduler registers tournament auto-starts.
type Scheduler interface {
	Schedule(tournamentID uuid.UUID, at time.Time)
	Cancel(tournamentID uuid.UUID)
}

type nopScheduler struct{}

func (nopScheduler) Schedule(uuid.UUID, time.Time) {}
func (nopScheduler) Cancel(uuid.UUID)              {}

// withTx runs fn in a transaction that commits only if fn succeeds.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func authorize(caller users.Caller, tournament *bracket.Tournament) error {
	if !tournament.IsManagedBy(caller.ID, caller.IsAdmin) {
		return apperr.Unauthorized("caller %s may not manage tournament %s", caller.ID, tournament.ID)
	}
	return nil
}

// publish sends events after their transaction committed. Failures are logged
// and never undo the change.
func publish(ctx context.Context, publisher events.Publisher, batch []events.Event) {
	for _, e := range batch {
		if err := publisher.Publish(ctx, e); err != nil {
			slog.Warn("failed to publish event", "subject", e.Subject(), "error", err)
		}
	}
}

// Services wires every service over one database and event publisher.
type Services struct {
	Users       *UserService
	Entries     *EntryService
	Groups      *GroupStageService
	Brackets    *BracketGeneration
	Prizes      *PrizeService
	Matches     *MatchService
	Tournaments *TournamentService
}

func New(db *sqlx.DB, publisher events.Publisher) *Services {
	stores := NewStores(db)
	userService := NewUserService(db, stores.Users)
	entries := NewEntryService(db, stores, userService)
	groups := NewGroupStageService(stores)
	brackets := NewBracketService(stores)
	prizes := NewPrizeService(stores)

	return &Services{
		Users:       userService,
		Entries:     entries,
		Groups:      groups,
		Brackets:    brackets,
		Prizes:      prizes,
		Matches:     NewMatchService(db, stores, groups, brackets, prizes, publisher),
		Tournaments: NewTournamentService(db, stores, entries, groups, brackets, prizes, publisher),
	}
}
