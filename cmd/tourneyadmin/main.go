package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/AdamBeresnev/op-tourney/internal/config"
	"github.com/AdamBeresnev/op-tourney/internal/db"
	"github.com/AdamBeresnev/op-tourney/internal/events"
	"github.com/AdamBeresnev/op-tourney/internal/service"
	users "github.com/AdamBeresnev/op-tourney/internal/user"
)

const resetHelp = `Discard all stages and results and reopen the tournament.

A start time still in the future is kept. The web server's scheduler picks it
up on its next resync, within a minute.`

var (
	dbPath  string
	shuffle bool
)

func openDB() (*sqlx.DB, error) {
	path := dbPath
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		path = cfg.DBPath
	}
	database, err := db.Connect(path)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return database, nil
}

// withServices runs fn against a migrated database. Events are not published
// from the admin tool.
func withServices(fn func(ctx context.Context, svc *service.Services) error) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		return err
	}
	return fn(context.Background(), service.New(database, events.NopPublisher{}))
}

func migrateUp(cmd *cobra.Command, args []string) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()
	return db.RunMigrations(database)
}

func migrateDown(cmd *cobra.Command, args []string) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()
	return db.RollbackMigrations(database)
}

func tournamentArg(args []string) (uuid.UUID, error) {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid tournament id %q: %w", args[0], err)
	}
	return id, nil
}

func startTournament(cmd *cobra.Command, args []string) error {
	id, err := tournamentArg(args)
	if err != nil {
		return err
	}
	return withServices(func(ctx context.Context, svc *service.Services) error {
		t, err := svc.Tournaments.StartTournament(ctx, users.System(), id, service.StartOptions{Shuffle: shuffle})
		if err != nil {
			return err
		}
		fmt.Printf("Tournament %q is %s\n", t.Title, t.Status)
		return nil
	})
}

func resetTournament(cmd *cobra.Command, args []string) error {
	id, err := tournamentArg(args)
	if err != nil {
		return err
	}
	return withServices(func(ctx context.Context, svc *service.Services) error {
		t, err := svc.Tournaments.ResetTournament(ctx, users.System(), id)
		if err != nil {
			return err
		}
		fmt.Printf("Tournament %q reset, status %s\n", t.Title, t.Status)
		return nil
	})
}

func finalizeTournament(cmd *cobra.Command, args []string) error {
	id, err := tournamentArg(args)
	if err != nil {
		return err
	}
	return withServices(func(ctx context.Context, svc *service.Services) error {
		if _, err := svc.Tournaments.CompleteTournament(ctx, users.System(), id); err != nil {
			return err
		}
		return printPrizes(ctx, svc, id)
	})
}

func showTournament(cmd *cobra.Command, args []string) error {
	id, err := tournamentArg(args)
	if err != nil {
		return err
	}
	return withServices(func(ctx context.Context, svc *service.Services) error {
		ov, err := svc.Tournaments.GetOverview(ctx, id)
		if err != nil {
			return err
		}
		t := ov.Tournament
		fmt.Printf("%s (%s)\n", t.Title, t.ID)
		fmt.Printf("  Status:      %s\n", t.Status)
		fmt.Printf("  Format:      %s, %s elimination\n", t.Format, t.Elimination)
		fmt.Printf("  Entrants:    %d/%d\n", len(ov.Entries), t.Capacity)
		fmt.Printf("  Prize pool:  %s\n", t.PrizePool.StringFixed(2))
		fmt.Printf("  Matches:     %d (%d open)\n\n", len(ov.Matches), ov.OpenCount)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SEED\tNAME\tID")
		for _, e := range ov.Entries {
			fmt.Fprintf(w, "%d\t%s\t%s\n", e.Seed, e.Name, e.EntityID)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if len(ov.Prizes) > 0 {
			fmt.Println()
			return printPrizes(ctx, svc, id)
		}
		return nil
	})
}

func printPrizes(ctx context.Context, svc *service.Services, id uuid.UUID) error {
	rows, err := svc.Tournaments.GetPrizeTable(ctx, id)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLACE\tWINNER\tAMOUNT")
	for _, row := range rows {
		winner := row.UserID
		if winner == nil {
			winner = row.TeamID
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", row.Place, winner, row.Amount.StringFixed(2))
	}
	return w.Flush()
}

func main() {
	rootCmd := &cobra.Command{
		Short:        "Tournament administration tool",
		Use:          "tourneyadmin",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the sqlite database (defaults to DB_PATH)")

	migrateCmd := &cobra.Command{
		Short: "Manage the database schema",
		Use:   "migrate",
	}
	migrateCmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply all migrations", RunE: migrateUp},
		&cobra.Command{Use: "down", Short: "Revert all migrations", RunE: migrateDown},
	)

	startCmd := &cobra.Command{
		Use:   "start <tournament-id>",
		Short: "Start an open tournament and generate its first stage",
		Args:  cobra.ExactArgs(1),
		RunE:  startTournament,
	}
	startCmd.Flags().BoolVar(&shuffle, "shuffle", false, "Shuffle entrants before seeding")

	resetCmd := &cobra.Command{
		Use:   "reset <tournament-id>",
		Short: "Discard all stages and results and reopen the tournament",
		Long:  resetHelp,
		Args:  cobra.ExactArgs(1),
		RunE:  resetTournament,
	}

	finalizeCmd := &cobra.Command{
		Use:   "finalize <tournament-id>",
		Short: "Complete a tournament with a decided final and print the prize table",
		Args:  cobra.ExactArgs(1),
		RunE:  finalizeTournament,
	}

	showCmd := &cobra.Command{
		Use:   "show <tournament-id>",
		Short: "Print a tournament summary",
		Args:  cobra.ExactArgs(1),
		RunE:  showTournament,
	}

	rootCmd.AddCommand(migrateCmd, startCmd, resetCmd, finalizeCmd, showCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
