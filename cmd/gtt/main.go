package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	cl "tycoon/internal/cli"
	"tycoon/internal/config"
	"tycoon/internal/game"
	"tycoon/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "gtt",
		Short:        "Global Trade Tycoon client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")

	root.AddCommand(
		newNewCmd(&apiBase),
		newStatusCmd(&apiBase),
		newMarketCmd(&apiBase),
		newTradeCmd(&apiBase, "buy"),
		newTradeCmd(&apiBase, "sell"),
		newTravelCmd(&apiBase),
		newMoneyCmd(&apiBase, "bank", "deposit", "withdraw"),
		newMoneyCmd(&apiBase, "loan", "take", "repay"),
		newBuildCmd(&apiBase),
		newStaffCmd(&apiBase, "hire"),
		newStaffCmd(&apiBase, "fire"),
		newRetireCmd(&apiBase),
		newSubmitCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newCatalogCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func requireSession() (cl.Session, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, err
	}
	return sess, nil
}

func newNewCmd(apiBase *string) *cobra.Command {
	var (
		name string
		home string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new 100 day trading career",
		RunE: func(cmd *cobra.Command, args []string) error {
			if old, err := cl.LoadSession(); err == nil {
				printWarn(fmt.Sprintf("Abandoning game %s.", old.GameID))
			}
			var err error
			if strings.TrimSpace(name) == "" {
				if name, err = promptRequired("Trader name"); err != nil {
					return err
				}
			}
			if strings.TrimSpace(home) == "" {
				if home, err = promptChoice("Home base", []string{"europe", "asia", "north_america", "south_america", "africa", "oceania", "middle_east"}, "europe"); err != nil {
					return err
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			view, err := newClient(apiBase).NewGame(ctx, name, home)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{GameID: view.ID, PlayerName: view.PlayerName, HomeBase: string(view.HomeBase)}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Welcome aboard, %s. Game %s saved.", view.PlayerName, view.ID))
			renderStatus(view)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "trader name")
	cmd.Flags().StringVar(&home, "home", "", "home base region")
	return cmd
}

func newStatusCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show your ledger",
		Aliases: []string{"dash"},
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			view, err := newClient(apiBase).Game(ctx, sess.GameID)
			if err != nil {
				return err
			}
			renderStatus(view)
			return nil
		},
	}
}

func newMarketCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "market [region]",
		Short: "Show prices here, or in a region where you run an office",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			region := ""
			if len(args) == 1 {
				region = args[0]
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Market(ctx, sess.GameID, region)
			if err != nil {
				return err
			}
			renderMarket(out)
			return nil
		},
	}
}

func newTradeCmd(apiBase *string, side string) *cobra.Command {
	return &cobra.Command{
		Use:   side + " <product> <qty>",
		Short: strings.ToUpper(side[:1]) + side[1:] + " goods at the local market",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			qty, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Trade(ctx, sess.GameID, side, strings.ToLower(args[0]), qty, uuid.NewString())
			if err != nil {
				return err
			}
			renderTrade(side, out)
			return nil
		},
	}
}

func newTravelCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "travel <region>",
		Short: "Sail to another region; days pass on the way",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Travel(ctx, sess.GameID, args[0], uuid.NewString())
			if err != nil {
				return err
			}
			renderTravel(out)
			return nil
		},
	}
}

// newMoneyCmd builds `bank deposit|withdraw` and `loan take|repay`.
func newMoneyCmd(apiBase *string, group string, actions ...string) *cobra.Command {
	parent := &cobra.Command{
		Use:   group,
		Short: strings.ToUpper(group[:1]) + group[1:] + " operations",
	}
	for _, action := range actions {
		parent.AddCommand(&cobra.Command{
			Use:   action + " <dollars>",
			Short: strings.ToUpper(action[:1]) + action[1:] + " money",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sess, err := requireSession()
				if err != nil {
					return err
				}
				cents, err := parseDollars(args[0])
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				view, err := newClient(apiBase).Money(ctx, sess.GameID, group+"/"+action, cents, uuid.NewString())
				if err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("%s %s: done.", group, action))
				fmt.Printf("Cash %s  Bank %s  Loan %s\n", game.FormatCents(view.Cash), game.FormatCents(view.Bank), game.FormatCents(view.Loan))
				return nil
			},
		})
	}
	return parent
}

func newBuildCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "build <warehouse|office|distribution_center>",
		Short: "Build a facility in the current region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			view, err := newClient(apiBase).Build(ctx, sess.GameID, args[0], uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Built a %s in %s.", args[0], view.Location))
			fmt.Printf("Cash %s  Storage %d/%d  Daily costs %s\n", game.FormatCents(view.Cash), view.StorageUsed, view.StorageCap, game.FormatCents(view.DailyCosts))
			return nil
		},
	}
}

func newStaffCmd(apiBase *string, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <trader|logistics|accountant>",
		Short: strings.ToUpper(action[:1]) + action[1:] + " staff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			view, err := newClient(apiBase).Staff(ctx, sess.GameID, action, args[0], uuid.NewString())
			if err != nil {
				return err
			}
			role := strings.ToLower(args[0])
			printSuccess(fmt.Sprintf("%s: %s. Payroll now %d.", action, role, view.Staff[game.StaffRole(role)]))
			fmt.Printf("Cash %s  Daily costs %s\n", game.FormatCents(view.Cash), game.FormatCents(view.DailyCosts))
			return nil
		},
	}
}

func newRetireCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "retire",
		Short: "End the game early and lock in your net worth",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			confirm, err := promptChoice("Retire now", []string{"yes", "no"}, "no")
			if err != nil {
				return err
			}
			if confirm != "yes" {
				printInfo("Still trading.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			view, err := newClient(apiBase).Retire(ctx, sess.GameID, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Retired on day %d with %s. Run `gtt submit` to post it.", view.Day, game.FormatCents(view.NetWorth)))
			return nil
		},
	}
}

func newSubmitCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Post the final score of a finished game to the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			score, err := newClient(apiBase).SubmitScore(ctx, sess.GameID)
			if err != nil {
				if cl.IsTransportError(err) {
					if qerr := syncq.Push(syncq.Command{
						Method:         http.MethodPost,
						Path:           "/v1/games/" + sess.GameID + "/score",
						IdempotencyKey: uuid.NewString(),
					}); qerr != nil {
						return fmt.Errorf("submit failed (%v) and could not be queued: %w", err, qerr)
					}
					printWarn("Server unreachable. Score queued; run `gtt sync` later.")
					return nil
				}
				return err
			}
			printSuccess(fmt.Sprintf("Score posted: %s for %s.", game.FormatCents(score.NetWorth), score.PlayerName))
			return nil
		},
	}
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "leaderboard",
		Short:   "Show the top traders",
		Aliases: []string{"lb"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rows, err := newClient(apiBase).Leaderboard(ctx, limit)
			if err != nil {
				return err
			}
			renderLeaderboard(rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "rows to show")
	return cmd
}

func newCatalogCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List regions, facilities and staff",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			c, err := newClient(apiBase).Catalog(ctx)
			if err != nil {
				return err
			}
			renderCatalog(c)
			return nil
		},
	}
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay score submissions queued while offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			send := func(ctx context.Context, q syncq.Command) error {
				return client.Do(ctx, q.Method, q.Path, q.Body, q.IdempotencyKey)
			}
			results, err := syncq.Replay(ctx, send, cl.IsTransportError)
			if err != nil {
				return err
			}
			replayed, remaining := 0, 0
			for _, r := range results {
				switch {
				case r.Err == nil:
					replayed++
				case cl.IsTransportError(r.Err):
					remaining++
					printError(fmt.Sprintf("Sync failed for %s %s: %v", r.Command.Method, r.Command.Path, r.Err))
				default:
					printWarn(fmt.Sprintf("Dropped %s %s: %v", r.Command.Method, r.Command.Path, r.Err))
				}
			}
			printSuccess("Sync complete: replayed=" + strconv.Itoa(replayed) + " remaining=" + strconv.Itoa(remaining))
			return nil
		},
	}
}
