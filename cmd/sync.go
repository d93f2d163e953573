package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"crate-schema/internal/engine"
	"crate-schema/internal/logging"
	"crate-schema/internal/schema"
)

var (
	hold     bool
	noVerify bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Create or update the tables of all configured entities",
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlags(cmd, map[string]string{
			"schema.option":            "option",
			"schema.ignore_failures":   "ignore-failures",
			"schema.continue_on_error": "continue-on-error",
			"schema.workers":           "workers",
			"schema.timeout":           "timeout",
		})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var bar *uiprogress.Bar
		s, err := newSession(engine.WithProgress(func(engine.Result) {
			if bar != nil {
				bar.Incr()
			}
		}))
		if err != nil {
			return err
		}
		if err := s.Client.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect to db: %w", err)
		}

		m := s.Manager
		fmt.Printf("🦅 Connected via %s, schema %q, option %s\n", DriverName, s.Client.Schema(), m.Option())
		if m.Option() == schema.CreateDrop && !hold {
			Logger.Warn("CREATE_DROP without --hold drops the tables again right away")
		}

		// Stop runs on every exit path; it only acts under CREATE_DROP.
		defer func() {
			stopCtx, cancel := teardownContext(viper.GetDuration("schema.timeout"), s.Entities.Len())
			defer cancel()
			m.Stop(stopCtx)
		}()

		uiprogress.Start()
		bar = uiprogress.AddBar(max(s.Entities.Len(), 1)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Reconciling: "
		})

		report, err := m.Start(ctx)
		uiprogress.Stop()

		if report != nil {
			printReport(report)
		}
		if err != nil {
			return err
		}

		if !noVerify {
			drifts := m.Verify(ctx)
			for _, d := range drifts {
				if d.Err != nil {
					fmt.Printf("[!] %-20s : %s\n", d.Table, logging.SanitizeError(d.Err))
					continue
				}
				fmt.Printf("[!] %-20s : missing %v\n", d.Table, d.Missing)
			}
			if len(drifts) > 0 && !viper.GetBool("schema.ignore_failures") {
				return fmt.Errorf("%d table(s) still differ from their entity after sync", len(drifts))
			}
		}

		if hold {
			Logger.Info("holding, press Ctrl+C to stop", zap.Strings("inspected", m.Inspected()))
			<-ctx.Done()
		}
		return nil
	},
}

// teardownContext bounds Stop by one statement timeout per entity. A timeout
// of zero disables statement deadlines, so Stop gets none either.
func teardownContext(timeout time.Duration, entities int) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout*time.Duration(max(entities, 1)))
}

func printReport(report *engine.Report) {
	fmt.Printf("\n📊 Summary Report (%s, run %s):\n", report.Option, report.RunID)
	for i, r := range report.Results {
		icon := "✓"
		if r.Outcome == engine.OutcomeFailed || r.Outcome == engine.OutcomeSkipped {
			icon = "!"
		}
		fmt.Printf("[%s] [%02d/%02d] %-20s : %-9s (%d actions)\n",
			icon, i+1, len(report.Results), r.Table, r.Outcome, len(r.Actions))
		for _, a := range r.Actions {
			fmt.Printf("    └ %s\n", a)
		}
		if r.Err != nil {
			fmt.Printf("    └ Error: %s\n", logging.SanitizeError(r.Err))
		}
	}
	fmt.Println("--------------------------------------------------")
	fmt.Printf("Total Actions: %d, Time Elapsed: %s\n", report.Actions(), report.Elapsed.Round(time.Millisecond))
}

func init() {
	RootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("option", "", "schema option: create, create-drop or update (overrides config)")
	syncCmd.Flags().Bool("ignore-failures", false, "log database failures instead of failing")
	syncCmd.Flags().Bool("continue-on-error", false, "keep going after an entity fails")
	syncCmd.Flags().Int("workers", 0, "entities reconciled concurrently")
	syncCmd.Flags().Duration("timeout", 0, "timeout per statement")
	syncCmd.Flags().BoolVar(&hold, "hold", false, "wait for Ctrl+C after syncing, then run the stop phase")
	syncCmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip reading the tables back after syncing")
}
