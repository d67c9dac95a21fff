package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/okx/vesting/admin"
	"github.com/okx/vesting/config"
	"github.com/okx/vesting/utils"
)

const (
	FlagConfigFile = "config-file"
	FlagVerbosity  = "verbosity"
	FlagFromIndex  = "from-index"
	FlagPath       = "path"

	defaultVerbosity = 3
)

var (
	configPath string
	verbosity  int
	fromIndex  int
	journalArg string
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code. The final
// error is always written to stderr, whatever the verbosity.
func run(args []string, stdout, stderr io.Writer) int {
	// flag parsing errors happen before PersistentPreRun
	setupLogger(stderr, defaultVerbosity)

	rootCmd := newRootCmd(stderr)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vesting",
		Short: "TokenVesting admin tool",
		Long: `Creates vesting schedules and sends the initial token distribution on an
already deployed TokenVesting contract, driven by the checked-in vesting table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(stderr, verbosity)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, FlagConfigFile, "f", config.DefaultPath, "Path to the vesting table")
	rootCmd.PersistentFlags().IntVar(&verbosity, FlagVerbosity, defaultVerbosity, "Log level: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace")

	rootCmd.AddCommand(
		createSchedulesCmd(),
		initialTransferCmd(),
		validateCmd(),
		journalCmd(),
	)
	return rootCmd
}

func setupLogger(w io.Writer, level int) {
	handler := log.NewTerminalHandlerWithLevel(w, log.FromLegacyLevel(level), useColor(w))
	log.SetDefault(log.NewLogger(handler))
}

func useColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) && os.Getenv("TERM") != "dumb"
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func createSchedulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-schedules",
		Short: "Create one vesting schedule per beneficiary, in table order",
		Long: `Sends createVestingSchedule for every beneficiary row, one at a time, waiting
for each transaction to be mined before sending the next. The first failure
halts the run; rows already confirmed stay on chain.

Rerunning the same table creates every schedule again. To continue after a
failure, fix the cause and pass the failed row index with --from-index.

Example:
  vesting create-schedules -f ./vesting.yaml
  vesting create-schedules --from-index 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := log.Root()

			// fail on the table before dialing
			if _, err := admin.PlanSchedules(cfg, fromIndex, log.NewLogger(log.DiscardHandler())); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			ledger, closeFn, err := admin.Connect(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			_, err = admin.RunCreateSchedules(ctx, cfg, ledger, logger, fromIndex)
			return err
		},
	}

	cmd.Flags().IntVar(&fromIndex, FlagFromIndex, 0, "Skip the beneficiary rows before this index")

	return cmd
}

func initialTransferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initial-transfer",
		Short: "Send the initial distribution as one initialTransfer call",
		Long: `Sends every initialReceivers row in a single initialTransfer transaction and
waits for it to be mined. The distribution succeeds or fails as a whole.

Example:
  vesting initial-transfer -f ./vesting.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if _, err := cfg.Distributions(); err != nil {
				return err
			}
			logger := log.Root()

			ctx, cancel := signalContext()
			defer cancel()

			ledger, closeFn, err := admin.Connect(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			_, err = admin.RunInitialTransfer(ctx, cfg, ledger, logger)
			return err
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the vesting table and print what would be sent",
		Long: `Validates both lists of the vesting table and prints the schedules and the
initial distribution. Does not contact the node.

Example:
  vesting validate -f ./vesting.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			schedules, entries, err := admin.ValidateTable(cfg)
			if err != nil {
				return err
			}
			for _, addr := range config.DuplicateBeneficiaries(schedules) {
				log.Warn("Beneficiary listed more than once", "beneficiary", addr)
			}
			return admin.WritePlan(cmd.OutOrStdout(), schedules, entries)
		},
	}
}

func journalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Summarize the result journal",
		Long: `Prints one line per run with the number of confirmed records, the failure if
any, and the index to pass to --from-index to continue.

Example:
  vesting journal --path ./vesting-journal.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := journalArg
			if path == "" {
				path = config.DefaultJournalPath
				if cfg, err := config.Load(configPath); err == nil && cfg.JournalPath != "" {
					path = cfg.JournalPath
				}
			}
			entries, err := utils.ReadJournal(path)
			if err != nil {
				return fmt.Errorf("failed to read journal: %w", err)
			}
			return admin.WriteJournalSummary(cmd.OutOrStdout(), utils.Summarize(entries))
		},
	}

	cmd.Flags().StringVar(&journalArg, FlagPath, "", "Journal file (default: journalPath from the vesting table)")

	return cmd
}
