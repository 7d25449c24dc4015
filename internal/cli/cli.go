package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pababhi7/device-checker/internal/config"
	"github.com/pababhi7/device-checker/internal/gitrepo"
	"github.com/pababhi7/device-checker/internal/logger"
	"github.com/pababhi7/device-checker/internal/notify"
	"github.com/pababhi7/device-checker/internal/runner"
	"github.com/pababhi7/device-checker/internal/source"
	"github.com/pababhi7/device-checker/internal/store"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig    string
	flagStateFile string
	flagFormat    string
	flagDryRun    bool
	flagCommit    bool
	flagVerbose   bool
)

// NewRootCmd creates the root command. Running it performs one full check:
// fetch all sources, diff against the stored snapshot, notify, persist.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device-checker",
		Short: "Check device listings for new entries and status changes",
		Long: `A tool that polls device listing sources (certification sites, model
databases), diffs them against the last known state, and sends Telegram
notifications for new devices, status changes, and removals.
State is kept in a JSON file tracked alongside the tool in its repository.`,
		SilenceUsage: true,
		RunE:         runCheck,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "device-checker.yaml", "Path to the YAML config")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	cmd.Flags().StringVar(&flagStateFile, "state-file", "", "Override the state file path")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Print notifications instead of sending them")
	cmd.Flags().BoolVar(&flagCommit, "commit", false, "Commit state files after a successful run")

	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// runCheck is the main command logic.
func runCheck(cmd *cobra.Command, args []string) error {
	format := OutputFormat(flagFormat)
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	r, err := buildRunner(cfg, flagDryRun, flagCommit)
	if err != nil {
		return err
	}

	result, err := r.Run(context.Background())
	if err != nil {
		return err
	}

	return writeResult(os.Stdout, result, format)
}

// loadConfig loads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagStateFile != "" {
		cfg.StateFile = flagStateFile
	}

	level := logger.LevelInfo
	if flagVerbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, os.Stderr))

	return cfg, nil
}

// buildRunner wires the pipeline collaborators from the config.
func buildRunner(cfg *config.Config, dryRun, commit bool) (*runner.Runner, error) {
	st, err := store.New(cfg.StateFile, cfg.ChangeLog)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	if cfg.LockTimeout.Std() > 0 {
		st.SetLockTimeout(cfg.LockTimeout.Std())
	}

	fetcher := source.NewFetcher(cfg.Retry.Policy())

	notifier, err := buildNotifier(cfg, dryRun)
	if err != nil {
		return nil, err
	}

	r := runner.New(cfg, st, fetcher, notifier)

	if commit || cfg.Commit.Enabled {
		repo, err := gitrepo.Open(cfg.Commit)
		if err != nil {
			return nil, fmt.Errorf("initializing git commit-back: %w", err)
		}
		r.SetCommitter(repo)
	}

	return r, nil
}

func buildNotifier(cfg *config.Config, dryRun bool) (notify.Notifier, error) {
	if dryRun {
		return notify.NewDryRunNotifier(), nil
	}

	switch cfg.Notifier {
	case "telegram":
		n, err := notify.NewTelegramNotifier()
		if err != nil {
			return nil, err
		}
		if cfg.MaxMessages > 0 {
			n.SetMaxMessages(cfg.MaxMessages)
		}
		return n, nil
	case "twitter":
		return notify.NewTwitterNotifier()
	case "dryrun":
		return notify.NewDryRunNotifier(), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}
}
