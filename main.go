// fintrack-cycles tracks recurring financial obligations: given a
// recurrence rule it projects the expected payment cycles, matches them
// against real account activity, and reports what is paid, due, or
// overdue.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hrushi1881/fintrack-cycles/internal/config"
	"github.com/hrushi1881/fintrack-cycles/internal/logging"
	"github.com/hrushi1881/fintrack-cycles/internal/store"
)

var (
	cfg *config.AppConfig
	log *logrus.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fintrack-cycles",
	Short: "Track recurring payment cycles against account activity",
	Long: `fintrack-cycles projects the payment schedule of recurring
obligations (subscriptions, bills, income) and reconciles each expected
cycle against imported transactions, scheduled payments, and bill
records.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log = logging.New(cfg)
		return nil
	},
}

// openStore picks postgres when DATABASE_URL is configured, otherwise
// the local YAML file store.
func openStore(cmd *cobra.Command) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		st, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := st.EnsureSchema(cmd.Context()); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to prepare schema: %w", err)
		}
		return st, nil
	}

	path := cfg.StorePath
	if path == "" {
		path = store.DefaultPath()
	}
	return store.NewFileStore(path), nil
}
