package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sbilibin2017/gw-transactions/internal/cache"
	"github.com/sbilibin2017/gw-transactions/internal/client"
	"github.com/sbilibin2017/gw-transactions/internal/logger"
	"github.com/sbilibin2017/gw-transactions/internal/store"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "txctl",
		Short:         "Browse and edit the transaction list",
		Long:          "txctl pages through the transaction collection and adds, edits or deletes entries with undo.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cfgFile)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.txctl.yaml)")
	flags.String("api", "http://localhost:8080/api/v1", "base URL of the transactions API")
	flags.String("token", "", "bearer token for the API")
	flags.Int("page-size", client.DefaultPageSize, "transactions per page")
	flags.Duration("cache-ttl", cache.DefaultTTL, "how long fetched pages are reused")
	flags.Duration("throttle", store.DefaultThrottle, "minimum spacing between page loads")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	_ = v.BindPFlags(flags)

	cmd.AddCommand(
		listCmd(v),
		addCmd(v),
		editCmd(v),
		deleteCmd(v),
		summaryCmd(v),
		versionCmd(),
	)
	return cmd
}

func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".txctl")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("TXCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// a missing default config file is fine
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := logger.InitializeConsole(v.GetString("log-level")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "txctl %s (commit %s, built %s)\n", buildVersion, buildCommit, buildDate)
		},
	}
}

// pollInterval is how often a throttled page load is retried.
const pollInterval = 50 * time.Millisecond
