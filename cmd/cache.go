package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/events"
)

var cacheClearDomain string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the enrichment cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the cached profile for a domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cacheClearDomain == "" {
			return eris.New("--domain is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		if err := st.DeleteCachedEnrichment(ctx, cacheClearDomain); err != nil {
			return eris.Wrapf(err, "clear cache for %s", cacheClearDomain)
		}

		events.NewSink(cfg.Events.WebhookURL).Emit(ctx, events.CacheCleared,
			map[string]any{"domain": cacheClearDomain})

		fmt.Printf("cleared cache for %s\n", cacheClearDomain)
		return nil
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Physically delete all expired cache and archive rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		n, err := st.SweepExpired(ctx)
		if err != nil {
			return eris.Wrap(err, "sweep expired rows")
		}

		fmt.Printf("swept %d expired rows\n", n)
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().StringVar(&cacheClearDomain, "domain", "", "domain to evict (required)")
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	rootCmd.AddCommand(cacheCmd)
}
