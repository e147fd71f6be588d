package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naka-gawa/devops-wrapped/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspects and maintains the response cache",
}

var errCacheDisabled = errors.New("the response cache is disabled, set --cache or WRAPPED_CACHE_DRIVER")

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints the number of cached responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.close()
		if a.store == nil {
			return errCacheDisabled
		}

		n, err := a.store.Len(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "driver: %s\nentries: %d\n", a.cfg.Cache.Driver, n)
		return err
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Removes every cached response",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.close()
		if a.store == nil {
			return errCacheDisabled
		}

		n, err := a.store.Clear(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("cache cleared", zap.Int("entries", n))
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
		return err
	},
}

var cacheMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Applies the SQL cache schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.close()
		if a.cfg.Cache.Driver != cache.DriverPostgres {
			return fmt.Errorf("migrations only apply to the %s cache driver", cache.DriverPostgres)
		}
		// Opening the store already applied the migrations.
		a.logger.Info("cache schema is up to date")
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return err
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheMigrateCmd)
}
