package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/naka-gawa/devops-wrapped/internal/cache"
	"github.com/naka-gawa/devops-wrapped/internal/config"
	"github.com/naka-gawa/devops-wrapped/internal/gateway"
	"github.com/naka-gawa/devops-wrapped/internal/logger"
	"github.com/naka-gawa/devops-wrapped/internal/usecase"
)

// app holds the dependencies shared by the commands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  cache.Store
}

func bindFlag(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// newApp loads the configuration and builds the logger and cache.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	l, err := logger.New(level)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(ctx, cfg.CacheSettings())
	if err != nil {
		return nil, err
	}
	l.Debug("configuration loaded",
		zap.String("organization", cfg.Organization),
		zap.Strings("projects", cfg.Projects),
		zap.String("cache", cfg.Cache.Driver),
		zap.String("configFile", v.ConfigFileUsed()),
	)
	return &app{cfg: cfg, logger: l, store: store}, nil
}

func (a *app) close() {
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.logger.Warn("failed to close cache", zap.Error(err))
		}
	}
	logger.Sync(a.logger)
}

// newFetcher builds an Azure DevOps gateway per organization and token.
func (a *app) newFetcher(organization, token string) (gateway.Fetcher, error) {
	opts := []gateway.Option{
		gateway.WithBaseURL(a.cfg.BaseURL),
		gateway.WithIdentityBaseURL(a.cfg.IdentityBaseURL),
		gateway.WithTimeout(a.cfg.HTTPTimeout),
		gateway.WithEnrichConcurrency(a.cfg.EnrichConcurrency),
	}
	if a.store != nil {
		opts = append(opts, gateway.WithCache(a.store))
	}
	return gateway.NewAzureDevOpsGateway(organization, token, a.logger, opts...)
}

func (a *app) service() *usecase.Service {
	return usecase.NewService(a.newFetcher, a.logger, a.cfg.CollectConfig(), a.cfg.AggregateOptions())
}

func (a *app) token(ctx context.Context) (string, error) {
	return a.cfg.ResolveToken(ctx)
}
