// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// v collects flags, environment and the config file for every command.
	v = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "devops-wrapped",
	Short: "A year-in-review summary of Azure DevOps activity.",
	Long: `devops-wrapped collects a user's commits, pull requests and work items
across one or more Azure DevOps projects for a calendar year and condenses them
into a JSON summary with a coding personality.

Settings come from flags, WRAPPED_* environment variables or a config file.
The access token is read from AZURE_DEVOPS_PAT or WRAPPED_TOKEN.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
	flags.BoolP("verbose", "v", false, "Enable verbose/debug logging")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.StringP("org", "o", "", "Azure DevOps organization")
	flags.String("cache", "", "Response cache driver (none, memory, file, postgres)")
	flags.String("cache-dir", "", "Directory of the file cache")
	flags.String("cache-dsn", "", "Postgres connection string of the SQL cache")

	bindFlag("log_level", flags.Lookup("log-level"))
	bindFlag("organization", flags.Lookup("org"))
	bindFlag("cache.driver", flags.Lookup("cache"))
	bindFlag("cache.dir", flags.Lookup("cache-dir"))
	bindFlag("cache.dsn", flags.Lookup("cache-dsn"))
}
