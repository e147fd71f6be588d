package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

var wrappedCmd = &cobra.Command{
	Use:   "wrapped",
	Short: "Builds the annual summary and outputs it as JSON",
	Long: `Collects commits, pull requests and work items for the given projects and
year, then prints the aggregated summary as JSON. Failures limited to a single
project are listed in the "errors" field instead of failing the whole run.`,
	Example: `  devops-wrapped wrapped --org contoso --project Web --project Api \
    --repo site --year 2024 --email me@contoso.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.close()

		token, err := a.token(ctx)
		if err != nil {
			return err
		}

		res, err := a.service().Generate(ctx, token, a.cfg.Scope())
		if err != nil {
			if res != nil {
				for _, pe := range res.Errors {
					a.logger.Error("project failed",
						zap.String("project", pe.Project),
						zap.String("kind", pe.Kind),
						zap.String("category", string(pe.Category)),
						zap.String("message", pe.Message),
					)
				}
			}
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		return writeResult(cmd.OutOrStdout(), output, res)
	},
}

// writeResult writes pretty-printed JSON to path, or to w when path is empty
// or "-".
func writeResult(w io.Writer, path string, res *domain.Result) error {
	jsonData, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	if path == "" || path == "-" {
		_, err = fmt.Fprintln(w, string(jsonData))
		return err
	}
	if err := os.WriteFile(path, append(jsonData, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(wrappedCmd)
	flags := wrappedCmd.Flags()
	flags.StringSliceP("project", "p", nil, "Project to include (repeatable or comma separated)")
	flags.StringP("repo", "r", "", "Repository name inside each project")
	flags.IntP("year", "y", 0, "Calendar year to summarize (default: current year)")
	flags.StringP("email", "e", "", "Email of the user whose activity is summarized")
	flags.String("timezone", "", "Time zone for month, weekday and hour buckets (default UTC)")
	flags.Bool("change-counts", true, "Fetch per-commit line counts and changed files")
	flags.String("output", "", "Write the JSON to this file instead of stdout")

	bindFlag("projects", flags.Lookup("project"))
	bindFlag("repository", flags.Lookup("repo"))
	bindFlag("year", flags.Lookup("year"))
	bindFlag("user_email", flags.Lookup("email"))
	bindFlag("timezone", flags.Lookup("timezone"))
	bindFlag("include_change_counts", flags.Lookup("change-counts"))
}
