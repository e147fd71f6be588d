package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Lists the projects of an organization, or the repositories of a project",
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

		var out any
		project, _ := cmd.Flags().GetString("project")
		if project == "" {
			out, err = a.service().ListProjects(ctx, token, a.cfg.Organization)
		} else {
			out, err = a.service().ListRepositories(ctx, token, a.cfg.Organization, project)
		}
		if err != nil {
			return err
		}

		jsonData, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results to JSON: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
		return err
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.Flags().StringP("project", "p", "", "List the repositories of this project instead")
}
