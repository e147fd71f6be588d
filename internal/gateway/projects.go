package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

type projectResource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type repositoryResource struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DefaultBranch string `json:"defaultBranch"`
}

// ListProjects returns every project in the organization.
func (g *AzureDevOpsGateway) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var projects []domain.Project
	for skip := 0; ; skip += g.pageSize {
		params := url.Values{}
		params.Set("$top", fmt.Sprint(g.pageSize))
		params.Set("$skip", fmt.Sprint(skip))

		var page listResponse[projectResource]
		err := g.doJSON(ctx, apiRequest{
			method: http.MethodGet,
			base:   g.baseURL,
			path:   []string{"_apis", "projects"},
			params: params,
		}, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to list projects: %w", err)
		}
		for _, p := range page.Value {
			projects = append(projects, domain.Project{ID: p.ID, Name: p.Name})
		}
		if len(page.Value) < g.pageSize {
			break
		}
	}
	return projects, nil
}

// ListRepositories returns the git repositories of a project.
func (g *AzureDevOpsGateway) ListRepositories(ctx context.Context, project string) ([]domain.Repository, error) {
	var res listResponse[repositoryResource]
	err := g.doJSON(ctx, apiRequest{
		method: http.MethodGet,
		base:   g.baseURL,
		path:   []string{project, "_apis", "git", "repositories"},
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	repos := make([]domain.Repository, 0, len(res.Value))
	for _, r := range res.Value {
		repos = append(repos, domain.Repository{
			ID:            r.ID,
			Name:          r.Name,
			DefaultBranch: strings.TrimPrefix(r.DefaultBranch, "refs/heads/"),
			Project:       project,
		})
	}
	return repos, nil
}
