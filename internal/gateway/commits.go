package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

// CommitQuery selects the commits of one repository branch.
type CommitQuery struct {
	Project    string
	Repository string
	// Branch is empty for the repository's default branch.
	Branch string
	From   time.Time
	To     time.Time
	// Author filters by author email (or name) server-side.
	Author              string
	IncludeChangeCounts bool
}

// FetchCommits pages through all commits matching q. When change counts are
// requested each commit is enriched with one detail call; a failed detail
// call keeps the summary commit.
func (g *AzureDevOpsGateway) FetchCommits(ctx context.Context, q CommitQuery) ([]domain.Commit, error) {
	log := g.logger.With(
		zap.String("project", q.Project),
		zap.String("repository", q.Repository),
		zap.String("branch", q.Branch))
	log.Info("Fetching commit data")

	var commits []domain.Commit
	for skip := 0; ; skip += g.pageSize {
		params := url.Values{}
		params.Set("searchCriteria.fromDate", q.From.UTC().Format(time.RFC3339))
		params.Set("searchCriteria.toDate", q.To.UTC().Format(time.RFC3339))
		params.Set("searchCriteria.$skip", strconv.Itoa(skip))
		params.Set("searchCriteria.$top", strconv.Itoa(g.pageSize))
		if q.Author != "" {
			params.Set("searchCriteria.author", q.Author)
		}
		if q.Branch != "" {
			params.Set("searchCriteria.itemVersion.version", q.Branch)
			params.Set("searchCriteria.itemVersion.versionType", "branch")
		}

		var page listResponse[commitResource]
		err := g.doJSON(ctx, apiRequest{
			method: http.MethodGet,
			base:   g.baseURL,
			path:   []string{q.Project, "_apis", "git", "repositories", q.Repository, "commits"},
			params: params,
		}, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch commits: %w", err)
		}

		batch := make([]domain.Commit, len(page.Value))
		for i, c := range page.Value {
			batch[i] = c.toDomain(q.Project, q.Repository)
		}
		if q.IncludeChangeCounts {
			g.enrichCommits(ctx, q, batch)
		}
		commits = append(commits, batch...)

		if len(page.Value) < g.pageSize {
			break
		}
		log.Debug("Fetching next page of commits", zap.Int("skip", skip+g.pageSize))
	}

	log.Info("Completed fetching commit data", zap.Int("count", len(commits)))
	return commits, nil
}

// enrichCommits replaces each commit in place with its detailed form.
func (g *AzureDevOpsGateway) enrichCommits(ctx context.Context, q CommitQuery, commits []domain.Commit) {
	var eg errgroup.Group
	eg.SetLimit(g.enrichLimit)
	for i := range commits {
		eg.Go(func() error {
			detailed, err := g.fetchCommitDetail(ctx, q, commits[i].ID)
			if err != nil {
				g.logger.Debug("commit detail unavailable, keeping summary",
					zap.String("commit", commits[i].ID),
					zap.Error(err))
				return nil
			}
			if detailed.ChangeCounts != nil {
				commits[i].ChangeCounts = detailed.ChangeCounts
			}
			commits[i].Changes = detailed.Changes
			return nil
		})
	}
	_ = eg.Wait()
}

func (g *AzureDevOpsGateway) fetchCommitDetail(ctx context.Context, q CommitQuery, id string) (domain.Commit, error) {
	params := url.Values{}
	params.Set("changeCount", strconv.Itoa(commitChangeLimit))

	var res commitResource
	err := g.doJSON(ctx, apiRequest{
		method: http.MethodGet,
		base:   g.baseURL,
		path:   []string{q.Project, "_apis", "git", "repositories", q.Repository, "commits", id},
		params: params,
	}, &res)
	if err != nil {
		return domain.Commit{}, err
	}
	return res.toDomain(q.Project, q.Repository), nil
}
