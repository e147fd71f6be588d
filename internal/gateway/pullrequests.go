package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/naka-gawa/devops-wrapped/internal/apperror"
	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

// PullRequestQuery selects pull requests targeting one branch, created by one identity.
type PullRequestQuery struct {
	Project      string
	Repository   string
	TargetBranch string
	// CreatorID is required; without it the query would return the
	// organization's whole pull request history.
	CreatorID string
	Status    domain.PullRequestStatus
	From      time.Time
	To        time.Time
}

// FetchPullRequests pages through the pull requests matching q. The API cannot
// filter by creation date, so the window is applied to the fetched items.
func (g *AzureDevOpsGateway) FetchPullRequests(ctx context.Context, q PullRequestQuery) ([]domain.PullRequest, error) {
	if q.CreatorID == "" {
		return nil, apperror.NewValidation("pull request queries require a creator identity id")
	}
	status := q.Status
	if status == "" {
		status = domain.PullRequestAll
	}
	log := g.logger.With(
		zap.String("project", q.Project),
		zap.String("repository", q.Repository),
		zap.String("target_branch", q.TargetBranch))
	log.Info("Fetching pull request data")

	var prs []domain.PullRequest
	fetched := 0
	for skip := 0; ; skip += g.pageSize {
		params := url.Values{}
		params.Set("searchCriteria.status", string(status))
		params.Set("searchCriteria.creatorId", q.CreatorID)
		if q.TargetBranch != "" {
			params.Set("searchCriteria.targetRefName", "refs/heads/"+q.TargetBranch)
		}
		params.Set("$skip", strconv.Itoa(skip))
		params.Set("$top", strconv.Itoa(g.pageSize))

		var page listResponse[pullRequestResource]
		err := g.doJSON(ctx, apiRequest{
			method: http.MethodGet,
			base:   g.baseURL,
			path:   []string{q.Project, "_apis", "git", "repositories", q.Repository, "pullrequests"},
			params: params,
		}, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch pull requests: %w", err)
		}

		fetched += len(page.Value)
		for _, p := range page.Value {
			pr := p.toDomain(q.Project, q.Repository)
			if inWindow(pr.CreationDate, q.From, q.To) {
				prs = append(prs, pr)
			}
		}

		if len(page.Value) < g.pageSize {
			break
		}
		log.Debug("Fetching next page of pull requests", zap.Int("skip", skip+g.pageSize))
	}

	log.Info("Completed fetching pull request data",
		zap.Int("fetched", fetched),
		zap.Int("in_window", len(prs)))
	return prs, nil
}

// inWindow reports whether t lies in [from, to]; a zero bound is open.
func inWindow(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
