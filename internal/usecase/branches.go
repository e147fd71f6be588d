package usecase

import (
	"context"
	"strconv"

	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

// Default branch candidates. The main branch name of a repository is not
// known up front, so these are tried in order.
var (
	DefaultCommitBranches      = []string{"main", "master"}
	DefaultPullRequestBranches = []string{"master", "main", "dev"}
)

// fetchBranch fetches the items of one branch.
type fetchBranch[T any] func(ctx context.Context, branch string) ([]T, error)

// firstNonEmpty walks the candidates in order. Each step either finds a
// non-empty result and stops, or moves on to the next candidate; running out
// of candidates yields an empty result. A candidate that errors is skipped,
// and the first error is only returned if no candidate answered at all.
// An empty candidate list means the repository's default branch.
func firstNonEmpty[T any](ctx context.Context, candidates []string, fetch fetchBranch[T]) ([]T, string, error) {
	if len(candidates) == 0 {
		candidates = []string{""}
	}
	var firstErr error
	answered := false
	for _, branch := range candidates {
		items, err := fetch(ctx, branch)
		switch {
		case err != nil:
			if firstErr == nil {
				firstErr = err
			}
		case len(items) > 0:
			return items, branch, nil
		default:
			answered = true
		}
	}
	if !answered && firstErr != nil {
		return nil, "", firstErr
	}
	return nil, "", nil
}

// unionPullRequests fetches every candidate branch and unions the results by
// pull request id. It fails only when every branch failed.
func unionPullRequests(ctx context.Context, candidates []string, fetch fetchBranch[domain.PullRequest]) ([]domain.PullRequest, error) {
	if len(candidates) == 0 {
		candidates = []string{""}
	}
	seen := make(map[string]bool)
	var out []domain.PullRequest
	var firstErr error
	answered := false
	for _, branch := range candidates {
		prs, err := fetch(ctx, branch)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		answered = true
		for _, pr := range prs {
			key := strconv.Itoa(pr.ID)
			if !seen[key] {
				seen[key] = true
				out = append(out, pr)
			}
		}
	}
	if !answered {
		return nil, firstErr
	}
	return out, nil
}
