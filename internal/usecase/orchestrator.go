package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/devops-wrapped/internal/apperror"
	"github.com/naka-gawa/devops-wrapped/internal/domain"
	"github.com/naka-gawa/devops-wrapped/internal/gateway"
)

// CollectConfig tunes how activity is collected.
type CollectConfig struct {
	CommitBranches      []string
	PullRequestBranches []string
	IncludeChangeCounts bool
	// TargetConcurrency caps the targets fetched at once. Zero means no limit.
	TargetConcurrency int
}

func (c CollectConfig) withDefaults() CollectConfig {
	if len(c.CommitBranches) == 0 {
		c.CommitBranches = DefaultCommitBranches
	}
	if len(c.PullRequestBranches) == 0 {
		c.PullRequestBranches = DefaultPullRequestBranches
	}
	return c
}

// Orchestrator fetches activity for every target of a scope and merges it.
type Orchestrator struct {
	fetcher gateway.Fetcher
	logger  *zap.Logger
	cfg     CollectConfig
}

// NewOrchestrator creates an Orchestrator backed by fetcher.
func NewOrchestrator(fetcher gateway.Fetcher, logger *zap.Logger, cfg CollectConfig) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{fetcher: fetcher, logger: logger, cfg: cfg.withDefaults()}
}

// targetResult holds the settled fetches of one target.
type targetResult struct {
	target       domain.Target
	commits      fetchResult[domain.Commit]
	pullRequests fetchResult[domain.PullRequest]
	workItems    fetchResult[domain.WorkItem]
	// panicked is set when the target failed as a whole.
	panicked error
}

func (r targetResult) failed() bool {
	return r.panicked != nil || (r.commits.failed() && r.pullRequests.failed() && r.workItems.failed())
}

// Collect fetches commits, pull requests and work items for every target
// concurrently. A failing kind only removes that kind for that target and is
// reported as a ProjectError. When every target failed and nothing was
// retrieved, Collect returns a NOT_FOUND error listing each failure.
func (o *Orchestrator) Collect(ctx context.Context, scope domain.Scope) (domain.AggregationInput, []domain.ProjectError, error) {
	input := domain.AggregationInput{Scope: scope}
	if err := scope.Validate(); err != nil {
		return input, nil, err
	}

	creatorID, identityErr := o.resolveIdentity(ctx, scope.UserEmail)
	targets := scope.ResolvedTargets()
	results := make([]targetResult, len(targets))

	var eg errgroup.Group
	if o.cfg.TargetConcurrency > 0 {
		eg.SetLimit(o.cfg.TargetConcurrency)
	}
	for i, target := range targets {
		eg.Go(func() error {
			results[i] = o.collectTarget(ctx, scope, target, creatorID, identityErr)
			return nil
		})
	}
	_ = eg.Wait()

	m := newMerger()
	var projectErrors []domain.ProjectError
	failedTargets := 0
	for _, r := range results {
		projectErrors = append(projectErrors, m.add(r)...)
		if r.failed() {
			failedTargets++
		}
	}
	input.Commits = m.commits
	input.PullRequests = m.pullRequests
	input.WorkItems = m.workItems

	for _, pe := range projectErrors {
		o.logger.Warn("partial failure",
			zap.String("project", pe.Project),
			zap.String("repository", pe.Repository),
			zap.String("kind", pe.Kind),
			zap.String("category", string(pe.Category)),
			zap.String("message", pe.Message),
		)
	}

	if failedTargets == len(targets) && input.IsEmpty() {
		return input, projectErrors, apperror.NewNotFound(noDataMessage(projectErrors))
	}

	o.logger.Info("collected activity",
		zap.Int("targets", len(targets)),
		zap.Int("failedTargets", failedTargets),
		zap.Int("commits", len(input.Commits)),
		zap.Int("pullRequests", len(input.PullRequests)),
		zap.Int("workItems", len(input.WorkItems)),
	)
	return input, projectErrors, nil
}

// resolveIdentity resolves the user once per request. Its failure only
// affects the pull request fetches.
func (o *Orchestrator) resolveIdentity(ctx context.Context, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", apperror.NewUnresolvableIdentity("")
	}
	id, err := o.fetcher.ResolveIdentity(ctx, email)
	if err != nil {
		o.logger.Warn("failed to resolve identity", zap.String("email", email), zap.Error(err))
		return "", err
	}
	return id, nil
}

func (o *Orchestrator) collectTarget(ctx context.Context, scope domain.Scope, target domain.Target, creatorID string, identityErr error) (res targetResult) {
	res.target = target
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("target fetch panicked", zap.String("project", target.Project), zap.Any("panic", r))
			res = targetResult{target: target, panicked: fmt.Errorf("unexpected failure: %v", r)}
		}
	}()

	from, to := scope.DateRange()
	var wg errgroup.Group
	wg.Go(func() error {
		res.commits = guarded(func() ([]domain.Commit, error) {
			return o.fetchCommits(ctx, scope, target)
		})
		return nil
	})
	wg.Go(func() error {
		if identityErr != nil {
			res.pullRequests = settle[domain.PullRequest](nil, identityErr)
			return nil
		}
		res.pullRequests = guarded(func() ([]domain.PullRequest, error) {
			return unionPullRequests(ctx, o.cfg.PullRequestBranches,
				func(ctx context.Context, branch string) ([]domain.PullRequest, error) {
					return o.fetcher.FetchPullRequests(ctx, gateway.PullRequestQuery{
						Project:      target.Project,
						Repository:   target.Repository,
						TargetBranch: branch,
						CreatorID:    creatorID,
						Status:       domain.PullRequestAll,
						From:         from,
						To:           to,
					})
				})
		})
		return nil
	})
	wg.Go(func() error {
		res.workItems = guarded(func() ([]domain.WorkItem, error) {
			return o.fetcher.FetchWorkItems(ctx, gateway.WorkItemQuery{
				Project:    target.Project,
				AssignedTo: scope.UserEmail,
				From:       from,
				To:         to,
			})
		})
		return nil
	})
	_ = wg.Wait()
	return res
}

func (o *Orchestrator) fetchCommits(ctx context.Context, scope domain.Scope, target domain.Target) ([]domain.Commit, error) {
	from, to := scope.DateRange()
	commits, branch, err := firstNonEmpty(ctx, o.cfg.CommitBranches,
		func(ctx context.Context, branch string) ([]domain.Commit, error) {
			return o.fetcher.FetchCommits(ctx, gateway.CommitQuery{
				Project:             target.Project,
				Repository:          target.Repository,
				Branch:              branch,
				From:                from,
				To:                  to,
				Author:              scope.UserEmail,
				IncludeChangeCounts: o.cfg.IncludeChangeCounts,
			})
		})
	if err == nil && branch != "" {
		o.logger.Debug("commits found",
			zap.String("project", target.Project),
			zap.String("repository", target.Repository),
			zap.String("branch", branch),
			zap.Int("count", len(commits)),
		)
	}
	return commits, err
}

// merger unions target results in input order, keeping the first occurrence
// of each id.
type merger struct {
	commits      []domain.Commit
	pullRequests []domain.PullRequest
	workItems    []domain.WorkItem
	seen         map[string]bool
}

func newMerger() *merger {
	return &merger{seen: make(map[string]bool)}
}

func (m *merger) first(kind, id string) bool {
	key := kind + ":" + id
	if m.seen[key] {
		return false
	}
	m.seen[key] = true
	return true
}

// add merges r and returns the failures it carried.
func (m *merger) add(r targetResult) []domain.ProjectError {
	if r.panicked != nil {
		return []domain.ProjectError{projectError(r.target, domain.KindProject, r.panicked)}
	}

	var errs []domain.ProjectError
	report := func(kind string) func(error) {
		return func(err error) { errs = append(errs, projectError(r.target, kind, err)) }
	}

	for _, c := range r.commits.itemsOr(report(domain.KindCommits)) {
		if m.first(domain.KindCommits, c.ID) {
			m.commits = append(m.commits, c)
		}
	}
	for _, pr := range r.pullRequests.itemsOr(report(domain.KindPullRequests)) {
		if m.first(domain.KindPullRequests, strconv.Itoa(pr.ID)) {
			m.pullRequests = append(m.pullRequests, pr)
		}
	}
	for _, wi := range r.workItems.itemsOr(report(domain.KindWorkItems)) {
		if m.first(domain.KindWorkItems, strconv.Itoa(wi.ID)) {
			m.workItems = append(m.workItems, wi)
		}
	}
	return errs
}

func projectError(t domain.Target, kind string, err error) domain.ProjectError {
	msg := err.Error()
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	return domain.ProjectError{
		Project:    t.Project,
		Repository: t.Repository,
		Kind:       kind,
		Category:   apperror.CategoryOf(err),
		Message:    msg,
	}
}

func noDataMessage(errs []domain.ProjectError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%s (%s): %s", e.Project, e.Kind, e.Message))
	}
	return "no data could be retrieved from any project: " + strings.Join(parts, "; ")
}
