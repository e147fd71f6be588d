package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/naka-gawa/devops-wrapped/internal/apperror"
	"github.com/naka-gawa/devops-wrapped/internal/domain"
	"github.com/naka-gawa/devops-wrapped/internal/gateway"
)

// FetcherFactory builds a fetcher for one organization and access token.
type FetcherFactory func(organization, token string) (gateway.Fetcher, error)

// Service is the entry point shared by the CLI and the HTTP server.
type Service struct {
	newFetcher FetcherFactory
	logger     *zap.Logger
	collect    CollectConfig
	opts       Options
}

// NewService creates a new Service.
func NewService(newFetcher FetcherFactory, logger *zap.Logger, collect CollectConfig, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{newFetcher: newFetcher, logger: logger, collect: collect, opts: opts}
}

// Generate collects the activity described by scope and aggregates it into
// the annual summary. Partial failures are returned in Result.Errors; when
// every target failed the Result carries only those errors.
func (s *Service) Generate(ctx context.Context, token string, scope domain.Scope) (*domain.Result, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	fetcher, err := s.fetcher(scope.Organization, token)
	if err != nil {
		return nil, err
	}

	input, projectErrors, err := NewOrchestrator(fetcher, s.logger, s.collect).Collect(ctx, scope)
	if err != nil {
		return &domain.Result{Errors: projectErrors}, err
	}
	return &domain.Result{Stats: Aggregate(input, s.opts), Errors: projectErrors}, nil
}

// ListProjects lists the projects of an organization.
func (s *Service) ListProjects(ctx context.Context, token, organization string) ([]domain.Project, error) {
	if strings.TrimSpace(organization) == "" {
		return nil, apperror.NewValidation("missing required field: organization")
	}
	fetcher, err := s.fetcher(organization, token)
	if err != nil {
		return nil, err
	}
	return fetcher.ListProjects(ctx)
}

// ListRepositories lists the repositories of a project.
func (s *Service) ListRepositories(ctx context.Context, token, organization, project string) ([]domain.Repository, error) {
	var missing []string
	if strings.TrimSpace(organization) == "" {
		missing = append(missing, "organization")
	}
	if strings.TrimSpace(project) == "" {
		missing = append(missing, "project")
	}
	if len(missing) > 0 {
		return nil, apperror.NewValidation("missing required fields: " + strings.Join(missing, ", "))
	}
	fetcher, err := s.fetcher(organization, token)
	if err != nil {
		return nil, err
	}
	return fetcher.ListRepositories(ctx, project)
}

func (s *Service) fetcher(organization, token string) (gateway.Fetcher, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperror.NewValidation("missing access token")
	}
	return s.newFetcher(organization, token)
}
