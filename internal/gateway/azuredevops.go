// Package gateway provides a gateway to the Azure DevOps REST API,
// hiding paging, caching and error mapping from the use cases.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/naka-gawa/devops-wrapped/internal/apperror"
	"github.com/naka-gawa/devops-wrapped/internal/cache"
	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

const (
	defaultBaseURL         = "https://dev.azure.com"
	defaultIdentityBaseURL = "https://vssps.dev.azure.com"
	defaultAPIVersion      = "7.0"
	defaultTimeout         = 30 * time.Second
	defaultPageSize        = 100
	defaultEnrichLimit     = 8
	// workItemBatchSize is the platform's per-request id limit.
	workItemBatchSize = 200
	// commitChangeLimit caps the file changes fetched per commit.
	commitChangeLimit = 1000
)

// Fetcher defines the behavior of a gateway for fetching activity from the platform.
type Fetcher interface {
	ResolveIdentity(ctx context.Context, email string) (string, error)
	FetchCommits(ctx context.Context, q CommitQuery) ([]domain.Commit, error)
	FetchPullRequests(ctx context.Context, q PullRequestQuery) ([]domain.PullRequest, error)
	FetchWorkItems(ctx context.Context, q WorkItemQuery) ([]domain.WorkItem, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListRepositories(ctx context.Context, project string) ([]domain.Repository, error)
}

// AzureDevOpsGateway is the concrete implementation of the Fetcher interface.
// One gateway serves one organization.
type AzureDevOpsGateway struct {
	httpClient   *http.Client
	baseURL      *url.URL
	identityURL  *url.URL
	cache        cache.Store
	logger       *zap.Logger
	apiVersion   string
	pageSize     int
	enrichLimit  int
	timeout      time.Duration
	transport    http.RoundTripper
	rootURL      string
	rootIdentity string
	now          func() time.Time
}

// Option configures an AzureDevOpsGateway.
type Option func(*AzureDevOpsGateway)

// WithBaseURL overrides the REST API host, e.g. for an on-premises server.
func WithBaseURL(root string) Option {
	return func(g *AzureDevOpsGateway) {
		if root != "" {
			g.rootURL = root
		}
	}
}

// WithIdentityBaseURL overrides the identity service host.
func WithIdentityBaseURL(root string) Option {
	return func(g *AzureDevOpsGateway) {
		if root != "" {
			g.rootIdentity = root
		}
	}
}

// WithCache enables the read-through response cache.
func WithCache(store cache.Store) Option {
	return func(g *AzureDevOpsGateway) { g.cache = store }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *AzureDevOpsGateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithTransport sets the base round tripper under the auth transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(g *AzureDevOpsGateway) { g.transport = rt }
}

// WithEnrichConcurrency bounds the in-flight per-commit detail calls.
func WithEnrichConcurrency(n int) Option {
	return func(g *AzureDevOpsGateway) {
		if n > 0 {
			g.enrichLimit = n
		}
	}
}

// NewAzureDevOpsGateway is a constructor that creates a gateway for one organization.
// The token is sent as a bearer credential on every call and never logged.
func NewAzureDevOpsGateway(organization, token string, logger *zap.Logger, opts ...Option) (*AzureDevOpsGateway, error) {
	if strings.TrimSpace(organization) == "" {
		return nil, apperror.NewValidation("organization is required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, apperror.NewValidation("access token is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &AzureDevOpsGateway{
		logger:       logger,
		apiVersion:   defaultAPIVersion,
		pageSize:     defaultPageSize,
		enrichLimit:  defaultEnrichLimit,
		timeout:      defaultTimeout,
		transport:    http.DefaultTransport,
		rootURL:      defaultBaseURL,
		rootIdentity: defaultIdentityBaseURL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	var err error
	if g.baseURL, err = orgURL(g.rootURL, organization); err != nil {
		return nil, err
	}
	if g.identityURL, err = orgURL(g.rootIdentity, organization); err != nil {
		return nil, err
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	g.httpClient = &http.Client{
		Timeout: g.timeout,
		Transport: &oauth2.Transport{
			Base:   g.transport,
			Source: ts,
		},
	}
	return g, nil
}

func orgURL(root, organization string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(root, "/"))
	if err != nil {
		return nil, apperror.NewValidation(fmt.Sprintf("invalid base URL %q: %v", root, err))
	}
	return u.JoinPath(organization), nil
}

// apiRequest describes one JSON call.
type apiRequest struct {
	method string
	base   *url.URL
	path   []string
	params url.Values
	body   any
}

func (r apiRequest) url() *url.URL {
	u := r.base.JoinPath(r.path...)
	u.RawQuery = r.params.Encode()
	return u
}

// cacheKey hashes the endpoint path, its parameters and the request body.
func (r apiRequest) cacheKey(bodyJSON []byte) (string, string) {
	u := r.base.JoinPath(r.path...)
	params := make(map[string]string, len(r.params)+1)
	for k, v := range r.params {
		params[k] = strings.Join(v, ",")
	}
	if bodyJSON != nil {
		params["$body"] = string(bodyJSON)
	}
	return cache.Key(u.Path, params), u.Path
}

// doJSON performs the request, consulting the cache first, and decodes the
// JSON response into out.
func (g *AzureDevOpsGateway) doJSON(ctx context.Context, r apiRequest, out any) error {
	if r.params == nil {
		r.params = url.Values{}
	}
	r.params.Set("api-version", g.apiVersion)

	var bodyJSON []byte
	if r.body != nil {
		var err error
		if bodyJSON, err = json.Marshal(r.body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	key, path := r.cacheKey(bodyJSON)
	if g.cache != nil {
		entry, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			g.logger.Warn("cache read failed", zap.String("path", path), zap.Error(err))
		} else if ok {
			g.logger.Debug("cache hit", zap.String("path", path))
			return json.Unmarshal(entry.Payload, out)
		}
	}

	var reqBody io.Reader
	if bodyJSON != nil {
		reqBody = bytes.NewReader(bodyJSON)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.url().String(), reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if bodyJSON != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return apperror.NewNetwork(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperror.NewNetwork(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Debug("request failed",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode))
		return apperror.FromStatus(resp.StatusCode, errorMessage(payload), resp.Header.Get("Retry-After"))
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	if g.cache != nil {
		entry := cache.Entry{Path: path, CachedAt: g.now().UTC(), Payload: payload}
		if err := g.cache.Set(ctx, key, entry); err != nil {
			g.logger.Warn("cache write failed", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}

// errorMessage extracts the platform's error message from a response body.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
