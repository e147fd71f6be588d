package domain

import (
	"strings"
	"time"

	"github.com/naka-gawa/devops-wrapped/internal/apperror"
)

// Target is a single project/repository pair to collect activity from.
type Target struct {
	Project    string `json:"project"`
	Repository string `json:"repository"`
}

// Scope is the request-scoped configuration of one wrapped run.
type Scope struct {
	Organization string   `json:"organization"`
	Projects     []string `json:"projects"`
	Repository   string   `json:"repository"`
	// Targets, when set, takes precedence over Projects x Repository.
	Targets   []Target `json:"targets,omitempty"`
	Year      int      `json:"year"`
	UserEmail string   `json:"userEmail,omitempty"`
}

// Validate checks the parameters required before any network activity.
func (s Scope) Validate() error {
	var missing []string
	if strings.TrimSpace(s.Organization) == "" {
		missing = append(missing, "organization")
	}
	if len(s.Targets) == 0 {
		if len(s.Projects) == 0 {
			missing = append(missing, "projects")
		}
		if strings.TrimSpace(s.Repository) == "" {
			missing = append(missing, "repository")
		}
	}
	if s.Year <= 0 {
		missing = append(missing, "year")
	}
	if len(missing) > 0 {
		return apperror.NewValidation("missing required parameters: " + strings.Join(missing, ", "))
	}
	for _, t := range s.Targets {
		if t.Project == "" || t.Repository == "" {
			return apperror.NewValidation("every target needs a project and a repository")
		}
	}
	return nil
}

// ResolvedTargets expands the scope into project/repository pairs.
func (s Scope) ResolvedTargets() []Target {
	if len(s.Targets) > 0 {
		return s.Targets
	}
	targets := make([]Target, 0, len(s.Projects))
	for _, p := range s.Projects {
		targets = append(targets, Target{Project: p, Repository: s.Repository})
	}
	return targets
}

// ProjectNames returns the distinct project names in target order.
func (s Scope) ProjectNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range s.ResolvedTargets() {
		if !seen[t.Project] {
			seen[t.Project] = true
			names = append(names, t.Project)
		}
	}
	return names
}

// DateRange returns the inclusive calendar-year window in UTC.
func (s Scope) DateRange() (time.Time, time.Time) {
	from := time.Date(s.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(s.Year, time.December, 31, 23, 59, 59, 0, time.UTC)
	return from, to
}

// AggregationInput is the merged, deduplicated data for one request.
type AggregationInput struct {
	Commits      []Commit
	PullRequests []PullRequest
	WorkItems    []WorkItem
	Scope        Scope
}

// IsEmpty reports whether no kind contributed any item.
func (in AggregationInput) IsEmpty() bool {
	return len(in.Commits) == 0 && len(in.PullRequests) == 0 && len(in.WorkItems) == 0
}

// Kinds of data fetched per target.
const (
	KindCommits      = "commits"
	KindPullRequests = "pullRequests"
	KindWorkItems    = "workItems"
	KindProject      = "project"
)

// ProjectError describes a failure isolated to one project.
type ProjectError struct {
	Project    string            `json:"project"`
	Repository string            `json:"repository,omitempty"`
	Kind       string            `json:"kind"`
	Category   apperror.Category `json:"category"`
	Message    string            `json:"message"`
}

// Result is what a wrapped run returns to its caller.
type Result struct {
	Stats  *WrappedStats  `json:"stats"`
	Errors []ProjectError `json:"errors,omitempty"`
}
