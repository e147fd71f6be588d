package domain

import (
	"strings"
	"time"
)

// Signature identifies who authored or committed a change and when.
type Signature struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date"`
}

// ChangeCounts holds the per-commit line change triple.
type ChangeCounts struct {
	Added   int `json:"added"`
	Edited  int `json:"edited"`
	Deleted int `json:"deleted"`
}

// FileChange is a single file touched by a commit.
type FileChange struct {
	Path       string `json:"path"`
	ChangeType string `json:"changeType"`
}

// Commit is a recorded change to a repository.
// ID is used as the dedup key across merged repositories.
type Commit struct {
	ID           string        `json:"id"`
	Author       Signature     `json:"author"`
	Committer    Signature     `json:"committer"`
	Message      string        `json:"message"`
	ChangeCounts *ChangeCounts `json:"changeCounts,omitempty"`
	Changes      []FileChange  `json:"changes,omitempty"`
	Project      string        `json:"project,omitempty"`
	Repository   string        `json:"repository,omitempty"`
}

// Identity is a platform user.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	UniqueName  string `json:"uniqueName"`
}

// Reviewer is an identity attached to a pull request together with its vote.
type Reviewer struct {
	Identity
	Vote int `json:"vote"`
}

// PullRequestStatus is the lifecycle state of a pull request.
type PullRequestStatus string

const (
	PullRequestNotSet    PullRequestStatus = "notSet"
	PullRequestActive    PullRequestStatus = "active"
	PullRequestAbandoned PullRequestStatus = "abandoned"
	PullRequestCompleted PullRequestStatus = "completed"
	PullRequestAll       PullRequestStatus = "all"
)

// PullRequest is a proposed merge of one branch into another.
// ID is only unique within its source repository.
type PullRequest struct {
	ID           int               `json:"id"`
	Status       PullRequestStatus `json:"status"`
	CreatedBy    Identity          `json:"createdBy"`
	CreationDate time.Time         `json:"creationDate"`
	ClosedDate   *time.Time        `json:"closedDate,omitempty"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Reviewers    []Reviewer        `json:"reviewers,omitempty"`
	TargetBranch string            `json:"targetBranch,omitempty"`
	Project      string            `json:"project,omitempty"`
	Repository   string            `json:"repository,omitempty"`
}

// MergeDuration returns closed minus created for completed pull requests.
func (pr PullRequest) MergeDuration() (time.Duration, bool) {
	if pr.Status != PullRequestCompleted || pr.ClosedDate == nil {
		return 0, false
	}
	return pr.ClosedDate.Sub(pr.CreationDate), true
}

// AcceptedResolutionStates is the state vocabulary that counts as resolved.
var AcceptedResolutionStates = []string{"Resolved", "Closed", "Done", "Completed"}

// RejectedReason marks a resolution that does not count as genuine.
const RejectedReason = "Rejected"

// WorkItem is a tracked unit of planned work.
// Fields the platform returns that are not modelled here land in Extra.
type WorkItem struct {
	ID           int            `json:"id"`
	Type         string         `json:"type"`
	State        string         `json:"state"`
	Reason       string         `json:"reason"`
	Title        string         `json:"title"`
	CreatedDate  time.Time      `json:"createdDate"`
	ChangedDate  time.Time      `json:"changedDate"`
	ResolvedDate *time.Time     `json:"resolvedDate,omitempty"`
	ClosedDate   *time.Time     `json:"closedDate,omitempty"`
	Tags         string         `json:"tags,omitempty"`
	AreaPath     string         `json:"areaPath,omitempty"`
	Priority     *int           `json:"priority,omitempty"`
	Severity     *string        `json:"severity,omitempty"`
	Project      string         `json:"project,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// resolutionDateSources lists where the resolution date is read from, in
// order of preference. Not every process template fills the first two.
var resolutionDateSources = []func(WorkItem) *time.Time{
	func(wi WorkItem) *time.Time { return wi.ResolvedDate },
	func(wi WorkItem) *time.Time { return wi.ClosedDate },
	func(wi WorkItem) *time.Time {
		if wi.ChangedDate.IsZero() {
			return nil
		}
		return &wi.ChangedDate
	},
}

// ResolutionDate picks resolved, then closed, then changed date.
func (wi WorkItem) ResolutionDate() (time.Time, bool) {
	for _, source := range resolutionDateSources {
		if t := source(wi); t != nil && !t.IsZero() {
			return *t, true
		}
	}
	return time.Time{}, false
}

// IsGenuinelyResolved reports whether the state is in the accepted vocabulary
// and the reason is not a rejection.
func (wi WorkItem) IsGenuinelyResolved() bool {
	if strings.Contains(wi.Reason, RejectedReason) {
		return false
	}
	for _, s := range AcceptedResolutionStates {
		if strings.EqualFold(wi.State, s) {
			return true
		}
	}
	return false
}

// Project is a team project in an organization.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Repository is a git repository inside a project.
type Repository struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DefaultBranch string `json:"defaultBranch,omitempty"`
	Project       string `json:"project,omitempty"`
}
