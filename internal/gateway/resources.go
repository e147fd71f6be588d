package gateway

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

// adoTime parses the platform's timestamps, which are not always RFC 3339:
// some fields omit the zone and unset dates come back as year 1.
type adoTime struct {
	time.Time
}

var adoTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *adoTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range adoTimeLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			if parsed.Year() <= 1 {
				parsed = time.Time{}
			}
			t.Time = parsed.UTC()
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t adoTime) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type listResponse[T any] struct {
	Count int `json:"count"`
	Value []T `json:"value"`
}

type identityRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	UniqueName  string `json:"uniqueName"`
}

func (r identityRef) toDomain() domain.Identity {
	return domain.Identity{ID: r.ID, DisplayName: r.DisplayName, UniqueName: r.UniqueName}
}

type gitUserDate struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Date  adoTime `json:"date"`
}

func (u gitUserDate) toDomain() domain.Signature {
	return domain.Signature{Name: u.Name, Email: u.Email, Date: u.Date.Time}
}

type changeCountsResource struct {
	Add    int `json:"Add"`
	Edit   int `json:"Edit"`
	Delete int `json:"Delete"`
}

type changeResource struct {
	Item struct {
		Path          string `json:"path"`
		GitObjectType string `json:"gitObjectType"`
		IsFolder      bool   `json:"isFolder"`
	} `json:"item"`
	ChangeType string `json:"changeType"`
}

type commitResource struct {
	CommitID     string                `json:"commitId"`
	Author       gitUserDate           `json:"author"`
	Committer    gitUserDate           `json:"committer"`
	Comment      string                `json:"comment"`
	ChangeCounts *changeCountsResource `json:"changeCounts"`
	Changes      []changeResource      `json:"changes"`
}

func (c commitResource) toDomain(project, repository string) domain.Commit {
	commit := domain.Commit{
		ID:         c.CommitID,
		Author:     c.Author.toDomain(),
		Committer:  c.Committer.toDomain(),
		Message:    c.Comment,
		Project:    project,
		Repository: repository,
	}
	if c.ChangeCounts != nil {
		commit.ChangeCounts = &domain.ChangeCounts{
			Added:   c.ChangeCounts.Add,
			Edited:  c.ChangeCounts.Edit,
			Deleted: c.ChangeCounts.Delete,
		}
	}
	for _, ch := range c.Changes {
		if ch.Item.IsFolder || (ch.Item.GitObjectType != "" && ch.Item.GitObjectType != "blob") {
			continue
		}
		commit.Changes = append(commit.Changes, domain.FileChange{Path: ch.Item.Path, ChangeType: ch.ChangeType})
	}
	return commit
}

type reviewerRef struct {
	identityRef
	Vote int `json:"vote"`
}

type pullRequestResource struct {
	PullRequestID int           `json:"pullRequestId"`
	Status        string        `json:"status"`
	CreatedBy     identityRef   `json:"createdBy"`
	CreationDate  adoTime       `json:"creationDate"`
	ClosedDate    adoTime       `json:"closedDate"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Reviewers     []reviewerRef `json:"reviewers"`
	TargetRefName string        `json:"targetRefName"`
}

func (p pullRequestResource) toDomain(project, repository string) domain.PullRequest {
	pr := domain.PullRequest{
		ID:           p.PullRequestID,
		Status:       domain.PullRequestStatus(p.Status),
		CreatedBy:    p.CreatedBy.toDomain(),
		CreationDate: p.CreationDate.Time,
		ClosedDate:   p.ClosedDate.ptr(),
		Title:        p.Title,
		Description:  p.Description,
		TargetBranch: strings.TrimPrefix(p.TargetRefName, "refs/heads/"),
		Project:      project,
		Repository:   repository,
	}
	for _, r := range p.Reviewers {
		pr.Reviewers = append(pr.Reviewers, domain.Reviewer{Identity: r.identityRef.toDomain(), Vote: r.Vote})
	}
	return pr
}

// Work item field reference names.
const (
	fieldID           = "System.Id"
	fieldType         = "System.WorkItemType"
	fieldState        = "System.State"
	fieldReason       = "System.Reason"
	fieldTitle        = "System.Title"
	fieldCreatedDate  = "System.CreatedDate"
	fieldChangedDate  = "System.ChangedDate"
	fieldResolvedDate = "Microsoft.VSTS.Common.ResolvedDate"
	fieldClosedDate   = "Microsoft.VSTS.Common.ClosedDate"
	fieldTags         = "System.Tags"
	fieldAreaPath     = "System.AreaPath"
	fieldPriority     = "Microsoft.VSTS.Common.Priority"
	fieldSeverity     = "Microsoft.VSTS.Common.Severity"
	fieldTeamProject  = "System.TeamProject"
	fieldAssignedTo   = "System.AssignedTo"
)

// workItemFields is the field list requested for every work item.
var workItemFields = []string{
	fieldID, fieldType, fieldState, fieldReason, fieldTitle,
	fieldCreatedDate, fieldChangedDate, fieldResolvedDate, fieldClosedDate,
	fieldTags, fieldAreaPath, fieldPriority, fieldSeverity,
	fieldTeamProject, fieldAssignedTo,
}

type workItemResource struct {
	ID     int                        `json:"id"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// toDomain maps the field bag onto the typed record. Fields without a typed
// home are decoded generically into Extra.
func (w workItemResource) toDomain(project string) domain.WorkItem {
	wi := domain.WorkItem{ID: w.ID, Project: project}
	for name, raw := range w.Fields {
		switch name {
		case fieldID:
		case fieldType:
			wi.Type = decodeString(raw)
		case fieldState:
			wi.State = decodeString(raw)
		case fieldReason:
			wi.Reason = decodeString(raw)
		case fieldTitle:
			wi.Title = decodeString(raw)
		case fieldCreatedDate:
			wi.CreatedDate = decodeTime(raw).Time
		case fieldChangedDate:
			wi.ChangedDate = decodeTime(raw).Time
		case fieldResolvedDate:
			wi.ResolvedDate = decodeTime(raw).ptr()
		case fieldClosedDate:
			wi.ClosedDate = decodeTime(raw).ptr()
		case fieldTags:
			wi.Tags = decodeString(raw)
		case fieldAreaPath:
			wi.AreaPath = decodeString(raw)
		case fieldPriority:
			var p int
			if err := json.Unmarshal(raw, &p); err == nil {
				wi.Priority = &p
			}
		case fieldSeverity:
			if s := decodeString(raw); s != "" {
				wi.Severity = &s
			}
		default:
			var v any
			if err := json.Unmarshal(raw, &v); err == nil {
				if wi.Extra == nil {
					wi.Extra = make(map[string]any)
				}
				wi.Extra[name] = v
			}
		}
	}
	return wi
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeTime(raw json.RawMessage) adoTime {
	var t adoTime
	if err := json.Unmarshal(raw, &t); err != nil {
		return adoTime{}
	}
	return t
}
