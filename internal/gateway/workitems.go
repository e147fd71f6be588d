package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

// WorkItemQuery selects the work items resolved by one assignee in a project.
type WorkItemQuery struct {
	Project string
	// AssignedTo matches anyone who was ever the assignee. Empty disables the predicate.
	AssignedTo string
	From       time.Time
	To         time.Time
}

const wiqlDateLayout = "2006-01-02"

// BuildWIQL renders the server-side query for q.
func BuildWIQL(q WorkItemQuery) string {
	states := make([]string, len(domain.AcceptedResolutionStates))
	for i, s := range domain.AcceptedResolutionStates {
		states[i] = wiqlString(s)
	}

	predicates := []string{
		"[System.TeamProject] = " + wiqlString(q.Project),
		"[System.State] IN (" + strings.Join(states, ", ") + ")",
		"[System.Reason] NOT CONTAINS " + wiqlString(domain.RejectedReason),
	}
	if q.AssignedTo != "" {
		predicates = append(predicates, "[System.AssignedTo] EVER "+wiqlString(q.AssignedTo))
	}
	if !q.From.IsZero() {
		predicates = append(predicates, "[System.ChangedDate] >= "+wiqlString(q.From.UTC().Format(wiqlDateLayout)))
	}
	if !q.To.IsZero() {
		predicates = append(predicates, "[System.ChangedDate] <= "+wiqlString(q.To.UTC().Format(wiqlDateLayout)))
	}

	return "SELECT [System.Id] FROM WorkItems WHERE " +
		strings.Join(predicates, " AND ") +
		" ORDER BY [System.ChangedDate] DESC"
}

func wiqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

type wiqlResponse struct {
	WorkItems []struct {
		ID int `json:"id"`
	} `json:"workItems"`
}

// FetchWorkItems runs the WIQL query for ids, then fetches the bodies in
// batches of at most 200 ids.
func (g *AzureDevOpsGateway) FetchWorkItems(ctx context.Context, q WorkItemQuery) ([]domain.WorkItem, error) {
	log := g.logger.With(zap.String("project", q.Project))
	log.Info("Fetching work item data")

	var ids wiqlResponse
	err := g.doJSON(ctx, apiRequest{
		method: http.MethodPost,
		base:   g.baseURL,
		path:   []string{q.Project, "_apis", "wit", "wiql"},
		body:   map[string]string{"query": BuildWIQL(q)},
	}, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query work items: %w", err)
	}

	all := make([]int, 0, len(ids.WorkItems))
	for _, wi := range ids.WorkItems {
		all = append(all, wi.ID)
	}

	items := make([]domain.WorkItem, 0, len(all))
	for _, batch := range chunk(all, workItemBatchSize) {
		strIDs := make([]string, len(batch))
		for i, id := range batch {
			strIDs[i] = strconv.Itoa(id)
		}
		params := url.Values{}
		params.Set("ids", strings.Join(strIDs, ","))
		params.Set("fields", strings.Join(workItemFields, ","))
		params.Set("errorPolicy", "omit")

		var page listResponse[*workItemResource]
		err := g.doJSON(ctx, apiRequest{
			method: http.MethodGet,
			base:   g.baseURL,
			path:   []string{q.Project, "_apis", "wit", "workitems"},
			params: params,
		}, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch work items: %w", err)
		}
		for _, res := range page.Value {
			// errorPolicy=omit returns null for items that could not be read.
			if res == nil {
				continue
			}
			items = append(items, res.toDomain(q.Project))
		}
	}

	log.Info("Completed fetching work item data", zap.Int("count", len(items)))
	return items, nil
}

func chunk(ids []int, size int) [][]int {
	var out [][]int
	for size < len(ids) {
		ids, out = ids[size:], append(out, ids[:size])
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
