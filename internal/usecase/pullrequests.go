package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

const noMergeData = "N/A"

func aggregatePullRequests(prs []domain.PullRequest, userEmail string, loc *time.Location) domain.PullRequestStats {
	hist := newHistograms(loc)
	s := domain.PullRequestStats{
		AvgTimeToMerge: noMergeData,
		ByMonth:        hist.months,
		ByDayOfWeek:    hist.days,
		ByHour:         hist.hours,
	}
	email := strings.TrimSpace(userEmail)

	type merged struct {
		pr    domain.PullRequest
		hours float64
	}
	var merges []merged
	largestSize := -1

	for _, pr := range prs {
		hist.add(pr.CreationDate)

		switch {
		case email == "" || strings.EqualFold(pr.CreatedBy.UniqueName, email):
			s.Created++
			switch pr.Status {
			case domain.PullRequestCompleted:
				s.Merged++
			case domain.PullRequestAbandoned:
				s.Abandoned++
			}
		case reviewedBy(pr, email):
			s.Reviewed++
		}

		if d, ok := pr.MergeDuration(); ok {
			merges = append(merges, merged{pr: pr, hours: d.Hours()})
		}

		// Title plus description length stands in for the real size, which
		// would need one more call per pull request.
		if size := utf8.RuneCountInString(pr.Title) + utf8.RuneCountInString(pr.Description); size > largestSize {
			largestSize = size
			s.LargestPR = &domain.LargestPullRequest{ID: pr.ID, Title: pr.Title, Size: size}
		}
	}

	if len(merges) == 0 {
		return s
	}

	hours := make([]float64, len(merges))
	for i, m := range merges {
		hours[i] = m.hours
	}
	avgDays := mean(hours) / 24
	s.AvgTimeToMergeDays = round1(avgDays)
	s.AvgTimeToMerge = formatDays(avgDays)
	s.MedianTimeToMergeDays = round1(median(hours) / 24)

	sort.SliceStable(merges, func(i, j int) bool { return merges[i].hours < merges[j].hours })
	s.FastestMerge = highlight(merges[0].pr, merges[0].hours)
	last := merges[len(merges)-1]
	s.SlowestMerge = highlight(last.pr, last.hours)
	return s
}

// reviewedBy reports whether email is among the reviewers.
func reviewedBy(pr domain.PullRequest, email string) bool {
	for _, r := range pr.Reviewers {
		if strings.EqualFold(r.UniqueName, email) {
			return true
		}
	}
	return false
}

func highlight(pr domain.PullRequest, hours float64) *domain.PullRequestHighlight {
	return &domain.PullRequestHighlight{
		ID:        pr.ID,
		Title:     pr.Title,
		Hours:     round1(hours),
		Formatted: formatDays(hours / 24),
	}
}

// formatDays renders a duration given in days: whole hours below one day,
// otherwise days with one decimal.
func formatDays(days float64) string {
	if days < 1 {
		return fmt.Sprintf("%d hours", int(math.Round(days*24)))
	}
	return fmt.Sprintf("%.1f days", days)
}
