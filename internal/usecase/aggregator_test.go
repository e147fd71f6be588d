package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

func date(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func commitAt(id string, t time.Time) domain.Commit {
	return domain.Commit{ID: id, Author: domain.Signature{Email: "dev@example.com", Date: t}}
}

func fixedOptions() Options {
	return Options{Now: func() time.Time { return date(2024, time.December, 31, 12) }}
}

func TestAggregate_EmptyInput(t *testing.T) {
	stats := Aggregate(domain.AggregationInput{Scope: domain.Scope{Organization: "org", Projects: []string{"p"}, Year: 2024}}, fixedOptions())

	require.NotNil(t, stats)
	assert.Equal(t, 0, stats.Commits.Total)
	assert.Len(t, stats.Commits.ByMonth, 12)
	assert.Len(t, stats.Commits.ByDayOfWeek, 7)
	assert.Len(t, stats.Commits.ByHour, 24)
	assert.Equal(t, 0, stats.Commits.LongestStreak)
	assert.Equal(t, noMergeData, stats.PullRequests.AvgTimeToMerge)
	assert.NotNil(t, stats.WorkItems.ByType)
	assert.Empty(t, stats.WorkItems.TopTags)
	assert.Equal(t, domain.PersonalityNineToFiver, stats.Insights.Personality)
	assert.Equal(t, domain.InsightSourceNone, stats.Insights.Source)
	assert.Equal(t, domain.BuildStats{}, stats.Builds)
	assert.Equal(t, []string{"p"}, stats.Meta.Projects)
}

func TestAggregate_HistogramsAreComplete(t *testing.T) {
	commits := []domain.Commit{
		commitAt("a", date(2024, time.March, 4, 10)),
		commitAt("b", date(2024, time.March, 5, 23)),
	}
	stats := Aggregate(domain.AggregationInput{Commits: commits}, fixedOptions())

	sum := func(m map[string]int) int {
		total := 0
		for _, v := range m {
			total += v
		}
		return total
	}
	hourSum := 0
	for h := 0; h < 24; h++ {
		v, ok := stats.Commits.ByHour[h]
		require.True(t, ok, "hour %d missing", h)
		hourSum += v
	}
	for _, m := range monthNames {
		assert.Contains(t, stats.Commits.ByMonth, m)
	}
	for _, d := range weekdayNames {
		assert.Contains(t, stats.Commits.ByDayOfWeek, d)
	}
	assert.Equal(t, 2, sum(stats.Commits.ByMonth))
	assert.Equal(t, 2, sum(stats.Commits.ByDayOfWeek))
	assert.Equal(t, 2, hourSum)
	assert.Equal(t, 2, stats.Commits.ByMonth["Mar"])
	assert.Equal(t, "Mar", stats.Insights.BusiestMonth)
}

func TestAggregate_HistogramLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	commits := []domain.Commit{commitAt("a", date(2024, time.January, 31, 20))}

	stats := Aggregate(domain.AggregationInput{Commits: commits}, Options{Location: tokyo})

	assert.Equal(t, 1, stats.Commits.ByMonth["Feb"])
	assert.Equal(t, 1, stats.Commits.ByHour[5])
	assert.Equal(t, "Thursday", stats.Insights.BusiestDay)
}

func TestLongestStreak(t *testing.T) {
	d := date(2024, time.May, 10, 9)
	testCases := []struct {
		name     string
		dates    []time.Time
		expected int
	}{
		{name: "no commits", expected: 0},
		{name: "single date", dates: []time.Time{d}, expected: 1},
		{
			name:     "several commits on one day",
			dates:    []time.Time{d, d.Add(time.Hour), d.Add(5 * time.Hour)},
			expected: 1,
		},
		{
			name: "gap breaks the run",
			dates: []time.Time{
				d, d.AddDate(0, 0, 1), d.AddDate(0, 0, 2), d.AddDate(0, 0, 5), d.AddDate(0, 0, 6),
			},
			expected: 3,
		},
		{
			name:     "unordered input",
			dates:    []time.Time{d.AddDate(0, 0, 3), d, d.AddDate(0, 0, 2), d.AddDate(0, 0, 1)},
			expected: 4,
		},
		{
			name:     "month boundary",
			dates:    []time.Time{date(2024, time.February, 28, 1), date(2024, time.February, 29, 1), date(2024, time.March, 1, 1)},
			expected: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var commits []domain.Commit
			for i, dt := range tc.dates {
				commits = append(commits, commitAt(string(rune('a'+i)), dt))
			}
			assert.Equal(t, tc.expected, longestStreak(commits))
		})
	}
}

func TestAggregateCommits(t *testing.T) {
	commits := []domain.Commit{
		{
			ID:           "1",
			Author:       domain.Signature{Date: date(2024, time.June, 3, 9)},
			Message:      "Refactor parser tokens; refactor the parser!",
			ChangeCounts: &domain.ChangeCounts{Added: 3, Edited: 2, Deleted: 1},
		},
		{
			ID:           "2",
			Author:       domain.Signature{Date: date(2024, time.January, 2, 9)},
			Message:      "Merge branch main into feature parser",
			ChangeCounts: &domain.ChangeCounts{Added: 10},
		},
		{ID: "3", Author: domain.Signature{Date: date(2024, time.August, 1, 9)}, Message: "fix"},
	}

	s := aggregateCommits(commits, time.UTC)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 13, s.LinesAdded)
	assert.Equal(t, 2, s.LinesEdited)
	assert.Equal(t, 1, s.LinesDeleted)
	assert.Equal(t, "2024-01-02T09:00:00Z", s.FirstCommitDate)
	assert.Equal(t, "2024-08-01T09:00:00Z", s.LastCommitDate)
	require.NotEmpty(t, s.TopKeywords)
	assert.Equal(t, domain.Count{Name: "parser", Count: 3}, s.TopKeywords[0])
	for _, kw := range s.TopKeywords {
		assert.NotContains(t, []string{"merge", "branch", "main", "into", "fix", "the"}, kw.Name)
	}
}

func TestFormatDays(t *testing.T) {
	testCases := []struct {
		days     float64
		expected string
	}{
		{days: 20.0 / 24, expected: "20 hours"},
		{days: 0, expected: "0 hours"},
		{days: 1.5, expected: "1.5 days"},
		{days: 1, expected: "1.0 days"},
		{days: 12.26, expected: "12.3 days"},
	}
	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, formatDays(tc.days))
		})
	}
}

func TestAggregatePullRequests(t *testing.T) {
	me := domain.Identity{UniqueName: "me@example.com"}
	other := domain.Identity{UniqueName: "other@example.com"}
	closed := func(t time.Time) *time.Time { return &t }

	prs := []domain.PullRequest{
		{
			ID: 1, Status: domain.PullRequestCompleted, CreatedBy: me, Title: "short",
			CreationDate: date(2024, time.March, 1, 8), ClosedDate: closed(date(2024, time.March, 1, 20)),
		},
		{
			ID: 2, Status: domain.PullRequestCompleted, CreatedBy: me, Title: "a much longer title", Description: "and body",
			CreationDate: date(2024, time.March, 2, 8), ClosedDate: closed(date(2024, time.March, 5, 8)),
		},
		{ID: 3, Status: domain.PullRequestAbandoned, CreatedBy: me, CreationDate: date(2024, time.April, 1, 8)},
		{
			ID: 4, Status: domain.PullRequestActive, CreatedBy: other, CreationDate: date(2024, time.April, 2, 8),
			Reviewers: []domain.Reviewer{{Identity: domain.Identity{UniqueName: "ME@example.com"}, Vote: 10}},
		},
	}

	s := aggregatePullRequests(prs, "me@example.com", time.UTC)

	assert.Equal(t, 3, s.Created)
	assert.Equal(t, 2, s.Merged)
	assert.Equal(t, 1, s.Abandoned)
	assert.Equal(t, 1, s.Reviewed)
	assert.Equal(t, 1.8, s.AvgTimeToMergeDays)
	assert.Equal(t, "1.8 days", s.AvgTimeToMerge)
	require.NotNil(t, s.FastestMerge)
	assert.Equal(t, 1, s.FastestMerge.ID)
	assert.Equal(t, "12 hours", s.FastestMerge.Formatted)
	require.NotNil(t, s.SlowestMerge)
	assert.Equal(t, 2, s.SlowestMerge.ID)
	require.NotNil(t, s.LargestPR)
	assert.Equal(t, 2, s.LargestPR.ID)
	assert.Equal(t, 2, s.ByMonth["Mar"])
}

func TestAggregatePullRequests_NoEmailCountsEverything(t *testing.T) {
	prs := []domain.PullRequest{
		{ID: 1, Status: domain.PullRequestActive, CreatedBy: domain.Identity{UniqueName: "a@example.com"}, CreationDate: date(2024, time.May, 1, 9)},
		{ID: 2, Status: domain.PullRequestActive, CreatedBy: domain.Identity{UniqueName: "b@example.com"}, CreationDate: date(2024, time.May, 2, 9)},
	}

	s := aggregatePullRequests(prs, "", time.UTC)

	assert.Equal(t, 2, s.Created)
	assert.Equal(t, 0, s.Reviewed)
	assert.Equal(t, noMergeData, s.AvgTimeToMerge)
	assert.Nil(t, s.FastestMerge)
}

func TestAggregateWorkItems(t *testing.T) {
	ptr := func(t time.Time) *time.Time { return &t }
	sev := func(s string) *string { return &s }

	items := []domain.WorkItem{
		{
			ID: 1, Type: "Bug", Title: "crash", Severity: sev("2 - High"), Tags: "backend; urgent",
			AreaPath: `Proj\Team\Web`, CreatedDate: date(2024, time.June, 1, 0), ResolvedDate: ptr(date(2024, time.June, 2, 0)),
		},
		{
			ID: 2, Type: "Task", Title: "skewed", Tags: "backend",
			AreaPath: "Proj/Team/Api", CreatedDate: date(2024, time.June, 10, 0), ClosedDate: ptr(date(2024, time.June, 9, 0)),
		},
		{
			ID: 3, Type: "Bug", Title: "slow", Severity: sev("3 - Medium"),
			AreaPath: `Proj\Team\Web`, CreatedDate: date(2024, time.July, 1, 0), ResolvedDate: ptr(date(2024, time.July, 4, 0)),
		},
	}

	s := aggregateWorkItems(items)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, map[string]int{"Bug": 2, "Task": 1}, s.ByType)
	assert.Equal(t, 2, s.BugsFixed)
	assert.Equal(t, map[string]int{"2 - High": 1, "3 - Medium": 1}, s.BugsBySeverity)
	// The skewed item counts in totals but not in resolution time: (1 + 3) / 2.
	assert.Equal(t, 2.0, s.AvgResolutionDays)
	require.NotNil(t, s.FastestResolution)
	assert.Equal(t, 1, s.FastestResolution.ID)
	assert.Equal(t, []domain.Count{{Name: "backend", Count: 2}, {Name: "urgent", Count: 1}}, s.TopTags)
	assert.Equal(t, []domain.Count{{Name: "Web", Count: 2}, {Name: "Api", Count: 1}}, s.TopAreas)
}

func TestAggregateWorkItems_OnlyNegativeDurations(t *testing.T) {
	created := date(2024, time.June, 10, 0)
	closed := date(2024, time.June, 1, 0)
	s := aggregateWorkItems([]domain.WorkItem{{ID: 1, Type: "Task", CreatedDate: created, ClosedDate: &closed}})

	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 0.0, s.AvgResolutionDays)
	assert.Nil(t, s.FastestResolution)
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		shares   activityShares
		expected string
	}{
		{name: "weekend wins over night", shares: activityShares{weekend: 35, night: 40}, expected: domain.PersonalityWeekendWarrior},
		{name: "night owl", shares: activityShares{weekend: 30, night: 26}, expected: domain.PersonalityNightOwl},
		{name: "early bird", shares: activityShares{morning: 21}, expected: domain.PersonalityEarlyBird},
		{name: "thresholds are exclusive", shares: activityShares{weekend: 30, night: 25, morning: 20}, expected: domain.PersonalityNineToFiver},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, classify(tc.shares, DefaultThresholds))
		})
	}
}

func TestBuildInsights(t *testing.T) {
	t.Run("commits drive the insights", func(t *testing.T) {
		// 2024-06-01 is a Saturday.
		commits := []domain.Commit{
			{ID: "1", Author: domain.Signature{Date: date(2024, time.June, 1, 23)}, Changes: []domain.FileChange{{Path: "/src/main.go"}, {Path: "/README.MD"}}},
			{ID: "2", Author: domain.Signature{Date: date(2024, time.June, 2, 10)}, Changes: []domain.FileChange{{Path: "/src/util.go"}, {Path: "/Makefile"}}},
			{ID: "3", Author: domain.Signature{Date: date(2024, time.June, 3, 10)}},
		}
		in := buildInsights(commits, nil, fixedOptions().withDefaults())

		assert.Equal(t, domain.InsightSourceCommits, in.Source)
		assert.Equal(t, domain.PersonalityWeekendWarrior, in.Personality)
		assert.Equal(t, 66.7, in.WeekendPercent)
		assert.Equal(t, 33.3, in.NightPercent)
		assert.Equal(t, 66.7, in.BusinessHoursPercent)
		assert.Equal(t, 10, in.BusiestHour)
		assert.Equal(t, []domain.Count{{Name: "go", Count: 2}, {Name: "md", Count: 1}}, in.TopFileExtensions)
	})

	t.Run("falls back to pull requests", func(t *testing.T) {
		prs := []domain.PullRequest{{ID: 1, CreationDate: date(2024, time.June, 4, 7)}}
		in := buildInsights(nil, prs, fixedOptions().withDefaults())

		assert.Equal(t, domain.InsightSourcePullRequests, in.Source)
		assert.Equal(t, domain.PersonalityEarlyBird, in.Personality)
		assert.Empty(t, in.TopFileExtensions)
	})
}

func TestCounterTop(t *testing.T) {
	c := newCounter()
	for _, k := range []string{"b", "a", "b", "c", "a"} {
		c.add(k)
	}
	assert.Equal(t, []domain.Count{{Name: "b", Count: 2}, {Name: "a", Count: 2}}, c.top(2))
}
