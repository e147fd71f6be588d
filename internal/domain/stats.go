// Package domain contains the core data structures and domain logic for the application.
package domain

import "time"

// WrappedStats is the annual summary produced by the aggregator.
// It is the stable JSON contract handed to presentation and export.
type WrappedStats struct {
	Meta         Meta             `json:"meta"`
	Commits      CommitStats      `json:"commits"`
	PullRequests PullRequestStats `json:"pullRequests"`
	WorkItems    WorkItemStats    `json:"workItems"`
	Builds       BuildStats       `json:"builds"`
	Insights     Insights         `json:"insights"`
}

// Meta echoes the request scope.
type Meta struct {
	Organization string    `json:"organization"`
	Projects     []string  `json:"projects"`
	Repository   string    `json:"repository"`
	Year         int       `json:"year"`
	UserEmail    string    `json:"userEmail,omitempty"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

// Count is a labelled frequency used by the top-N lists.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type CommitStats struct {
	Total           int            `json:"total"`
	LinesAdded      int            `json:"linesAdded"`
	LinesEdited     int            `json:"linesEdited"`
	LinesDeleted    int            `json:"linesDeleted"`
	ByMonth         map[string]int `json:"byMonth"`
	ByDayOfWeek     map[string]int `json:"byDayOfWeek"`
	ByHour          map[int]int    `json:"byHour"`
	LongestStreak   int            `json:"longestStreak"`
	FirstCommitDate string         `json:"firstCommitDate,omitempty"`
	LastCommitDate  string         `json:"lastCommitDate,omitempty"`
	TopKeywords     []Count        `json:"topKeywords"`
}

// PullRequestHighlight points at a single notable pull request.
type PullRequestHighlight struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Hours     float64 `json:"hours"`
	Formatted string  `json:"formatted"`
}

// LargestPullRequest is sized by title plus description length.
// FilesChanged stays 0 unless a separate enrichment step filled it.
type LargestPullRequest struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Size         int    `json:"size"`
	FilesChanged int    `json:"filesChanged"`
}

type PullRequestStats struct {
	Created               int                   `json:"created"`
	Merged                int                   `json:"merged"`
	Abandoned             int                   `json:"abandoned"`
	Reviewed              int                   `json:"reviewed"`
	AvgTimeToMergeDays    float64               `json:"avgTimeToMergeDays"`
	AvgTimeToMerge        string                `json:"avgTimeToMerge"`
	MedianTimeToMergeDays float64               `json:"medianTimeToMergeDays"`
	FastestMerge          *PullRequestHighlight `json:"fastestMerge,omitempty"`
	SlowestMerge          *PullRequestHighlight `json:"slowestMerge,omitempty"`
	LargestPR             *LargestPullRequest   `json:"largestPR,omitempty"`
	ByMonth               map[string]int        `json:"byMonth"`
	ByDayOfWeek           map[string]int        `json:"byDayOfWeek"`
	ByHour                map[int]int           `json:"byHour"`
}

type WorkItemHighlight struct {
	ID    int     `json:"id"`
	Title string  `json:"title"`
	Type  string  `json:"type"`
	Hours float64 `json:"hours"`
}

type WorkItemStats struct {
	Total             int                `json:"total"`
	ByType            map[string]int     `json:"byType"`
	BugsFixed         int                `json:"bugsFixed"`
	BugsBySeverity    map[string]int     `json:"bugsBySeverity"`
	AvgResolutionDays float64            `json:"avgResolutionDays"`
	FastestResolution *WorkItemHighlight `json:"fastestResolution,omitempty"`
	TopTags           []Count            `json:"topTags"`
	TopAreas          []Count            `json:"topAreas"`
}

// BuildStats is always zero; build data is not collected.
type BuildStats struct {
	Total              int     `json:"total"`
	Succeeded          int     `json:"succeeded"`
	Failed             int     `json:"failed"`
	SuccessRate        float64 `json:"successRate"`
	AvgDurationMinutes float64 `json:"avgDurationMinutes"`
}

// Personality labels.
const (
	PersonalityWeekendWarrior = "Weekend Warrior"
	PersonalityNightOwl       = "Night Owl"
	PersonalityEarlyBird      = "Early Bird"
	PersonalityNineToFiver    = "Nine-to-Fiver"
)

// Insight sources.
const (
	InsightSourceCommits      = "commits"
	InsightSourcePullRequests = "pullRequests"
	InsightSourceNone         = "none"
)

type Insights struct {
	Personality          string  `json:"personality"`
	Source               string  `json:"source"`
	BusiestMonth         string  `json:"busiestMonth"`
	BusiestDay           string  `json:"busiestDay"`
	BusiestHour          int     `json:"busiestHour"`
	NightPercent         float64 `json:"nightPercent"`
	MorningPercent       float64 `json:"morningPercent"`
	BusinessHoursPercent float64 `json:"businessHoursPercent"`
	WeekendPercent       float64 `json:"weekendPercent"`
	TopFileExtensions    []Count `json:"topFileExtensions,omitempty"`
}
