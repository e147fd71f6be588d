package usecase

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

const (
	topKeywordCount  = 10
	minKeywordRunes  = 4
	streakDateLayout = "2006-01-02"
	timestampLayout  = time.RFC3339
	oneDay           = 24 * time.Hour
)

// stopWords are dropped from commit message keywords. Words of three
// characters or fewer are dropped before this list is consulted.
var stopWords = map[string]bool{
	"about": true, "after": true, "again": true, "also": true, "been": true,
	"before": true, "being": true, "both": true, "could": true, "does": true,
	"doing": true, "done": true, "each": true, "even": true, "from": true,
	"have": true, "having": true, "here": true, "into": true, "just": true,
	"like": true, "made": true, "make": true, "more": true, "most": true,
	"much": true, "must": true, "only": true, "other": true, "over": true,
	"same": true, "should": true, "some": true, "such": true, "than": true,
	"that": true, "their": true, "them": true, "then": true, "there": true,
	"these": true, "they": true, "this": true, "those": true, "through": true,
	"under": true, "until": true, "very": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "while": true, "will": true,
	"with": true, "would": true, "your": true,
	"merge": true, "merged": true, "merging": true, "pull": true, "request": true,
	"branch": true, "branches": true, "commit": true, "master": true, "main": true,
	"origin": true, "head": true, "refs": true, "heads": true,
}

func aggregateCommits(commits []domain.Commit, loc *time.Location) domain.CommitStats {
	hist := newHistograms(loc)
	s := domain.CommitStats{
		Total:       len(commits),
		ByMonth:     hist.months,
		ByDayOfWeek: hist.days,
		ByHour:      hist.hours,
	}

	var first, last time.Time
	var messages []string
	for _, c := range commits {
		date := c.Author.Date
		hist.add(date)

		if c.ChangeCounts != nil {
			s.LinesAdded += c.ChangeCounts.Added
			s.LinesEdited += c.ChangeCounts.Edited
			s.LinesDeleted += c.ChangeCounts.Deleted
		}

		if first.IsZero() || date.Before(first) {
			first = date
		}
		if last.IsZero() || date.After(last) {
			last = date
		}

		if msg := strings.TrimSpace(c.Message); msg != "" {
			messages = append(messages, msg)
		}
	}

	if !first.IsZero() {
		s.FirstCommitDate = first.UTC().Format(timestampLayout)
		s.LastCommitDate = last.UTC().Format(timestampLayout)
	}
	s.LongestStreak = longestStreak(commits)
	s.TopKeywords = topKeywords(messages, topKeywordCount)
	return s
}

// longestStreak is the longest run of consecutive UTC calendar days with at
// least one commit.
func longestStreak(commits []domain.Commit) int {
	distinct := make(map[string]bool)
	for _, c := range commits {
		distinct[c.Author.Date.UTC().Format(streakDateLayout)] = true
	}
	if len(distinct) == 0 {
		return 0
	}

	days := make([]time.Time, 0, len(distinct))
	for d := range distinct {
		t, _ := time.Parse(streakDateLayout, d)
		days = append(days, t)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, current := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == oneDay {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
	}
	return longest
}

// topKeywords counts the meaningful words across messages.
func topKeywords(messages []string, n int) []domain.Count {
	c := newCounter()
	for _, msg := range messages {
		for _, word := range tokenize(msg) {
			if utf8.RuneCountInString(word) < minKeywordRunes || stopWords[word] {
				continue
			}
			c.add(word)
		}
	}
	return c.top(n)
}

func tokenize(msg string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, strings.ToLower(msg))
	return strings.Fields(cleaned)
}
