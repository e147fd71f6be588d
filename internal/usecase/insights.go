package usecase

import (
	"path"
	"strings"
	"time"

	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

const topExtensionCount = 5

// buildInsights classifies activity from commit times, falling back to pull
// request creation times, then to the default persona.
func buildInsights(commits []domain.Commit, prs []domain.PullRequest, opts Options) domain.Insights {
	var times []time.Time
	source := domain.InsightSourceNone
	switch {
	case len(commits) > 0:
		source = domain.InsightSourceCommits
		for _, c := range commits {
			times = append(times, c.Author.Date)
		}
	case len(prs) > 0:
		source = domain.InsightSourcePullRequests
		for _, pr := range prs {
			times = append(times, pr.CreationDate)
		}
	default:
		return domain.Insights{Personality: domain.PersonalityNineToFiver, Source: source}
	}

	hist := newHistograms(opts.Location)
	var night, morning, business, weekend int
	for _, t := range times {
		hist.add(t)
		local := t.In(opts.Location)
		switch h := local.Hour(); {
		case h >= 22 || h <= 3:
			night++
		case h >= 6 && h <= 8:
			morning++
		case h >= 9 && h <= 16:
			business++
		}
		if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekend++
		}
	}

	total := len(times)
	shares := activityShares{
		night:   percent(night, total),
		morning: percent(morning, total),
		weekend: percent(weekend, total),
	}

	insights := domain.Insights{
		Personality:          classify(shares, opts.Thresholds),
		Source:               source,
		BusiestMonth:         hist.busiestMonth(),
		BusiestDay:           hist.busiestDay(),
		BusiestHour:          hist.busiestHour(),
		NightPercent:         round1(shares.night),
		MorningPercent:       round1(shares.morning),
		BusinessHoursPercent: round1(percent(business, total)),
		WeekendPercent:       round1(shares.weekend),
	}
	if source == domain.InsightSourceCommits {
		insights.TopFileExtensions = topFileExtensions(commits, topExtensionCount)
	}
	return insights
}

type activityShares struct {
	night   float64
	morning float64
	weekend float64
}

// classify applies the personality cascade. The order of the checks is the
// tie-break: weekend, then night, then morning.
func classify(s activityShares, th Thresholds) string {
	switch {
	case s.weekend > th.WeekendPercent:
		return domain.PersonalityWeekendWarrior
	case s.night > th.NightPercent:
		return domain.PersonalityNightOwl
	case s.morning > th.MorningPercent:
		return domain.PersonalityEarlyBird
	default:
		return domain.PersonalityNineToFiver
	}
}

func topFileExtensions(commits []domain.Commit, n int) []domain.Count {
	c := newCounter()
	for _, commit := range commits {
		for _, ch := range commit.Changes {
			name := path.Base(ch.Path)
			i := strings.LastIndex(name, ".")
			if i < 0 || i == len(name)-1 {
				continue
			}
			c.add(strings.ToLower(name[i+1:]))
		}
	}
	return c.top(n)
}
