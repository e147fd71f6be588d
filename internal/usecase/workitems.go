package usecase

import (
	"strings"

	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

const (
	topTagCount  = 10
	topAreaCount = 5
	bugType      = "Bug"
)

func emptyWorkItemStats() domain.WorkItemStats {
	return domain.WorkItemStats{
		ByType:         map[string]int{},
		BugsBySeverity: map[string]int{},
		TopTags:        []domain.Count{},
		TopAreas:       []domain.Count{},
	}
}

func aggregateWorkItems(items []domain.WorkItem) domain.WorkItemStats {
	s := emptyWorkItemStats()
	if len(items) == 0 {
		return s
	}

	tags := newCounter()
	areas := newCounter()
	var resolutionHours []float64
	fastestHours := -1.0

	for _, wi := range items {
		s.Total++
		s.ByType[wi.Type]++

		if strings.EqualFold(wi.Type, bugType) {
			s.BugsFixed++
			if wi.Severity != nil && *wi.Severity != "" {
				s.BugsBySeverity[*wi.Severity]++
			}
		}

		// Negative durations come from clock skew or bad data; the item still
		// counts, but not towards resolution time.
		if resolved, ok := wi.ResolutionDate(); ok && !wi.CreatedDate.IsZero() {
			hours := resolved.Sub(wi.CreatedDate).Hours()
			if hours >= 0 {
				resolutionHours = append(resolutionHours, hours)
				if fastestHours < 0 || hours < fastestHours {
					fastestHours = hours
					s.FastestResolution = &domain.WorkItemHighlight{
						ID:    wi.ID,
						Title: wi.Title,
						Type:  wi.Type,
						Hours: round1(hours),
					}
				}
			}
		}

		for _, tag := range strings.Split(wi.Tags, ";") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags.add(tag)
			}
		}

		if leaf := areaLeaf(wi.AreaPath); leaf != "" {
			areas.add(leaf)
		}
	}

	s.AvgResolutionDays = round1(mean(resolutionHours) / 24)
	s.TopTags = tags.top(topTagCount)
	s.TopAreas = areas.top(topAreaCount)
	return s
}

// areaLeaf returns the last segment of an area path such as `Project\Team\Web`.
func areaLeaf(path string) string {
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '\\' || r == '/' })
	if len(segments) == 0 {
		return ""
	}
	return strings.TrimSpace(segments[len(segments)-1])
}
