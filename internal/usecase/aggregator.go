// Package usecase contains the business logic of the application.
package usecase

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

// Thresholds are the personality cut-offs, in percent of activity.
type Thresholds struct {
	WeekendPercent float64
	NightPercent   float64
	MorningPercent float64
}

// DefaultThresholds are the stock personality cut-offs.
var DefaultThresholds = Thresholds{WeekendPercent: 30, NightPercent: 25, MorningPercent: 20}

// Options tune the aggregation. The zero value buckets in UTC with the
// default thresholds.
type Options struct {
	// Location is the time zone used for month, weekday and hour buckets.
	Location   *time.Location
	Thresholds Thresholds
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Thresholds == (Thresholds{}) {
		o.Thresholds = DefaultThresholds
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Aggregate folds already fetched, deduplicated activity into the annual
// summary. It performs no I/O.
func Aggregate(in domain.AggregationInput, opts Options) *domain.WrappedStats {
	opts = opts.withDefaults()

	return &domain.WrappedStats{
		Meta:         buildMeta(in.Scope, opts.Now()),
		Commits:      aggregateCommits(in.Commits, opts.Location),
		PullRequests: aggregatePullRequests(in.PullRequests, in.Scope.UserEmail, opts.Location),
		WorkItems:    aggregateWorkItems(in.WorkItems),
		Builds:       domain.BuildStats{},
		Insights:     buildInsights(in.Commits, in.PullRequests, opts),
	}
}

func buildMeta(scope domain.Scope, now time.Time) domain.Meta {
	repository := scope.Repository
	if len(scope.Targets) > 0 {
		var repos []string
		seen := make(map[string]bool)
		for _, t := range scope.Targets {
			if !seen[t.Repository] {
				seen[t.Repository] = true
				repos = append(repos, t.Repository)
			}
		}
		repository = strings.Join(repos, ", ")
	}
	return domain.Meta{
		Organization: scope.Organization,
		Projects:     scope.ProjectNames(),
		Repository:   repository,
		Year:         scope.Year,
		UserEmail:    scope.UserEmail,
		GeneratedAt:  now.UTC(),
	}
}

var monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// weekdayNames is indexed by time.Weekday.
var weekdayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// histograms buckets timestamps by month, weekday and hour. Every bucket is
// seeded so that quiet periods show up as explicit zeros.
type histograms struct {
	loc    *time.Location
	months map[string]int
	days   map[string]int
	hours  map[int]int
}

func newHistograms(loc *time.Location) histograms {
	h := histograms{
		loc:    loc,
		months: make(map[string]int, len(monthNames)),
		days:   make(map[string]int, len(weekdayNames)),
		hours:  make(map[int]int, 24),
	}
	for _, m := range monthNames {
		h.months[m] = 0
	}
	for _, d := range weekdayNames {
		h.days[d] = 0
	}
	for hour := 0; hour < 24; hour++ {
		h.hours[hour] = 0
	}
	return h
}

func (h histograms) add(t time.Time) {
	local := t.In(h.loc)
	h.months[monthNames[local.Month()-1]]++
	h.days[weekdayNames[local.Weekday()]]++
	h.hours[local.Hour()]++
}

// busiestMonth, busiestDay and busiestHour return the argmax; ties go to the
// earliest key in calendar order.
func (h histograms) busiestMonth() string {
	return argmax(monthNames, func(k string) int { return h.months[k] })
}

func (h histograms) busiestDay() string {
	return argmax(weekdayNames, func(k string) int { return h.days[k] })
}

func (h histograms) busiestHour() int {
	hours := make([]int, 24)
	for i := range hours {
		hours[i] = i
	}
	return argmax(hours, func(k int) int { return h.hours[k] })
}

func argmax[K comparable](keys []K, value func(K) int) K {
	best := keys[0]
	for _, k := range keys[1:] {
		if value(k) > value(best) {
			best = k
		}
	}
	return best
}

// counter counts string keys and remembers the order they first appeared in.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// top returns the n most frequent keys, ties in first-seen order.
func (c *counter) top(n int) []domain.Count {
	out := make([]domain.Count, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, domain.Count{Name: k, Count: c.counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	r, err := stats.Round(v, 1)
	if err != nil {
		return math.Round(v*10) / 10
	}
	return r
}

// mean returns 0 for an empty sample.
func mean(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

func median(values []float64) float64 {
	m, err := stats.Median(values)
	if err != nil {
		return 0
	}
	return m
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
