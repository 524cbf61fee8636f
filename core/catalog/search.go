package catalog

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Duration buckets
const (
	DurationShort  = "short"  // < 2 hours
	DurationMedium = "medium" // 2 - 5 hours
	DurationLong   = "long"   // > 5 hours
)

// Sort orders. Results matching a text query default to SortRelevance, the others to catalog order.
const (
	SortRelevance = "relevance"
	SortTitle     = "title"
	SortLevel     = "level"
	SortDuration  = "duration"
)

var (
	hoursRegex   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(hour|hr|h)`)
	minutesRegex = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(minute|min|m)`)

	levelRanks = map[string]int{"beginner": 1, "intermediate": 2, "advanced": 3}
)

// Query filters are ANDed; empty fields do not filter.
type Query struct {
	Text       string
	Category   string
	Level      string
	Instructor string
	Duration   string
	SortBy     string
}

// Search returns the courses matching q. Text matches (case-insensitive) any of title, description,
// category, instructor or a lesson title.
func Search(cat Catalog, q Query) []Course {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	results := make([]Course, 0)
	for _, c := range cat.ListCourses() {
		if text != "" && !matches(c, text) {
			continue
		}
		if q.Category != "" && !strings.EqualFold(c.Category, q.Category) {
			continue
		}
		if q.Level != "" && !strings.EqualFold(c.Level, q.Level) {
			continue
		}
		if q.Instructor != "" && !strings.EqualFold(c.Instructor, q.Instructor) {
			continue
		}
		if q.Duration != "" && !inBucket(c.Hours(), q.Duration) {
			continue
		}
		results = append(results, c)
	}

	sortBy := q.SortBy
	if sortBy == "" && text != "" {
		sortBy = SortRelevance
	}
	switch sortBy {
	case SortRelevance:
		sort.SliceStable(results, func(i, j int) bool {
			return relevance(results[i], text) > relevance(results[j], text)
		})
	case SortTitle:
		sort.SliceStable(results, func(i, j int) bool {
			return strings.ToLower(results[i].Title) < strings.ToLower(results[j].Title)
		})
	case SortLevel:
		sort.SliceStable(results, func(i, j int) bool {
			return levelRanks[strings.ToLower(results[i].Level)] < levelRanks[strings.ToLower(results[j].Level)]
		})
	case SortDuration:
		sort.SliceStable(results, func(i, j int) bool { return results[i].Hours() < results[j].Hours() })
	}
	return results
}

func matches(c Course, text string) bool {
	for _, field := range []string{c.Title, c.Description, c.Category, c.Instructor} {
		if strings.Contains(strings.ToLower(field), text) {
			return true
		}
	}
	for _, l := range c.Lessons {
		if strings.Contains(strings.ToLower(l.Title), text) {
			return true
		}
	}
	return false
}

func relevance(c Course, text string) int {
	var score int
	title := strings.ToLower(c.Title)
	if strings.Contains(title, text) {
		score += 10
	}
	if title == text {
		score += 20
	}
	if strings.Contains(strings.ToLower(c.Category), text) {
		score += 5
	}
	if strings.Contains(strings.ToLower(c.Instructor), text) {
		score += 4
	}
	if strings.Contains(strings.ToLower(c.Description), text) {
		score += 3
	}
	return score
}

func inBucket(hours float64, bucket string) bool {
	switch bucket {
	case DurationShort:
		return hours < 2
	case DurationMedium:
		return hours >= 2 && hours <= 5
	case DurationLong:
		return hours > 5
	default:
		return true
	}
}

func parseHours(duration string) float64 {
	if m := hoursRegex.FindStringSubmatch(duration); m != nil {
		h, _ := strconv.ParseFloat(m[1], 64)
		return h
	}
	if m := minutesRegex.FindStringSubmatch(duration); m != nil {
		mins, _ := strconv.ParseFloat(m[1], 64)
		return mins / 60
	}
	return 0
}

// Suggest returns up to n course titles most similar to text, best first.
// Used when a search or a course lookup comes back empty.
func Suggest(cat Catalog, text string, n int) []Course {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" || n <= 0 {
		return nil
	}

	type scored struct {
		course Course
		ratio  float64
	}
	var candidates []scored
	for _, c := range cat.ListCourses() {
		best := 0.0
		for _, s := range []string{c.Title, c.ID} {
			m := difflib.NewMatcher(strings.Split(text, ""), strings.Split(strings.ToLower(s), ""))
			if r := m.Ratio(); r > best {
				best = r
			}
		}
		if best >= suggestMinRatio {
			candidates = append(candidates, scored{course: c, ratio: best})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].ratio > candidates[j].ratio })

	if len(candidates) > n {
		candidates = candidates[:n]
	}
	suggestions := make([]Course, 0, len(candidates))
	for _, s := range candidates {
		suggestions = append(suggestions, s.course)
	}
	return suggestions
}

const suggestMinRatio = .4
