package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{name: "no filter", query: Query{}, want: []string{"getting-started", "web-dev-fundamentals", "python-programming", "data-science-intro"}},
		{name: "text in title", query: Query{Text: "  PYTHON "}, want: []string{"python-programming", "data-science-intro"}},
		{name: "text in lesson title", query: Query{Text: "pandas"}, want: []string{"data-science-intro"}},
		{name: "text in instructor", query: Query{Text: "sarah"}, want: []string{"web-dev-fundamentals"}},
		{name: "category", query: Query{Category: "programming"}, want: []string{"python-programming"}},
		{name: "level", query: Query{Level: "Intermediate"}, want: []string{"data-science-intro"}},
		{name: "instructor", query: Query{Instructor: "Michael Chen"}, want: []string{"python-programming"}},
		{name: "short", query: Query{Duration: DurationShort}, want: []string{"getting-started"}},
		{name: "medium", query: Query{Duration: DurationMedium}, want: []string{"web-dev-fundamentals"}},
		{name: "long", query: Query{Duration: DurationLong}, want: []string{"python-programming", "data-science-intro"}},
		{name: "combined", query: Query{Level: "Beginner", Duration: DurationLong}, want: []string{"python-programming"}},
		{name: "no match", query: Query{Text: "quantum"}, want: []string{}},
		{
			name:  "sort by duration",
			query: Query{SortBy: SortDuration},
			want:  []string{"getting-started", "web-dev-fundamentals", "python-programming", "data-science-intro"},
		},
		{
			name:  "sort by title",
			query: Query{SortBy: SortTitle},
			want:  []string{"getting-started", "data-science-intro", "python-programming", "web-dev-fundamentals"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, courseIDs(Search(cat, tt.query)))
		})
	}
}

func TestParseHours(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"4 hours", 4},
		{"1.5 hr", 1.5},
		{"30 min", .5},
		{"soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, parseHours(tt.in), .001)
		})
	}
}

func TestSuggest(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	got := Suggest(cat, "pyton programing", 2)
	require.NotEmpty(t, got)
	assert.Equal(t, "python-programming", got[0].ID)
	assert.LessOrEqual(t, len(got), 2)

	assert.Nil(t, Suggest(cat, "", 3))
	assert.Empty(t, Suggest(cat, "zzzzzzzzzzzzzzzzzzzz", 3))
}
