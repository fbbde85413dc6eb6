package story

import (
	"strings"

	"github.com/samber/lo"
)

// Story is a Hacker News item as shown in the list. Fields the view does not
// use are dropped at decode time.
type Story struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Score int    `json:"score"`
	URL   string `json:"url,omitempty"`
}

// HasURL reports whether the item links somewhere. Ask HN and job posts
// usually don't.
func (s Story) HasURL() bool {
	return s.URL != ""
}

// Filter returns the stories whose title contains term, ignoring case.
// Order is preserved and an empty term keeps everything.
func Filter(stories []Story, term string) []Story {
	needle := strings.ToLower(term)
	return lo.Filter(stories, func(s Story, _ int) bool {
		return strings.Contains(strings.ToLower(s.Title), needle)
	})
}
