package tui

import (
	"github.com/matheuskafuri/hntop/internal/query"
	"github.com/matheuskafuri/hntop/internal/story"
)

type branch int

const (
	branchLoading branch = iota
	branchError
	branchStories
)

const skeletonCount = 10

// card is one slot in the list. Skeleton cards are keyed by position, story
// cards by story ID.
type card struct {
	key      int
	skeleton bool
	story    story.Story
}

// screen is everything the view shows, derived from the fetch state and the
// search term alone.
type screen struct {
	branch  branch
	errText string
	cards   []card
	total   int
}

func deriveScreen(st query.State[[]story.Story], term string) screen {
	if st.Status == query.StatusError {
		msg := "unknown error"
		if st.Err != nil {
			msg = st.Err.Error()
		}
		return screen{branch: branchError, errText: msg}
	}

	if st.Loading() {
		cards := make([]card, skeletonCount)
		for i := range cards {
			cards[i] = card{key: i, skeleton: true}
		}
		return screen{branch: branchLoading, cards: cards}
	}

	filtered := story.Filter(st.Data, term)
	cards := make([]card, len(filtered))
	for i, s := range filtered {
		cards[i] = card{key: s.ID, story: s}
	}
	return screen{branch: branchStories, cards: cards, total: len(st.Data)}
}
