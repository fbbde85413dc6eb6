package tui

import (
	"github.com/matheuskafuri/hntop/internal/query"
	"github.com/matheuskafuri/hntop/internal/story"
)

type stateMsg struct {
	state query.State[[]story.Story]
}

type openErrMsg struct {
	err error
}
