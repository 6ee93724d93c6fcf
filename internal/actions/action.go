package actions

import (
	"fmt"
	"strings"
)

// Action is one of the quick actions offered on a thread.
type Action string

const (
	Translate        Action = "translate"
	SemanticAnalysis Action = "semantic-analysis"
	Summary          Action = "summary"
	TaskDetection    Action = "task-detection"
	AutoReply        Action = "auto-reply"
)

// All lists every action in display order.
var All = []Action{Translate, SemanticAnalysis, Summary, TaskDetection, AutoReply}

// ParseAction parses an action name.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

func (a Action) String() string {
	return string(a)
}
