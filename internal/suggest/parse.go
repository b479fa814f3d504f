package suggest

import (
	"sort"
	"strings"
)

// Suggestion is one parsed training suggestion.
type Suggestion struct {
	Type        string
	Priority    string
	Title       string
	Description string
	Action      string
	URL         string
}

var priorityOrder = map[string]int{"high": 0, "medium": 1, "low": 2}

// ParseSuggestions extracts SUGGESTION_n blocks from model output. Blocks
// without a title are dropped, unknown field lines are ignored, and the
// result is capped at max and ordered high priority first while preserving
// the model's order within a priority.
func ParseSuggestions(text string, max int) []Suggestion {
	var out []Suggestion
	var cur *Suggestion
	flush := func() {
		if cur != nil && cur.Title != "" {
			out = append(out, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "SUGGESTION_") {
			flush()
			cur = &Suggestion{}
			continue
		}
		if cur == nil || line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "type":
			cur.Type = strings.ToLower(value)
		case "priority":
			cur.Priority = strings.ToLower(value)
		case "title":
			cur.Title = value
		case "description":
			cur.Description = value
		case "action":
			cur.Action = value
		case "url":
			cur.URL = value
		}
	}
	flush()

	sort.SliceStable(out, func(i, j int) bool {
		return priorityRank(out[i].Priority) < priorityRank(out[j].Priority)
	})
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

func priorityRank(p string) int {
	if r, ok := priorityOrder[p]; ok {
		return r
	}
	// Unknown priorities sort after the known ones.
	return len(priorityOrder)
}
