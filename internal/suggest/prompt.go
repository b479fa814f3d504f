package suggest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/krypticgrind/cfcore/internal/analytics"
	"github.com/krypticgrind/cfcore/internal/model"
)

// buildPrompt renders the statistics into a compact brief and pins the model
// to the SUGGESTION_n output contract the parser understands.
func buildPrompt(profile model.UserProfile, stats analytics.UserStats, max int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a competitive programming coach. Analyze this Codeforces user and produce up to %d training suggestions.\n\n", max)
	fmt.Fprintf(&b, "Handle: %s\n", profile.Handle)
	fmt.Fprintf(&b, "Rating: %d (max %d), rank %s\n", profile.Rating, profile.MaxRating, profile.Rank)
	fmt.Fprintf(&b, "Recent submissions: %d, distinct problems solved: %d, acceptance rate: %.0f%%\n",
		stats.TotalSubmissions, stats.ProblemsSolved, stats.AcceptanceRate*100)
	fmt.Fprintf(&b, "Current streak: %d days, contests participated: %d, best rank: %d\n",
		stats.CurrentStreak, stats.ContestsParticipated, stats.BestRank)
	fmt.Fprintf(&b, "Strongest tags: %s\n", topKeys(stats.TagCounts, 5))
	fmt.Fprintf(&b, "Verdict mix: %s\n", topKeys(stats.VerdictCounts, 5))

	b.WriteString(`
Answer ONLY with numbered blocks in exactly this format, nothing else:

SUGGESTION_1
Type: <practice|contest|review|habit>
Priority: <high|medium|low>
Title: <short title>
Description: <one or two sentences>
Action: <concrete next step>
URL: <relevant codeforces.com link or empty>
`)
	return b.String()
}

func buildTagPrompt(tag string) string {
	return fmt.Sprintf(
		"In at most 120 words, explain how a Codeforces user should practice the %q tag: typical techniques, a sensible rating range to start at, and one classic problem archetype.",
		tag)
}

// topKeys renders the n most frequent keys as "key (count)" joined by commas.
func topKeys(counts map[string]int, n int) string {
	type kv struct {
		key   string
		count int
	}
	items := make([]kv, 0, len(counts))
	for k, c := range counts {
		items = append(items, kv{k, c})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].count != items[j].count {
			return items[i].count > items[j].count
		}
		return items[i].key < items[j].key
	})
	if len(items) > n {
		items = items[:n]
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s (%d)", it.key, it.count)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
