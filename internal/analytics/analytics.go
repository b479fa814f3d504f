// Package analytics derives display statistics from fetched submissions and
// rating history. Everything here is pure computation over slices; no I/O.
package analytics

import (
	"time"

	"github.com/krypticgrind/cfcore/internal/model"
)

// StreakLookbackDays bounds how far back daily activity is materialized.
const StreakLookbackDays = 30

// DayCount is one day of submission activity.
type DayCount struct {
	Date  time.Time
	Count int
}

// UserStats is the aggregate the profile screen renders.
type UserStats struct {
	TotalSubmissions     int
	ProblemsSolved       int
	AcceptanceRate       float64
	CurrentStreak        int
	MaxStreak            int
	ContestsParticipated int
	BestRank             int
	TagCounts            map[string]int
	LanguageCounts       map[string]int
	VerdictCounts        map[string]int
	DailyCounts          []DayCount
}

// BuildUserStats computes the full aggregate in one pass over the inputs.
func BuildUserStats(subs []model.Submission, changes []model.RatingChange, now time.Time) UserStats {
	return UserStats{
		TotalSubmissions:     len(subs),
		ProblemsSolved:       ProblemsSolved(subs),
		AcceptanceRate:       AcceptanceRate(subs),
		CurrentStreak:        CurrentStreak(subs, now),
		MaxStreak:            MaxStreak(subs),
		ContestsParticipated: ContestsParticipated(changes),
		BestRank:             BestRank(changes),
		TagCounts:            TagHistogram(subs),
		LanguageCounts:       LanguageHistogram(subs),
		VerdictCounts:        VerdictHistogram(subs),
		DailyCounts:          DailyCounts(subs, StreakLookbackDays, now),
	}
}

// TagHistogram counts tags across accepted submissions only; a problem solved
// twice counts its tags once per accepted submission by design, matching how
// practice volume is displayed.
func TagHistogram(subs []model.Submission) map[string]int {
	counts := make(map[string]int)
	for _, s := range subs {
		if !s.Accepted() {
			continue
		}
		for _, tag := range s.Problem.Tags {
			counts[tag]++
		}
	}
	return counts
}

// LanguageHistogram counts every submission regardless of verdict.
func LanguageHistogram(subs []model.Submission) map[string]int {
	counts := make(map[string]int)
	for _, s := range subs {
		counts[s.ProgrammingLanguage]++
	}
	return counts
}

// VerdictHistogram buckets submissions by short verdict code.
func VerdictHistogram(subs []model.Submission) map[string]int {
	counts := make(map[string]int)
	for _, s := range subs {
		counts[s.ShortVerdict()]++
	}
	return counts
}

// ProblemsSolved counts distinct problems with at least one accepted
// submission, keyed by the composite problem key.
func ProblemsSolved(subs []model.Submission) int {
	solved := make(map[string]struct{})
	for _, s := range subs {
		if s.Accepted() {
			solved[s.Problem.Key()] = struct{}{}
		}
	}
	return len(solved)
}

// AcceptanceRate is accepted over total, 0 for no submissions.
func AcceptanceRate(subs []model.Submission) float64 {
	if len(subs) == 0 {
		return 0
	}
	accepted := 0
	for _, s := range subs {
		if s.Accepted() {
			accepted++
		}
	}
	return float64(accepted) / float64(len(subs))
}

// ContestsParticipated counts distinct rated contests from rating history.
func ContestsParticipated(changes []model.RatingChange) int {
	seen := make(map[int]struct{})
	for _, rc := range changes {
		seen[rc.ContestID] = struct{}{}
	}
	return len(seen)
}

// BestRank is the lowest rank achieved across rated contests, 0 when unrated.
func BestRank(changes []model.RatingChange) int {
	best := 0
	for _, rc := range changes {
		if rc.Rank > 0 && (best == 0 || rc.Rank < best) {
			best = rc.Rank
		}
	}
	return best
}

// DailyCounts materializes submission counts for the trailing window, oldest
// day first, including zero days. Days follow now's location.
func DailyCounts(subs []model.Submission, days int, now time.Time) []DayCount {
	loc := now.Location()
	byDay := make(map[string]int)
	for _, s := range subs {
		byDay[dayKey(s.Time().In(loc))]++
	}
	out := make([]DayCount, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := startOfDay(now.AddDate(0, 0, -i))
		out = append(out, DayCount{Date: day, Count: byDay[dayKey(day)]})
	}
	return out
}

// TodayCounts returns the number of submissions made today and how many of
// them were accepted. Days follow now's location.
func TodayCounts(subs []model.Submission, now time.Time) (total, accepted int) {
	loc := now.Location()
	today := dayKey(now.In(loc))
	for _, s := range subs {
		if dayKey(s.Time().In(loc)) != today {
			continue
		}
		total++
		if s.Accepted() {
			accepted++
		}
	}
	return total, accepted
}

// CurrentStreak counts consecutive active days ending today. A quiet today
// means the streak is broken, so 0. The walk never looks further back than
// StreakLookbackDays.
func CurrentStreak(subs []model.Submission, now time.Time) int {
	loc := now.Location()
	active := make(map[string]struct{})
	for _, s := range subs {
		active[dayKey(s.Time().In(loc))] = struct{}{}
	}
	day := startOfDay(now)
	streak := 0
	for streak < StreakLookbackDays {
		if _, ok := active[dayKey(day)]; !ok {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// MaxStreak is the longest run of consecutive active days anywhere in the
// submission window.
func MaxStreak(subs []model.Submission) int {
	if len(subs) == 0 {
		return 0
	}
	loc := subs[0].Time().Location()
	active := make(map[string]time.Time)
	for _, s := range subs {
		day := startOfDay(s.Time().In(loc))
		active[dayKey(day)] = day
	}
	best := 0
	for _, day := range active {
		// Only count runs from their first day.
		if _, ok := active[dayKey(day.AddDate(0, 0, -1))]; ok {
			continue
		}
		run := 0
		for cur := day; ; cur = cur.AddDate(0, 0, 1) {
			if _, ok := active[dayKey(cur)]; !ok {
				break
			}
			run++
		}
		if run > best {
			best = run
		}
	}
	return best
}

// RecentSummary condenses the newest submissions for the dashboard.
type RecentSummary struct {
	Window       int
	Accepted     int
	Distinct     int
	TopLanguage  string
	LastActivity time.Time
}

// Recent summarizes the newest n submissions; subs are expected newest first
// as the API returns them.
func Recent(subs []model.Submission, n int) RecentSummary {
	if n > len(subs) {
		n = len(subs)
	}
	window := subs[:n]
	sum := RecentSummary{Window: n}
	langs := make(map[string]int)
	distinct := make(map[string]struct{})
	for _, s := range window {
		if s.Accepted() {
			sum.Accepted++
		}
		langs[s.ProgrammingLanguage]++
		distinct[s.Problem.Key()] = struct{}{}
		if t := s.Time(); t.After(sum.LastActivity) {
			sum.LastActivity = t
		}
	}
	sum.Distinct = len(distinct)
	bestLang, bestCount := "", 0
	for lang, count := range langs {
		if count > bestCount {
			bestLang, bestCount = lang, count
		}
	}
	sum.TopLanguage = bestLang
	return sum
}

func dayKey(t time.Time) string { return t.Format("2006-01-02") }

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
