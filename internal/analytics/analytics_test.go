package analytics

import (
	"testing"
	"time"

	"github.com/krypticgrind/cfcore/internal/model"
)

func sub(daysAgo int, now time.Time, verdict, lang string, contestID int, index string, tags ...string) model.Submission {
	cid := contestID
	return model.Submission{
		CreationTimeSeconds: now.AddDate(0, 0, -daysAgo).Unix(),
		Verdict:             verdict,
		ProgrammingLanguage: lang,
		Problem:             model.Problem{ContestID: &cid, Index: index, Tags: tags},
	}
}

func testNow() time.Time {
	return time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)
}

func TestTagHistogramAcceptedOnly(t *testing.T) {
	now := testNow()
	subs := []model.Submission{
		sub(0, now, "OK", "GNU C++20", 1, "A", "dp", "math"),
		sub(0, now, "WRONG_ANSWER", "GNU C++20", 1, "B", "greedy"),
		sub(1, now, "OK", "GNU C++20", 2, "A", "dp"),
	}
	got := TagHistogram(subs)
	if got["dp"] != 2 || got["math"] != 1 {
		t.Errorf("histogram = %v", got)
	}
	if _, ok := got["greedy"]; ok {
		t.Error("rejected submission tags counted")
	}
}

func TestLanguageAndVerdictHistograms(t *testing.T) {
	now := testNow()
	subs := []model.Submission{
		sub(0, now, "OK", "GNU C++20", 1, "A"),
		sub(0, now, "WRONG_ANSWER", "GNU C++20", 1, "B"),
		sub(0, now, "TIME_LIMIT_EXCEEDED", "Python 3", 1, "C"),
	}
	langs := LanguageHistogram(subs)
	if langs["GNU C++20"] != 2 || langs["Python 3"] != 1 {
		t.Errorf("languages = %v", langs)
	}
	verdicts := VerdictHistogram(subs)
	if verdicts["AC"] != 1 || verdicts["WA"] != 1 || verdicts["TLE"] != 1 {
		t.Errorf("verdicts = %v", verdicts)
	}
}

func TestProblemsSolvedDistinct(t *testing.T) {
	now := testNow()
	subs := []model.Submission{
		sub(0, now, "OK", "Go", 1896, "E"),
		sub(1, now, "OK", "Go", 1896, "E"), // resubmitted, same problem
		sub(2, now, "OK", "Go", 1900, "A"),
		sub(3, now, "WRONG_ANSWER", "Go", 1901, "B"),
	}
	if got := ProblemsSolved(subs); got != 2 {
		t.Errorf("ProblemsSolved = %d, want 2", got)
	}
}

func TestCurrentStreak(t *testing.T) {
	now := testNow()
	subs := []model.Submission{
		sub(0, now, "OK", "Go", 1, "A"),
		sub(1, now, "WRONG_ANSWER", "Go", 1, "B"), // any verdict keeps the day
		sub(2, now, "OK", "Go", 1, "C"),
		sub(5, now, "OK", "Go", 1, "D"), // gap at day 3 and 4
	}
	if got := CurrentStreak(subs, now); got != 3 {
		t.Errorf("CurrentStreak = %d, want 3", got)
	}
}

func TestCurrentStreakNoSubmissionToday(t *testing.T) {
	now := testNow()
	subs := []model.Submission{
		sub(1, now, "OK", "Go", 1, "A"),
		sub(2, now, "OK", "Go", 1, "B"),
	}
	// A quiet today breaks the streak no matter how long yesterday's run was.
	if got := CurrentStreak(subs, now); got != 0 {
		t.Errorf("CurrentStreak = %d, want 0", got)
	}

	stale := []model.Submission{sub(3, now, "OK", "Go", 1, "A")}
	if got := CurrentStreak(stale, now); got != 0 {
		t.Errorf("CurrentStreak = %d, want 0", got)
	}
}

func TestCurrentStreakCappedAtLookback(t *testing.T) {
	now := testNow()
	var subs []model.Submission
	for i := 0; i < 45; i++ {
		subs = append(subs, sub(i, now, "OK", "Go", 1, "A"))
	}
	if got := CurrentStreak(subs, now); got != StreakLookbackDays {
		t.Errorf("CurrentStreak = %d, want %d", got, StreakLookbackDays)
	}
}

func TestTodayCounts(t *testing.T) {
	now := testNow()
	subs := []model.Submission{
		sub(0, now, "OK", "Go", 1, "A"),
		sub(0, now, "WRONG_ANSWER", "Go", 1, "B"),
		sub(0, now, "OK", "Go", 2, "A"),
		sub(1, now, "OK", "Go", 3, "A"), // yesterday
	}
	total, accepted := TodayCounts(subs, now)
	if total != 3 || accepted != 2 {
		t.Errorf("today = %d/%d, want 3/2", accepted, total)
	}
	total, accepted = TodayCounts(nil, now)
	if total != 0 || accepted != 0 {
		t.Errorf("empty today = %d/%d, want 0/0", accepted, total)
	}
}

func TestMaxStreak(t *testing.T) {
	now := testNow()
	subs := []model.Submission{
		sub(0, now, "OK", "Go", 1, "A"),
		sub(10, now, "OK", "Go", 1, "B"),
		sub(11, now, "OK", "Go", 1, "C"),
		sub(12, now, "OK", "Go", 1, "D"),
		sub(13, now, "OK", "Go", 1, "E"),
	}
	if got := MaxStreak(subs); got != 4 {
		t.Errorf("MaxStreak = %d, want 4", got)
	}
	if got := MaxStreak(nil); got != 0 {
		t.Errorf("MaxStreak(nil) = %d, want 0", got)
	}
}

func TestDailyCountsWindow(t *testing.T) {
	now := testNow()
	subs := []model.Submission{
		sub(0, now, "OK", "Go", 1, "A"),
		sub(0, now, "WRONG_ANSWER", "Go", 1, "B"),
		sub(29, now, "OK", "Go", 1, "C"),
		sub(45, now, "OK", "Go", 1, "D"), // outside the window
	}
	counts := DailyCounts(subs, 30, now)
	if len(counts) != 30 {
		t.Fatalf("len = %d, want 30", len(counts))
	}
	if counts[0].Count != 1 {
		t.Errorf("oldest day count = %d, want 1", counts[0].Count)
	}
	if counts[29].Count != 2 {
		t.Errorf("today count = %d, want 2", counts[29].Count)
	}
	total := 0
	for _, dc := range counts {
		total += dc.Count
	}
	if total != 3 {
		t.Errorf("window total = %d, want 3", total)
	}
	if !counts[0].Date.Before(counts[1].Date) {
		t.Error("days not ascending")
	}
}

func TestContestsParticipatedAndBestRank(t *testing.T) {
	changes := []model.RatingChange{
		{ContestID: 100, Rank: 25, OldRating: 1500, NewRating: 1560},
		{ContestID: 101, Rank: 7, OldRating: 1560, NewRating: 1620},
		{ContestID: 102, Rank: 250, OldRating: 1620, NewRating: 1590},
	}
	if got := ContestsParticipated(changes); got != 3 {
		t.Errorf("ContestsParticipated = %d, want 3", got)
	}
	if got := BestRank(changes); got != 7 {
		t.Errorf("BestRank = %d, want 7", got)
	}
	if got := BestRank(nil); got != 0 {
		t.Errorf("BestRank(nil) = %d, want 0", got)
	}
}

func TestBuildUserStats(t *testing.T) {
	now := testNow()
	subs := []model.Submission{
		sub(0, now, "OK", "GNU C++20", 1, "A", "dp"),
		sub(0, now, "WRONG_ANSWER", "GNU C++20", 1, "B"),
		sub(1, now, "OK", "Python 3", 2, "A", "math"),
		sub(2, now, "OK", "GNU C++20", 1, "A", "dp"), // duplicate problem
	}
	changes := []model.RatingChange{
		{ContestID: 10, Rank: 50, OldRating: 1400, NewRating: 1500},
	}
	stats := BuildUserStats(subs, changes, now)
	if stats.TotalSubmissions != 4 {
		t.Errorf("TotalSubmissions = %d", stats.TotalSubmissions)
	}
	if stats.ProblemsSolved != 2 {
		t.Errorf("ProblemsSolved = %d, want 2", stats.ProblemsSolved)
	}
	if stats.AcceptanceRate != 0.75 {
		t.Errorf("AcceptanceRate = %v, want 0.75", stats.AcceptanceRate)
	}
	if stats.CurrentStreak != 3 {
		t.Errorf("CurrentStreak = %d, want 3", stats.CurrentStreak)
	}
	if stats.ContestsParticipated != 1 || stats.BestRank != 50 {
		t.Errorf("contest stats = %d, %d", stats.ContestsParticipated, stats.BestRank)
	}
	if stats.TagCounts["dp"] != 2 {
		t.Errorf("tag dp = %d, want 2", stats.TagCounts["dp"])
	}
	if len(stats.DailyCounts) != StreakLookbackDays {
		t.Errorf("daily counts = %d", len(stats.DailyCounts))
	}
}

func TestRecentSummary(t *testing.T) {
	now := testNow()
	subs := []model.Submission{
		sub(0, now, "OK", "GNU C++20", 1, "A"),
		sub(1, now, "WRONG_ANSWER", "GNU C++20", 1, "A"),
		sub(2, now, "OK", "Python 3", 2, "B"),
		sub(3, now, "OK", "Python 3", 3, "C"),
	}
	sum := Recent(subs, 3)
	if sum.Window != 3 || sum.Accepted != 2 || sum.Distinct != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.TopLanguage != "GNU C++20" {
		t.Errorf("top language = %q", sum.TopLanguage)
	}
	if !sum.LastActivity.Equal(now.Truncate(time.Second)) {
		t.Errorf("last activity = %v", sum.LastActivity)
	}

	short := Recent(subs[:1], 10)
	if short.Window != 1 {
		t.Errorf("window = %d, want 1", short.Window)
	}
}
