package cache

// Well-known keys. Per-handle snapshots derive from the helpers below so the
// whole cache for one user can be invalidated in one call.
const (
	KeySavedHandle        = "saved_handle"
	KeyCachedContests     = "cached_contests"
	KeyProblemNotes       = "problem_notes"
	KeyReviewLater        = "review_later_problems"
	KeyProblemSolutions   = "problem_solutions"
	KeyLeaderboardHandles = "leaderboard_handles"
	KeyLeaderboardRatings = "leaderboard_ratings"
	KeyTagCache           = "gemini_tag_cache"
)

func ProfileKey(handle string) string     { return "cached_profile_" + handle }
func RatingKey(handle string) string      { return "cached_rating_" + handle }
func SubmissionsKey(handle string) string { return "cached_submissions_" + handle }

// ProblemsKey caches one tag combination of the problemset; the empty
// combination is the full set.
func ProblemsKey(joinedTags string) string {
	if joinedTags == "" {
		return "cached_problems"
	}
	return "cached_problems:" + joinedTags
}

// HandleKeys lists every snapshot key tied to a single handle.
func HandleKeys(handle string) []string {
	return []string{ProfileKey(handle), RatingKey(handle), SubmissionsKey(handle)}
}
