package model

import (
	"fmt"
	"strconv"
	"time"
)

// Envelope is the {status, result} wrapper every Codeforces API response
// uses. Status is "OK" on success; anything else means the call logically
// failed even when HTTP succeeded.
type Envelope[T any] struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
	Result  T      `json:"result"`
}

const StatusOK = "OK"

// VerdictAccepted is the only verdict value that counts as solved.
const VerdictAccepted = "OK"

// UserProfile mirrors the user.info result entry. Immutable once fetched;
// replaced wholesale on refetch.
type UserProfile struct {
	Handle                  string `json:"handle"`
	Email                   string `json:"email,omitempty"`
	FirstName               string `json:"firstName,omitempty"`
	LastName                string `json:"lastName,omitempty"`
	Country                 string `json:"country,omitempty"`
	City                    string `json:"city,omitempty"`
	Organization            string `json:"organization,omitempty"`
	Contribution            int    `json:"contribution"`
	Rank                    string `json:"rank"`
	Rating                  int    `json:"rating"`
	MaxRank                 string `json:"maxRank"`
	MaxRating               int    `json:"maxRating"`
	LastOnlineTimeSeconds   int64  `json:"lastOnlineTimeSeconds"`
	RegistrationTimeSeconds int64  `json:"registrationTimeSeconds"`
	FriendOfCount           int    `json:"friendOfCount"`
	Avatar                  string `json:"avatar"`
	TitlePhoto              string `json:"titlePhoto"`
}

// DisplayName prefers "First Last" and falls back to the handle.
func (u UserProfile) DisplayName() string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.Handle
}

func (u UserProfile) RegistrationTime() time.Time {
	return time.Unix(u.RegistrationTimeSeconds, 0)
}

func (u UserProfile) LastOnlineTime() time.Time {
	return time.Unix(u.LastOnlineTimeSeconds, 0)
}

// RatingChange mirrors one user.rating result entry.
type RatingChange struct {
	ContestID               int    `json:"contestId"`
	ContestName             string `json:"contestName"`
	Handle                  string `json:"handle"`
	Rank                    int    `json:"rank"`
	RatingUpdateTimeSeconds int64  `json:"ratingUpdateTimeSeconds"`
	OldRating               int    `json:"oldRating"`
	NewRating               int    `json:"newRating"`
}

// Delta is always recomputed from the two ratings, never stored.
func (r RatingChange) Delta() int {
	return r.NewRating - r.OldRating
}

func (r RatingChange) UpdateTime() time.Time {
	return time.Unix(r.RatingUpdateTimeSeconds, 0)
}

// Problem mirrors a problemset/submission problem. ContestID is nil for
// standalone problemset entries, Rating is nil for unrated problems.
type Problem struct {
	ContestID      *int     `json:"contestId,omitempty"`
	ProblemsetName string   `json:"problemsetName,omitempty"`
	Index          string   `json:"index"`
	Name           string   `json:"name"`
	Type           string   `json:"type,omitempty"`
	Points         *float64 `json:"points,omitempty"`
	Rating         *int     `json:"rating,omitempty"`
	Tags           []string `json:"tags"`
}

// Key is the composite identity used to associate notes, bookmarks and
// solutions with a problem across submissions: "<contestId>_<index>" when the
// contest id is present, the bare index otherwise.
func (p Problem) Key() string {
	if p.ContestID != nil {
		return strconv.Itoa(*p.ContestID) + "_" + p.Index
	}
	return p.Index
}

// URL points at the canonical problem page.
func (p Problem) URL() string {
	if p.ContestID != nil {
		return fmt.Sprintf("https://codeforces.com/contest/%d/problem/%s", *p.ContestID, p.Index)
	}
	return "https://codeforces.com/problemset/problem/" + p.Index
}

// ProblemStatistic accompanies each problemset entry.
type ProblemStatistic struct {
	ContestID   *int   `json:"contestId,omitempty"`
	Index       string `json:"index"`
	SolvedCount int    `json:"solvedCount"`
}

// ProblemsetResult is the problemset.problems result shape.
type ProblemsetResult struct {
	Problems          []Problem          `json:"problems"`
	ProblemStatistics []ProblemStatistic `json:"problemStatistics"`
}

// Submission mirrors one user.status result entry. The creation timestamp
// doubles as identity; Verdict is empty while the submission is still judging.
type Submission struct {
	ID                  int64      `json:"id"`
	ContestID           *int       `json:"contestId,omitempty"`
	CreationTimeSeconds int64      `json:"creationTimeSeconds"`
	RelativeTimeSeconds int64      `json:"relativeTimeSeconds"`
	Problem             Problem    `json:"problem"`
	Author              *Party     `json:"author,omitempty"`
	ProgrammingLanguage string     `json:"programmingLanguage"`
	Verdict             string     `json:"verdict,omitempty"`
	Testset             string     `json:"testset,omitempty"`
	PassedTestCount     int        `json:"passedTestCount"`
	TimeConsumedMillis  int        `json:"timeConsumedMillis"`
	MemoryConsumedBytes int64      `json:"memoryConsumedBytes"`
}

func (s Submission) Time() time.Time {
	return time.Unix(s.CreationTimeSeconds, 0)
}

func (s Submission) Accepted() bool {
	return s.Verdict == VerdictAccepted
}

// ShortVerdict is the compact display code for histograms; submissions still
// judging (empty verdict) fall into the UNKNOWN bucket, unrecognized verdicts
// keep their raw value.
func (s Submission) ShortVerdict() string {
	switch s.Verdict {
	case VerdictAccepted:
		return "AC"
	case "WRONG_ANSWER":
		return "WA"
	case "TIME_LIMIT_EXCEEDED":
		return "TLE"
	case "MEMORY_LIMIT_EXCEEDED":
		return "MLE"
	case "RUNTIME_ERROR":
		return "RTE"
	case "COMPILATION_ERROR":
		return "CE"
	case "PRESENTATION_ERROR":
		return "PE"
	case "IDLENESS_LIMIT_EXCEEDED":
		return "ILE"
	case "SECURITY_VIOLATED":
		return "SV"
	case "CHALLENGED":
		return "HACK"
	case "SKIPPED":
		return "SKIP"
	case "TESTING":
		return "TESTING"
	case "REJECTED":
		return "REJECTED"
	case "":
		return "UNKNOWN"
	default:
		return s.Verdict
	}
}

// Party mirrors the author block on a submission.
type Party struct {
	ContestID        *int     `json:"contestId,omitempty"`
	Members          []Member `json:"members"`
	ParticipantType  string   `json:"participantType"`
	Ghost            bool     `json:"ghost"`
	Room             *int     `json:"room,omitempty"`
	StartTimeSeconds *int64   `json:"startTimeSeconds,omitempty"`
}

type Member struct {
	Handle string `json:"handle"`
	Name   string `json:"name,omitempty"`
}

// Contest phases as the API enumerates them.
const (
	PhaseBefore            = "BEFORE"
	PhaseCoding            = "CODING"
	PhasePendingSystemTest = "PENDING_SYSTEM_TEST"
	PhaseSystemTest        = "SYSTEM_TEST"
	PhaseFinished          = "FINISHED"
)

// Contest mirrors one contest.list result entry. StartTimeSeconds is nil for
// contests without a published start.
type Contest struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	Type                string `json:"type"`
	Phase               string `json:"phase"`
	Frozen              bool   `json:"frozen"`
	DurationSeconds     int64  `json:"durationSeconds"`
	StartTimeSeconds    *int64 `json:"startTimeSeconds,omitempty"`
	RelativeTimeSeconds *int64 `json:"relativeTimeSeconds,omitempty"`
}

func (c Contest) Upcoming() bool {
	return c.Phase == PhaseBefore
}

// StartTime reports the scheduled start, ok=false when unpublished.
func (c Contest) StartTime() (time.Time, bool) {
	if c.StartTimeSeconds == nil {
		return time.Time{}, false
	}
	return time.Unix(*c.StartTimeSeconds, 0), true
}

// EndTime is derived from start + duration when the start is known.
func (c Contest) EndTime() (time.Time, bool) {
	start, ok := c.StartTime()
	if !ok {
		return time.Time{}, false
	}
	return start.Add(time.Duration(c.DurationSeconds) * time.Second), true
}

func (c Contest) URL() string {
	return fmt.Sprintf("https://codeforces.com/contest/%d", c.ID)
}
