// Package store persists contests, problems, submissions and rating
// performances, and answers which contests still need a rating pass.
package store

import (
	"context"

	"github.com/kashee337/ac_store/model"
)

const (
	// FirstAGCEpochSecond is the start of AGC001. Contests starting earlier
	// are never rated.
	FirstAGCEpochSecond int64 = 1468670400

	// UnratedState is the rate_change value of contests that never affect
	// rating.
	UnratedState = "-"
)

// EligibilityPolicy decides which contests a rating job may process.
type EligibilityPolicy struct {
	FirstAGCEpochSecond int64
	UnratedState        string
}

// DefaultEligibilityPolicy returns the AtCoder policy.
func DefaultEligibilityPolicy() EligibilityPolicy {
	return EligibilityPolicy{
		FirstAGCEpochSecond: FirstAGCEpochSecond,
		UnratedState:        UnratedState,
	}
}

// Eligible reports whether c passes the temporal and categorical filters.
// Whether c already has performances is decided by the store.
func (p EligibilityPolicy) Eligible(c model.Contest) bool {
	return c.StartEpochSecond >= p.FirstAGCEpochSecond && c.RateChange != p.UnratedState
}

// Store is the persistence gateway. Every write is a single all-or-nothing
// batch and returns the number of rows inserted or updated. Reads return
// rows in no particular order.
type Store interface {
	// InsertSubmissions upserts by id. On conflict only user_id, result,
	// point and execution_time are overwritten.
	InsertSubmissions(ctx context.Context, submissions []model.Submission) (int64, error)
	// InsertContests inserts contests; existing ids are left untouched.
	InsertContests(ctx context.Context, contests []model.Contest) (int64, error)
	// InsertProblems inserts problems; existing ids are left untouched.
	InsertProblems(ctx context.Context, problems []model.Problem) (int64, error)
	// InsertContestProblemPairs records which problems belong to which
	// contest. Existing pairs are left untouched.
	InsertContestProblemPairs(ctx context.Context, pairs []model.ContestProblem) (int64, error)
	// InsertPerformances inserts performances; a recorded (contest, user)
	// performance is never overwritten.
	InsertPerformances(ctx context.Context, performances []model.Performance) (int64, error)

	GetProblems(ctx context.Context) ([]model.Problem, error)
	GetContests(ctx context.Context) ([]model.Contest, error)
	GetSubmissions(ctx context.Context, userID string) ([]model.Submission, error)
	GetContestProblemPairs(ctx context.Context) ([]model.ContestProblem, error)
	GetPerformances(ctx context.Context, contestID string) ([]model.Performance, error)

	// GetContestsWithoutPerformances returns ids of eligible contests that
	// have no performance recorded for any user.
	GetContestsWithoutPerformances(ctx context.Context) ([]string, error)
}
