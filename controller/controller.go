package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/kashee337/ac_store/logger"
	"github.com/kashee337/ac_store/model"
	"github.com/kashee337/ac_store/store"
)

// Sources holds judge JSON dumps in AtCoder Problems format.
// A nil reader is skipped.
type Sources struct {
	Contests     io.Reader
	Problems     io.Reader
	Submissions  io.Reader
	Performances io.Reader
}

// Report counts rows inserted or updated per table.
type Report struct {
	Contests     int64
	Problems     int64
	Pairs        int64
	Submissions  int64
	Performances int64
}

func decode(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}

// Ingest writes every given dump through st. Contests are written before
// problems so pairs derived from problems refer to known contests.
func Ingest(ctx context.Context, st store.Store, src Sources, log logger.Logger) (Report, error) {
	var report Report
	if log == nil {
		log = logger.Nop()
	}

	if src.Contests != nil {
		contest_list := []model.Contest{}
		if err := decode(src.Contests, &contest_list); err != nil {
			return report, fmt.Errorf("decode contests: %w", err)
		}
		n, err := st.InsertContests(ctx, contest_list)
		if err != nil {
			return report, fmt.Errorf("insert contests: %w", err)
		}
		report.Contests = n
		log.Info(ctx, "contests ingested", logger.Int("read", len(contest_list)), logger.Int64("inserted", n))
	}

	if src.Problems != nil {
		problem_list := []model.Problem{}
		if err := decode(src.Problems, &problem_list); err != nil {
			return report, fmt.Errorf("decode problems: %w", err)
		}
		n, err := st.InsertProblems(ctx, problem_list)
		if err != nil {
			return report, fmt.Errorf("insert problems: %w", err)
		}
		report.Problems = n

		pairs := make([]model.ContestProblem, 0, len(problem_list))
		for _, problem := range problem_list {
			if problem.ContestID == "" {
				continue
			}
			pairs = append(pairs, model.ContestProblem{ContestID: problem.ContestID, ProblemID: problem.ID})
		}
		n, err = st.InsertContestProblemPairs(ctx, pairs)
		if err != nil {
			return report, fmt.Errorf("insert contest problem pairs: %w", err)
		}
		report.Pairs = n
		log.Info(ctx, "problems ingested",
			logger.Int("read", len(problem_list)),
			logger.Int64("inserted", report.Problems),
			logger.Int64("pairs", report.Pairs),
		)
	}

	if src.Submissions != nil {
		sub_list := []model.Submission{}
		if err := decode(src.Submissions, &sub_list); err != nil {
			return report, fmt.Errorf("decode submissions: %w", err)
		}
		n, err := st.InsertSubmissions(ctx, sub_list)
		if err != nil {
			return report, fmt.Errorf("insert submissions: %w", err)
		}
		report.Submissions = n
		log.Info(ctx, "submissions ingested", logger.Int("read", len(sub_list)), logger.Int64("upserted", n))
	}

	if src.Performances != nil {
		performance_list := []model.Performance{}
		if err := decode(src.Performances, &performance_list); err != nil {
			return report, fmt.Errorf("decode performances: %w", err)
		}
		n, err := st.InsertPerformances(ctx, performance_list)
		if err != nil {
			return report, fmt.Errorf("insert performances: %w", err)
		}
		report.Performances = n
		log.Info(ctx, "performances ingested", logger.Int("read", len(performance_list)), logger.Int64("inserted", n))
	}

	return report, nil
}

// PendingContests returns the contests still waiting for a rating pass,
// sorted by id.
func PendingContests(ctx context.Context, st store.Store) ([]string, error) {
	ids, err := st.GetContestsWithoutPerformances(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending contests: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}
