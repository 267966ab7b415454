package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kashee337/ac_store/logger"
	"github.com/kashee337/ac_store/metrics"
	"github.com/kashee337/ac_store/model"
)

const DBMS = "sqlite3"

// Operation names, used for errors, logs and metric labels.
const (
	OpInsertSubmissions              = "insert_submissions"
	OpInsertContests                 = "insert_contests"
	OpInsertProblems                 = "insert_problems"
	OpInsertContestProblemPairs      = "insert_contest_problem_pairs"
	OpInsertPerformances             = "insert_performances"
	OpGetProblems                    = "get_problems"
	OpGetContests                    = "get_contests"
	OpGetSubmissions                 = "get_submissions"
	OpGetContestProblemPairs         = "get_contest_problem_pairs"
	OpGetPerformances                = "get_performances"
	OpGetContestsWithoutPerformances = "get_contests_without_performances"
	opOpen                           = "open"
)

// SQLiteStore is a Store backed by a SQLite file through gorm.
// It is safe for concurrent use.
type SQLiteStore struct {
	db       *gorm.DB
	policy   EligibilityPolicy
	log      logger.Logger
	metrics  *metrics.Recorder
	sqlTrace bool
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithEligibilityPolicy replaces the default AtCoder eligibility policy.
func WithEligibilityPolicy(p EligibilityPolicy) Option {
	return func(s *SQLiteStore) { s.policy = p }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics records every operation on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *SQLiteStore) { s.metrics = r }
}

// WithSQLTrace logs every statement gorm runs at debug level.
func WithSQLTrace(enabled bool) Option {
	return func(s *SQLiteStore) { s.sqlTrace = enabled }
}

// Open opens (creating if needed) the SQLite database at path and creates
// any missing table.
func Open(path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, malformed(opOpen, "storage path is required")
	}
	s := &SQLiteStore{
		policy: DefaultEligibilityPolicy(),
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, wrap(opOpen, fmt.Errorf("resolve storage path: %w", err))
	}
	// '?' and '#' in the file name must not reach the driver unescaped.
	dsn := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: "_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate",
	}
	db, err := gorm.Open(DBMS, dsn.String())
	if err != nil {
		return nil, wrap(opOpen, fmt.Errorf("open sqlite db: %w", err))
	}
	db.SetLogger(logger.GormWriter{Logger: s.log.Named("gorm")})
	db.LogMode(s.sqlTrace)

	if err := db.AutoMigrate(
		&model.Submission{},
		&model.Contest{},
		&model.Problem{},
		&model.ContestProblem{},
		&model.Performance{},
	).Error; err != nil {
		_ = db.Close()
		return nil, wrap(opOpen, fmt.Errorf("create tables: %w", err))
	}
	s.db = db
	return s, nil
}

// Close closes the underlying connection pool.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertSubmissions upserts submissions by id.
func (s *SQLiteStore) InsertSubmissions(ctx context.Context, submissions []model.Submission) (int64, error) {
	rows := make([][]interface{}, len(submissions))
	for i, sub := range submissions {
		if math.IsNaN(sub.Point) || math.IsInf(sub.Point, 0) {
			return 0, malformed(OpInsertSubmissions, "submission %d: point is not finite", sub.ID)
		}
		if sub.Length < 0 {
			return 0, malformed(OpInsertSubmissions, "submission %d: negative length", sub.ID)
		}
		if sub.ExecutionTime != nil && *sub.ExecutionTime < 0 {
			return 0, malformed(OpInsertSubmissions, "submission %d: negative execution time", sub.ID)
		}
		rows[i] = []interface{}{
			sub.ID, sub.EpochSecond, sub.ProblemID, sub.ContestID, sub.UserID,
			sub.Language, sub.Point, sub.Length, sub.Result, sub.ExecutionTime,
		}
	}
	return s.write(ctx, OpInsertSubmissions, submissionUpsert, rows)
}

func (s *SQLiteStore) InsertContests(ctx context.Context, contests []model.Contest) (int64, error) {
	rows := make([][]interface{}, len(contests))
	for i, c := range contests {
		if c.ID == "" {
			return 0, malformed(OpInsertContests, "contest %d: id is required", i)
		}
		rows[i] = []interface{}{c.ID, c.StartEpochSecond, c.DurationSecond, c.Title, c.RateChange}
	}
	return s.write(ctx, OpInsertContests, contestUpsert, rows)
}

func (s *SQLiteStore) InsertProblems(ctx context.Context, problems []model.Problem) (int64, error) {
	rows := make([][]interface{}, len(problems))
	for i, p := range problems {
		if p.ID == "" {
			return 0, malformed(OpInsertProblems, "problem %d: id is required", i)
		}
		rows[i] = []interface{}{p.ID, p.ContestID, p.Title}
	}
	return s.write(ctx, OpInsertProblems, problemUpsert, rows)
}

func (s *SQLiteStore) InsertContestProblemPairs(ctx context.Context, pairs []model.ContestProblem) (int64, error) {
	rows := make([][]interface{}, len(pairs))
	for i, p := range pairs {
		if p.ContestID == "" || p.ProblemID == "" {
			return 0, malformed(OpInsertContestProblemPairs, "pair %d: contest id and problem id are required", i)
		}
		rows[i] = []interface{}{p.ContestID, p.ProblemID}
	}
	return s.write(ctx, OpInsertContestProblemPairs, contestProblemUpsert, rows)
}

func (s *SQLiteStore) InsertPerformances(ctx context.Context, performances []model.Performance) (int64, error) {
	rows := make([][]interface{}, len(performances))
	for i, p := range performances {
		if p.ContestID == "" || p.UserID == "" {
			return 0, malformed(OpInsertPerformances, "performance %d: contest id and user id are required", i)
		}
		rows[i] = []interface{}{p.ContestID, p.UserID, p.InnerPerformance}
	}
	return s.write(ctx, OpInsertPerformances, performanceUpsert, rows)
}

func (s *SQLiteStore) GetProblems(ctx context.Context) ([]model.Problem, error) {
	problems := []model.Problem{}
	err := s.read(ctx, OpGetProblems, func() error {
		return s.db.Find(&problems).Error
	})
	return problems, err
}

func (s *SQLiteStore) GetContests(ctx context.Context) ([]model.Contest, error) {
	contests := []model.Contest{}
	err := s.read(ctx, OpGetContests, func() error {
		return s.db.Find(&contests).Error
	})
	return contests, err
}

func (s *SQLiteStore) GetSubmissions(ctx context.Context, userID string) ([]model.Submission, error) {
	submissions := []model.Submission{}
	err := s.read(ctx, OpGetSubmissions, func() error {
		return s.db.Where("user_id = ?", userID).Find(&submissions).Error
	})
	return submissions, err
}

func (s *SQLiteStore) GetContestProblemPairs(ctx context.Context) ([]model.ContestProblem, error) {
	pairs := []model.ContestProblem{}
	err := s.read(ctx, OpGetContestProblemPairs, func() error {
		return s.db.Find(&pairs).Error
	})
	return pairs, err
}

func (s *SQLiteStore) GetPerformances(ctx context.Context, contestID string) ([]model.Performance, error) {
	performances := []model.Performance{}
	err := s.read(ctx, OpGetPerformances, func() error {
		return s.db.Where("contest_id = ?", contestID).Find(&performances).Error
	})
	return performances, err
}

// GetContestsWithoutPerformances runs the anti-join against performances
// together with the policy's era and rate_change filters as one query.
func (s *SQLiteStore) GetContestsWithoutPerformances(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := s.read(ctx, OpGetContestsWithoutPerformances, func() error {
		return s.db.Table("contests").
			Joins("LEFT JOIN performances ON performances.contest_id = contests.id").
			Where("performances.contest_id IS NULL").
			Where("contests.start_epoch_second >= ?", s.policy.FirstAGCEpochSecond).
			Where("contests.rate_change <> ?", s.policy.UnratedState).
			Pluck("contests.id", &ids).Error
	})
	return ids, err
}

// write runs one batch in a single transaction.
func (s *SQLiteStore) write(ctx context.Context, op string, u upsert, rows [][]interface{}) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	start := time.Now()
	var affected int64
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		n, err := u.exec(tx, rows)
		affected = n
		return err
	})
	if err != nil {
		affected = 0
	}
	err = wrap(op, err)
	s.observe(ctx, op, start, err)
	if err == nil {
		s.metrics.AddRows(op, affected)
		s.log.Debug(ctx, "batch written",
			logger.String("operation", op),
			logger.Int("rows", len(rows)),
			logger.Int64("affected", affected),
			logger.Float64("seconds", time.Since(start).Seconds()),
		)
	}
	return affected, err
}

func (s *SQLiteStore) read(ctx context.Context, op string, query func() error) error {
	start := time.Now()
	err := ctx.Err()
	if err == nil {
		err = query()
	}
	err = wrap(op, err)
	s.observe(ctx, op, start, err)
	return err
}

// withTx mirrors gorm's Transaction but binds ctx to the transaction.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := s.db.BeginTx(ctx, &sql.TxOptions{})
	if tx.Error != nil {
		return tx.Error
	}
	panicked := true
	defer func() {
		if panicked {
			tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		panicked = false
		if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log.Warn(ctx, "rollback failed", logger.Error(rbErr))
		}
		return err
	}
	panicked = false
	return tx.Commit().Error
}

func (s *SQLiteStore) observe(ctx context.Context, op string, start time.Time, err error) {
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
		s.log.Error(ctx, "store operation failed",
			logger.String("operation", op),
			logger.Error(err),
		)
	}
	s.metrics.ObserveOperation(op, outcome, time.Since(start))
}

var _ Store = (*SQLiteStore)(nil)
