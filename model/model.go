package model

// Submission is one judged submission. ID is assigned by the judge.
type Submission struct {
	ID            int64   `gorm:"column:id;primary_key;auto_increment:false" json:"id"`
	EpochSecond   int64   `gorm:"column:epoch_second;not null" json:"epoch_second"`
	ProblemID     string  `gorm:"column:problem_id;not null" json:"problem_id"`
	ContestID     string  `gorm:"column:contest_id;not null" json:"contest_id"`
	UserID        string  `gorm:"column:user_id;not null;index" json:"user_id"`
	Language      string  `gorm:"column:language;not null" json:"language"`
	Point         float64 `gorm:"column:point;not null" json:"point"`
	Length        int64   `gorm:"column:length;not null" json:"length"`
	Result        string  `gorm:"column:result;not null" json:"result"`
	ExecutionTime *int64  `gorm:"column:execution_time" json:"execution_time"`
}

type Contest struct {
	ID               string `gorm:"column:id;primary_key" json:"id"`
	StartEpochSecond int64  `gorm:"column:start_epoch_second;not null" json:"start_epoch_second"`
	DurationSecond   int64  `gorm:"column:duration_second;not null" json:"duration_second"`
	Title            string `gorm:"column:title;not null" json:"title"`
	RateChange       string `gorm:"column:rate_change;not null" json:"rate_change"`
}

type Problem struct {
	ID        string `gorm:"column:id;primary_key" json:"id"`
	ContestID string `gorm:"column:contest_id;not null" json:"contest_id"`
	Title     string `gorm:"column:title;not null" json:"title"`
}

// ContestProblem records that a problem is part of a contest.
type ContestProblem struct {
	ContestID string `gorm:"column:contest_id;primary_key" json:"contest_id"`
	ProblemID string `gorm:"column:problem_id;primary_key" json:"problem_id"`
}

func (ContestProblem) TableName() string {
	return "contest_problem"
}

// Performance is the rating performance of one user in one contest.
// Once recorded it is never revised.
type Performance struct {
	ContestID        string `gorm:"column:contest_id;primary_key" json:"contest_id"`
	UserID           string `gorm:"column:user_id;primary_key" json:"user_id"`
	InnerPerformance int64  `gorm:"column:inner_performance;not null" json:"inner_performance"`
}

type Payload struct {
	Text string `json:"text"`
}
