package store

import (
	"fmt"
	"strings"

	"github.com/jinzhu/gorm"
)

// maxBindVariables is SQLITE_MAX_VARIABLE_NUMBER of SQLite builds before
// 3.32. Larger batches are split into several statements.
const maxBindVariables = 999

// upsert describes a conflict-aware batch insert into one table. Rows
// colliding on conflict get the overwrite columns replaced by the incoming
// values; every other column keeps its stored value. An empty overwrite
// list means the incoming row is dropped.
type upsert struct {
	table     string
	columns   []string
	conflict  []string
	overwrite []string
}

var (
	submissionUpsert = upsert{
		table: "submissions",
		columns: []string{
			"id", "epoch_second", "problem_id", "contest_id", "user_id",
			"language", "point", "length", "result", "execution_time",
		},
		conflict:  []string{"id"},
		overwrite: []string{"user_id", "result", "point", "execution_time"},
	}
	contestUpsert = upsert{
		table:    "contests",
		columns:  []string{"id", "start_epoch_second", "duration_second", "title", "rate_change"},
		conflict: []string{"id"},
	}
	problemUpsert = upsert{
		table:    "problems",
		columns:  []string{"id", "contest_id", "title"},
		conflict: []string{"id"},
	}
	contestProblemUpsert = upsert{
		table:    "contest_problem",
		columns:  []string{"contest_id", "problem_id"},
		conflict: []string{"contest_id", "problem_id"},
	}
	performanceUpsert = upsert{
		table:    "performances",
		columns:  []string{"contest_id", "user_id", "inner_performance"},
		conflict: []string{"contest_id", "user_id"},
	}
)

// validate checks that the policy only overwrites inserted, non-key columns.
func (u upsert) validate() error {
	inserted := make(map[string]bool, len(u.columns))
	for _, c := range u.columns {
		inserted[c] = true
	}
	key := make(map[string]bool, len(u.conflict))
	for _, c := range u.conflict {
		if !inserted[c] {
			return fmt.Errorf("%s: conflict column %q is not inserted", u.table, c)
		}
		key[c] = true
	}
	for _, c := range u.overwrite {
		if !inserted[c] {
			return fmt.Errorf("%s: overwrite column %q is not inserted", u.table, c)
		}
		if key[c] {
			return fmt.Errorf("%s: overwrite column %q is part of the conflict key", u.table, c)
		}
	}
	return nil
}

// rowsPerStatement is how many rows fit under the bind variable limit.
func (u upsert) rowsPerStatement() int {
	return maxBindVariables / len(u.columns)
}

// statement renders the INSERT for n rows.
func (u upsert) statement(n int) string {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(u.columns)), ", ") + ")"
	values := make([]string, n)
	for i := range values {
		values[i] = placeholder
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) ",
		u.table,
		strings.Join(u.columns, ", "),
		strings.Join(values, ", "),
		strings.Join(u.conflict, ", "),
	)
	if len(u.overwrite) == 0 {
		b.WriteString("DO NOTHING")
		return b.String()
	}
	set := make([]string, len(u.overwrite))
	for i, c := range u.overwrite {
		set[i] = c + " = excluded." + c
	}
	b.WriteString("DO UPDATE SET ")
	b.WriteString(strings.Join(set, ", "))
	return b.String()
}

// exec writes rows through tx, one statement per chunk, and returns the
// total number of inserted or updated rows.
func (u upsert) exec(tx *gorm.DB, rows [][]interface{}) (int64, error) {
	var affected int64
	size := u.rowsPerStatement()
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		args := make([]interface{}, 0, len(chunk)*len(u.columns))
		for _, row := range chunk {
			if len(row) != len(u.columns) {
				return affected, fmt.Errorf("%s: row has %d values, want %d", u.table, len(row), len(u.columns))
			}
			args = append(args, row...)
		}
		res := tx.Exec(u.statement(len(chunk)), args...)
		if res.Error != nil {
			return affected, res.Error
		}
		affected += res.RowsAffected
	}
	return affected, nil
}
