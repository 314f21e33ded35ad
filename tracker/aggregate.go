package tracker

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wardenfield/robot-pulse/tracker/logging"
	"github.com/wardenfield/robot-pulse/tracker/store"
)

const createWeeklySequenceSQL = `
CREATE SEQUENCE IF NOT EXISTS seq_weekly_id START 1`

const createWeeklyTableSQL = `
CREATE TABLE IF NOT EXISTS weekly_post_metrics (
	id INTEGER PRIMARY KEY,
	humanoid TEXT,
	n_posts INTEGER,
	avg_score DOUBLE PRECISION,
	avg_comments DOUBLE PRECISION,
	partition_date VARCHAR(10)
)`

const deleteWeeklyByRangeSQL = `
DELETE FROM weekly_post_metrics
WHERE partition_date >= $1 AND partition_date < $2`

const insertWeeklySQL = `
INSERT INTO weekly_post_metrics (id, humanoid, n_posts, avg_score, avg_comments, partition_date)
SELECT
	nextval('seq_weekly_id'),
	humanoid,
	COUNT(*),
	ROUND(AVG(score)::numeric, 2),
	ROUND(AVG(n_comments)::numeric, 2),
	$3
FROM posts
WHERE created_utc >= $1 AND created_utc < $2
GROUP BY humanoid`

const selectWeeklyByKeySQL = `
SELECT humanoid, n_posts, avg_score, avg_comments
FROM weekly_post_metrics
WHERE partition_date = $1`

// AggregateWeekly fully recomputes the week's per-category metrics from the posts table.
// The week's existing rows are deleted and freshly grouped counts and averages inserted
// in one idempotent batch; correctness assumes every day of the week is already ingested
// and classified. The recomputed rows are read back for observability.
func AggregateWeekly(ctx context.Context, env *RunEnv, p Partition) error {
	weekStart, weekEnd := p.WeekWindow()
	weekStartKey := weekStart.Format(PartitionKeyLayout)
	weekEndKey := weekEnd.Format(PartitionKeyLayout)

	stmts := []store.Stmt{
		{SQL: createWeeklySequenceSQL},
		{SQL: createWeeklyTableSQL},
		{SQL: deleteWeeklyByRangeSQL, Args: []any{weekStartKey, weekEndKey}},
		{SQL: insertWeeklySQL, Args: []any{weekStart.Unix(), weekEnd.Unix(), weekStartKey}},
	}
	if err := env.Store.ExecBatch(ctx, stmts); err != nil {
		return fmt.Errorf("aggregate week %s: %w", weekStartKey, err)
	}

	rows, err := SelectWeeklyMetrics(ctx, env, weekStartKey)
	if err != nil {
		return err
	}

	total := 0
	fields := logging.Fields{"partition": p.Key, "week_start": weekStartKey}
	for _, r := range rows {
		total += r.NPosts
		fields["n_posts_"+r.Humanoid] = r.NPosts
		fields["avg_score_"+r.Humanoid] = r.AvgScore
		fields["avg_comments_"+r.Humanoid] = r.AvgComments
	}
	fields["n_posts_total"] = total
	env.Logger.WithFields(fields).Info("weekly metrics recomputed")
	return nil
}

// SelectWeeklyMetrics returns the aggregated rows for one week-start key.
func SelectWeeklyMetrics(ctx context.Context, env *RunEnv, weekStartKey string) ([]WeeklyMetricRow, error) {
	var rows []WeeklyMetricRow
	err := env.Store.Query(ctx, selectWeeklyByKeySQL, []any{weekStartKey}, func(r *sql.Rows) error {
		rows = rows[:0]
		for r.Next() {
			row := WeeklyMetricRow{WeekStart: weekStartKey}
			if err := r.Scan(&row.Humanoid, &row.NPosts, &row.AvgScore, &row.AvgComments); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("select weekly metrics for %s: %w", weekStartKey, err)
	}
	return rows, nil
}

const selectAllWeeklySQL = `
SELECT humanoid, n_posts, avg_score, avg_comments, partition_date
FROM weekly_post_metrics`

// SelectAllWeeklyMetrics returns every aggregated row, for the weekly trend plot.
func SelectAllWeeklyMetrics(ctx context.Context, env *RunEnv) ([]WeeklyMetricRow, error) {
	var rows []WeeklyMetricRow
	err := env.Store.Query(ctx, selectAllWeeklySQL, nil, func(r *sql.Rows) error {
		rows = rows[:0]
		for r.Next() {
			var row WeeklyMetricRow
			if err := r.Scan(&row.Humanoid, &row.NPosts, &row.AvgScore, &row.AvgComments, &row.WeekStart); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("select weekly metrics: %w", err)
	}
	return rows, nil
}
