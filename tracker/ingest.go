package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/wardenfield/robot-pulse/tracker/logging"
	"github.com/wardenfield/robot-pulse/tracker/reddit"
	"github.com/wardenfield/robot-pulse/tracker/retry"
	"github.com/wardenfield/robot-pulse/tracker/store"
)

const createPostsTableSQL = `
CREATE TABLE IF NOT EXISTS posts (
	post_id TEXT PRIMARY KEY,
	humanoid TEXT DEFAULT NULL,
	subreddit TEXT,
	title TEXT,
	permalink TEXT,
	url TEXT,
	created_utc BIGINT,
	created_local TEXT,
	score INTEGER,
	n_comments INTEGER,
	partition_date VARCHAR(10)
)`

const deletePostsByWindowSQL = `
DELETE FROM posts
WHERE created_utc >= $1 AND created_utc < $2`

const insertPostSQL = `
INSERT INTO posts (post_id, humanoid, subreddit, title, permalink, url, created_utc, created_local, score, n_comments, partition_date)
VALUES ($1, NULL, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// IngestPosts fetches the newest listing page of every configured subreddit, keeps the
// items whose creation instant falls inside the partition window, and replaces the
// window's rows in one idempotent delete-then-insert batch. Listing fetches retry only
// on upstream server errors; anything else aborts the stage.
func IngestPosts(ctx context.Context, env *RunEnv, p Partition) error {
	start, end := p.Window()
	startTS, endTS := start.Unix(), end.Unix()

	var batch []reddit.Post
	for _, sub := range env.Subreddits {
		spec := env.ListingRetry
		spec.OnRetry = func(err error, attempt int) {
			env.Logger.WithError(err).WithFields(logging.Fields{
				"subreddit": sub,
				"attempt":   attempt,
			}).Warn("retrying subreddit listing after server error")
		}
		posts, err := retry.Do(ctx, spec, reddit.IsServerError, func() ([]reddit.Post, error) {
			return env.Reddit.ListNew(ctx, sub, env.ListingLimit)
		})
		if err != nil {
			return fmt.Errorf("fetch r/%s: %w", sub, err)
		}
		env.Logger.WithFields(logging.Fields{
			"subreddit": sub,
			"fetched":   len(posts),
		}).Debug("fetched subreddit listing")

		for _, post := range posts {
			// Inclusive on both ends of the raw timestamps, matching the window's
			// one-second granularity.
			ts := int64(post.CreatedUTC)
			if ts >= startTS && ts <= endTS {
				batch = append(batch, post)
			}
		}
	}

	env.Logger.WithFields(logging.Fields{
		"partition": p.Key,
		"fetched":   len(batch),
	}).Info("fetched posts in partition window")

	stmts := []store.Stmt{
		{SQL: createPostsTableSQL},
		{SQL: deletePostsByWindowSQL, Args: []any{startTS, endTS}},
	}
	for _, post := range batch {
		ts := int64(post.CreatedUTC)
		createdLocal := time.Unix(ts, 0).In(env.Loc()).Format(localTimeLayout)
		stmts = append(stmts, store.Stmt{
			SQL: insertPostSQL,
			Args: []any{
				post.ID, post.Subreddit, post.Title, post.Permalink, post.URL,
				ts, createdLocal, post.Score, post.NumComments, p.Key,
			},
		})
	}
	// An empty batch still runs the delete so a re-run that now sees no rows clears
	// stale ones.
	return env.Store.ExecBatch(ctx, stmts)
}

const selectTitlesByWindowSQL = `
SELECT post_id, title
FROM posts
WHERE created_utc >= $1 AND created_utc < $2`

const updateLabelSQL = `
UPDATE posts SET humanoid = $2 WHERE post_id = $1`

// ClassifyPosts labels every post in the partition window. Classification is pure and
// in-memory; the single windowed write batch assigns all labels at once.
func ClassifyPosts(ctx context.Context, env *RunEnv, p Partition) error {
	start, end := p.Window()
	startTS, endTS := start.Unix(), end.Unix()

	type row struct {
		id    string
		title string
	}
	var rows []row
	err := env.Store.Query(ctx, selectTitlesByWindowSQL, []any{startTS, endTS}, func(r *sql.Rows) error {
		rows = rows[:0]
		for r.Next() {
			var pr row
			if err := r.Scan(&pr.id, &pr.title); err != nil {
				return err
			}
			rows = append(rows, pr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("select partition titles: %w", err)
	}

	counts := make(map[string]int)
	stmts := make([]store.Stmt, 0, len(rows))
	for _, pr := range rows {
		label := env.Classifier.Classify(pr.title)
		counts[label]++
		stmts = append(stmts, store.Stmt{SQL: updateLabelSQL, Args: []any{pr.id, label}})
	}

	if len(stmts) > 0 {
		if err := env.Store.ExecBatch(ctx, stmts); err != nil {
			return fmt.Errorf("update labels: %w", err)
		}
	}

	fields := logging.Fields{"partition": p.Key, "classified": len(rows)}
	for label, n := range counts {
		fields["count_"+label] = n
	}
	env.Logger.WithFields(fields).Info("classified posts")
	return nil
}

const createRobotPostsTableSQL = `
CREATE TABLE IF NOT EXISTS robot_posts (LIKE posts INCLUDING ALL)`

const deleteRobotPostsByWindowSQL = `
DELETE FROM robot_posts
WHERE created_local >= $1 AND created_local < $2`

const insertRobotPostsSQL = `
INSERT INTO robot_posts
SELECT * FROM posts
WHERE humanoid = ANY($3)
AND created_local >= $1 AND created_local < $2`

// SelectRobotPosts re-derives the partition's brand-labeled subset into robot_posts with
// the same delete-then-insert discipline, scoped by the local-time window.
func SelectRobotPosts(ctx context.Context, env *RunEnv, p Partition) error {
	start, end := p.Window()
	startLocal := start.Format(localTimeLayout)
	endLocal := end.Format(localTimeLayout)
	brands := env.Classifier.BrandNames()

	stmts := []store.Stmt{
		{SQL: createRobotPostsTableSQL},
		{SQL: deleteRobotPostsByWindowSQL, Args: []any{startLocal, endLocal}},
		{SQL: insertRobotPostsSQL, Args: []any{startLocal, endLocal, pq.Array(brands)}},
	}
	if err := env.Store.ExecBatch(ctx, stmts); err != nil {
		return fmt.Errorf("select robot posts: %w", err)
	}
	env.Logger.WithField("partition", p.Key).Info("robot posts selected")
	return nil
}
