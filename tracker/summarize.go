package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lib/pq"

	"github.com/wardenfield/robot-pulse/tracker/fileutils"
	"github.com/wardenfield/robot-pulse/tracker/logging"
	"github.com/wardenfield/robot-pulse/tracker/reddit"
	"github.com/wardenfield/robot-pulse/tracker/retry"
)

const selectRobotPostsByWindowSQL = `
SELECT post_id, humanoid, title, permalink, n_comments
FROM robot_posts
WHERE humanoid = ANY($3)
AND created_local >= $1 AND created_local < $2`

// deletedAuthor replaces an empty comment author in the flattened transcript.
const deletedAuthor = "[deleted]"

// SummarizePosts summarizes every brand-labeled post in the partition window: fetch the
// post's full comment tree, flatten it to a transcript, run one summarization call, and
// collect the results. The batch file report_<key>.json is written atomically only after
// every post in the partition succeeds; any failure leaves the previous file untouched.
func SummarizePosts(ctx context.Context, env *RunEnv, p Partition) error {
	start, end := p.Window()
	startLocal := start.Format(localTimeLayout)
	endLocal := end.Format(localTimeLayout)
	brands := env.Classifier.BrandNames()

	type robotRow struct {
		id        string
		humanoid  string
		title     string
		permalink string
		nComments int
	}
	var posts []robotRow
	args := []any{startLocal, endLocal, pq.Array(brands)}
	err := env.Store.Query(ctx, selectRobotPostsByWindowSQL, args, func(r *sql.Rows) error {
		posts = posts[:0]
		for r.Next() {
			var row robotRow
			if err := r.Scan(&row.id, &row.humanoid, &row.title, &row.permalink, &row.nComments); err != nil {
				return err
			}
			posts = append(posts, row)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("select robot posts for summarization: %w", err)
	}

	if len(posts) == 0 {
		env.Logger.WithField("partition", p.Key).Info("no robot posts in partition, skipping batch file")
		return nil
	}

	records := make([]SummaryRecord, 0, len(posts))
	for _, post := range posts {
		spec := env.CommentRetry
		spec.OnRetry = func(err error, attempt int) {
			env.Logger.WithError(err).WithFields(logging.Fields{
				"post_id": post.id,
				"attempt": attempt,
			}).Warn("retrying comment fetch after server error")
		}
		comments, err := retry.Do(ctx, spec, reddit.IsServerError, func() ([]reddit.Comment, error) {
			_, comments, err := env.Reddit.FetchComments(ctx, post.id)
			return comments, err
		})
		if err != nil {
			return fmt.Errorf("fetch comments for %s: %w", post.id, err)
		}

		transcript := FlattenComments(comments, env.MaxTranscriptBytes)
		summary, err := env.Summarizer.Summarize(ctx, transcript)
		if err != nil {
			return fmt.Errorf("summarize %s: %w", post.id, err)
		}

		records = append(records, SummaryRecord{
			PostID:    post.id,
			NComments: post.nComments,
			Permalink: post.permalink,
			Humanoid:  post.humanoid,
			Title:     post.title,
			Summary:   summary.Summary,
			Themes:    summary.Themes,
		})
		env.Logger.WithFields(logging.Fields{
			"post_id":    post.id,
			"humanoid":   post.humanoid,
			"n_comments": len(comments),
			"n_themes":   len(summary.Themes),
		}).Debug("post summarized")
	}

	path := filepath.Join(env.SummariesDir, SummaryFileName(p.Key))
	if err := fileutils.WriteJSONFileAtomic(path, records, true); err != nil {
		return fmt.Errorf("write batch file: %w", err)
	}
	env.Logger.WithFields(logging.Fields{
		"partition": p.Key,
		"summaries": len(records),
		"path":      path,
	}).Info("summary batch written")
	return nil
}

// FlattenComments renders a comment tree, already flattened depth-first, as one bulleted
// transcript line per comment. maxBytes > 0 caps the transcript; the cap never splits a
// line.
func FlattenComments(comments []reddit.Comment, maxBytes int) string {
	var b strings.Builder
	for i, c := range comments {
		author := c.Author
		if author == "" {
			author = deletedAuthor
		}
		line := fmt.Sprintf("- %s (Score: %d, Author: %s)", c.Body, c.Score, author)
		sep := 0
		if i > 0 {
			sep = 1
		}
		if maxBytes > 0 && b.Len()+sep+len(line) > maxBytes {
			break
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}
