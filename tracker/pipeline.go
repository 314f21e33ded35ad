// Package tracker implements the incremental, idempotent, date-partitioned pipeline
// that follows public humanoid-robot discussion on Reddit: ingestion, keyword
// classification, weekly aggregation, comment summarization, and the change-detection
// sensor that triggers report rendering.
package tracker

import (
	"context"
	"time"

	"github.com/wardenfield/robot-pulse/tracker/logging"
	"github.com/wardenfield/robot-pulse/tracker/provider"
	"github.com/wardenfield/robot-pulse/tracker/reddit"
	"github.com/wardenfield/robot-pulse/tracker/retry"
	"github.com/wardenfield/robot-pulse/tracker/store"
)

// DefaultSubreddits is the fixed set of source channels watched by the pipeline.
var DefaultSubreddits = []string{"robotics", "singularity", "Futurology", "technology"}

// RedditAPI is the forum boundary consumed by the stages. *reddit.Client satisfies it;
// tests substitute fakes.
type RedditAPI interface {
	ListNew(ctx context.Context, subreddit string, limit int) ([]reddit.Post, error)
	FetchComments(ctx context.Context, postID string) (reddit.Post, []reddit.Comment, error)
}

// PostSummarizer is the language-model boundary. *provider.Summarizer satisfies it.
type PostSummarizer interface {
	Summarize(ctx context.Context, transcript string) (provider.PostSummary, error)
}

// RunEnv carries the collaborators and settings shared by every stage of a pipeline run.
type RunEnv struct {
	Logger     logging.Logger
	Store      *store.Store
	Reddit     RedditAPI
	Summarizer PostSummarizer
	Classifier *Classifier
	Location   *time.Location

	Subreddits         []string
	ListingLimit       int
	SummariesDir       string
	PlotPath           string
	MaxTranscriptBytes int

	ListingRetry retry.Spec
	CommentRetry retry.Spec
}

// Loc returns the env's location, defaulting to time.Local.
func (e *RunEnv) Loc() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}

// SummaryRecord is one summarized post inside a partition's batch file.
type SummaryRecord struct {
	PostID    string   `json:"post_id"`
	NComments int      `json:"n_comments"`
	Permalink string   `json:"post_permalink"`
	Humanoid  string   `json:"humanoid"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Themes    []string `json:"themes"`
}

// WeeklyMetricRow is one aggregated row of the weekly_post_metrics table.
type WeeklyMetricRow struct {
	Humanoid    string
	NPosts      int
	AvgScore    float64
	AvgComments float64
	WeekStart   string
}

// SummaryFileName returns the batch file name for a partition key.
func SummaryFileName(partitionKey string) string {
	return "report_" + partitionKey + ".json"
}

// localTimeLayout renders created_local values and created_local window bounds.
const localTimeLayout = "2006-01-02 15:04:05"
