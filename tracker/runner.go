package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wardenfield/robot-pulse/tracker/logging"
)

// StageFunc runs one pipeline stage against one partition.
type StageFunc func(ctx context.Context, env *RunEnv, p Partition) error

// StageSpec declares one stage of the daily DAG and the stages that must complete
// before it.
type StageSpec struct {
	Name string
	Deps []string
	Run  StageFunc
}

// DailyStages returns the daily pipeline DAG. plotFn renders the weekly trend plot and
// is injected by the caller so the core carries no rendering dependency; a nil plotFn
// omits the plot stage.
func DailyStages(plotFn StageFunc) []StageSpec {
	stages := []StageSpec{
		{Name: "ingest", Run: IngestPosts},
		{Name: "classify", Deps: []string{"ingest"}, Run: ClassifyPosts},
		{Name: "select-robots", Deps: []string{"classify"}, Run: SelectRobotPosts},
		{Name: "summarize", Deps: []string{"select-robots"}, Run: SummarizePosts},
		{Name: "aggregate", Deps: []string{"classify"}, Run: AggregateWeekly},
	}
	if plotFn != nil {
		stages = append(stages, StageSpec{Name: "plot", Deps: []string{"aggregate"}, Run: plotFn})
	}
	return stages
}

// Runner executes a validated stage DAG over partitions, one stage at a time in
// dependency order.
type Runner struct {
	stages []StageSpec
}

// NewRunner validates the DAG (no duplicate names, no unknown deps, no cycles) and
// fixes the execution order: a stable topological sort that preserves declaration order
// among ready stages.
func NewRunner(stages []StageSpec) (*Runner, error) {
	byName := make(map[string]int, len(stages))
	for i, s := range stages {
		if s.Name == "" {
			return nil, fmt.Errorf("stage %d has no name", i)
		}
		if s.Run == nil {
			return nil, fmt.Errorf("stage %q has no run function", s.Name)
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate stage %q", s.Name)
		}
		byName[s.Name] = i
	}
	for _, s := range stages {
		for _, dep := range s.Deps {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("stage %q depends on unknown stage %q", s.Name, dep)
			}
		}
	}

	ordered := make([]StageSpec, 0, len(stages))
	done := make(map[string]bool, len(stages))
	for len(ordered) < len(stages) {
		progressed := false
		for _, s := range stages {
			if done[s.Name] {
				continue
			}
			ready := true
			for _, dep := range s.Deps {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, s)
				done[s.Name] = true
				progressed = true
			}
		}
		if !progressed {
			return nil, fmt.Errorf("stage dependency cycle among %d remaining stages", len(stages)-len(ordered))
		}
	}
	return &Runner{stages: ordered}, nil
}

// Stages returns the execution order.
func (r *Runner) Stages() []string {
	names := make([]string, len(r.stages))
	for i, s := range r.stages {
		names[i] = s.Name
	}
	return names
}

// Only restricts the runner to a single stage, for targeted re-runs. Dependencies are
// not pulled in; the operator asserts they already ran.
func (r *Runner) Only(name string) (*Runner, error) {
	for _, s := range r.stages {
		if s.Name == name {
			return &Runner{stages: []StageSpec{s}}, nil
		}
	}
	return nil, fmt.Errorf("unknown stage %q", name)
}

// From restricts the runner to the given stage and everything after it in execution
// order, for resuming a partially failed partition.
func (r *Runner) From(name string) (*Runner, error) {
	for i, s := range r.stages {
		if s.Name == name {
			return &Runner{stages: r.stages[i:]}, nil
		}
	}
	return nil, fmt.Errorf("unknown stage %q", name)
}

// RunPartition runs the ordered stages against one partition. Every run gets a fresh
// run ID so concurrent and repeated executions are distinguishable in the logs. The
// first stage failure aborts the partition.
func (r *Runner) RunPartition(ctx context.Context, env *RunEnv, p Partition) error {
	runID := uuid.NewString()
	logger := env.Logger.WithFields(logging.Fields{
		"run_id":    runID,
		"partition": p.Key,
	})
	scoped := *env
	scoped.Logger = logger

	logger.WithField("stages", r.Stages()).Info("partition run started")
	for _, s := range r.stages {
		started := time.Now()
		if err := s.Run(ctx, &scoped, p); err != nil {
			logger.WithError(err).WithField("stage", s.Name).Error("stage failed")
			return fmt.Errorf("stage %s on %s: %w", s.Name, p.Key, err)
		}
		logger.WithFields(logging.Fields{
			"stage":      s.Name,
			"elapsed_ms": time.Since(started).Milliseconds(),
		}).Info("stage complete")
	}
	logger.Info("partition run complete")
	return nil
}

// RunPartitions runs the pipeline over many partitions with bounded parallelism.
// Partitions are independent by construction (window-scoped writes), so any interleaving
// yields the same final state. parallelism < 1 means sequential.
func (r *Runner) RunPartitions(ctx context.Context, env *RunEnv, parts []Partition, parallelism int) error {
	if parallelism < 1 {
		parallelism = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, p := range parts {
		p := p
		g.Go(func() error {
			return r.RunPartition(ctx, env, p)
		})
	}
	return g.Wait()
}
