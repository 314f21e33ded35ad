package tracker

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

func noopStage(names ...string) []StageSpec {
	stages := make([]StageSpec, 0, len(names))
	for _, n := range names {
		stages = append(stages, StageSpec{Name: n, Run: func(context.Context, *RunEnv, Partition) error { return nil }})
	}
	return stages
}

func TestNewRunner_StableTopologicalOrder(t *testing.T) {
	t.Parallel()

	r, err := NewRunner(DailyStages(func(context.Context, *RunEnv, Partition) error { return nil }))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	want := []string{"ingest", "classify", "select-robots", "summarize", "aggregate", "plot"}
	if got := r.Stages(); !reflect.DeepEqual(got, want) {
		t.Fatalf("order=%v, want %v", got, want)
	}
}

func TestNewRunner_NilPlotOmitsPlotStage(t *testing.T) {
	t.Parallel()

	r, err := NewRunner(DailyStages(nil))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	for _, name := range r.Stages() {
		if name == "plot" {
			t.Fatal("plot stage present without a plot function")
		}
	}
}

func TestNewRunner_RejectsBadDAGs(t *testing.T) {
	t.Parallel()

	run := func(context.Context, *RunEnv, Partition) error { return nil }

	if _, err := NewRunner([]StageSpec{{Name: "a", Run: run}, {Name: "a", Run: run}}); err == nil {
		t.Fatal("duplicate name accepted")
	}
	if _, err := NewRunner([]StageSpec{{Name: "a", Deps: []string{"ghost"}, Run: run}}); err == nil {
		t.Fatal("unknown dependency accepted")
	}
	if _, err := NewRunner([]StageSpec{
		{Name: "a", Deps: []string{"b"}, Run: run},
		{Name: "b", Deps: []string{"a"}, Run: run},
	}); err == nil {
		t.Fatal("cycle accepted")
	}
	if _, err := NewRunner([]StageSpec{{Name: "a"}}); err == nil {
		t.Fatal("nil run function accepted")
	}
}

func TestRunner_OnlyAndFrom(t *testing.T) {
	t.Parallel()

	r, err := NewRunner(noopStage("one", "two", "three"))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	only, err := r.Only("two")
	if err != nil {
		t.Fatalf("Only: %v", err)
	}
	if got := only.Stages(); !reflect.DeepEqual(got, []string{"two"}) {
		t.Fatalf("Only stages=%v", got)
	}

	from, err := r.From("two")
	if err != nil {
		t.Fatalf("From: %v", err)
	}
	if got := from.Stages(); !reflect.DeepEqual(got, []string{"two", "three"}) {
		t.Fatalf("From stages=%v", got)
	}

	if _, err := r.Only("ghost"); err == nil {
		t.Fatal("Only accepted unknown stage")
	}
	if _, err := r.From("ghost"); err == nil {
		t.Fatal("From accepted unknown stage")
	}
}

func TestRunPartition_StopsAtFirstFailure(t *testing.T) {
	env, _ := newTestEnv(t)
	p, _ := ParsePartition("2025-06-11", time.UTC)

	var ran []string
	boom := errors.New("stage boom")
	record := func(name string, err error) StageSpec {
		return StageSpec{Name: name, Run: func(context.Context, *RunEnv, Partition) error {
			ran = append(ran, name)
			return err
		}}
	}
	stages := []StageSpec{record("first", nil), record("second", boom), record("third", nil)}
	stages[1].Deps = []string{"first"}
	stages[2].Deps = []string{"second"}

	r, err := NewRunner(stages)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	err = r.RunPartition(context.Background(), env, p)
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want wrapped boom", err)
	}
	if !reflect.DeepEqual(ran, []string{"first", "second"}) {
		t.Fatalf("ran=%v", ran)
	}
}

func TestRunPartitions_BoundedParallelism(t *testing.T) {
	env, _ := newTestEnv(t)

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	stage := StageSpec{Name: "probe", Run: func(context.Context, *RunEnv, Partition) error {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	}}
	r, err := NewRunner([]StageSpec{stage})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	var parts []Partition
	for _, key := range []string{"2025-06-09", "2025-06-10", "2025-06-11", "2025-06-12", "2025-06-13"} {
		p, err := ParsePartition(key, time.UTC)
		if err != nil {
			t.Fatalf("ParsePartition: %v", err)
		}
		parts = append(parts, p)
	}
	if err := r.RunPartitions(context.Background(), env, parts, 2); err != nil {
		t.Fatalf("RunPartitions: %v", err)
	}
	if maxInFlight > 2 {
		t.Fatalf("max in-flight=%d, want <= 2", maxInFlight)
	}
}
