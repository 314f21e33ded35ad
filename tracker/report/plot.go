// Package report renders the pipeline's human-facing artifacts: the weekly trend plot
// and the per-partition PDF report.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/wardenfield/robot-pulse/tracker"
)

// weekLabelLayout renders week-start keys on the plot's x axis.
const weekLabelLayout = "Jan-02-06"

// WeeklyPlotStage renders the weekly per-brand post-count trend across every aggregated
// week to env.PlotPath as a PNG. Hyphenated compound labels contribute one count to each
// constituent brand; the none and other categories are left off the plot. Every
// classifier brand gets a series even when it has no posts yet.
func WeeklyPlotStage(ctx context.Context, env *tracker.RunEnv, _ tracker.Partition) error {
	rows, err := tracker.SelectAllWeeklyMetrics(ctx, env)
	if err != nil {
		return err
	}

	brands := env.Classifier.BrandNames()
	counts, weeks := weeklyBrandCounts(rows, brands)
	if err := renderWeeklyPlot(env.PlotPath, brands, weeks, counts); err != nil {
		return fmt.Errorf("render weekly plot: %w", err)
	}
	env.Logger.WithField("path", env.PlotPath).Info("weekly plot rendered")
	return nil
}

// weeklyBrandCounts expands compound labels and sums post counts per week and brand.
// Weeks come back sorted ascending; counts is keyed week then brand, dense over both.
func weeklyBrandCounts(rows []tracker.WeeklyMetricRow, brands []string) (map[string]map[string]int, []string) {
	known := make(map[string]bool, len(brands))
	for _, b := range brands {
		known[b] = true
	}

	counts := map[string]map[string]int{}
	for _, row := range rows {
		week := counts[row.WeekStart]
		if week == nil {
			week = make(map[string]int, len(brands))
			for _, b := range brands {
				week[b] = 0
			}
			counts[row.WeekStart] = week
		}
		for _, label := range strings.Split(row.Humanoid, tracker.LabelSeparator) {
			if known[label] {
				week[label] += row.NPosts
			}
		}
	}

	weeks := make([]string, 0, len(counts))
	for w := range counts {
		weeks = append(weeks, w)
	}
	sort.Strings(weeks)
	return counts, weeks
}

func renderWeeklyPlot(path string, brands, weeks []string, counts map[string]map[string]int) error {
	p := plot.New()
	p.Title.Text = "Humanoid Robot Posts per Week"
	p.X.Label.Text = "Week"
	p.Y.Label.Text = "Posts"
	p.Y.Min = 0

	labels := make([]string, len(weeks))
	for i, w := range weeks {
		if t, err := time.Parse(tracker.PartitionKeyLayout, w); err == nil {
			labels[i] = t.Format(weekLabelLayout)
		} else {
			labels[i] = w
		}
	}
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = 0.5
	p.X.Tick.Label.YAlign = -0.4

	for i, brand := range brands {
		xys := make(plotter.XYs, len(weeks))
		for j, w := range weeks {
			xys[j].X = float64(j)
			xys[j].Y = float64(counts[w][brand])
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		p.Add(line, points)
		p.Legend.Add(brand, line, points)
	}
	p.Legend.Top = true

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
