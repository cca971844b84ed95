// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package digest sequences the pipeline: fetch candidates per category,
// score them against the interest, filter and rank, then generate the
// report. One run per invocation; runs share no mutable state.
package digest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pdiddy/paper-digest/internal/report"
	"github.com/pdiddy/paper-digest/internal/score"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Progress receives step transitions from a run. The dashboard implements
// it; the CLI uses a writer-backed printer.
type Progress interface {
	Report(step string, percentage int, message string)
}

// NopProgress discards progress updates.
type NopProgress struct{}

// Report implements Progress.
func (NopProgress) Report(string, int, string) {}

// Step labels reported through Progress, in run order.
const (
	StepInit      = "init"
	StepFetching  = "fetching"
	StepScoring   = "scoring"
	StepFiltering = "filtering"
	StepReporting = "reporting"
	StepDone      = "done"
	StepAborted   = "aborted"
)

// Fetcher retrieves one category's candidates for a target date. Satisfied
// by *fetch.Client; tests supply a stub.
type Fetcher interface {
	FetchByCategoryPaged(ctx context.Context, category string, date time.Time, w io.Writer) ([]*types.Paper, error)
}

// Engine runs the digest pipeline.
type Engine struct {
	Fetcher  Fetcher
	Scorer   *score.Scorer
	Reports  *report.Pipeline
	Progress Progress
	Config   types.DigestConfig
	Interest types.Interest
	Log      io.Writer
}

// Run executes one digest for the target calendar date, interpreted in the
// configured timezone. A nil result with a nil error is the modeled "no
// recommendations today" outcome: zero candidates fetched, or zero papers
// surviving the relevance filter. Fatal conditions (authentication failure,
// circuit-breaker trip) return an error and the run counts as aborted.
func (e *Engine) Run(ctx context.Context, now, targetDate time.Time) (*types.RecommendationResult, error) {
	progress := e.Progress
	if progress == nil {
		progress = NopProgress{}
	}
	log := e.Log
	if log == nil {
		log = io.Discard
	}

	loc, err := e.location()
	if err != nil {
		return nil, err
	}
	// Zero target means "yesterday", the most recent complete archive day.
	target := targetDate.In(loc)
	if targetDate.IsZero() {
		target = now.In(loc).AddDate(0, 0, -1)
	}

	progress.Report(StepInit, 0, fmt.Sprintf("digest for %s", target.Format("2006-01-02")))

	progress.Report(StepFetching, 10, fmt.Sprintf("fetching %d categories", len(e.Config.Categories)))
	candidates := e.fetchAll(ctx, target, log)
	if len(candidates) == 0 {
		progress.Report(StepDone, 100, "no new papers today")
		return nil, nil
	}
	progress.Report(StepScoring, 40, fmt.Sprintf("scoring %d candidates", len(candidates)))

	numDetailed := e.Config.NumDetailed
	if numDetailed <= 0 {
		numDetailed = 3
	}
	numBrief := e.Config.NumBrief
	if numBrief <= 0 {
		numBrief = 5
	}

	ranked, err := e.Scorer.ScoreAll(ctx, candidates, e.Interest, numDetailed+numBrief, log)
	if err != nil {
		progress.Report(StepAborted, 100, err.Error())
		return nil, fmt.Errorf("scoring stage: %w", err)
	}

	progress.Report(StepFiltering, 70, fmt.Sprintf("%d papers above threshold", len(ranked)))
	if len(ranked) == 0 {
		progress.Report(StepDone, 100, "no papers above threshold")
		return nil, nil
	}

	progress.Report(StepReporting, 80, fmt.Sprintf("generating report for %d papers", len(ranked)))
	result := e.Reports.Generate(ctx, ranked, numDetailed, numBrief, log)

	progress.Report(StepDone, 100, fmt.Sprintf("%d recommendations", len(result.Papers)))
	return result, nil
}

// location resolves the configured timezone the target date is interpreted in.
func (e *Engine) location() (*time.Location, error) {
	if e.Config.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(e.Config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", e.Config.Timezone, err)
	}
	return loc, nil
}

// fetchAll fans the paged fetch out over all categories concurrently and
// merges results by concatenation. Per-category failures are contained:
// partial results are kept and a warning is logged, so one broken category
// never sinks the run.
func (e *Engine) fetchAll(ctx context.Context, target time.Time, log io.Writer) []*types.Paper {
	type categoryResult struct {
		papers []*types.Paper
		err    error
		name   string
	}

	ch := make(chan categoryResult, len(e.Config.Categories))
	var wg sync.WaitGroup
	for _, category := range e.Config.Categories {
		wg.Add(1)
		go func(category string) {
			defer wg.Done()
			papers, err := e.Fetcher.FetchByCategoryPaged(ctx, category, target, log)
			ch <- categoryResult{papers: papers, err: err, name: category}
		}(category)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []*types.Paper
	for res := range ch {
		if res.err != nil {
			fmt.Fprintf(log, "warning: category %s incomplete: %v\n", res.name, res.err)
		}
		all = append(all, res.papers...)
	}

	if e.Config.DedupeAcrossCategories {
		all = dedupeByID(all)
	}
	return all
}

// dedupeByID keeps the first occurrence of each archive ID. Placeholder
// records from parse failures carry no ID and are always kept.
func dedupeByID(papers []*types.Paper) []*types.Paper {
	seen := make(map[string]bool, len(papers))
	out := papers[:0]
	for _, p := range papers {
		if p.ID != "" {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
		}
		out = append(out, p)
	}
	return out
}
