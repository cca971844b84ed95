// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report turns the filtered, ranked paper list into the three digest
// sections: aggregate summary, per-paper detailed analysis, and per-paper
// brief digest. The three stages run concurrently; they are independent
// reads of the same ranked list.
package report

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// TextExtractor fetches a paper's full text for the detailed stage. The PDF
// extractor implements it; tests supply a stub.
type TextExtractor interface {
	Extract(ctx context.Context, pdfURL string) (string, error)
}

// Pipeline generates the digest report.
type Pipeline struct {
	Backend   llm.Backend
	Extractor TextExtractor
	Config    types.ReportConfig
}

// Generate runs the three stages concurrently over the ranked papers and
// assembles the result. Per-paper failures inside any stage degrade to
// inline placeholder text; they never abort sibling papers or stages.
func (p *Pipeline) Generate(ctx context.Context, papers []*types.Paper, numDetailed, numBrief int, w io.Writer) *types.RecommendationResult {
	detailed := papers
	if len(detailed) > numDetailed {
		detailed = detailed[:numDetailed]
	}
	var brief []*types.Paper
	if len(papers) > numDetailed {
		brief = papers[numDetailed:]
		if len(brief) > numBrief {
			brief = brief[:numBrief]
		}
	}

	result := &types.RecommendationResult{Papers: papers}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		result.Summary = p.summarize(ctx, papers, numDetailed+numBrief, w)
	}()
	go func() {
		defer wg.Done()
		result.DetailedAnalysis = p.detailAll(ctx, detailed, w)
	}()
	go func() {
		defer wg.Done()
		result.BriefAnalysis = p.briefAll(ctx, brief, w)
	}()
	wg.Wait()

	return result
}

// failureBlock renders the inline placeholder for a paper whose analysis
// could not be generated.
func failureBlock(paper *types.Paper, err error) string {
	return fmt.Sprintf("### %s\n\nanalysis failed: %v", paper.Title, err)
}
