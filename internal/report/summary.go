// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/pkg/types"
)

const summarySystemPrompt = `You write concise research digests. Summarize the papers as one coherent overview of the day's relevant work, grouping related papers.`

// summarize builds one aggregate prompt covering as many top-ranked papers as
// fit the character budget and asks the model for an overview. Failure
// degrades to inline placeholder text.
func (p *Pipeline) summarize(ctx context.Context, papers []*types.Paper, maxPapers int, w io.Writer) string {
	if len(papers) == 0 {
		return ""
	}

	budget := p.Config.SummaryBudget
	if budget <= 0 {
		budget = 30000
	}
	maxTokens := p.Config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	count := summaryCount(papers, maxPapers, budget)
	prompt := renderSummaryPrompt(papers[:count])

	resp, err := p.Backend.Complete(ctx, llm.Request{
		System:      summarySystemPrompt,
		Prompt:      prompt,
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		fmt.Fprintf(w, "warning: summary generation failed: %v\n", err)
		return fmt.Sprintf("summary failed: %v", err)
	}
	return strings.TrimSpace(resp.Text)
}

// summaryCount picks how many top-ranked papers the summary prompt covers.
// Starting from one paper it adds papers while the rendered prompt stays
// within budget, stopping at the first overflow. The selection is monotonic
// in the candidate pool and never zero while papers exist: if even one paper
// overflows the budget, exactly one is forced.
func summaryCount(papers []*types.Paper, maxPapers, budget int) int {
	limit := len(papers)
	if maxPapers > 0 && maxPapers < limit {
		limit = maxPapers
	}

	count := 0
	for i := 1; i <= limit; i++ {
		if len(renderSummaryPrompt(papers[:i])) > budget {
			break
		}
		count = i
	}
	if count == 0 {
		count = 1
	}
	return count
}

// renderSummaryPrompt lists the selected papers with scores and abstracts.
func renderSummaryPrompt(papers []*types.Paper) string {
	var b strings.Builder
	b.WriteString("Today's relevant papers, ranked by relevance:\n\n")
	for i, paper := range papers {
		fmt.Fprintf(&b, "%d. %s (score %.1f)\nAuthors: %s\nAbstract: %s\n\n",
			i+1, paper.Title, paper.RelevanceScore,
			strings.Join(paper.Authors, ", "), paper.Abstract)
	}
	b.WriteString("Write an overview of this body of work.")
	return b.String()
}
