// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/pkg/types"
)

const detailSystemPrompt = `You write structured long-form analyses of research papers: motivation, method, results, limitations, and why it matters.`

// charsPerToken is the rough character-to-token estimate used to convert the
// token ceiling into characters.
const charsPerToken = 4

// detailAll generates the long-form analysis blocks for the top-ranked
// papers. Extraction and generation fan out over a bounded pool; output
// blocks are re-assembled in rank order regardless of completion order, and
// a failed paper degrades to an inline placeholder.
func (p *Pipeline) detailAll(ctx context.Context, papers []*types.Paper, w io.Writer) string {
	if len(papers) == 0 {
		return ""
	}

	workers := p.Config.Workers
	if workers <= 0 {
		workers = 2
	}
	if workers > len(papers) {
		workers = len(papers)
	}

	blocks := make([]string, len(papers))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				blocks[idx] = p.detailOne(ctx, papers[idx], idx+1, w)
			}
		}()
	}
	for idx := range papers {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return strings.Join(blocks, "\n\n")
}

// detailOne fetches one paper's full text and asks the model for a long-form
// analysis. Any failure is contained to this paper's block.
func (p *Pipeline) detailOne(ctx context.Context, paper *types.Paper, rank int, w io.Writer) string {
	maxTokens := p.Config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	fullText, err := p.Extractor.Extract(ctx, paper.PDFURL)
	if err != nil {
		fmt.Fprintf(w, "warning: full text for %s failed: %v\n", paper.ID, err)
		return failureBlock(paper, fmt.Errorf("full text extraction: %w", err))
	}
	paper.FullText = p.truncateFullText(fullText)

	prompt := fmt.Sprintf("Analyze the following paper in depth.\n\nTitle: %s\nAuthors: %s\n\nAbstract:\n%s\n\nFull text:\n%s",
		paper.Title, strings.Join(paper.Authors, ", "), paper.Abstract, paper.FullText)

	resp, err := p.Backend.Complete(ctx, llm.Request{
		System:      detailSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		fmt.Fprintf(w, "warning: analysis for %s failed: %v\n", paper.ID, err)
		return failureBlock(paper, err)
	}

	return fmt.Sprintf("### %d. %s (score %.1f)\n\n%s", rank, paper.Title, paper.RelevanceScore, strings.TrimSpace(resp.Text))
}

// truncateFullText bounds extracted text by the estimated-token ceiling and
// the hard character ceiling, whichever is tighter.
func (p *Pipeline) truncateFullText(text string) string {
	maxChars := p.Config.MaxFullTextChars
	if maxChars <= 0 {
		maxChars = 60000
	}
	maxTokens := p.Config.MaxFullTextTokens
	if maxTokens <= 0 {
		maxTokens = 12000
	}
	if byTokens := maxTokens * charsPerToken; byTokens < maxChars {
		maxChars = byTokens
	}
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars]
}
