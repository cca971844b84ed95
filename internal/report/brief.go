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

const briefSystemPrompt = `You write one-paragraph TLDRs of research papers from their abstracts.`

// briefAll generates a short digest for each paper ranked below the detailed
// band, sequentially, from the abstract alone. A failed paper degrades to an
// inline placeholder.
func (p *Pipeline) briefAll(ctx context.Context, papers []*types.Paper, w io.Writer) string {
	if len(papers) == 0 {
		return ""
	}
	maxTokens := p.Config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	var blocks []string
	for _, paper := range papers {
		prompt := fmt.Sprintf("Write a TLDR of this paper.\n\nTitle: %s\n\nAbstract:\n%s",
			paper.Title, paper.Abstract)

		resp, err := p.Backend.Complete(ctx, llm.Request{
			System:      briefSystemPrompt,
			Prompt:      prompt,
			Temperature: 0.7,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			fmt.Fprintf(w, "warning: brief for %s failed: %v\n", paper.ID, err)
			blocks = append(blocks, failureBlock(paper, err))
			continue
		}
		blocks = append(blocks, fmt.Sprintf("### %s (score %.1f)\n\n%s",
			paper.Title, paper.RelevanceScore, strings.TrimSpace(resp.Text)))
	}
	return strings.Join(blocks, "\n\n")
}
