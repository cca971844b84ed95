// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"strings"
	"text/template"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// scoreSystemPrompt frames every scoring call. Temperature is pinned to 0 at
// the call site so the same paper and interest always yield the same score.
const scoreSystemPrompt = `You are a research paper relevance rater. You respond only with a JSON object of the form {"relevance_score": <number 0-10>, "evaluation": {"reason": "<one sentence>"}}.`

// singleSidedTmpl scores against the positive interest only.
var singleSidedTmpl = template.Must(template.New("single").Parse(`Rate how relevant the following paper is to the research interests below, on a scale from 0 (unrelated) to 10 (central).

Research interests:
{{.Interest.Positive}}

Paper title: {{.Paper.Title}}

Abstract:
{{.Paper.Abstract}}
`))

// dualSidedTmpl additionally scores down papers matching the negative side.
var dualSidedTmpl = template.Must(template.New("dual").Parse(`Rate how relevant the following paper is to the research interests below, on a scale from 0 (unrelated) to 10 (central). Lower the score for papers matching the topics to avoid.

Research interests:
{{.Interest.Positive}}

Topics to avoid:
{{.Interest.Negative}}

Paper title: {{.Paper.Title}}

Abstract:
{{.Paper.Abstract}}
`))

// scorePrompt renders the scoring prompt for one paper, choosing the single-
// or dual-sided template by whether the interest carries a negative side.
func scorePrompt(paper *types.Paper, interest types.Interest) string {
	data := struct {
		Paper    *types.Paper
		Interest types.Interest
	}{paper, interest}

	var b strings.Builder
	tmpl := singleSidedTmpl
	if interest.Dual() {
		tmpl = dualSidedTmpl
	}
	// The templates only reference fields that exist; Execute cannot fail.
	tmpl.Execute(&b, data)
	return b.String()
}
