// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-digest pipeline.
package types

import "time"

// Paper represents one archive entry as it moves through the pipeline.
// Records are ephemeral per run: the fetcher creates them, the scorer adds
// RelevanceScore and Evaluation, and the detailed report stage populates
// FullText. Nothing persists them as entities; they surface only inside the
// final RecommendationResult and any artifacts the output writer saves.
type Paper struct {
	// ID is the archive identifier (e.g. "2403.01234").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Published is the original submission timestamp.
	Published time.Time `json:"published" yaml:"published"`

	// Updated is the last-updated timestamp the archive sorts and filters on.
	Updated time.Time `json:"updated" yaml:"updated"`

	// PDFURL is the direct link to the paper PDF.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// AbstractURL is the link to the abstract page.
	AbstractURL string `json:"abstract_url" yaml:"abstract_url"`

	// Categories lists every archive category tag on the entry.
	Categories []string `json:"categories" yaml:"categories"`

	// PrimaryCategory is the entry's primary archive category.
	PrimaryCategory string `json:"primary_category" yaml:"primary_category"`

	// FullText is the extracted PDF text. Empty until the detailed analysis
	// stage fetches it; excluded from artifacts because of its size.
	FullText string `json:"-" yaml:"-"`

	// RelevanceScore is the 0-10 relevance judgment assigned by the scorer.
	// Zero until scored; once assigned it is never re-derived within a run.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	// Evaluation holds optional structured analysis fields returned by the
	// scoring call alongside the numeric score.
	Evaluation map[string]string `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`
}

// Interest is the user's scoring criterion. It is normalized once at the
// orchestrator boundary and immutable for the duration of a run.
type Interest struct {
	// Positive describes the research topics the user wants to see.
	Positive string `json:"positive" yaml:"positive"`

	// Negative optionally describes topics to score down. Empty means the
	// scorer uses the single-sided prompt template.
	Negative string `json:"negative,omitempty" yaml:"negative,omitempty"`
}

// Dual reports whether the interest carries a negative side.
func (i Interest) Dual() bool { return i.Negative != "" }

// RecommendationResult is the assembled output of one successful run. It is
// created once and immutable after construction; persistence is the output
// writer's job, not the core's.
type RecommendationResult struct {
	// Summary is the aggregate overview covering the top-ranked papers.
	Summary string `json:"summary" yaml:"summary"`

	// DetailedAnalysis holds the long-form per-paper analysis blocks in
	// rank order.
	DetailedAnalysis string `json:"detailed_analysis" yaml:"detailed_analysis"`

	// BriefAnalysis holds the short per-paper digests for the papers ranked
	// below the detailed band.
	BriefAnalysis string `json:"brief_analysis" yaml:"brief_analysis"`

	// Papers is the filtered, ranked candidate list the report was built from.
	Papers []*Paper `json:"papers" yaml:"papers"`
}

// Text concatenates the three report sections with separators.
func (r *RecommendationResult) Text() string {
	const sep = "\n\n---\n\n"
	return r.Summary + sep + r.DetailedAnalysis + sep + r.BriefAnalysis
}
