// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-digest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for the archive fetch stage. The two backoff
// schedules in the pipeline (fetcher and scorer) differ and neither is
// authoritative, so every delay here is a plain configurable value.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Retries is the attempt count for single-shot category queries (default 3).
	Retries int `json:"retries" yaml:"retries"`

	// RetryDelay is the fixed delay between single-shot attempts (default 5s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`

	// PageRetries is the per-page attempt count for paged queries (default 3).
	PageRetries int `json:"page_retries" yaml:"page_retries"`

	// BackoffBase is the base for per-page exponential backoff (default 1s).
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`

	// BackoffCap bounds the per-page exponential backoff (default 10s).
	BackoffCap time.Duration `json:"backoff_cap" yaml:"backoff_cap"`

	// RateLimitWait is the longer fixed wait after an HTTP 429 (default 20s).
	RateLimitWait time.Duration `json:"rate_limit_wait" yaml:"rate_limit_wait"`

	// PageDelay is the courtesy delay between successful pages (default 3s).
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay"`

	// PerPage is the number of entries requested per page (default 50).
	PerPage int `json:"per_page" yaml:"per_page"`

	// MaxPages bounds the number of page requests per category (default 10).
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// MaxTotal bounds the total entries fetched per category (default 200).
	MaxTotal int `json:"max_total" yaml:"max_total"`
}

// LLMConfig holds settings for the OpenAI-compatible chat-completion client.
type LLMConfig struct {
	// BaseURL is the API base (default "https://api.openai.com/v1").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey authenticates requests. Usually loaded from .secrets/openai-api-key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the chat-completion model name.
	Model string `json:"model" yaml:"model"`

	// Timeout is the per-call HTTP timeout (default 120s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxConcurrent sizes the process-wide gate on in-flight LLM calls
	// (default 2). Every caller in the process shares the same gate.
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`
}

// ScoringConfig holds settings for the relevance scoring stage.
type ScoringConfig struct {
	// Workers is the requested pool size; the scorer caps it at 2 to respect
	// upstream API quotas.
	Workers int `json:"workers" yaml:"workers"`

	// MaxAttempts is the per-paper attempt count (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BackoffBase scales the linear per-attempt backoff (default 2s).
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`

	// MaxFailures is the circuit-breaker threshold: once this many papers
	// fail, the stage aborts the run (default 5).
	MaxFailures int `json:"max_failures" yaml:"max_failures"`

	// Threshold is the minimum relevance score to keep a paper. Clamped into
	// [0,10] before comparison.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// MaxTokens is the completion budget for scoring calls (default 256).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// ReportConfig holds settings for the report generation stage.
type ReportConfig struct {
	// Workers is the pool size for parallel detailed analyses (default 2,
	// further capped at the paper count).
	Workers int `json:"workers" yaml:"workers"`

	// SummaryBudget is the character budget for the aggregate summary prompt
	// (default 30000).
	SummaryBudget int `json:"summary_budget" yaml:"summary_budget"`

	// MaxFullTextChars is the hard character ceiling on extracted full text
	// (default 60000).
	MaxFullTextChars int `json:"max_full_text_chars" yaml:"max_full_text_chars"`

	// MaxFullTextTokens is the estimated-token ceiling on extracted full text
	// (default 12000). The tighter of the two ceilings wins.
	MaxFullTextTokens int `json:"max_full_text_tokens" yaml:"max_full_text_tokens"`

	// MaxTokens is the completion budget for analysis calls (default 2048).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// StoreConfig holds settings for run-artifact persistence.
type StoreConfig struct {
	// OutputDir is where digest artifacts (Markdown, YAML) are written
	// (default "output").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// DigestConfig holds run-level settings for the orchestrator.
type DigestConfig struct {
	// Categories lists the archive categories to fetch (e.g. "cs.AI").
	Categories []string `json:"categories" yaml:"categories"`

	// Timezone is the IANA zone the target calendar date is interpreted in
	// (default "UTC").
	Timezone string `json:"timezone" yaml:"timezone"`

	// NumDetailed is the number of top-ranked papers given a full analysis.
	NumDetailed int `json:"num_detailed" yaml:"num_detailed"`

	// NumBrief is the number of papers after the detailed band given a TLDR.
	NumBrief int `json:"num_brief" yaml:"num_brief"`

	// DedupeAcrossCategories drops papers seen in an earlier category by
	// archive ID before scoring. Off by default.
	DedupeAcrossCategories bool `json:"dedupe_across_categories" yaml:"dedupe_across_categories"`
}

// Config is the root configuration for one digest run.
type Config struct {
	Digest   DigestConfig  `json:"digest" yaml:"digest"`
	Fetch    FetchConfig   `json:"fetch" yaml:"fetch"`
	LLM      LLMConfig     `json:"llm" yaml:"llm"`
	Scoring  ScoringConfig `json:"scoring" yaml:"scoring"`
	Report   ReportConfig  `json:"report" yaml:"report"`
	Store    StoreConfig   `json:"store" yaml:"store"`
	Interest Interest      `json:"interest" yaml:"interest"`
}
