// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-digest/internal/digest"
	"github.com/pdiddy/paper-digest/internal/fetch"
	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/internal/pdfext"
	"github.com/pdiddy/paper-digest/internal/report"
	"github.com/pdiddy/paper-digest/internal/score"
	"github.com/pdiddy/paper-digest/internal/secrets"
	"github.com/pdiddy/paper-digest/internal/store"
	"github.com/pdiddy/paper-digest/pkg/types"
)

const (
	defaultFetchTimeout = 60 * time.Second
	defaultPDFTimeout   = 120 * time.Second
	defaultUserAgent    = "paper-digest/0.1"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, score, and report on one day of new papers",
	Long: `Run executes one digest: it fetches papers submitted or updated on the
target date in each configured category, scores them against your interests,
and generates the report for those above the relevance threshold. The digest
is printed to stdout and saved under the output directory.

With no --date the digest covers yesterday, the most recent complete
archive day.`,
	RunE: runDigest,
}

func init() {
	runCmd.Flags().String("date", "", "target calendar date (YYYY-MM-DD, default: yesterday)")
	runCmd.Flags().StringSlice("categories", nil, "archive categories to fetch (overrides config)")
	runCmd.Flags().Float64("threshold", -1, "minimum relevance score to keep a paper (0-10)")
	runCmd.Flags().Int("num-detailed", 0, "papers given a full analysis (default 3)")
	runCmd.Flags().Int("num-brief", 0, "papers given a one-line TLDR (default 5)")
	runCmd.Flags().String("model", "", "chat-completion model name")
	runCmd.Flags().String("timezone", "", "IANA zone the target date is interpreted in")
	runCmd.Flags().String("output-dir", "", "directory for digest artifacts (default: output)")
	runCmd.Flags().Bool("no-save", false, "print the digest without persisting artifacts")

	rootCmd.AddCommand(runCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	cfg := configFromViper()
	applyRunFlags(cmd, &cfg)

	if cfg.Interest.Positive == "" {
		return fmt.Errorf("interest.positive is required: describe what you want to read about in the config file")
	}
	if len(cfg.Digest.Categories) == 0 {
		return fmt.Errorf("no categories configured: set digest.categories or pass --categories")
	}
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("no API key: put it in .secrets/openai-api-key or set llm.api_key")
	}

	target, err := resolveTargetDate(cmd, cfg.Digest.Timezone)
	if err != nil {
		return err
	}

	gate := llm.NewGate(cfg.LLM.MaxConcurrent)
	usage := &llm.Usage{}
	backend := llm.NewClient(cfg.LLM, gate, usage)

	fetchTimeout := cfg.Fetch.Timeout
	if fetchTimeout == 0 {
		fetchTimeout = defaultFetchTimeout
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = defaultUserAgent
	}

	engine := &digest.Engine{
		Fetcher: &fetch.Client{
			HTTP:   &http.Client{Timeout: fetchTimeout},
			Config: cfg.Fetch,
		},
		Scorer: &score.Scorer{Backend: backend, Config: cfg.Scoring},
		Reports: &report.Pipeline{
			Backend: backend,
			Extractor: &pdfext.Extractor{
				Client:    &http.Client{Timeout: defaultPDFTimeout},
				UserAgent: cfg.Fetch.UserAgent,
			},
			Config: cfg.Report,
		},
		Progress: printerProgress{os.Stderr},
		Config:   cfg.Digest,
		Interest: cfg.Interest,
		Log:      os.Stderr,
	}

	result, err := engine.Run(context.Background(), time.Now(), target)
	if err != nil {
		return err
	}
	printUsage(os.Stderr, usage)
	if result == nil {
		fmt.Println("No recommendations today.")
		return nil
	}

	fmt.Println(result.Text())

	noSave, _ := cmd.Flags().GetBool("no-save")
	if noSave {
		return nil
	}

	s, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.Save(result, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved digest %s to %s\n", run.ID[:8], run.MarkdownPath)
	return nil
}

// configFromViper assembles the run configuration from the config file and
// environment. Stage defaults are applied inside each stage, so zero values
// pass through untouched.
func configFromViper() types.Config {
	return types.Config{
		Digest: types.DigestConfig{
			Categories:             viper.GetStringSlice("digest.categories"),
			Timezone:               viper.GetString("digest.timezone"),
			NumDetailed:            viper.GetInt("digest.num_detailed"),
			NumBrief:               viper.GetInt("digest.num_brief"),
			DedupeAcrossCategories: viper.GetBool("digest.dedupe_across_categories"),
		},
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("fetch.timeout"),
				UserAgent: viper.GetString("fetch.user_agent"),
			},
			Retries:       viper.GetInt("fetch.retries"),
			RetryDelay:    viper.GetDuration("fetch.retry_delay"),
			PageRetries:   viper.GetInt("fetch.page_retries"),
			BackoffBase:   viper.GetDuration("fetch.backoff_base"),
			BackoffCap:    viper.GetDuration("fetch.backoff_cap"),
			RateLimitWait: viper.GetDuration("fetch.rate_limit_wait"),
			PageDelay:     viper.GetDuration("fetch.page_delay"),
			PerPage:       viper.GetInt("fetch.per_page"),
			MaxPages:      viper.GetInt("fetch.max_pages"),
			MaxTotal:      viper.GetInt("fetch.max_total"),
		},
		LLM: types.LLMConfig{
			BaseURL:       secrets.Lookup(loadedSecrets, "openai-base-url", viper.GetString("llm.base_url")),
			APIKey:        secrets.Lookup(loadedSecrets, "openai-api-key", viper.GetString("llm.api_key")),
			Model:         viper.GetString("llm.model"),
			Timeout:       viper.GetDuration("llm.timeout"),
			MaxConcurrent: viper.GetInt("llm.max_concurrent"),
		},
		Scoring: types.ScoringConfig{
			Workers:     viper.GetInt("scoring.workers"),
			MaxAttempts: viper.GetInt("scoring.max_attempts"),
			BackoffBase: viper.GetDuration("scoring.backoff_base"),
			MaxFailures: viper.GetInt("scoring.max_failures"),
			Threshold:   viper.GetFloat64("scoring.threshold"),
			MaxTokens:   viper.GetInt("scoring.max_tokens"),
		},
		Report: types.ReportConfig{
			Workers:           viper.GetInt("report.workers"),
			SummaryBudget:     viper.GetInt("report.summary_budget"),
			MaxFullTextChars:  viper.GetInt("report.max_full_text_chars"),
			MaxFullTextTokens: viper.GetInt("report.max_full_text_tokens"),
			MaxTokens:         viper.GetInt("report.max_tokens"),
		},
		Store: types.StoreConfig{
			OutputDir: viper.GetString("store.output_dir"),
		},
		Interest: types.Interest{
			Positive: viper.GetString("interest.positive"),
			Negative: viper.GetString("interest.negative"),
		},
	}
}

// applyRunFlags lets command-line flags override file and environment settings.
func applyRunFlags(cmd *cobra.Command, cfg *types.Config) {
	if categories, _ := cmd.Flags().GetStringSlice("categories"); len(categories) > 0 {
		cfg.Digest.Categories = categories
	}
	if threshold, _ := cmd.Flags().GetFloat64("threshold"); threshold >= 0 {
		cfg.Scoring.Threshold = threshold
	}
	if n, _ := cmd.Flags().GetInt("num-detailed"); n > 0 {
		cfg.Digest.NumDetailed = n
	}
	if n, _ := cmd.Flags().GetInt("num-brief"); n > 0 {
		cfg.Digest.NumBrief = n
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.LLM.Model = model
	}
	if tz, _ := cmd.Flags().GetString("timezone"); tz != "" {
		cfg.Digest.Timezone = tz
	}
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		cfg.Store.OutputDir = dir
	}
}

// resolveTargetDate parses --date in the configured timezone. A zero time
// means "yesterday" and is resolved by the engine.
func resolveTargetDate(cmd *cobra.Command, timezone string) (time.Time, error) {
	dateStr, _ := cmd.Flags().GetString("date")
	if dateStr == "" {
		return time.Time{}, nil
	}

	loc := time.UTC
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return time.Time{}, fmt.Errorf("loading timezone %q: %w", timezone, err)
		}
	}

	target, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: use YYYY-MM-DD", dateStr)
	}
	return target, nil
}

// printerProgress writes step transitions to a writer.
type printerProgress struct {
	w io.Writer
}

func (p printerProgress) Report(step string, percentage int, message string) {
	fmt.Fprintf(p.w, "[%3d%%] %-9s %s\n", percentage, step, message)
}

func printUsage(w io.Writer, usage *llm.Usage) {
	totals := usage.Snapshot()
	if totals.Calls == 0 {
		return
	}
	fmt.Fprintf(w, "LLM usage: %d calls, %d prompt tokens, %d completion tokens\n",
		totals.Calls, totals.PromptTokens, totals.CompletionTokens)
}
