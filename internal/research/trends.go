package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/bookforge/internal/fetch"
	"github.com/jonathan/bookforge/internal/llm"
	"github.com/jonathan/bookforge/internal/prompts"
	"github.com/jonathan/bookforge/internal/types"
)

// maxCorpusPerSource caps how much extracted text a single page may
// contribute to the summarization prompt.
const maxCorpusPerSource = 8000

// Options configures a trend research pass.
type Options struct {
	UseBrowser   bool
	Verbose      bool
	FetchTimeout time.Duration
}

// DefaultOptions returns research defaults.
func DefaultOptions() *Options {
	return &Options{
		FetchTimeout: fetch.DefaultTimeout,
	}
}

// Summarize fetches the given source URLs, extracts their main text and asks
// the model for a trend report on the topic. Sources that fail to fetch are
// skipped; at least one source must yield usable text.
func Summarize(ctx context.Context, client llm.Client, topic string, sourceURLs []string, opts *Options) (*types.TrendReport, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if len(sourceURLs) == 0 {
		return nil, &ResearchError{Message: "no source URLs to research"}
	}

	corpus, used := gatherCorpus(ctx, sourceURLs, opts)
	if len(used) == 0 {
		return nil, &ResearchError{Message: fmt.Sprintf("none of %d sources yielded usable text", len(sourceURLs))}
	}

	template := prompts.MustGet("research.json", "summarize-trends")
	prompt := prompts.Format(template, map[string]string{
		"Topic":  topic,
		"Corpus": corpus,
	})

	responseText, err := client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, &ResearchError{Message: "trend summarization call failed", Cause: err}
	}

	var report types.TrendReport
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(responseText)), &report); err != nil {
		return nil, &ResearchError{Message: "failed to parse trend report", Cause: err}
	}

	if strings.TrimSpace(report.Topic) == "" {
		report.Topic = topic
	}
	report.Sources = used
	return &report, nil
}

// gatherCorpus fetches each source and concatenates the extracted text.
// Returns the corpus and the list of URLs that actually contributed.
func gatherCorpus(ctx context.Context, sourceURLs []string, opts *Options) (string, []string) {
	fetchOpts := fetch.DefaultOptions()
	if opts.FetchTimeout > 0 {
		fetchOpts.Timeout = opts.FetchTimeout
	}

	var builder strings.Builder
	var used []string
	for _, sourceURL := range sourceURLs {
		text := fetchSourceText(ctx, sourceURL, fetchOpts, opts)
		if text == "" {
			continue
		}
		text = truncate(text, maxCorpusPerSource)
		fmt.Fprintf(&builder, "--- Source: %s ---\n%s\n\n", sourceURL, text)
		used = append(used, sourceURL)
	}
	return builder.String(), used
}

// truncate clips s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func fetchSourceText(ctx context.Context, sourceURL string, fetchOpts *fetch.Options, opts *Options) string {
	result, err := fetch.URL(ctx, sourceURL, fetchOpts)
	if err != nil {
		return ""
	}

	text, err := fetch.ExtractMainText(result.HTML, fetch.DefaultTextSelectors())
	if err != nil {
		return ""
	}

	if opts.UseBrowser && fetch.ShouldUseBrowser(text) {
		rendered, err := fetch.WithBrowser(ctx, sourceURL, fetchOpts.Timeout, opts.Verbose)
		if err == nil {
			if browserText, err := fetch.ExtractMainText(rendered, fetch.DefaultTextSelectors()); err == nil && len(browserText) > len(text) {
				text = browserText
			}
		}
	}
	return text
}
