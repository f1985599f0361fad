package research

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jonathan/bookforge/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trendPage = `<html><body><main>
<p>Friendship stories and gentle adventure remain the most requested themes
for picture books this season. Animal protagonists continue to dominate the
bestseller lists, with a notable rise in bedtime-themed narratives.</p>
</main></body></html>`

func TestSummarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(trendPage))
	}))
	defer server.Close()

	client := &llm.FakeClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			assert.Equal(t, llm.TierStandard, tier)
			assert.Contains(t, prompt, "animal stories")
			assert.Contains(t, prompt, "Friendship stories")
			return `{"topic": "animal stories", "summary": "Animal protagonists dominate.", "themes": ["friendship", "bedtime"]}`, nil
		},
	}

	report, err := Summarize(context.Background(), client, "animal stories", []string{server.URL}, nil)
	require.NoError(t, err)
	assert.Equal(t, "animal stories", report.Topic)
	assert.Equal(t, "Animal protagonists dominate.", report.Summary)
	assert.Equal(t, []string{"friendship", "bedtime"}, report.Themes)
	assert.Equal(t, []string{server.URL}, report.Sources)
}

func TestSummarize_FillsTopicWhenMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(trendPage))
	}))
	defer server.Close()

	client := &llm.FakeClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "```json\n{\"summary\": \"short\"}\n```", nil
		},
	}

	report, err := Summarize(context.Background(), client, "dinosaurs", []string{server.URL}, nil)
	require.NoError(t, err)
	assert.Equal(t, "dinosaurs", report.Topic)
}

func TestSummarize_NoSources(t *testing.T) {
	client := &llm.FakeClient{}
	_, err := Summarize(context.Background(), client, "space", nil, nil)
	require.Error(t, err)

	var resErr *ResearchError
	assert.ErrorAs(t, err, &resErr)
}

func TestSummarize_AllSourcesUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := &llm.FakeClient{}
	_, err := Summarize(context.Background(), client, "space", []string{server.URL, "not a url"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of 2 sources")
	assert.Empty(t, client.Calls)
}

func TestSummarize_SkipsFailedSourceButUsesRest(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(trendPage))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	client := &llm.FakeClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return `{"summary": "ok"}`, nil
		},
	}

	report, err := Summarize(context.Background(), client, "space", []string{bad.URL, good.URL}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{good.URL}, report.Sources)
}

func TestGatherCorpus_TruncatesSourceOnRuneBoundary(t *testing.T) {
	// One ASCII byte followed by three-byte runes puts the per-source cap in
	// the middle of a rune.
	body := "<html><body><main><p>a" +
		strings.Repeat("猫", maxCorpusPerSource/3+10) +
		"</p></main></body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	corpus, used := gatherCorpus(context.Background(), []string{server.URL}, DefaultOptions())
	require.Len(t, used, 1)
	assert.True(t, utf8.ValidString(corpus), "truncation split a multi-byte rune")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
	assert.Equal(t, "a", truncate("aéb", 2))
	assert.Equal(t, "aé", truncate("aéb", 3))
}
