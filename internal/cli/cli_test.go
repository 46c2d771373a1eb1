package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/verdict/internal/archive"
	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/present"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute(context.Background()))
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "version")
	assert.Equal(t, "verdict "+Version+"\n", out)
}

func TestHistoryCommand(t *testing.T) {
	out := execute(t, "--no-color", "history")
	assert.Contains(t, out, "NASA confirms discovery of Earth-like planet")
	assert.Contains(t, out, "Confidence: 75.0%")
	assert.Contains(t, out, "Uncertain")
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("VERDICT_ARCHIVE_PAGE_SIZE", "7")
	t.Setenv("VERDICT_NEWS_API_KEY", "")
	t.Setenv("NEWS_API_KEY", "news-secret")

	execute(t, "version")
	require.NotNil(t, cfg)
	assert.Equal(t, 7, cfg.Archive.PageSize)
	assert.Equal(t, "news-secret", cfg.News.APIKey)
	assert.Equal(t, model.DefaultConfig().API.BaseURL, cfg.API.BaseURL)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "*****", maskSecret("short"))
	assert.Equal(t, "********wxyz", maskSecret("sk-abcdefghijklmnopqrstuvwxyz"))
}

func TestWriteConfig_MasksKeys(t *testing.T) {
	c := model.DefaultConfig()
	c.News.APIKey = "news-key-123456"
	c.LLM.APIKey = "sk-llm-987654321"

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, c))

	out := buf.String()
	assert.NotContains(t, out, "news-key-123456")
	assert.NotContains(t, out, "sk-llm-987654321")
	assert.Contains(t, out, "********3456")
	assert.Contains(t, out, "# llm api key: ********4321")
	assert.Equal(t, "news-key-123456", c.News.APIKey, "caller's config untouched")
}

func TestInitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".verdict", "config.yaml")

	require.NoError(t, initConfigFile(path, false))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# verdict configuration file")
	assert.Contains(t, string(data), "base_url: http://localhost:5000")

	assert.Error(t, initConfigFile(path, false), "existing file kept")
	assert.NoError(t, initConfigFile(path, true))
}

func TestParseSections(t *testing.T) {
	ids, err := parseSections([]string{"summary", " fact-checks "})
	require.NoError(t, err)
	assert.Equal(t, []present.SectionID{present.SectionSummary, present.SectionFactChecks}, ids)

	_, err = parseSections([]string{"nope"})
	assert.Error(t, err)
}

func TestPrintArchive(t *testing.T) {
	snap := archive.Snapshot{
		SearchTerm:   "moon",
		Category:     "science",
		Articles:     []model.ArticleSummary{{Title: "Moon landing photos are real", URL: "https://example.org/moon"}},
		HasNextPage:  true,
		TotalResults: 12,
	}

	var buf bytes.Buffer
	require.NoError(t, printArchive(&buf, snap, present.ArticleOptions{}))

	out := buf.String()
	assert.Contains(t, out, `Showing 1 of 12 articles (search: "moon", category: science)`)
	assert.Contains(t, out, "Moon landing photos are real")
}
