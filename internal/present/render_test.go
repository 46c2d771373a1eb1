package present

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/verdict/internal/model"
)

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, Build(sampleResult(), false, nil), TextOptions{}))
	out := buf.String()

	for _, want := range []string{
		"▾ Summary",
		"The claim is false.",
		"Labels: space, history",
		"Found 2 fact-check results",
		"▾ Fact Check Results  [2 results]",
		"[TRUE] The moon landing was staged",
		"Claimant: Social media posts",
		"- PolitiFact · Mar 15, 2024 · TRUE",
		"https://www.politifact.com/a",
		"[FALSE] X",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "no escape codes without colour")

	// Sections appear in order
	idx := []int{
		strings.Index(out, "Summary"),
		strings.Index(out, "AI Analysis"),
		strings.Index(out, "Categories & Tags"),
		strings.Index(out, "Fact Check Results"),
	}
	for i := 1; i < len(idx); i++ {
		assert.Less(t, idx[i-1], idx[i])
	}
}

func TestRenderText_Collapsed(t *testing.T) {
	v := Build(sampleResult(), false, nil)
	v.Toggle(SectionAIAnalysis)

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, v, TextOptions{}))

	assert.Contains(t, buf.String(), "▸ AI Analysis")
	assert.NotContains(t, buf.String(), "Multiple independent sources")
}

func TestRenderText_Loading(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, Build(nil, false, Uniform(true, "")), TextOptions{}))
	assert.Equal(t, 4, strings.Count(buf.String(), LoadingText))
}

func TestRenderText_Failed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, Build(nil, false, Uniform(false, "Quota exceeded")), TextOptions{}))
	assert.Equal(t, 4, strings.Count(buf.String(), "✗ Quota exceeded"))
	assert.NotContains(t, buf.String(), NoSummary)
}

func TestRenderText_DataFormatBanner(t *testing.T) {
	empty := model.EmptyResult()
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, Build(&empty, true, nil), TextOptions{}))

	assert.Contains(t, buf.String(), DataFormatNotice)
	assert.Contains(t, buf.String(), NoFactChecks)
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, Build(sampleResult(), false, nil)))
	out := buf.String()

	for _, want := range []string{
		"## Summary",
		"## AI Analysis",
		"## Categories & Tags",
		"## Fact Check Results (2 results)",
		"### 1. The moon landing was staged",
		"**Rating:** TRUE",
		"- PolitiFact, Mar 15, 2024: **TRUE** ([full fact-check](https://www.politifact.com/a))",
		"### 2. X",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRenderJSON(t *testing.T) {
	res := sampleResult()

	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, res))

	var got model.NormalizedResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	if diff := cmp.Diff(*res, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderJSON_Nil(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, nil))
	assert.Contains(t, buf.String(), `"claims": []`)
}

func TestRenderer_Files(t *testing.T) {
	dir := t.TempDir()
	report := &model.Report{
		Kind:      model.SubmissionText,
		Claim:     "moon landing hoax",
		CheckedAt: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		Result:    sampleResult(),
		Digest: &model.Digest{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Text:     "Two fact-checkers reviewed the claim.",
			Warnings: []string{"Removed 1 uncited URL"},
		},
	}

	r := NewRenderer(true)
	mdPath := filepath.Join(dir, "out", "report.md")
	jsonPath := filepath.Join(dir, "report.json")
	require.NoError(t, r.RenderMarkdown(report, mdPath))
	require.NoError(t, r.RenderJSON(report, jsonPath))

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	for _, want := range []string{
		"# Fact-check report",
		"**Claim:** moon landing hoax",
		"**Checked:** 2024-03-15T10:30:00Z",
		"## Fact Check Results (2 results)",
		"## Digest",
		"GENERATED CONTENT",
		"Two fact-checkers reviewed the claim.",
		"Removed 1 uncited URL",
		"Generated by verdict",
	} {
		assert.Contains(t, string(md), want)
	}

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded model.Report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "moon landing hoax", decoded.Claim)
	assert.Len(t, decoded.Result.Claims, 2)
}

func TestRenderer_FailedReportNoFooter(t *testing.T) {
	report := &model.Report{
		Kind:  model.SubmissionImage,
		Claim: "photo.png",
		Error: "An unexpected error occurred during image analysis.",
	}

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(false).WriteMarkdown(&buf, report))

	assert.Contains(t, buf.String(), "**Image:** photo.png")
	assert.Contains(t, buf.String(), "**Error:** An unexpected error occurred during image analysis.")
	assert.NotContains(t, buf.String(), "Generated by verdict")
	assert.NotContains(t, buf.String(), "## Digest")
}

func TestDigestMarkdown_Empty(t *testing.T) {
	assert.Empty(t, DigestMarkdown(nil))
	assert.Contains(t, DigestMarkdown(&model.Digest{}), "No digest generated")
}
