package model

import "time"

// Report is the persisted outcome of one check (written by `check --json` and `batch`)
type Report struct {
	Kind            SubmissionKind    `json:"kind"`
	Claim           string            `json:"claim,omitempty"` // Text claim, or image file name
	CheckedAt       time.Time         `json:"checked_at"`
	Result          *NormalizedResult `json:"result,omitempty"`
	DataFormatError bool              `json:"data_format_error"`
	Error           string            `json:"error,omitempty"` // User-facing failure message

	Digest *Digest `json:"digest,omitempty"` // Optional LLM recap (never changes the verdict)
}

// Failed reports whether the check did not produce a result
func (r *Report) Failed() bool {
	return r.Error != ""
}

// Digest contains an optional LLM-generated recap of a result
// It is rendered separately and never alters ratings or badges
type Digest struct {
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	Text      string   `json:"text"`
	CitedURLs []string `json:"cited_urls,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Verdict is the coarse outcome recorded in the check history
type Verdict string

const (
	VerdictReal      Verdict = "real"
	VerdictFake      Verdict = "fake"
	VerdictUncertain Verdict = "uncertain"
)

// HistoryEntry is one row of the check history
type HistoryEntry struct {
	ID         int            `json:"id"`
	Content    string         `json:"content"`
	Kind       SubmissionKind `json:"kind"`
	Verdict    Verdict        `json:"verdict"`
	Confidence float64        `json:"confidence"` // 0..1
	Timestamp  time.Time      `json:"timestamp"`
}

// SampleHistory returns the fixed entries shown by the history view.
// History is not persisted; these are illustrative only.
func SampleHistory() []HistoryEntry {
	return []HistoryEntry{
		{
			ID:         1,
			Content:    "NASA confirms discovery of Earth-like planet",
			Kind:       SubmissionText,
			Verdict:    VerdictUncertain,
			Confidence: 0.75,
			Timestamp:  time.Date(2024, 3, 15, 10, 30, 0, 0, time.Local),
		},
		{
			ID:         2,
			Content:    "New study shows chocolate is good for health",
			Kind:       SubmissionText,
			Verdict:    VerdictFake,
			Confidence: 0.92,
			Timestamp:  time.Date(2024, 3, 14, 15, 45, 0, 0, time.Local),
		},
		{
			ID:         3,
			Content:    "Global temperature records broken in 2023",
			Kind:       SubmissionText,
			Verdict:    VerdictReal,
			Confidence: 0.98,
			Timestamp:  time.Date(2024, 3, 13, 9, 15, 0, 0, time.Local),
		},
	}
}
