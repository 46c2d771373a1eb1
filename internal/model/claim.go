package model

// NotAvailable marks a string field the server omitted (absent, null or not a string).
// An empty string the server sent explicitly stays empty.
const NotAvailable = "N/A"

// Available reports whether s carries a server-supplied value
func Available(s string) bool {
	return s != NotAvailable
}

// SubmissionKind distinguishes the two kinds of pending submission
type SubmissionKind string

const (
	SubmissionText  SubmissionKind = "text"
	SubmissionImage SubmissionKind = "image"
)

// PendingSubmission is exactly one of a text claim or an image payload
type PendingSubmission struct {
	Kind  SubmissionKind `json:"kind"`
	Claim string         `json:"claim,omitempty"` // Set when Kind == SubmissionText
	Image *ImagePayload  `json:"-"`               // Set when Kind == SubmissionImage
}

// ImagePayload is an uploaded image handed from the entry view to the results view
type ImagePayload struct {
	ID          string `json:"id"`           // Assigned when the payload is created
	Name        string `json:"name"`         // Original file name
	ContentType string `json:"content_type"` // image/jpeg, image/png or image/gif
	Data        []byte `json:"-"`
}

// Size returns the payload size in bytes
func (p *ImagePayload) Size() int {
	if p == nil {
		return 0
	}
	return len(p.Data)
}

// RawResult is the untrusted, loosely structured body returned by the backend
type RawResult map[string]any

// ClaimReview is a single fact-checker's assessment of a claim
type ClaimReview struct {
	PublisherName string `json:"publisher_name"`
	PublisherSite string `json:"publisher_site"`
	TextualRating string `json:"textual_rating"`
	URL           string `json:"url"`
	ReviewDate    string `json:"review_date"`
	Title         string `json:"title"`
}

// ClaimEntry is a claim found by the fact-checking service with its reviews
type ClaimEntry struct {
	Text      string        `json:"text"`
	Claimant  string        `json:"claimant"`
	ClaimDate string        `json:"claim_date"`
	Reviews   []ClaimReview `json:"reviews"` // Never nil
}

// FirstReview returns the first review, if any
func (c ClaimEntry) FirstReview() (ClaimReview, bool) {
	if len(c.Reviews) == 0 {
		return ClaimReview{}, false
	}
	return c.Reviews[0], true
}

// NormalizedResult is the canonical shape of a fact-check response
type NormalizedResult struct {
	SummaryText      string       `json:"summary_text"`
	Labels           []string     `json:"labels"` // Never nil
	ClaimReviewCount int          `json:"claim_review_count"`
	AIAnalysis       string       `json:"ai_analysis"`
	AICategorization string       `json:"ai_categorization"`
	Claims           []ClaimEntry `json:"claims"` // Never nil
}

// EmptyResult returns a result with every field at its default
func EmptyResult() NormalizedResult {
	return NormalizedResult{
		SummaryText:      NotAvailable,
		Labels:           []string{},
		AIAnalysis:       NotAvailable,
		AICategorization: NotAvailable,
		Claims:           []ClaimEntry{},
	}
}
