// Package present turns a normalized fact-check result into the four
// sections of the results view and renders them.
package present

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/util"
)

// Placeholders shown when the service omitted a value
const (
	NoSummary        = "No summary available"
	NoAIAnalysis     = "No AI analysis available"
	NoCategorization = "No categorization available"
	NoFactChecks     = "No fact check results found."
	UnknownPublisher = "Unknown"
	UnknownDate      = "Unknown date"
	Unrated          = "Unrated"
	LoadingText      = "Analyzing content..."
	DataFormatNotice = "The server returned an unexpected data format."
)

// SectionID identifies one of the fixed result sections
type SectionID string

const (
	SectionSummary    SectionID = "summary"
	SectionAIAnalysis SectionID = "ai-analysis"
	SectionCategories SectionID = "categories"
	SectionFactChecks SectionID = "fact-checks"
)

// SectionOrder is the order sections are always shown in
var SectionOrder = []SectionID{SectionSummary, SectionAIAnalysis, SectionCategories, SectionFactChecks}

// Title returns the heading shown for the section
func (id SectionID) Title() string {
	switch id {
	case SectionSummary:
		return "Summary"
	case SectionAIAnalysis:
		return "AI Analysis"
	case SectionCategories:
		return "Categories & Tags"
	case SectionFactChecks:
		return "Fact Check Results"
	default:
		return string(id)
	}
}

// ParseSectionID accepts a section id or its title, case-insensitively
func ParseSectionID(s string) (SectionID, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, id := range SectionOrder {
		if s == string(id) || s == strings.ToLower(id.Title()) {
			return id, true
		}
	}
	return "", false
}

// Status is the load state of a section
type Status int

const (
	StatusReady Status = iota
	StatusLoading
	StatusFailed
)

// SectionState is the load state of one section with its error text
type SectionState struct {
	Status Status
	Error  string
}

// SectionStates maps each section to its state; missing entries are Ready
type SectionStates map[SectionID]SectionState

// Uniform gives every section the same state
func Uniform(loading bool, errMsg string) SectionStates {
	st := SectionState{Status: StatusReady}
	switch {
	case loading:
		st = SectionState{Status: StatusLoading}
	case errMsg != "":
		st = SectionState{Status: StatusFailed, Error: errMsg}
	}

	states := make(SectionStates, len(SectionOrder))
	for _, id := range SectionOrder {
		states[id] = st
	}
	return states
}

// Badge is the colour class of a rating
type Badge string

const (
	BadgeAffirmative Badge = "affirmative"
	BadgeNegative    Badge = "negative"
	BadgeCaution     Badge = "caution"
	BadgeNeutral     Badge = "neutral"
)

// BadgeFor maps a textual rating to its badge
func BadgeFor(rating string) Badge {
	switch strings.ToUpper(strings.TrimSpace(rating)) {
	case "TRUE":
		return BadgeAffirmative
	case "FALSE":
		return BadgeNegative
	case "MISLEADING", "MISATTRIBUTED":
		return BadgeCaution
	default:
		return BadgeNeutral
	}
}

// ReviewDetail is one fact-checker's review as displayed
type ReviewDetail struct {
	Publisher string
	Date      string
	Rating    string
	URL       string // Empty when the service gave none
	Title     string
	Badge     Badge
}

// ClaimCard is one claim with the badge of its first review
type ClaimCard struct {
	Text        string
	Claimant    string // Empty when unknown
	ClaimDate   string // Empty when unknown
	Badge       Badge
	RatingLabel string
	Details     []ReviewDetail
}

// Section is one collapsible block of the results view
type Section struct {
	ID       SectionID
	Title    string
	State    SectionState
	Expanded bool

	Body       string   // Summary, analysis or categorization text
	Labels     []string // Summary only
	CountLine  string   // Summary only
	CountBadge string   // Fact checks only, empty when there are none
	Cards      []ClaimCard
	Empty      string // Shown instead of cards when there are none
}

// View is the complete results view
type View struct {
	Sections        []*Section
	DataFormatError bool
}

// Build lays out res. A nil result builds sections with placeholders only,
// which is what loading and failed states show.
func Build(res *model.NormalizedResult, dataFormatError bool, states SectionStates) *View {
	r := model.EmptyResult()
	if res != nil {
		r = *res
	}

	v := &View{DataFormatError: dataFormatError}
	for _, id := range SectionOrder {
		s := &Section{
			ID:       id,
			Title:    id.Title(),
			State:    states[id],
			Expanded: true,
		}

		switch id {
		case SectionSummary:
			s.Body = orDefault(r.SummaryText, NoSummary)
			s.Labels = append([]string{}, r.Labels...)
			s.CountLine = fmt.Sprintf("Found %d fact-check results", r.ClaimReviewCount)
		case SectionAIAnalysis:
			s.Body = orDefault(r.AIAnalysis, NoAIAnalysis)
		case SectionCategories:
			s.Body = orDefault(r.AICategorization, NoCategorization)
		case SectionFactChecks:
			if r.ClaimReviewCount > 0 {
				s.CountBadge = fmt.Sprintf("%d results", r.ClaimReviewCount)
			}
			for _, c := range r.Claims {
				s.Cards = append(s.Cards, cardFor(c))
			}
			if len(s.Cards) == 0 {
				s.Empty = NoFactChecks
			}
		}
		v.Sections = append(v.Sections, s)
	}
	return v
}

// Section returns the section with id, or nil
func (v *View) Section(id SectionID) *Section {
	for _, s := range v.Sections {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Toggle flips a section between expanded and collapsed and returns the new state
func (v *View) Toggle(id SectionID) bool {
	s := v.Section(id)
	if s == nil {
		return false
	}
	s.Expanded = !s.Expanded
	return s.Expanded
}

func cardFor(c model.ClaimEntry) ClaimCard {
	card := ClaimCard{
		Text:        orDefault(c.Text, model.NotAvailable),
		Claimant:    optional(c.Claimant),
		ClaimDate:   optional(formatDate(c.ClaimDate, "")),
		Badge:       BadgeNeutral,
		RatingLabel: Unrated,
		Details:     make([]ReviewDetail, 0, len(c.Reviews)),
	}

	if first, ok := c.FirstReview(); ok {
		card.Badge = BadgeFor(ratingOf(first))
		card.RatingLabel = orDefault(ratingOf(first), Unrated)
	}

	for _, r := range c.Reviews {
		card.Details = append(card.Details, ReviewDetail{
			Publisher: publisherOf(r),
			Date:      formatDate(r.ReviewDate, UnknownDate),
			Rating:    orDefault(ratingOf(r), Unrated),
			URL:       optional(r.URL),
			Title:     optional(r.Title),
			Badge:     BadgeFor(ratingOf(r)),
		})
	}
	return card
}

func ratingOf(r model.ClaimReview) string {
	if !model.Available(r.TextualRating) {
		return ""
	}
	return r.TextualRating
}

// publisherOf falls back to the review site's registrable domain
func publisherOf(r model.ClaimReview) string {
	if name := optional(r.PublisherName); name != "" {
		return name
	}
	for _, candidate := range []string{r.PublisherSite, r.URL} {
		if !model.Available(candidate) || candidate == "" {
			continue
		}
		if !strings.Contains(candidate, "://") {
			candidate = "https://" + candidate
		}
		if domain, ok := util.RegistrableDomain(candidate); ok {
			return domain
		}
	}
	return UnknownPublisher
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// formatDate renders a service timestamp as "Jan 2, 2006". Unparsable dates
// are shown as sent; absent ones give fallback.
func formatDate(s, fallback string) string {
	s = optional(s)
	if s == "" {
		return fallback
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return s
}

func orDefault(s, placeholder string) string {
	if v := optional(s); v != "" {
		return v
	}
	return placeholder
}

// optional maps the not-available marker and blank strings to ""
func optional(s string) string {
	if !model.Available(s) {
		return ""
	}
	return strings.TrimSpace(s)
}
